package logistics

import (
	"errors"
	"math"

	"github.com/gravitas-games/millworks/pkg/hexcore/hex"
	"github.com/gravitas-games/millworks/pkg/hexcore/path"
)

// DefaultSearchCap bounds road searches when no cap is configured.
const DefaultSearchCap = 1000

var (
	// ErrMissingGrid means no grid query was supplied.
	ErrMissingGrid = errors.New("logistics: grid query is not configured")
	// ErrMissingRoadGraph means no road graph was supplied.
	ErrMissingRoadGraph = errors.New("logistics: road graph is not configured")
	// ErrMissingRegistry means no warehouse registry was supplied.
	ErrMissingRegistry = errors.New("logistics: warehouse registry is not configured")
)

// Grid answers which cells a structure rooted at a cell occupies.
type Grid interface {
	// Footprint returns the cells of the structure rooted at root, or nil
	// when nothing is registered there.
	Footprint(root hex.Axial) []hex.Axial
}

// Binding assigns a building to a warehouse. Distance never exceeds Radius.
type Binding struct {
	WarehouseID string `json:"warehouseId"`
	Distance    int    `json:"distance"`
	Radius      int    `json:"radius"`
}

// FindAccessPoints returns every road node adjacent to the footprint rooted
// at root, sorted and without duplicates. A root with no registered footprint
// is treated as a single cell.
func FindAccessPoints(root hex.Axial, grid Grid, graph path.Graph) []hex.Axial {
	if grid == nil || graph == nil {
		return nil
	}
	cells := grid.Footprint(root)
	if len(cells) == 0 {
		cells = []hex.Axial{root}
	}
	inside := make(map[hex.Axial]bool, len(cells))
	for _, c := range cells {
		inside[c] = true
	}
	seen := make(map[hex.Axial]bool)
	var out []hex.Axial
	for _, c := range cells {
		for _, nb := range c.Neighbors() {
			if inside[nb] || seen[nb] {
				continue
			}
			seen[nb] = true
			if graph.Contains(nb) {
				out = append(out, nb)
			}
		}
	}
	hex.SortCells(out)
	return out
}

// MultiSourceDistances labels road nodes with their hop distance from the
// nearest source, up to maxDistance.
func MultiSourceDistances(sources []hex.Axial, maxDistance int, graph path.Graph) map[hex.Axial]int {
	return path.MultiSourceDistances(sources, maxDistance, graph)
}

// ResolveNearestWarehouse picks the candidate with the smallest road distance
// from the building's access points. A candidate qualifies only when its
// distance is within its own radius; ties go to the earlier candidate.
// It returns nil when nothing qualifies.
func ResolveNearestWarehouse(access []hex.Axial, candidates []Warehouse, grid Grid, graph path.Graph, searchCap int) (*Binding, error) {
	if grid == nil {
		return nil, ErrMissingGrid
	}
	if graph == nil {
		return nil, ErrMissingRoadGraph
	}
	if len(access) == 0 || len(candidates) == 0 {
		return nil, nil
	}
	if searchCap <= 0 {
		searchCap = DefaultSearchCap
	}

	// nothing beyond the widest radius can qualify
	widest := 0
	for _, w := range candidates {
		widest = max(widest, w.Radius)
	}
	dist := MultiSourceDistances(access, min(searchCap, widest), graph)

	var best *Binding
	bestDist := math.MaxInt
	for _, w := range candidates {
		d, ok := nearestEntry(dist, FindAccessPoints(w.Root, grid, graph))
		if !ok || d > w.Radius {
			continue
		}
		if d < bestDist {
			bestDist = d
			best = &Binding{WarehouseID: w.ID, Distance: d, Radius: w.Radius}
		}
	}
	return best, nil
}

func nearestEntry(dist map[hex.Axial]int, entries []hex.Axial) (int, bool) {
	bestD, found := 0, false
	for _, e := range entries {
		if d, ok := dist[e]; ok && (!found || d < bestD) {
			bestD, found = d, true
		}
	}
	return bestD, found
}

// Resolver binds buildings to warehouses over one grid and road graph.
type Resolver struct {
	grid      Grid
	graph     path.Graph
	searchCap int
}

// NewResolver validates its collaborators. A searchCap <= 0 uses
// DefaultSearchCap.
func NewResolver(grid Grid, graph path.Graph, searchCap int) (*Resolver, error) {
	if grid == nil {
		return nil, ErrMissingGrid
	}
	if graph == nil {
		return nil, ErrMissingRoadGraph
	}
	if searchCap <= 0 {
		searchCap = DefaultSearchCap
	}
	return &Resolver{grid: grid, graph: graph, searchCap: searchCap}, nil
}

// SearchCap returns the configured distance cap.
func (r *Resolver) SearchCap() int { return r.searchCap }

// AccessPoints returns the road access points of the structure at root.
func (r *Resolver) AccessPoints(root hex.Axial) []hex.Axial {
	return FindAccessPoints(root, r.grid, r.graph)
}

// Locate finds the warehouse the building rooted at root should be bound to.
// A building without road frontage, or a world without warehouses, yields a
// nil binding and no error.
func (r *Resolver) Locate(root hex.Axial, warehouses Registry) (*Binding, error) {
	if r == nil || r.grid == nil {
		return nil, ErrMissingGrid
	}
	if r.graph == nil {
		return nil, ErrMissingRoadGraph
	}
	if warehouses == nil {
		return nil, ErrMissingRegistry
	}
	access := r.AccessPoints(root)
	if len(access) == 0 {
		return nil, nil
	}
	return ResolveNearestWarehouse(access, warehouses.Warehouses(), r.grid, r.graph, r.searchCap)
}

// Route returns a road path from the building rooted at root to the nearest
// entry of the bound warehouse, or nil when it is no longer reachable.
func (r *Resolver) Route(root hex.Axial, b *Binding, warehouses Registry) []hex.Axial {
	if b == nil || warehouses == nil {
		return nil
	}
	w, ok := warehouses.Lookup(b.WarehouseID)
	if !ok {
		return nil
	}
	access := r.AccessPoints(root)
	entries := r.AccessPoints(w.Root)
	if len(access) == 0 || len(entries) == 0 {
		return nil
	}

	fromBuilding := MultiSourceDistances(access, r.searchCap, r.graph)
	entry, ok := closest(fromBuilding, entries)
	if !ok {
		return nil
	}
	fromEntry := MultiSourceDistances([]hex.Axial{entry}, r.searchCap, r.graph)
	start, ok := closest(fromEntry, access)
	if !ok {
		return nil
	}
	return path.Route(r.graph, start, entry)
}

// closest returns the first cell in cells with the lowest label.
func closest(dist map[hex.Axial]int, cells []hex.Axial) (hex.Axial, bool) {
	var best hex.Axial
	bestD, found := 0, false
	for _, c := range cells {
		if d, ok := dist[c]; ok && (!found || d < bestD) {
			best, bestD, found = c, d, true
		}
	}
	return best, found
}
