package gamemap

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gravitas-games/millworks/pkg/hexcore/hex"
)

var (
	// ErrOutOfBounds is returned for cells outside the map.
	ErrOutOfBounds = errors.New("gamemap: cell out of bounds")
	// ErrOccupied is returned when a cell is already taken.
	ErrOccupied = errors.New("gamemap: cell occupied")
	// ErrNoStructure is returned when no structure is rooted at a cell.
	ErrNoStructure = errors.New("gamemap: no structure at root")
)

// GameMap represents the game world map: a hex disk of tiles carrying
// terrain, roads and structure footprints. It serves as the road graph and
// the footprint grid for logistics queries.
type GameMap struct {
	mu sync.RWMutex

	Radius int
	hexes  map[hex.Axial]*Hex
	roads  map[hex.Axial]bool

	// structures maps a root cell to its occupied cells (root first)
	structures map[hex.Axial][]hex.Axial

	logger *slog.Logger
}

// Option configures a GameMap.
type Option func(*GameMap)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(gm *GameMap) {
		if l != nil {
			gm.logger = l
		}
	}
}

// New creates a new game map covering every cell within radius of the origin.
func New(radius int, opts ...Option) (*GameMap, error) {
	if radius < 0 {
		return nil, fmt.Errorf("gamemap: radius must not be negative, got %d", radius)
	}
	gm := &GameMap{
		Radius:     radius,
		hexes:      make(map[hex.Axial]*Hex),
		roads:      make(map[hex.Axial]bool),
		structures: make(map[hex.Axial][]hex.Axial),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(gm)
	}

	for _, pos := range hex.Disk(hex.Axial{}, radius) {
		gm.hexes[pos] = &Hex{Pos: pos, Terrain: TerrainPlains}
	}
	gm.logger.Debug("game map generated", "radius", radius, "hexes", len(gm.hexes))
	return gm, nil
}

// InBounds reports whether a is a map cell.
func (gm *GameMap) InBounds(a hex.Axial) bool {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	_, ok := gm.hexes[a]
	return ok
}

// HexCount returns the number of cells on the map.
func (gm *GameMap) HexCount() int {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	return len(gm.hexes)
}

// GetHex returns a copy of the tile at pos.
func (gm *GameMap) GetHex(pos hex.Axial) (Hex, bool) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	h, ok := gm.hexes[pos]
	if !ok {
		return Hex{}, false
	}
	return *h, true
}

// SetTerrain changes the terrain of a cell. Impassable terrain cannot carry
// a road; an existing road on it is removed.
func (gm *GameMap) SetTerrain(pos hex.Axial, terrain Terrain) error {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	h, ok := gm.hexes[pos]
	if !ok {
		return fmt.Errorf("%w: %s", ErrOutOfBounds, pos)
	}
	h.Terrain = terrain
	if !terrain.Buildable() {
		delete(gm.roads, pos)
		h.Road = false
	}
	return nil
}

// BuildRoad paves the given cells. It is all-or-nothing: any cell out of
// bounds, under a structure or on impassable terrain rejects the whole call.
// Cells that already carry a road are accepted.
func (gm *GameMap) BuildRoad(cells ...hex.Axial) error {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	for _, c := range cells {
		h, ok := gm.hexes[c]
		if !ok {
			return fmt.Errorf("%w: %s", ErrOutOfBounds, c)
		}
		if h.Structure != "" {
			return fmt.Errorf("%w: %s by %s", ErrOccupied, c, h.Structure)
		}
		if !h.Terrain.Buildable() {
			return fmt.Errorf("%w: %s is %s", ErrOccupied, c, h.Terrain)
		}
	}
	for _, c := range cells {
		gm.roads[c] = true
		gm.hexes[c].Road = true
	}
	return nil
}

// RemoveRoad clears roads from the given cells and returns how many were removed.
func (gm *GameMap) RemoveRoad(cells ...hex.Axial) int {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	n := 0
	for _, c := range cells {
		if gm.roads[c] {
			delete(gm.roads, c)
			gm.hexes[c].Road = false
			n++
		}
	}
	return n
}

// Roads returns every road cell, sorted.
func (gm *GameMap) Roads() []hex.Axial {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	out := make([]hex.Axial, 0, len(gm.roads))
	for c := range gm.roads {
		out = append(out, c)
	}
	hex.SortCells(out)
	return out
}

// Contains reports whether a is a road node.
func (gm *GameMap) Contains(a hex.Axial) bool {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	return gm.roads[a]
}

// Neighbors returns the road nodes adjacent to a in hex.Directions order.
func (gm *GameMap) Neighbors(a hex.Axial) []hex.Axial {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	out := make([]hex.Axial, 0, 6)
	for _, nb := range a.Neighbors() {
		if gm.roads[nb] {
			out = append(out, nb)
		}
	}
	return out
}

// PlaceStructure occupies the footprint rooted at root with the structure id.
// Every cell must be in bounds, buildable, unpaved and free.
func (gm *GameMap) PlaceStructure(id string, root hex.Axial, fp hex.Footprint) error {
	if id == "" {
		return errors.New("gamemap: structure ID cannot be empty")
	}
	cells := fp.Cells(root)

	gm.mu.Lock()
	defer gm.mu.Unlock()
	if _, exists := gm.structures[root]; exists {
		return fmt.Errorf("%w: root %s", ErrOccupied, root)
	}
	for _, c := range cells {
		h, ok := gm.hexes[c]
		if !ok {
			return fmt.Errorf("%w: %s", ErrOutOfBounds, c)
		}
		switch {
		case h.Structure != "":
			return fmt.Errorf("%w: %s by %s", ErrOccupied, c, h.Structure)
		case h.Road:
			return fmt.Errorf("%w: %s is a road", ErrOccupied, c)
		case !h.Terrain.Buildable():
			return fmt.Errorf("%w: %s is %s", ErrOccupied, c, h.Terrain)
		}
	}
	for _, c := range cells {
		gm.hexes[c].Structure = id
	}
	gm.structures[root] = cells
	return nil
}

// RemoveStructure frees the footprint rooted at root and returns its ID.
func (gm *GameMap) RemoveStructure(root hex.Axial) (string, error) {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	cells, ok := gm.structures[root]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoStructure, root)
	}
	id := gm.hexes[root].Structure
	for _, c := range cells {
		gm.hexes[c].Structure = ""
	}
	delete(gm.structures, root)
	return id, nil
}

// Footprint returns the cells of the structure rooted at root, or nil.
func (gm *GameMap) Footprint(root hex.Axial) []hex.Axial {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	cells := gm.structures[root]
	if cells == nil {
		return nil
	}
	return append([]hex.Axial(nil), cells...)
}

// StructureAt returns the ID of the structure covering pos.
func (gm *GameMap) StructureAt(pos hex.Axial) (string, bool) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	h, ok := gm.hexes[pos]
	if !ok || h.Structure == "" {
		return "", false
	}
	return h.Structure, true
}

// StructureCount returns the number of placed structures.
func (gm *GameMap) StructureCount() int {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	return len(gm.structures)
}
