package simulation

import (
	"sort"

	"github.com/gravitas-games/millworks/pkg/hexcore/hex"
	"github.com/gravitas-games/millworks/pkg/inventory"
	"github.com/gravitas-games/millworks/pkg/production"
)

// BuildingView is the client-facing state of one building.
type BuildingView struct {
	ID    production.BuildingID `json:"id"`
	Kind  string                `json:"kind"`
	Owner production.OwnerID    `json:"owner"`
	Root  hex.Axial             `json:"root"`

	// Cycle is nil for buildings that could not be configured.
	Cycle *production.Status `json:"cycle,omitempty"`

	// ShowRequesting is the input-request indicator. A paused building
	// shows its pause instead.
	ShowRequesting bool `json:"showRequesting"`

	Input  []inventory.Cost `json:"input,omitempty"`
	Output *inventory.Cost  `json:"output,omitempty"`
}

// WarehouseView is the client-facing state of one warehouse.
type WarehouseView struct {
	ID     string           `json:"id"`
	Root   hex.Axial        `json:"root"`
	Radius int              `json:"radius"`
	Stock  []inventory.Cost `json:"stock,omitempty"`
}

// Snapshot is a consistent copy of the world at one tick.
type Snapshot struct {
	Tick       uint64          `json:"tick"`
	Buildings  []BuildingView  `json:"buildings"`
	Warehouses []WarehouseView `json:"warehouses"`
}

// Snapshot captures the world state, sorted by ID.
func (w *World) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := Snapshot{
		Tick:       w.tick,
		Buildings:  make([]BuildingView, 0, len(w.buildings)),
		Warehouses: make([]WarehouseView, 0, len(w.warehouses)),
	}
	for _, b := range w.buildings {
		view := BuildingView{ID: b.ID, Kind: b.Kind, Owner: b.Owner, Root: b.Root}
		if b.Cycle != nil {
			st := b.Cycle.Status()
			view.Cycle = &st
			view.ShowRequesting = st.Requesting && !st.Paused
		}
		if b.Input != nil {
			view.Input = b.Input.Stock()
		}
		if b.Output != nil {
			view.Output = &inventory.Cost{Item: b.Output.Item(), Quantity: b.Output.Stored()}
		}
		snap.Buildings = append(snap.Buildings, view)
	}
	sort.Slice(snap.Buildings, func(i, j int) bool { return snap.Buildings[i].ID < snap.Buildings[j].ID })

	for _, wh := range w.registry.Warehouses() {
		view := WarehouseView{ID: wh.ID, Root: wh.Root, Radius: wh.Radius}
		if site, ok := w.warehouses[wh.ID]; ok {
			view.Stock = site.store.Items()
		}
		snap.Warehouses = append(snap.Warehouses, view)
	}
	sort.Slice(snap.Warehouses, func(i, j int) bool { return snap.Warehouses[i].ID < snap.Warehouses[j].ID })
	return snap
}

// Building returns the view of a single building.
func (s Snapshot) Building(id production.BuildingID) (BuildingView, bool) {
	i := sort.Search(len(s.Buildings), func(i int) bool { return s.Buildings[i].ID >= id })
	if i < len(s.Buildings) && s.Buildings[i].ID == id {
		return s.Buildings[i], true
	}
	return BuildingView{}, false
}

// Warehouse returns the view of a single warehouse.
func (s Snapshot) Warehouse(id string) (WarehouseView, bool) {
	for _, wh := range s.Warehouses {
		if wh.ID == id {
			return wh, true
		}
	}
	return WarehouseView{}, false
}
