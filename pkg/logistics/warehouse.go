package logistics

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gravitas-games/millworks/pkg/hexcore/hex"
)

// Warehouse is a storage facility buildings can be bound to.
type Warehouse struct {
	ID     string    `json:"id"`
	Root   hex.Axial `json:"root"`
	Radius int       `json:"radius"` // maximum road distance a bound building may be at
}

// Registry enumerates the warehouses known to a world.
type Registry interface {
	// Warehouses returns every warehouse in a stable enumeration order.
	Warehouses() []Warehouse
	// Lookup returns the warehouse with the given ID.
	Lookup(id string) (Warehouse, bool)
}

// MemoryRegistry is an in-memory Registry that enumerates in insertion order.
// It is safe for concurrent use.
type MemoryRegistry struct {
	mu    sync.RWMutex
	byID  map[string]Warehouse
	order []string
}

// NewMemoryRegistry creates a registry seeded with the given warehouses.
func NewMemoryRegistry(warehouses ...Warehouse) *MemoryRegistry {
	r := &MemoryRegistry{byID: make(map[string]Warehouse, len(warehouses))}
	for _, w := range warehouses {
		_ = r.Add(w) // ignore invalid seeds
	}
	return r
}

// Add registers a warehouse. Re-adding an ID updates it in place.
func (r *MemoryRegistry) Add(w Warehouse) error {
	if w.ID == "" {
		return errors.New("logistics: warehouse ID cannot be empty")
	}
	if w.Radius < 0 {
		return fmt.Errorf("logistics: warehouse %s radius must not be negative", w.ID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[w.ID]; !exists {
		r.order = append(r.order, w.ID)
	}
	r.byID[w.ID] = w
	return nil
}

// Remove deletes a warehouse. Returns true if it existed.
func (r *MemoryRegistry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[id]; !exists {
		return false
	}
	delete(r.byID, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Lookup returns the warehouse with the given ID.
func (r *MemoryRegistry) Lookup(id string) (Warehouse, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.byID[id]
	return w, ok
}

// Warehouses returns a copy of all warehouses in insertion order.
func (r *MemoryRegistry) Warehouses() []Warehouse {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Warehouse, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Count returns the number of registered warehouses.
func (r *MemoryRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
