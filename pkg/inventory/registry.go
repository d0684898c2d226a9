package inventory

import (
	"errors"
	"sort"
	"sync"
)

// ItemDetails captures metadata about an item that is useful for clients but
// not required by the containers themselves.
type ItemDetails struct {
	ID            ItemID `json:"id" yaml:"id"`
	Name          string `json:"name,omitempty" yaml:"name"`
	Category      string `json:"category,omitempty" yaml:"category"`
	VolumePerUnit int    `json:"volumePerUnit,omitempty" yaml:"volume_per_unit"`
}

// Registry stores item details keyed by ItemID.
type Registry struct {
	mu    sync.RWMutex
	items map[ItemID]ItemDetails
}

// NewRegistry constructs a registry and optionally seeds it with item details.
func NewRegistry(details ...ItemDetails) *Registry {
	r := &Registry{items: make(map[ItemID]ItemDetails, len(details))}
	for _, d := range details {
		_ = r.RegisterDetails(d) // ignore invalid seeds
	}
	return r
}

// RegisterDetails inserts or updates metadata for an item.
func (r *Registry) RegisterDetails(details ItemDetails) error {
	if details.ID == "" {
		return errors.New("inventory: item details missing id")
	}
	if details.VolumePerUnit < 0 {
		return errors.New("inventory: volume per unit must not be negative")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.items == nil {
		r.items = make(map[ItemID]ItemDetails)
	}
	r.items[details.ID] = details
	return nil
}

// Lookup returns details for the provided ID, if present.
func (r *Registry) Lookup(id ItemID) (ItemDetails, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	details, ok := r.items[id]
	return details, ok
}

// VolumeFor returns a volume-per-unit value or false if none is defined.
// A nil registry defines nothing.
func (r *Registry) VolumeFor(id ItemID) (int, bool) {
	if r == nil {
		return 0, false
	}
	details, ok := r.Lookup(id)
	if !ok {
		return 0, false
	}
	return details.VolumePerUnit, details.VolumePerUnit > 0
}

// Export copies registry contents into a slice sorted by ItemID.
func (r *Registry) Export() []ItemDetails {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.items) == 0 {
		return nil
	}
	out := make([]ItemDetails, 0, len(r.items))
	for _, d := range r.items {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
