package inventory

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrNoSpace is returned when an addition would exceed capacity.
	ErrNoSpace = errors.New("inventory: not enough space")
	// ErrInsufficient is returned when a removal exceeds the stored quantity.
	ErrInsufficient = errors.New("inventory: insufficient quantity")
)

// Unlimited disables the capacity check of a Store.
const Unlimited = 0

// Option configures store construction.
type Option func(*Store)

// WithRegistry attaches an item registry used to resolve volume per unit.
func WithRegistry(reg *Registry) Option {
	return func(s *Store) {
		s.registry = reg
	}
}

// Store is a volume-constrained bag of item quantities. Items without a
// registered volume take one unit of capacity each. It is not safe for
// concurrent use; its owner serialises access.
type Store struct {
	ID       string
	Capacity int

	used     int
	qty      map[ItemID]int
	registry *Registry
}

// NewStore creates a store. A capacity of Unlimited accepts everything.
func NewStore(id string, capacity int, opts ...Option) *Store {
	s := &Store{
		ID:       id,
		Capacity: capacity,
		qty:      make(map[ItemID]int),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Store) volumeOf(item ItemID) int {
	if v, ok := s.registry.VolumeFor(item); ok {
		return v
	}
	return 1
}

// CanAdd reports whether qty units of item fit.
func (s *Store) CanAdd(item ItemID, qty int) bool {
	if qty < 0 {
		return false
	}
	if s.Capacity <= Unlimited {
		return true
	}
	return s.used+s.volumeOf(item)*qty <= s.Capacity
}

// Add stores qty units of item.
func (s *Store) Add(item ItemID, qty int) error {
	if qty < 0 {
		return fmt.Errorf("inventory: negative quantity %d", qty)
	}
	if qty == 0 {
		return nil
	}
	if !s.CanAdd(item, qty) {
		return fmt.Errorf("%w: %s used=%d req=%d cap=%d", ErrNoSpace, s.ID, s.used, s.volumeOf(item)*qty, s.Capacity)
	}
	s.qty[item] += qty
	s.used += s.volumeOf(item) * qty
	return nil
}

// Remove takes qty units of item out of the store.
func (s *Store) Remove(item ItemID, qty int) error {
	if qty < 0 {
		return fmt.Errorf("inventory: negative quantity %d", qty)
	}
	if qty == 0 {
		return nil
	}
	have := s.qty[item]
	if have < qty {
		return fmt.Errorf("%w: %s has %d %s, need %d", ErrInsufficient, s.ID, have, item, qty)
	}
	if have == qty {
		delete(s.qty, item)
	} else {
		s.qty[item] = have - qty
	}
	s.used -= s.volumeOf(item) * qty
	if s.used < 0 {
		s.used = 0
	}
	return nil
}

// Count returns the stored quantity of item.
func (s *Store) Count(item ItemID) int { return s.qty[item] }

// Used returns the occupied capacity.
func (s *Store) Used() int { return s.used }

// Free returns the remaining capacity, or -1 when unlimited.
func (s *Store) Free() int {
	if s.Capacity <= Unlimited {
		return -1
	}
	return s.Capacity - s.used
}

// Items lists stored quantities sorted by item.
func (s *Store) Items() []Cost {
	out := make([]Cost, 0, len(s.qty))
	for item, q := range s.qty {
		out = append(out, Cost{Item: item, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Item < out[j].Item })
	return out
}
