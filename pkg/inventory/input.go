package inventory

import (
	"errors"
	"fmt"
)

// ErrUnwanted is returned when delivering an item the input does not accept.
var ErrUnwanted = errors.New("inventory: item not accepted")

// Input is the raw-material side of a producing building. It accepts only
// the items it wants and caps each at a per-item limit.
type Input struct {
	store   *Store
	wants   []Cost
	perItem int
}

// NewInput creates an input that accepts the items in wants. wants also sets
// the requesting threshold: the input requests stock while any wanted item
// is below its quantity. perItem caps stock per item; 0 means no cap.
func NewInput(id string, wants []Cost, perItem int, opts ...Option) *Input {
	return &Input{
		store:   NewStore(id, Unlimited, opts...),
		wants:   MergeCosts(wants),
		perItem: perItem,
	}
}

// ID returns the container identifier.
func (in *Input) ID() string { return in.store.ID }

func (in *Input) accepts(item ItemID) bool {
	for _, w := range in.wants {
		if w.Item == item {
			return true
		}
	}
	return false
}

// HasResources reports whether every cost can be paid. Costs naming the
// same item are paid from the same stock.
func (in *Input) HasResources(costs []Cost) bool {
	for _, c := range MergeCosts(costs) {
		if in.store.Count(c.Item) < c.Quantity {
			return false
		}
	}
	return true
}

// ConsumeResources removes every cost in one step.
// It panics when HasResources(costs) is false.
func (in *Input) ConsumeResources(costs []Cost) {
	if !in.HasResources(costs) {
		panic(fmt.Sprintf("inventory: ConsumeResources on %s without sufficient stock %v", in.store.ID, costs))
	}
	for _, c := range MergeCosts(costs) {
		if err := in.store.Remove(c.Item, c.Quantity); err != nil {
			// unreachable: checked above
			panic(err)
		}
	}
}

// IsRequesting reports whether any wanted item is below its threshold.
func (in *Input) IsRequesting() bool {
	for _, w := range in.wants {
		if in.store.Count(w.Item) < w.Quantity {
			return true
		}
	}
	return false
}

// Deliver stores up to qty units of item and returns how many were accepted.
func (in *Input) Deliver(item ItemID, qty int) (int, error) {
	if !in.accepts(item) {
		return 0, fmt.Errorf("%w: %s by %s", ErrUnwanted, item, in.store.ID)
	}
	if qty <= 0 {
		return 0, nil
	}
	accepted := qty
	if in.perItem > 0 {
		room := in.perItem - in.store.Count(item)
		if room <= 0 {
			return 0, nil
		}
		accepted = min(accepted, room)
	}
	if err := in.store.Add(item, accepted); err != nil {
		return 0, err
	}
	return accepted, nil
}

// Demand lists how much of each wanted item is needed to fill the input:
// up to the per-item cap, or up to the threshold when uncapped.
func (in *Input) Demand() []Cost {
	var out []Cost
	for _, w := range in.wants {
		target := w.Quantity
		if in.perItem > 0 {
			target = in.perItem
		}
		if short := target - in.store.Count(w.Item); short > 0 {
			out = append(out, Cost{Item: w.Item, Quantity: short})
		}
	}
	return out
}

// Count returns the stored quantity of item.
func (in *Input) Count(item ItemID) int { return in.store.Count(item) }

// Stock lists stored quantities sorted by item.
func (in *Input) Stock() []Cost { return in.store.Items() }

var _ InputPort = (*Input)(nil)
