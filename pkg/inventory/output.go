package inventory

import "fmt"

// OutputOption configures an Output.
type OutputOption func(*Output)

// WithReserve sets how many units must fit for the output to count as not
// full. Set it to the recipe yield so every blocked cycle boundary is matched
// by a later OnSpaceAvailable edge. Defaults to 1.
func WithReserve(units int) OutputOption {
	return func(o *Output) {
		if units > 0 {
			o.reserve = units
		}
	}
}

// WithStoreOptions passes options to the backing store.
func WithStoreOptions(opts ...Option) OutputOption {
	return func(o *Output) {
		o.storeOpts = append(o.storeOpts, opts...)
	}
}

// Output is the finished-goods side of a producing building. It holds a
// single item and signals when it becomes full and when space frees up.
type Output struct {
	item    ItemID
	store   *Store
	reserve int
	full    bool

	storeOpts []Option

	onFull  Signal
	onSpace Signal
}

// NewOutput creates an output for item with the given capacity.
func NewOutput(id string, item ItemID, capacity int, opts ...OutputOption) *Output {
	o := &Output{item: item, reserve: 1}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	o.store = NewStore(id, capacity, o.storeOpts...)
	o.full = !o.HasSpace(o.reserve)
	return o
}

// ID returns the container identifier.
func (o *Output) ID() string { return o.store.ID }

// Item returns the item this output holds.
func (o *Output) Item() ItemID { return o.item }

// HasSpace reports whether amount more units fit.
func (o *Output) HasSpace(amount int) bool { return o.store.CanAdd(o.item, amount) }

// AddResource stores amount units; it panics when they do not fit.
func (o *Output) AddResource(amount int) {
	if err := o.store.Add(o.item, amount); err != nil {
		panic(fmt.Sprintf("inventory: AddResource without space: %v", err))
	}
	o.refresh()
}

// Withdraw removes up to max units and returns how many were taken.
func (o *Output) Withdraw(max int) int {
	if max <= 0 {
		return 0
	}
	n := min(max, o.store.Count(o.item))
	if n == 0 {
		return 0
	}
	_ = o.store.Remove(o.item, n) // n <= count
	o.refresh()
	return n
}

// Stored returns the number of units held.
func (o *Output) Stored() int { return o.store.Count(o.item) }

// IsFull reports whether another reserve-sized yield would not fit.
func (o *Output) IsFull() bool { return o.full }

// OnFull fires on the transition into the full state.
func (o *Output) OnFull() *Signal { return &o.onFull }

// OnSpaceAvailable fires on the transition out of the full state.
func (o *Output) OnSpaceAvailable() *Signal { return &o.onSpace }

// refresh emits at most one signal per state transition.
func (o *Output) refresh() {
	nowFull := !o.HasSpace(o.reserve)
	switch {
	case nowFull && !o.full:
		o.full = true
		o.onFull.Emit()
	case !nowFull && o.full:
		o.full = false
		o.onSpace.Emit()
	}
}

var _ OutputPort = (*Output)(nil)
