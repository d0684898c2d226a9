package inventory

// Package inventory provides the stock containers producing buildings read
// and mutate: an input side that is drained by production and an output side
// that fills up and applies backpressure.

// ItemID represents an application-defined identifier for an item.
// The inventory system does not interpret this value.
type ItemID string

// Cost is a quantity of one item, used both for recipe costs and deliveries.
type Cost struct {
	Item     ItemID `json:"item" yaml:"item"`
	Quantity int    `json:"quantity" yaml:"quantity"`
}

// InputPort is the input-side capability a production cycle consumes.
type InputPort interface {
	// HasResources reports whether every cost can be paid right now.
	HasResources(costs []Cost) bool
	// ConsumeResources removes every cost. Callers must check HasResources
	// first; calling it with insufficient stock panics.
	ConsumeResources(costs []Cost)
	// IsRequesting reports whether the container wants more stock.
	IsRequesting() bool
}

// OutputPort is the output-side capability a production cycle fills.
type OutputPort interface {
	// HasSpace reports whether amount more units fit.
	HasSpace(amount int) bool
	// AddResource stores amount units. Panics if HasSpace(amount) is false.
	AddResource(amount int)
	// OnFull fires when the container stops accepting another yield.
	OnFull() *Signal
	// OnSpaceAvailable fires when a full container can accept a yield again.
	OnSpaceAvailable() *Signal
}

// MergeCosts sums quantities per item, keeping first-appearance order.
func MergeCosts(costs []Cost) []Cost {
	out := make([]Cost, 0, len(costs))
	index := make(map[ItemID]int, len(costs))
	for _, c := range costs {
		if i, ok := index[c.Item]; ok {
			out[i].Quantity += c.Quantity
			continue
		}
		index[c.Item] = len(out)
		out = append(out, c)
	}
	return out
}
