package production

import (
	"fmt"

	"github.com/gravitas-games/millworks/pkg/inventory"
)

// RecipeID uniquely identifies a recipe.
type RecipeID string

// BuildingID identifies the producing building that owns a cycle.
type BuildingID string

// OwnerID identifies the player or faction owning a building.
type OwnerID string

// Recipe defines what one production cycle consumes and yields.
type Recipe struct {
	ID       RecipeID          `json:"id" yaml:"id"`
	Name     string            `json:"name" yaml:"name"`
	Category string            `json:"category,omitempty" yaml:"category,omitempty"`
	Inputs   []ItemRequirement `json:"inputs" yaml:"inputs"`
	Output   ItemYield         `json:"output" yaml:"output"`
	Duration float64           `json:"duration" yaml:"duration"` // seconds per cycle at multiplier 1
	Metadata map[string]any    `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// ItemRequirement specifies an input item consumed each cycle.
type ItemRequirement struct {
	Item     inventory.ItemID `json:"item" yaml:"item"`
	Quantity int              `json:"quantity" yaml:"quantity"`
}

// ItemYield specifies the item produced each cycle.
type ItemYield struct {
	Item     inventory.ItemID `json:"item" yaml:"item"`
	Quantity int              `json:"quantity" yaml:"quantity"`
}

// Costs converts the recipe inputs to inventory costs, dropping zero entries.
func (r *Recipe) Costs() []inventory.Cost {
	if r == nil || len(r.Inputs) == 0 {
		return nil
	}
	out := make([]inventory.Cost, 0, len(r.Inputs))
	for _, in := range r.Inputs {
		if in.Quantity > 0 {
			out = append(out, inventory.Cost{Item: in.Item, Quantity: in.Quantity})
		}
	}
	return out
}

// HasInputs reports whether a cycle of this recipe consumes anything.
func (r *Recipe) HasInputs() bool { return len(r.Costs()) > 0 }

// HasOutput reports whether a cycle of this recipe yields anything.
func (r *Recipe) HasOutput() bool { return r != nil && r.Output.Quantity > 0 }

// State is the lifecycle state of a production cycle.
type State int

const (
	// StateUnbound is the initial state: no warehouse resolution has run yet.
	StateUnbound State = iota
	// StateIdle means bound but nothing accumulated since binding.
	StateIdle
	// StateAccumulating means the timer is running towards the next boundary.
	StateAccumulating
	// StateBlockedInput means the last boundary found the input short.
	// It is not a pause; the cycle retries after another full period.
	StateBlockedInput
	// StateBlockedOutput means the output cannot take another yield.
	StateBlockedOutput
	// StateBlockedLogistics means no warehouse serves the building.
	StateBlockedLogistics
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateUnbound:
		return "Unbound"
	case StateIdle:
		return "Idle"
	case StateAccumulating:
		return "Accumulating"
	case StateBlockedInput:
		return "BlockedInput"
	case StateBlockedOutput:
		return "BlockedOutput"
	case StateBlockedLogistics:
		return "BlockedLogistics"
	default:
		return "Unknown"
	}
}

// IsPaused reports whether the state freezes the cycle timer.
func (s State) IsPaused() bool {
	return s == StateBlockedOutput || s == StateBlockedLogistics
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// FitsContainers reports whether one cycle's worth of goods fits containers
// of the given capacities: inputCap units per input item, outputCap volume
// for the yield. A capacity of 0 is unlimited. Volumes come from items;
// unknown items take one unit each.
func (r *Recipe) FitsContainers(inputCap, outputCap int, items *inventory.Registry) error {
	for _, c := range inventory.MergeCosts(r.Costs()) {
		if inputCap > 0 && inputCap < c.Quantity {
			return fmt.Errorf("%w: recipe %s needs %d %s, input holds %d",
				ErrCapacityTooSmall, r.ID, c.Quantity, c.Item, inputCap)
		}
	}
	if outputCap > 0 && r.HasOutput() {
		volume, ok := items.VolumeFor(r.Output.Item)
		if !ok {
			volume = 1
		}
		if need := r.Output.Quantity * volume; outputCap < need {
			return fmt.Errorf("%w: recipe %s yields volume %d, output holds %d",
				ErrCapacityTooSmall, r.ID, need, outputCap)
		}
	}
	return nil
}
