package production

import (
	"sync"
	"time"

	"github.com/gravitas-games/millworks/pkg/logistics"
)

// EventType represents the type of production event.
type EventType int

const (
	// EventCycleCompleted is emitted each time a cycle yields its output.
	EventCycleCompleted EventType = iota
	// EventPaused is emitted when a cycle enters a paused state.
	EventPaused
	// EventResumed is emitted when a cycle leaves a paused state.
	EventResumed
	// EventBound is emitted when a warehouse binding is applied.
	EventBound
	// EventUnserved is emitted when resolution finds no warehouse.
	EventUnserved
	// EventBlockedInput is emitted when a boundary finds the input short.
	EventBlockedInput
)

// String returns a human-readable representation of the event type.
func (t EventType) String() string {
	switch t {
	case EventCycleCompleted:
		return "CycleCompleted"
	case EventPaused:
		return "Paused"
	case EventResumed:
		return "Resumed"
	case EventBound:
		return "Bound"
	case EventUnserved:
		return "Unserved"
	case EventBlockedInput:
		return "BlockedInput"
	default:
		return "Unknown"
	}
}

// Pause reasons carried in Event.Reason.
const (
	ReasonOutputFull = "output_full"
	ReasonLogistics  = "logistics"
)

// Event represents a production event.
type Event struct {
	Type      EventType          `json:"type"`
	Building  BuildingID         `json:"building"`
	Owner     OwnerID            `json:"owner"`
	Recipe    RecipeID           `json:"recipe"`
	State     State              `json:"state"`
	Reason    string             `json:"reason,omitempty"`
	Completed int                `json:"completed"`
	Binding   *logistics.Binding `json:"binding,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// AnyOwner subscribes a handler to events of every owner.
const AnyOwner OwnerID = "*"

// EventBus manages event subscriptions and delivery.
type EventBus interface {
	// Subscribe registers a handler for events of a specific owner, or of
	// every owner when owner is AnyOwner.
	Subscribe(owner OwnerID, handler func(Event))

	// Unsubscribe removes the handlers for an owner.
	Unsubscribe(owner OwnerID)

	// Publish sends an event to subscribed handlers.
	Publish(event Event)
}

// SimpleEventBus is a basic in-memory event bus implementation.
type SimpleEventBus struct {
	mu       sync.RWMutex
	handlers map[OwnerID][]func(Event)
}

// NewSimpleEventBus creates a new event bus.
func NewSimpleEventBus() *SimpleEventBus {
	return &SimpleEventBus{
		handlers: make(map[OwnerID][]func(Event)),
	}
}

// Subscribe registers a handler for events for a specific owner.
func (bus *SimpleEventBus) Subscribe(owner OwnerID, handler func(Event)) {
	if handler == nil {
		return
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.handlers[owner] = append(bus.handlers[owner], handler)
}

// Unsubscribe removes the handlers for an owner.
func (bus *SimpleEventBus) Unsubscribe(owner OwnerID) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	delete(bus.handlers, owner)
}

// Publish delivers the event synchronously: owner handlers first, then
// AnyOwner handlers, each in subscription order. Handlers run outside the
// bus lock and may subscribe or publish themselves.
func (bus *SimpleEventBus) Publish(event Event) {
	bus.mu.RLock()
	var targets []func(Event)
	if event.Owner != AnyOwner {
		targets = append(targets, bus.handlers[event.Owner]...)
	}
	targets = append(targets, bus.handlers[AnyOwner]...)
	bus.mu.RUnlock()

	for _, h := range targets {
		h(event)
	}
}

// NullEventBus is an event bus that does nothing (for testing or when events not needed).
type NullEventBus struct{}

// NewNullEventBus creates a new null event bus.
func NewNullEventBus() *NullEventBus {
	return &NullEventBus{}
}

// Subscribe does nothing.
func (bus *NullEventBus) Subscribe(owner OwnerID, handler func(Event)) {}

// Unsubscribe does nothing.
func (bus *NullEventBus) Unsubscribe(owner OwnerID) {}

// Publish does nothing.
func (bus *NullEventBus) Publish(event Event) {}
