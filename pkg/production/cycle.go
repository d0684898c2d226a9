package production

import (
	"fmt"
	"math"
	"time"

	"github.com/gravitas-games/millworks/pkg/hexcore/hex"
	"github.com/gravitas-games/millworks/pkg/inventory"
	"github.com/gravitas-games/millworks/pkg/logistics"
)

// Locator finds the warehouse serving the building rooted at root.
// *logistics.Resolver satisfies it.
type Locator interface {
	Locate(root hex.Axial, warehouses logistics.Registry) (*logistics.Binding, error)
}

// Option configures a Cycle.
type Option func(*cycleConfig)

type cycleConfig struct {
	bus            EventBus
	perModuleBonus float64
	modules        int
	efficiency     float64
	clock          func() time.Time
}

// WithEventBus publishes the cycle's events on bus.
func WithEventBus(bus EventBus) Option {
	return func(c *cycleConfig) { c.bus = bus }
}

// WithPerModuleBonus overrides DefaultPerModuleBonus.
func WithPerModuleBonus(bonus float64) Option {
	return func(c *cycleConfig) { c.perModuleBonus = bonus }
}

// WithModules sets the initial module count.
func WithModules(n int) Option {
	return func(c *cycleConfig) { c.modules = n }
}

// WithEfficiency sets the initial efficiency.
func WithEfficiency(v float64) Option {
	return func(c *cycleConfig) { c.efficiency = v }
}

// WithClock sets the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *cycleConfig) { c.clock = now }
}

// Cycle is the timed production loop of one building.
//
// A Cycle is not safe for concurrent use. Its owner serialises Tick, the
// mutation methods, and the output signals that call Pause and Resume.
type Cycle struct {
	id     BuildingID
	owner  OwnerID
	root   hex.Axial
	recipe *Recipe
	costs  []inventory.Cost
	input  inventory.InputPort
	output inventory.OutputPort

	bus            EventBus
	clock          func() time.Time
	perModuleBonus float64
	modules        int
	efficiency     float64

	timer     float64
	state     State
	binding   *logistics.Binding
	completed int

	subscribed bool
	subs       []*inventory.Subscription
	closed     bool
}

// NewCycle creates the production cycle for a building. input may be nil
// only when the recipe consumes nothing, and output only when it yields
// nothing; otherwise a *ConfigurationError is returned.
func NewCycle(id BuildingID, owner OwnerID, root hex.Axial, recipe *Recipe, input inventory.InputPort, output inventory.OutputPort, opts ...Option) (*Cycle, error) {
	cfg := cycleConfig{
		perModuleBonus: DefaultPerModuleBonus,
		efficiency:     1,
		clock:          time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if recipe == nil {
		return nil, &ConfigurationError{Building: id, Reason: "no recipe"}
	}
	if err := ValidateRecipe(recipe); err != nil {
		return nil, &ConfigurationError{Building: id, Reason: "invalid recipe", Err: err}
	}
	if recipe.HasInputs() && input == nil {
		return nil, &ConfigurationError{Building: id, Reason: fmt.Sprintf("recipe %s needs an input port", recipe.ID)}
	}
	if recipe.HasOutput() && output == nil {
		return nil, &ConfigurationError{Building: id, Reason: fmt.Sprintf("recipe %s needs an output port", recipe.ID)}
	}
	if cfg.modules < 0 {
		return nil, &ConfigurationError{Building: id, Reason: "invalid modules", Err: ErrInvalidModuleCount}
	}
	if !validEfficiency(cfg.efficiency) {
		return nil, &ConfigurationError{Building: id, Reason: "invalid efficiency", Err: ErrInvalidEfficiency}
	}
	if cfg.bus == nil {
		cfg.bus = NewNullEventBus()
	}
	if cfg.clock == nil {
		cfg.clock = time.Now
	}

	return &Cycle{
		id:             id,
		owner:          owner,
		root:           root,
		recipe:         recipe,
		costs:          recipe.Costs(),
		input:          input,
		output:         output,
		bus:            cfg.bus,
		clock:          cfg.clock,
		perModuleBonus: cfg.perModuleBonus,
		modules:        cfg.modules,
		efficiency:     cfg.efficiency,
		state:          StateUnbound,
	}, nil
}

// ID returns the building identifier.
func (c *Cycle) ID() BuildingID { return c.id }

// Owner returns the owning player.
func (c *Cycle) Owner() OwnerID { return c.owner }

// Root returns the building's root cell.
func (c *Cycle) Root() hex.Axial { return c.root }

// Recipe returns the recipe the cycle runs.
func (c *Cycle) Recipe() *Recipe { return c.recipe }

// Input returns the input port, or nil.
func (c *Cycle) Input() inventory.InputPort { return c.input }

// Output returns the output port, or nil.
func (c *Cycle) Output() inventory.OutputPort { return c.output }

// State returns the current state.
func (c *Cycle) State() State { return c.state }

// IsPaused reports whether the timer is frozen by backpressure or logistics.
func (c *Cycle) IsPaused() bool { return c.state.IsPaused() }

// IsRequesting reports whether the input wants more stock.
func (c *Cycle) IsRequesting() bool { return c.input != nil && c.input.IsRequesting() }

// Timer returns seconds accumulated towards the next boundary.
func (c *Cycle) Timer() float64 { return c.timer }

// Completed returns the number of completed cycles.
func (c *Cycle) Completed() int { return c.completed }

// Binding returns the current warehouse binding, or nil.
func (c *Cycle) Binding() *logistics.Binding {
	if c.binding == nil {
		return nil
	}
	b := *c.binding
	return &b
}

// Closed reports whether Close has been called.
func (c *Cycle) Closed() bool { return c.closed }

// Efficiency returns the current efficiency.
func (c *Cycle) Efficiency() float64 { return c.efficiency }

// Modules returns the installed module count.
func (c *Cycle) Modules() int { return c.modules }

// ModuleMultiplier returns 1 + modules*perModuleBonus.
func (c *Cycle) ModuleMultiplier() float64 { return ModuleMultiplier(c.modules, c.perModuleBonus) }

// EffectiveCycleTime returns the seconds per cycle after modifiers.
func (c *Cycle) EffectiveCycleTime() float64 {
	return EffectiveCycleTime(c.recipe.Duration, c.ModuleMultiplier(), c.efficiency)
}

// Progress returns the fraction of the current cycle elapsed, in [0, 1].
func (c *Cycle) Progress() float64 {
	eff := c.EffectiveCycleTime()
	if math.IsInf(eff, 1) || eff <= 0 {
		return 0
	}
	return math.Min(c.timer/eff, 1)
}

// SetModuleCount changes the number of installed modules.
func (c *Cycle) SetModuleCount(n int) error {
	if n < 0 {
		return ErrInvalidModuleCount
	}
	c.modules = n
	return nil
}

// SetEfficiency changes the efficiency. Zero is accepted and stalls the
// timer without pausing.
func (c *Cycle) SetEfficiency(v float64) error {
	if !validEfficiency(v) {
		return ErrInvalidEfficiency
	}
	c.efficiency = v
	return nil
}

// Tick advances the cycle by dt seconds.
func (c *Cycle) Tick(dt float64) {
	if c.closed || !(dt >= 0) {
		return
	}
	switch c.state {
	case StateBlockedOutput:
		return
	case StateUnbound, StateBlockedLogistics:
		c.setState(StateBlockedLogistics, ReasonLogistics)
		return
	}

	effective := c.EffectiveCycleTime()
	c.timer += dt
	if c.timer < effective {
		c.setState(StateAccumulating, "")
		return
	}

	for c.timer >= effective {
		c.timer -= effective

		// the output may have signalled full while the last yield was added
		if c.state == StateBlockedOutput {
			return
		}
		if len(c.costs) > 0 && !c.input.HasResources(c.costs) {
			c.setState(StateBlockedInput, "")
			return
		}
		yield := c.recipe.Output.Quantity
		if yield > 0 && !c.output.HasSpace(yield) {
			c.setState(StateBlockedOutput, ReasonOutputFull)
			return
		}

		if len(c.costs) > 0 {
			c.input.ConsumeResources(c.costs)
		}
		c.setState(StateAccumulating, "")
		if yield > 0 {
			c.output.AddResource(yield)
		}
		c.completed++
		c.publish(EventCycleCompleted, "")
	}
}

// Pause freezes a running cycle because its output is full. It is a no-op
// when the cycle is already paused or has no binding.
func (c *Cycle) Pause() {
	switch c.state {
	case StateIdle, StateAccumulating, StateBlockedInput:
		c.setState(StateBlockedOutput, ReasonOutputFull)
	}
}

// Resume restarts a cycle paused by Pause, keeping its timer. It is a no-op
// in any other state.
func (c *Cycle) Resume() {
	if c.state == StateBlockedOutput {
		c.setState(StateAccumulating, "")
	}
}

// Resolve asks loc for the warehouse serving this building and applies the
// result with Bind. Locator failures are returned as *ConfigurationError and
// leave the cycle unchanged.
func (c *Cycle) Resolve(loc Locator, warehouses logistics.Registry) error {
	if loc == nil {
		return &ConfigurationError{Building: c.id, Reason: "cannot resolve warehouse", Err: ErrMissingLocator}
	}
	b, err := loc.Locate(c.root, warehouses)
	if err != nil {
		return &ConfigurationError{Building: c.id, Reason: "cannot resolve warehouse", Err: err}
	}
	c.Bind(b)
	return nil
}

// Bind applies a resolution result. A nil binding leaves the building
// unserved; a binding releases an unserved cycle to Idle and otherwise keeps
// the current state.
func (c *Cycle) Bind(b *logistics.Binding) {
	if c.closed {
		return
	}
	c.subscribe()
	if b == nil {
		c.binding = nil
		c.setState(StateBlockedLogistics, ReasonLogistics)
		c.publish(EventUnserved, ReasonLogistics)
		return
	}
	nb := *b
	c.binding = &nb
	if c.state == StateUnbound || c.state == StateBlockedLogistics {
		c.setState(StateIdle, "")
	}
	c.publish(EventBound, "")
}

// Unbind drops the binding and pauses the cycle until it is re-resolved.
func (c *Cycle) Unbind() {
	if c.closed {
		return
	}
	c.binding = nil
	c.setState(StateBlockedLogistics, ReasonLogistics)
}

// Close cancels the output subscriptions. Further ticks and binds are
// ignored. Close is idempotent.
func (c *Cycle) Close() {
	if c.closed {
		return
	}
	c.closed = true
	for _, s := range c.subs {
		s.Cancel()
	}
	c.subs = nil
}

func (c *Cycle) subscribe() {
	if c.subscribed || c.output == nil {
		return
	}
	c.subscribed = true
	c.subs = append(c.subs,
		c.output.OnFull().Subscribe(c.Pause),
		c.output.OnSpaceAvailable().Subscribe(c.Resume),
	)
}

// setState records a transition and publishes the matching event.
func (c *Cycle) setState(next State, reason string) {
	prev := c.state
	if prev == next {
		return
	}
	c.state = next
	switch {
	case next.IsPaused() && !prev.IsPaused():
		c.publish(EventPaused, reason)
	case !next.IsPaused() && prev.IsPaused():
		c.publish(EventResumed, "")
	}
	if next == StateBlockedInput {
		c.publish(EventBlockedInput, "")
	}
}

func (c *Cycle) publish(t EventType, reason string) {
	c.bus.Publish(Event{
		Type:      t,
		Building:  c.id,
		Owner:     c.owner,
		Recipe:    c.recipe.ID,
		State:     c.state,
		Reason:    reason,
		Completed: c.completed,
		Binding:   c.Binding(),
		Timestamp: c.clock(),
	})
}

// Status is a read-only view of a cycle.
type Status struct {
	Building   BuildingID         `json:"building"`
	Owner      OwnerID            `json:"owner"`
	Recipe     RecipeID           `json:"recipe"`
	Root       hex.Axial          `json:"root"`
	State      State              `json:"state"`
	Paused     bool               `json:"paused"`
	Requesting bool               `json:"requesting"`
	Timer      float64            `json:"timer"`
	Progress   float64            `json:"progress"`
	Completed  int                `json:"completed"`
	Modules    int                `json:"modules"`
	Efficiency float64            `json:"efficiency"`
	Binding    *logistics.Binding `json:"binding,omitempty"`
}

// Status returns a snapshot of the cycle.
func (c *Cycle) Status() Status {
	return Status{
		Building:   c.id,
		Owner:      c.owner,
		Recipe:     c.recipe.ID,
		Root:       c.root,
		State:      c.state,
		Paused:     c.IsPaused(),
		Requesting: c.IsRequesting(),
		Timer:      c.timer,
		Progress:   c.Progress(),
		Completed:  c.completed,
		Modules:    c.modules,
		Efficiency: c.efficiency,
		Binding:    c.Binding(),
	}
}
