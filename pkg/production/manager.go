package production

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gravitas-games/millworks/pkg/hexcore/hex"
	"github.com/gravitas-games/millworks/pkg/inventory"
	"github.com/gravitas-games/millworks/pkg/logistics"
)

// Manager owns the production cycles of one world.
// It is the core tool that external systems orchestrate.
type Manager struct {
	id             string
	registry       *RecipeRegistry
	eventBus       EventBus
	perModuleBonus float64

	mu     sync.RWMutex
	cycles map[BuildingID]*Cycle
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithModuleBonus sets the per-module bonus given to cycles the manager starts.
func WithModuleBonus(bonus float64) ManagerOption {
	return func(m *Manager) { m.perModuleBonus = bonus }
}

// NewManager creates a new production manager.
func NewManager(id string, registry *RecipeRegistry, eventBus EventBus, opts ...ManagerOption) *Manager {
	if registry == nil {
		registry = NewRecipeRegistry()
	}
	if eventBus == nil {
		eventBus = NewNullEventBus()
	}
	m := &Manager{
		id:             id,
		registry:       registry,
		eventBus:       eventBus,
		perModuleBonus: DefaultPerModuleBonus,
		cycles:         make(map[BuildingID]*Cycle),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ID returns the manager's identifier.
func (m *Manager) ID() string { return m.id }

// Recipes returns the recipe registry.
func (m *Manager) Recipes() *RecipeRegistry { return m.registry }

// EventBus returns the bus cycles publish on.
func (m *Manager) EventBus() EventBus { return m.eventBus }

// StartCycle creates a cycle for a building running a registered recipe and
// adds it to the manager. The cycle starts Unbound; callers resolve it.
func (m *Manager) StartCycle(
	id BuildingID,
	owner OwnerID,
	root hex.Axial,
	recipeID RecipeID,
	input inventory.InputPort,
	output inventory.OutputPort,
	opts ...Option,
) (*Cycle, error) {
	recipe := m.registry.Lookup(recipeID)
	if recipe == nil {
		return nil, &ConfigurationError{Building: id, Reason: "unknown recipe", Err: fmt.Errorf("%w: %s", ErrRecipeNotFound, recipeID)}
	}

	all := make([]Option, 0, len(opts)+2)
	all = append(all, WithEventBus(m.eventBus), WithPerModuleBonus(m.perModuleBonus))
	all = append(all, opts...)

	c, err := NewCycle(id, owner, root, recipe, input, output, all...)
	if err != nil {
		return nil, err
	}
	if err := m.Add(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Add registers an existing cycle.
func (m *Manager) Add(c *Cycle) error {
	if c == nil {
		return errors.New("production: nil cycle")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.cycles[c.id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateCycle, c.id)
	}
	m.cycles[c.id] = c
	return nil
}

// Remove closes and drops the cycle of a building. Returns true if it existed.
func (m *Manager) Remove(id BuildingID) bool {
	m.mu.Lock()
	c, exists := m.cycles[id]
	delete(m.cycles, id)
	m.mu.Unlock()

	if !exists {
		return false
	}
	c.Close()
	return true
}

// Get retrieves a cycle by building ID. Returns nil if not found.
func (m *Manager) Get(id BuildingID) *Cycle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cycles[id]
}

// Cycles returns all cycles sorted by building ID.
func (m *Manager) Cycles() []*Cycle {
	m.mu.RLock()
	result := make([]*Cycle, 0, len(m.cycles))
	for _, c := range m.cycles {
		result = append(result, c)
	}
	m.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].id < result[j].id })
	return result
}

// Count returns the number of cycles.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cycles)
}

// Update advances every cycle by dt seconds in ascending building ID order.
// Call this from your game loop.
func (m *Manager) Update(dt float64) {
	// tick outside the lock: event handlers may call back into the manager
	for _, c := range m.Cycles() {
		c.Tick(dt)
	}
}

// ResolveWhere re-resolves every cycle matching keep, in building ID order.
// It returns the cycles resolved and the configuration errors of the rest.
func (m *Manager) ResolveWhere(loc Locator, warehouses logistics.Registry, keep func(*Cycle) bool) ([]*Cycle, error) {
	var (
		resolved []*Cycle
		errs     []error
	)
	for _, c := range m.Cycles() {
		if keep != nil && !keep(c) {
			continue
		}
		if err := c.Resolve(loc, warehouses); err != nil {
			errs = append(errs, err)
			continue
		}
		resolved = append(resolved, c)
	}
	return resolved, errors.Join(errs...)
}

// Unserved reports whether a cycle is waiting for a warehouse.
func Unserved(c *Cycle) bool {
	return c.State() == StateUnbound || c.State() == StateBlockedLogistics
}

// BoundTo returns a filter matching cycles bound to warehouse id.
func BoundTo(id string) func(*Cycle) bool {
	return func(c *Cycle) bool {
		return c.binding != nil && c.binding.WarehouseID == id
	}
}

