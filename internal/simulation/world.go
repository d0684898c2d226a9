// Package simulation wires the game map, warehouses, logistics and
// production cycles into one world advanced by a fixed tick.
package simulation

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gravitas-games/millworks/internal/gamemap"
	"github.com/gravitas-games/millworks/internal/metrics"
	"github.com/gravitas-games/millworks/pkg/hexcore/hex"
	"github.com/gravitas-games/millworks/pkg/inventory"
	"github.com/gravitas-games/millworks/pkg/logistics"
	"github.com/gravitas-games/millworks/pkg/production"
)

var (
	// ErrUnknownBuilding is returned for building IDs the world does not know.
	ErrUnknownBuilding = errors.New("simulation: unknown building")
	// ErrUnknownWarehouse is returned for warehouse IDs the world does not know.
	ErrUnknownWarehouse = errors.New("simulation: unknown warehouse")
	// ErrUnknownKind is returned when placing a building of an unregistered kind.
	ErrUnknownKind = errors.New("simulation: unknown building kind")
	// ErrNotProducing is returned when a building has no running cycle.
	ErrNotProducing = errors.New("simulation: building has no production cycle")
)

// BuildingKind describes a placeable producing building.
type BuildingKind struct {
	Kind           string
	Recipe         production.RecipeID
	Footprint      hex.Footprint
	InputCapacity  int // per item, 0 = uncapped
	OutputCapacity int // 0 = unlimited
}

// Placement requests a building on the map.
type Placement struct {
	ID         production.BuildingID // generated when empty
	Kind       string
	Owner      production.OwnerID
	Root       hex.Axial
	Modules    int
	Efficiency *float64
}

// Building is a placed producing building. Cycle is nil when the building
// could not be configured for production.
type Building struct {
	ID     production.BuildingID
	Kind   string
	Owner  production.OwnerID
	Root   hex.Axial
	Input  *inventory.Input
	Output *inventory.Output
	Cycle  *production.Cycle
}

type warehouseSite struct {
	logistics.Warehouse
	store *inventory.Store
}

// World is the composition root of a running economy. All mutations and
// ticks are serialised under one mutex.
type World struct {
	mu sync.Mutex

	logger    *slog.Logger
	gameMap   *gamemap.GameMap
	items     *inventory.Registry
	recipes   *production.RecipeRegistry
	bus       production.EventBus
	manager   *production.Manager
	resolver  *logistics.Resolver
	registry  *logistics.MemoryRegistry
	collector *metrics.ProductionMetricsCollector

	kinds      map[string]BuildingKind
	buildings  map[production.BuildingID]*Building
	warehouses map[string]*warehouseSite

	searchCap    int
	moduleBonus  float64
	rebind       bool
	haulInterval int
	haulBatch    int

	tick uint64
}

// Option configures a World.
type Option func(*World)

// WithLogger sets the world logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(w *World) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithEventBus sets the bus production events are published on.
func WithEventBus(bus production.EventBus) Option {
	return func(w *World) {
		if bus != nil {
			w.bus = bus
		}
	}
}

// WithMetrics feeds production events and tick timings to c.
func WithMetrics(c *metrics.ProductionMetricsCollector) Option {
	return func(w *World) { w.collector = c }
}

// WithItems sets the item registry used for container volumes.
func WithItems(r *inventory.Registry) Option {
	return func(w *World) {
		if r != nil {
			w.items = r
		}
	}
}

// WithRecipes sets the recipe registry.
func WithRecipes(r *production.RecipeRegistry) Option {
	return func(w *World) {
		if r != nil {
			w.recipes = r
		}
	}
}

// WithSearchCap bounds road searches. Defaults to logistics.DefaultSearchCap.
func WithSearchCap(n int) Option {
	return func(w *World) { w.searchCap = n }
}

// WithModuleBonus sets the per-module speed bonus.
func WithModuleBonus(b float64) Option {
	return func(w *World) { w.moduleBonus = b }
}

// WithRebind toggles warehouse re-resolution after map changes.
func WithRebind(enabled bool) Option {
	return func(w *World) { w.rebind = enabled }
}

// WithHaulage moves goods every interval ticks, at most batch units per item
// and building per trip. interval <= 0 disables haulage; batch 0 is unlimited.
func WithHaulage(interval, batch int) Option {
	return func(w *World) {
		w.haulInterval = interval
		w.haulBatch = batch
	}
}

// New creates a world over gm.
func New(gm *gamemap.GameMap, opts ...Option) (*World, error) {
	if gm == nil {
		return nil, errors.New("simulation: game map is required")
	}
	w := &World{
		logger:      slog.Default(),
		gameMap:     gm,
		items:       inventory.NewRegistry(),
		recipes:     production.NewRecipeRegistry(),
		bus:         production.NewSimpleEventBus(),
		registry:    logistics.NewMemoryRegistry(),
		kinds:       make(map[string]BuildingKind),
		buildings:   make(map[production.BuildingID]*Building),
		warehouses:  make(map[string]*warehouseSite),
		searchCap:   logistics.DefaultSearchCap,
		moduleBonus: production.DefaultPerModuleBonus,
		rebind:      true,
	}
	for _, opt := range opts {
		opt(w)
	}

	resolver, err := logistics.NewResolver(gm, gm, w.searchCap)
	if err != nil {
		return nil, err
	}
	w.resolver = resolver
	w.manager = production.NewManager("world", w.recipes, w.bus, production.WithModuleBonus(w.moduleBonus))
	if w.collector != nil {
		w.collector.Subscribe(w.bus)
	}
	return w, nil
}

// Map returns the game map.
func (w *World) Map() *gamemap.GameMap { return w.gameMap }

// Manager returns the production manager.
func (w *World) Manager() *production.Manager { return w.manager }

// Recipes returns the recipe registry.
func (w *World) Recipes() *production.RecipeRegistry { return w.recipes }

// Items returns the item registry.
func (w *World) Items() *inventory.Registry { return w.items }

// EventBus returns the production event bus.
func (w *World) EventBus() production.EventBus { return w.bus }

// Warehouses returns the warehouse registry.
func (w *World) Warehouses() logistics.Registry { return w.registry }

// Ticks returns the number of ticks advanced.
func (w *World) Ticks() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tick
}

// RegisterKind makes a building kind placeable. Its recipe must be
// registered and its containers must hold at least one cycle.
func (w *World) RegisterKind(k BuildingKind) error {
	if k.Kind == "" {
		return errors.New("simulation: building kind cannot be empty")
	}
	recipe := w.recipes.Lookup(k.Recipe)
	if recipe == nil {
		return fmt.Errorf("simulation: kind %s: %w: %s", k.Kind, production.ErrRecipeNotFound, k.Recipe)
	}
	if err := recipe.FitsContainers(k.InputCapacity, k.OutputCapacity, w.items); err != nil {
		return fmt.Errorf("simulation: kind %s: %w", k.Kind, err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.kinds[k.Kind] = k
	return nil
}

// PlaceWarehouse puts a single-cell warehouse on the map with a store of the
// given capacity (0 = unlimited), then re-resolves unserved buildings.
func (w *World) PlaceWarehouse(wh logistics.Warehouse, capacity int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.warehouses[wh.ID]; exists {
		return fmt.Errorf("simulation: warehouse %s already exists", wh.ID)
	}
	if err := w.registry.Add(wh); err != nil {
		return err
	}
	if err := w.gameMap.PlaceStructure(wh.ID, wh.Root, hex.SingleCell); err != nil {
		w.registry.Remove(wh.ID)
		return fmt.Errorf("simulation: placing warehouse %s: %w", wh.ID, err)
	}
	w.warehouses[wh.ID] = &warehouseSite{
		Warehouse: wh,
		store:     inventory.NewStore(wh.ID, capacity, inventory.WithRegistry(w.items)),
	}
	w.logger.Info("warehouse placed", "warehouse", wh.ID, "root", wh.Root.String(), "radius", wh.Radius)

	if w.rebind {
		w.resolveLocked(production.Unserved)
	}
	return nil
}

// RemoveWarehouse deletes a warehouse and its stock. Buildings bound to it
// are re-resolved, or left unserved when rebinding is disabled.
func (w *World) RemoveWarehouse(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	site, ok := w.warehouses[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownWarehouse, id)
	}
	if _, err := w.gameMap.RemoveStructure(site.Root); err != nil {
		return err
	}
	w.registry.Remove(id)
	delete(w.warehouses, id)
	w.logger.Info("warehouse removed", "warehouse", id)

	bound := production.BoundTo(id)
	if w.rebind {
		w.resolveLocked(bound)
		return nil
	}
	for _, c := range w.manager.Cycles() {
		if bound(c) {
			c.Unbind()
		}
	}
	return nil
}

// StockWarehouse adds items to a warehouse store.
func (w *World) StockWarehouse(id string, item inventory.ItemID, qty int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	site, ok := w.warehouses[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownWarehouse, id)
	}
	return site.store.Add(item, qty)
}

// PlaceBuilding puts a producing building on the map, starts its cycle and
// binds it to a warehouse. A building whose cycle cannot be configured is
// kept on the map without one; the error is logged, not returned.
func (w *World) PlaceBuilding(p Placement) (*Building, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	kind, ok := w.kinds[p.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, p.Kind)
	}
	if p.ID == "" {
		p.ID = production.BuildingID(uuid.NewString())
	}
	if _, exists := w.buildings[p.ID]; exists {
		return nil, fmt.Errorf("simulation: building %s already exists", p.ID)
	}
	if err := w.gameMap.PlaceStructure(string(p.ID), p.Root, kind.Footprint); err != nil {
		return nil, fmt.Errorf("simulation: placing building %s: %w", p.ID, err)
	}

	b := &Building{ID: p.ID, Kind: kind.Kind, Owner: p.Owner, Root: p.Root}
	recipe := w.recipes.Lookup(kind.Recipe)
	if recipe != nil && recipe.HasInputs() {
		b.Input = inventory.NewInput(string(p.ID)+"/in", recipe.Costs(), kind.InputCapacity, inventory.WithRegistry(w.items))
	}
	if recipe != nil && recipe.HasOutput() {
		b.Output = inventory.NewOutput(string(p.ID)+"/out", recipe.Output.Item, kind.OutputCapacity,
			inventory.WithReserve(recipe.Output.Quantity),
			inventory.WithStoreOptions(inventory.WithRegistry(w.items)))
	}
	w.buildings[p.ID] = b

	opts := []production.Option{production.WithModules(p.Modules)}
	if p.Efficiency != nil {
		opts = append(opts, production.WithEfficiency(*p.Efficiency))
	}
	if recipe != nil {
		// the recipe may have been re-registered since the kind was
		if err := recipe.FitsContainers(kind.InputCapacity, kind.OutputCapacity, w.items); err != nil {
			w.logger.Error("production not configured", "building", p.ID, "kind", kind.Kind,
				"error", &production.ConfigurationError{Building: p.ID, Reason: "containers too small", Err: err})
			return b, nil
		}
	}
	cycle, err := w.manager.StartCycle(p.ID, p.Owner, p.Root, kind.Recipe, portIn(b.Input), portOut(b.Output), opts...)
	if err != nil {
		// stays on the map, but never produces
		w.logger.Error("production not configured", "building", p.ID, "kind", kind.Kind, "error", err)
		return b, nil
	}
	b.Cycle = cycle
	w.resolveOne(cycle)
	return b, nil
}

// portIn keeps a nil *Input from becoming a non-nil interface.
func portIn(in *inventory.Input) inventory.InputPort {
	if in == nil {
		return nil
	}
	return in
}

func portOut(out *inventory.Output) inventory.OutputPort {
	if out == nil {
		return nil
	}
	return out
}

// RemoveBuilding destroys a building: its cycle is closed (cancelling the
// output subscriptions) before the containers are dropped.
func (w *World) RemoveBuilding(id production.BuildingID) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	b, ok := w.buildings[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBuilding, id)
	}
	w.manager.Remove(id)
	if _, err := w.gameMap.RemoveStructure(b.Root); err != nil {
		return err
	}
	delete(w.buildings, id)
	w.logger.Info("building removed", "building", id)
	return nil
}

// BuildRoad paves a straight segment from a to b. Unserved buildings are
// re-resolved afterwards.
func (w *World) BuildRoad(from, to hex.Axial) error {
	return w.BuildRoadCells(hex.Line(from, to)...)
}

// BuildRoadCells paves the given cells.
func (w *World) BuildRoadCells(cells ...hex.Axial) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.gameMap.BuildRoad(cells...); err != nil {
		return err
	}
	if w.rebind {
		w.resolveLocked(production.Unserved)
	}
	return nil
}

// RemoveRoad clears road cells. Every building is re-resolved since any
// binding may have lost its path.
func (w *World) RemoveRoad(cells ...hex.Axial) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := w.gameMap.RemoveRoad(cells...)
	if n > 0 && w.rebind {
		w.resolveLocked(nil)
	}
	return n
}

// Rebind re-resolves every building regardless of configuration.
func (w *World) Rebind() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resolveLocked(nil)
}

// resolveLocked re-resolves matching cycles (caller must hold lock).
func (w *World) resolveLocked(keep func(*production.Cycle) bool) {
	before := make(map[production.BuildingID]*logistics.Binding)
	for _, c := range w.manager.Cycles() {
		if keep == nil || keep(c) {
			before[c.ID()] = c.Binding()
		}
	}
	resolved, err := w.manager.ResolveWhere(w.resolver, w.registry, keep)
	if err != nil {
		w.logger.Error("warehouse resolution failed", "error", err)
	}
	for _, c := range resolved {
		w.logResolution(c, before[c.ID()])
	}
}

func (w *World) resolveOne(c *production.Cycle) {
	before := c.Binding()
	if err := c.Resolve(w.resolver, w.registry); err != nil {
		w.logger.Error("warehouse resolution failed", "building", c.ID(), "error", err)
		return
	}
	w.logResolution(c, before)
}

func (w *World) logResolution(c *production.Cycle, before *logistics.Binding) {
	after := c.Binding()
	switch {
	case after != nil && (before == nil || *before != *after):
		w.logger.Info("building bound", "building", c.ID(), "warehouse", after.WarehouseID, "distance", after.Distance, "radius", after.Radius)
	case after == nil && before != nil:
		w.logger.Warn("building lost its warehouse", "building", c.ID(), "warehouse", before.WarehouseID)
	case after == nil:
		w.logger.Warn("building unserved", "building", c.ID(), "reason", w.unservedReason(c.Root()))
	}
}

func (w *World) unservedReason(root hex.Axial) string {
	switch {
	case len(w.resolver.AccessPoints(root)) == 0:
		return "no road access"
	case w.registry.Count() == 0:
		return "no warehouses"
	default:
		return "no warehouse within radius"
	}
}

// Deliver puts items into a building's input and returns how many were accepted.
func (w *World) Deliver(id production.BuildingID, item inventory.ItemID, qty int) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.buildings[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownBuilding, id)
	}
	if b.Input == nil {
		return 0, fmt.Errorf("%w: %s by %s", inventory.ErrUnwanted, item, id)
	}
	return b.Input.Deliver(item, qty)
}

// Collect withdraws up to max finished units from a building's output.
func (w *World) Collect(id production.BuildingID, max int) (inventory.ItemID, int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.buildings[id]
	if !ok {
		return "", 0, fmt.Errorf("%w: %s", ErrUnknownBuilding, id)
	}
	if b.Output == nil {
		return "", 0, nil
	}
	return b.Output.Item(), b.Output.Withdraw(max), nil
}

// Owner returns the owner of a building.
func (w *World) Owner(id production.BuildingID) (production.OwnerID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.buildings[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownBuilding, id)
	}
	return b.Owner, nil
}

// SetModules changes the module count of a building.
func (w *World) SetModules(id production.BuildingID, n int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, err := w.cycleLocked(id)
	if err != nil {
		return err
	}
	if err := c.SetModuleCount(n); err != nil {
		return err
	}
	w.logger.Info("modules updated", "building", id, "modules", n, "multiplier", c.ModuleMultiplier())
	return nil
}

// SetEfficiency changes the efficiency of a building.
func (w *World) SetEfficiency(id production.BuildingID, v float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, err := w.cycleLocked(id)
	if err != nil {
		return err
	}
	return c.SetEfficiency(v)
}

func (w *World) cycleLocked(id production.BuildingID) (*production.Cycle, error) {
	b, ok := w.buildings[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBuilding, id)
	}
	if b.Cycle == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotProducing, id)
	}
	return b.Cycle, nil
}

// Route returns the road path from a building to its bound warehouse.
func (w *World) Route(id production.BuildingID) ([]hex.Axial, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, err := w.cycleLocked(id)
	if err != nil {
		return nil, err
	}
	return w.resolver.Route(c.Root(), c.Binding(), w.registry), nil
}

// Tick advances every cycle by dt seconds and runs haulage when due.
func (w *World) Tick(dt float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	start := time.Now()
	w.manager.Update(dt)
	w.tick++
	if w.haulInterval > 0 && w.tick%uint64(w.haulInterval) == 0 {
		w.haulLocked()
	}
	if w.collector != nil {
		w.collector.ObserveTick(time.Since(start))
		w.collector.SetStateCounts(w.stateCountsLocked())
	}
}

func (w *World) stateCountsLocked() map[production.State]int {
	counts := make(map[production.State]int)
	for _, c := range w.manager.Cycles() {
		counts[c.State()]++
	}
	return counts
}
