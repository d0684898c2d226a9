package simulation

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/gravitas-games/millworks/internal/config"
	"github.com/gravitas-games/millworks/internal/gamemap"
	"github.com/gravitas-games/millworks/pkg/inventory"
	"github.com/gravitas-games/millworks/pkg/logistics"
	"github.com/gravitas-games/millworks/pkg/production"
)

// NewFromConfig builds a world from the catalog and scenario sections of cfg.
// Explicit opts are applied after the ones derived from cfg.
func NewFromConfig(cfg *config.Config, logger *slog.Logger, opts ...Option) (*World, error) {
	if logger == nil {
		logger = slog.Default()
	}

	gm, err := gamemap.New(cfg.Simulation.MapRadius, gamemap.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	items, err := buildItems(cfg.Catalog.Items)
	if err != nil {
		return nil, err
	}
	recipes, err := buildRecipes(cfg.Catalog.Recipes)
	if err != nil {
		return nil, err
	}

	base := []Option{
		WithLogger(logger),
		WithItems(items),
		WithRecipes(recipes),
		WithSearchCap(cfg.Logistics.SearchCap),
		WithModuleBonus(cfg.Production.ModuleBonus()),
		WithRebind(cfg.Logistics.Rebind()),
		WithHaulage(cfg.Logistics.HaulIntervalTicks, cfg.Logistics.HaulBatch),
	}
	w, err := New(gm, append(base, opts...)...)
	if err != nil {
		return nil, err
	}

	for _, k := range cfg.Catalog.Buildings {
		if err := w.RegisterKind(BuildingKind{
			Kind:           k.Kind,
			Recipe:         production.RecipeID(k.Recipe),
			Footprint:      k.Footprint,
			InputCapacity:  k.InputCapacity,
			OutputCapacity: k.OutputCapacity,
		}); err != nil {
			return nil, err
		}
	}
	if err := w.loadScenario(cfg.Scenario); err != nil {
		return nil, err
	}
	logger.Info("world loaded",
		"map_radius", cfg.Simulation.MapRadius,
		"recipes", recipes.Count(),
		"warehouses", len(cfg.Scenario.Warehouses),
		"buildings", len(cfg.Scenario.Buildings))
	return w, nil
}

func buildItems(cfgs []config.ItemConfig) (*inventory.Registry, error) {
	items := inventory.NewRegistry()
	for _, ic := range cfgs {
		if err := items.RegisterDetails(inventory.ItemDetails{
			ID:            inventory.ItemID(ic.ID),
			Name:          ic.Name,
			VolumePerUnit: ic.Volume,
		}); err != nil {
			return nil, fmt.Errorf("item %s: %w", ic.ID, err)
		}
	}
	return items, nil
}

func buildRecipes(cfgs []config.RecipeConfig) (*production.RecipeRegistry, error) {
	recipes := production.NewRecipeRegistry()
	for _, rc := range cfgs {
		r := &production.Recipe{
			ID:       production.RecipeID(rc.ID),
			Name:     rc.Name,
			Category: rc.Category,
			Duration: rc.Duration,
			Output: production.ItemYield{
				Item:     inventory.ItemID(rc.Output.Item),
				Quantity: rc.Output.Quantity,
			},
		}
		for _, in := range rc.Inputs {
			r.Inputs = append(r.Inputs, production.ItemRequirement{
				Item:     inventory.ItemID(in.Item),
				Quantity: in.Quantity,
			})
		}
		if err := recipes.Register(r); err != nil {
			return nil, err
		}
	}
	return recipes, nil
}

func (w *World) loadScenario(sc config.ScenarioConfig) error {
	for _, rc := range sc.Roads {
		if err := w.BuildRoad(rc.From, rc.To); err != nil {
			return fmt.Errorf("road %s-%s: %w", rc.From, rc.To, err)
		}
	}
	for _, wc := range sc.Warehouses {
		wh := logistics.Warehouse{ID: wc.ID, Root: wc.Root, Radius: wc.Radius}
		if err := w.PlaceWarehouse(wh, wc.Capacity); err != nil {
			return err
		}
		for _, item := range sortedKeys(wc.Stock) {
			if err := w.StockWarehouse(wc.ID, inventory.ItemID(item), wc.Stock[item]); err != nil {
				return fmt.Errorf("warehouse %s stock: %w", wc.ID, err)
			}
		}
	}
	for _, bc := range sc.Buildings {
		b, err := w.PlaceBuilding(Placement{
			ID:         production.BuildingID(bc.ID),
			Kind:       bc.Kind,
			Owner:      production.OwnerID(bc.Owner),
			Root:       bc.Root,
			Modules:    bc.Modules,
			Efficiency: bc.Efficiency,
		})
		if err != nil {
			return err
		}
		for _, item := range sortedKeys(bc.Stock) {
			if _, err := w.Deliver(b.ID, inventory.ItemID(item), bc.Stock[item]); err != nil {
				return fmt.Errorf("building %s stock: %w", b.ID, err)
			}
		}
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
