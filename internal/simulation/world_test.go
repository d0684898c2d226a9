package simulation

import (
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravitas-games/millworks/internal/config"
	"github.com/gravitas-games/millworks/internal/gamemap"
	"github.com/gravitas-games/millworks/internal/metrics"
	"github.com/gravitas-games/millworks/pkg/hexcore/hex"
	"github.com/gravitas-games/millworks/pkg/inventory"
	"github.com/gravitas-games/millworks/pkg/logistics"
	"github.com/gravitas-games/millworks/pkg/production"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Layout used by most tests: a road along r=0 from q=-5 to q=5.
//   camp    (0,1)   access (0,0),(1,0)
//   sawmill (1,-1)  access (0,0),(1,0)
//   depot   (-3,-1) entries (-4,0),(-3,0), 3 hops from both buildings
var (
	campRoot    = hex.Axial{Q: 0, R: 1}
	sawmillRoot = hex.Axial{Q: 1, R: -1}
	depot       = logistics.Warehouse{ID: "depot", Root: hex.Axial{Q: -3, R: -1}, Radius: 10}
)

func newTestWorld(t *testing.T, opts ...Option) *World {
	t.Helper()
	gm, err := gamemap.New(10, gamemap.WithLogger(quietLogger))
	require.NoError(t, err)

	recipes := production.NewRecipeRegistry()
	require.NoError(t, recipes.Register(&production.Recipe{
		ID:       "logs",
		Output:   production.ItemYield{Item: "log", Quantity: 1},
		Duration: 2,
	}))
	require.NoError(t, recipes.Register(&production.Recipe{
		ID:       "planks",
		Inputs:   []production.ItemRequirement{{Item: "log", Quantity: 2}},
		Output:   production.ItemYield{Item: "plank", Quantity: 3},
		Duration: 4,
	}))

	base := []Option{WithLogger(quietLogger), WithRecipes(recipes)}
	w, err := New(gm, append(base, opts...)...)
	require.NoError(t, err)

	require.NoError(t, w.RegisterKind(BuildingKind{Kind: "camp", Recipe: "logs", OutputCapacity: 2}))
	require.NoError(t, w.RegisterKind(BuildingKind{Kind: "sawmill", Recipe: "planks", InputCapacity: 10, OutputCapacity: 6}))
	require.NoError(t, w.BuildRoad(hex.Axial{Q: -5, R: 0}, hex.Axial{Q: 5, R: 0}))
	return w
}

func TestNew_RequiresMap(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestRegisterKind_UnknownRecipe(t *testing.T) {
	w := newTestWorld(t)
	err := w.RegisterKind(BuildingKind{Kind: "smelter", Recipe: "ingots"})
	assert.ErrorIs(t, err, production.ErrRecipeNotFound)
	assert.Error(t, w.RegisterKind(BuildingKind{Recipe: "logs"}))
}

func TestRegisterKind_RejectsUndersizedContainers(t *testing.T) {
	w := newTestWorld(t)

	err := w.RegisterKind(BuildingKind{Kind: "tinymill", Recipe: "planks", InputCapacity: 1})
	assert.ErrorIs(t, err, production.ErrCapacityTooSmall)

	err = w.RegisterKind(BuildingKind{Kind: "cramped", Recipe: "planks", OutputCapacity: 2})
	assert.ErrorIs(t, err, production.ErrCapacityTooSmall)

	_, err = w.PlaceBuilding(Placement{Kind: "tinymill", Root: sawmillRoot})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestRegisterKind_OutputVolume(t *testing.T) {
	gm, err := gamemap.New(4, gamemap.WithLogger(quietLogger))
	require.NoError(t, err)
	recipes := production.NewRecipeRegistry()
	require.NoError(t, recipes.Register(&production.Recipe{
		ID:       "logs",
		Output:   production.ItemYield{Item: "log", Quantity: 1},
		Duration: 2,
	}))
	items := inventory.NewRegistry(inventory.ItemDetails{ID: "log", VolumePerUnit: 3})
	w, err := New(gm, WithLogger(quietLogger), WithRecipes(recipes), WithItems(items))
	require.NoError(t, err)

	assert.ErrorIs(t, w.RegisterKind(BuildingKind{Kind: "camp", Recipe: "logs", OutputCapacity: 2}), production.ErrCapacityTooSmall)
	assert.NoError(t, w.RegisterKind(BuildingKind{Kind: "camp", Recipe: "logs", OutputCapacity: 3}))
}

func TestPlaceBuilding_RecipeOutgrowsKind(t *testing.T) {
	w := newTestWorld(t)
	require.NoError(t, w.PlaceWarehouse(depot, 0))
	require.NoError(t, w.Recipes().Register(&production.Recipe{
		ID:       "planks",
		Inputs:   []production.ItemRequirement{{Item: "log", Quantity: 20}},
		Output:   production.ItemYield{Item: "plank", Quantity: 3},
		Duration: 4,
	}))

	b, err := w.PlaceBuilding(Placement{ID: "mill", Kind: "sawmill", Root: sawmillRoot})
	require.NoError(t, err)
	assert.Nil(t, b.Cycle)
	assert.Equal(t, 0, w.Manager().Count())
	assert.ErrorIs(t, w.SetModules("mill", 1), ErrNotProducing)
}

func TestPlaceBuilding_BindsToWarehouse(t *testing.T) {
	w := newTestWorld(t)
	require.NoError(t, w.PlaceWarehouse(depot, 0))

	b, err := w.PlaceBuilding(Placement{ID: "camp-1", Kind: "camp", Owner: "p1", Root: campRoot})
	require.NoError(t, err)
	require.NotNil(t, b.Cycle)

	binding := b.Cycle.Binding()
	require.NotNil(t, binding)
	assert.Equal(t, "depot", binding.WarehouseID)
	assert.Equal(t, 3, binding.Distance)
	assert.Equal(t, production.StateIdle, b.Cycle.State())
	assert.Nil(t, b.Input)
	assert.NotNil(t, b.Output)

	id, ok := w.Map().StructureAt(campRoot)
	assert.True(t, ok)
	assert.Equal(t, "camp-1", id)
}

func TestPlaceBuilding_GeneratesID(t *testing.T) {
	w := newTestWorld(t)
	b, err := w.PlaceBuilding(Placement{Kind: "camp", Root: campRoot})
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
	assert.Len(t, string(b.ID), 36)
}

func TestPlaceBuilding_Errors(t *testing.T) {
	w := newTestWorld(t)

	_, err := w.PlaceBuilding(Placement{ID: "x", Kind: "smelter", Root: campRoot})
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = w.PlaceBuilding(Placement{ID: "x", Kind: "camp", Root: hex.Axial{Q: 0, R: 0}})
	assert.ErrorIs(t, err, gamemap.ErrOccupied, "roads cannot be built over")

	_, err = w.PlaceBuilding(Placement{ID: "x", Kind: "camp", Root: campRoot})
	require.NoError(t, err)
	_, err = w.PlaceBuilding(Placement{ID: "x", Kind: "camp", Root: hex.Axial{Q: 3, R: 1}})
	assert.Error(t, err, "duplicate building IDs are rejected")
}

func TestPlaceBuilding_UnservedWithoutWarehouse(t *testing.T) {
	w := newTestWorld(t)
	b, err := w.PlaceBuilding(Placement{ID: "camp-1", Kind: "camp", Root: campRoot})
	require.NoError(t, err)

	assert.Nil(t, b.Cycle.Binding())
	assert.Equal(t, production.StateBlockedLogistics, b.Cycle.State())

	w.Tick(10)
	assert.Equal(t, 0, b.Cycle.Completed(), "unserved buildings never produce")
}

func TestPlaceBuilding_NoRoadAccess(t *testing.T) {
	w := newTestWorld(t)
	require.NoError(t, w.PlaceWarehouse(depot, 0))

	b, err := w.PlaceBuilding(Placement{ID: "far", Kind: "camp", Root: hex.Axial{Q: 2, R: 4}})
	require.NoError(t, err)
	assert.Equal(t, production.StateBlockedLogistics, b.Cycle.State())
}

func TestPlaceBuilding_ConfigurationErrorKeepsBuilding(t *testing.T) {
	w := newTestWorld(t)
	require.NoError(t, w.PlaceWarehouse(depot, 0))

	b, err := w.PlaceBuilding(Placement{ID: "broken", Kind: "camp", Root: campRoot, Modules: -1})
	require.NoError(t, err)
	assert.Nil(t, b.Cycle)
	assert.Equal(t, 0, w.Manager().Count())

	_, onMap := w.Map().StructureAt(campRoot)
	assert.True(t, onMap)

	assert.ErrorIs(t, w.SetModules("broken", 1), ErrNotProducing)
	snap := w.Snapshot()
	view, ok := snap.Building("broken")
	require.True(t, ok)
	assert.Nil(t, view.Cycle)
}

func TestWarehousePlacedLater_BindsUnserved(t *testing.T) {
	w := newTestWorld(t)
	b, err := w.PlaceBuilding(Placement{ID: "camp-1", Kind: "camp", Root: campRoot})
	require.NoError(t, err)
	require.Nil(t, b.Cycle.Binding())

	require.NoError(t, w.PlaceWarehouse(depot, 0))
	require.NotNil(t, b.Cycle.Binding())
	assert.Equal(t, production.StateIdle, b.Cycle.State())
}

func TestWarehousePlacedLater_RebindDisabled(t *testing.T) {
	w := newTestWorld(t, WithRebind(false))
	b, err := w.PlaceBuilding(Placement{ID: "camp-1", Kind: "camp", Root: campRoot})
	require.NoError(t, err)

	require.NoError(t, w.PlaceWarehouse(depot, 0))
	assert.Nil(t, b.Cycle.Binding())

	w.Rebind()
	assert.NotNil(t, b.Cycle.Binding())
}

func TestRemoveWarehouse_Rebinds(t *testing.T) {
	w := newTestWorld(t)
	require.NoError(t, w.PlaceWarehouse(depot, 0))
	far := logistics.Warehouse{ID: "far", Root: hex.Axial{Q: 5, R: -1}, Radius: 10}
	require.NoError(t, w.PlaceWarehouse(far, 0))

	b, err := w.PlaceBuilding(Placement{ID: "camp-1", Kind: "camp", Root: campRoot})
	require.NoError(t, err)
	require.Equal(t, "depot", b.Cycle.Binding().WarehouseID)

	require.NoError(t, w.RemoveWarehouse("depot"))
	require.NotNil(t, b.Cycle.Binding())
	assert.Equal(t, "far", b.Cycle.Binding().WarehouseID)

	require.NoError(t, w.RemoveWarehouse("far"))
	assert.Nil(t, b.Cycle.Binding())
	assert.Equal(t, production.StateBlockedLogistics, b.Cycle.State())

	assert.ErrorIs(t, w.RemoveWarehouse("far"), ErrUnknownWarehouse)
}

func TestRemoveWarehouse_RebindDisabledUnbinds(t *testing.T) {
	w := newTestWorld(t, WithRebind(false))
	require.NoError(t, w.PlaceWarehouse(depot, 0))
	b, err := w.PlaceBuilding(Placement{ID: "camp-1", Kind: "camp", Root: campRoot})
	require.NoError(t, err)
	require.NotNil(t, b.Cycle.Binding())

	require.NoError(t, w.RemoveWarehouse("depot"))
	assert.Nil(t, b.Cycle.Binding())
	assert.True(t, b.Cycle.IsPaused())
}

func TestRoadChanges_Rebind(t *testing.T) {
	w := newTestWorld(t)
	require.NoError(t, w.PlaceWarehouse(depot, 0))
	b, err := w.PlaceBuilding(Placement{ID: "camp-1", Kind: "camp", Root: campRoot})
	require.NoError(t, err)
	require.NotNil(t, b.Cycle.Binding())

	// cut the road between the camp and the depot
	assert.Equal(t, 1, w.RemoveRoad(hex.Axial{Q: -1, R: 0}))
	assert.Nil(t, b.Cycle.Binding())

	require.NoError(t, w.BuildRoadCells(hex.Axial{Q: -1, R: 0}))
	require.NotNil(t, b.Cycle.Binding())
	assert.Equal(t, 3, b.Cycle.Binding().Distance)
}

func TestRoute(t *testing.T) {
	w := newTestWorld(t)
	require.NoError(t, w.PlaceWarehouse(depot, 0))
	_, err := w.PlaceBuilding(Placement{ID: "camp-1", Kind: "camp", Root: campRoot})
	require.NoError(t, err)

	route, err := w.Route("camp-1")
	require.NoError(t, err)
	require.Len(t, route, 4)
	assert.Equal(t, hex.Axial{Q: 0, R: 0}, route[0])
	assert.Equal(t, hex.Axial{Q: -3, R: 0}, route[3])

	_, err = w.Route("missing")
	assert.ErrorIs(t, err, ErrUnknownBuilding)
}

func TestTick_OutputFullPausesAndHaulResumes(t *testing.T) {
	w := newTestWorld(t)
	require.NoError(t, w.PlaceWarehouse(depot, 0))
	b, err := w.PlaceBuilding(Placement{ID: "camp-1", Kind: "camp", Root: campRoot})
	require.NoError(t, err)

	w.Tick(2)
	assert.Equal(t, 1, b.Output.Stored())
	assert.Equal(t, production.StateAccumulating, b.Cycle.State())

	w.Tick(2)
	assert.Equal(t, 2, b.Output.Stored())
	assert.Equal(t, production.StateBlockedOutput, b.Cycle.State())

	w.Tick(10)
	assert.Equal(t, 2, b.Cycle.Completed(), "a full output freezes the cycle")

	w.Haul()
	assert.Equal(t, 0, b.Output.Stored())
	assert.Equal(t, production.StateAccumulating, b.Cycle.State())

	view, ok := w.Snapshot().Warehouse("depot")
	require.True(t, ok)
	assert.Equal(t, []inventory.Cost{{Item: "log", Quantity: 2}}, view.Stock)
}

func TestTick_ScheduledHaulage(t *testing.T) {
	w := newTestWorld(t, WithHaulage(2, 0))
	require.NoError(t, w.PlaceWarehouse(depot, 0))
	b, err := w.PlaceBuilding(Placement{ID: "camp-1", Kind: "camp", Root: campRoot})
	require.NoError(t, err)

	w.Tick(2)
	assert.Equal(t, 1, b.Output.Stored())
	w.Tick(2)
	assert.Equal(t, 0, b.Output.Stored(), "second tick hauls")
	assert.False(t, b.Cycle.IsPaused())
	assert.Equal(t, uint64(2), w.Ticks())
}

func TestHaul_SupplyRespectsBatchAndCapacity(t *testing.T) {
	w := newTestWorld(t, WithHaulage(0, 4))
	require.NoError(t, w.PlaceWarehouse(depot, 0))
	require.NoError(t, w.StockWarehouse("depot", "log", 20))
	b, err := w.PlaceBuilding(Placement{ID: "mill", Kind: "sawmill", Root: sawmillRoot})
	require.NoError(t, err)

	w.Haul()
	assert.Equal(t, 4, b.Input.Count("log"))
	w.Haul()
	w.Haul()
	assert.Equal(t, 10, b.Input.Count("log"), "input caps at 10 per item")

	view, _ := w.Snapshot().Warehouse("depot")
	assert.Equal(t, []inventory.Cost{{Item: "log", Quantity: 10}}, view.Stock)
}

func TestHaul_CollectLimitedByWarehouseSpace(t *testing.T) {
	w := newTestWorld(t)
	require.NoError(t, w.PlaceWarehouse(depot, 1))
	b, err := w.PlaceBuilding(Placement{ID: "camp-1", Kind: "camp", Root: campRoot})
	require.NoError(t, err)

	w.Tick(4)
	require.Equal(t, 2, b.Output.Stored())
	w.Haul()
	assert.Equal(t, 1, b.Output.Stored())
	assert.Equal(t, production.StateAccumulating, b.Cycle.State())
}

func TestTick_StarvationIsNotAPause(t *testing.T) {
	w := newTestWorld(t)
	require.NoError(t, w.PlaceWarehouse(depot, 0))
	b, err := w.PlaceBuilding(Placement{ID: "mill", Kind: "sawmill", Root: sawmillRoot})
	require.NoError(t, err)

	w.Tick(4)
	assert.Equal(t, production.StateBlockedInput, b.Cycle.State())
	assert.False(t, b.Cycle.IsPaused())

	view, _ := w.Snapshot().Building("mill")
	assert.True(t, view.ShowRequesting)

	n, err := w.Deliver("mill", "log", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	w.Tick(4)
	assert.Equal(t, 1, b.Cycle.Completed())
	assert.Equal(t, 3, b.Output.Stored())

	item, got, err := w.Collect("mill", 2)
	require.NoError(t, err)
	assert.Equal(t, inventory.ItemID("plank"), item)
	assert.Equal(t, 2, got)
}

func TestSnapshot_PausedHidesRequesting(t *testing.T) {
	w := newTestWorld(t)
	_, err := w.PlaceBuilding(Placement{ID: "mill", Kind: "sawmill", Root: sawmillRoot})
	require.NoError(t, err)

	view, ok := w.Snapshot().Building("mill")
	require.True(t, ok)
	require.NotNil(t, view.Cycle)
	assert.True(t, view.Cycle.Requesting)
	assert.True(t, view.Cycle.Paused)
	assert.False(t, view.ShowRequesting)
}

func TestDeliver_Errors(t *testing.T) {
	w := newTestWorld(t)
	_, err := w.Deliver("nope", "log", 1)
	assert.ErrorIs(t, err, ErrUnknownBuilding)

	_, err = w.PlaceBuilding(Placement{ID: "camp-1", Kind: "camp", Root: campRoot})
	require.NoError(t, err)
	_, err = w.Deliver("camp-1", "log", 1)
	assert.ErrorIs(t, err, inventory.ErrUnwanted)
}

func TestSetModules_SpeedsUpCycle(t *testing.T) {
	w := newTestWorld(t)
	require.NoError(t, w.PlaceWarehouse(depot, 0))
	b, err := w.PlaceBuilding(Placement{ID: "mill", Kind: "sawmill", Root: sawmillRoot})
	require.NoError(t, err)

	require.NoError(t, w.SetModules("mill", 4))
	assert.Equal(t, 2.0, b.Cycle.EffectiveCycleTime())
	assert.Error(t, w.SetModules("mill", -1))

	require.NoError(t, w.SetEfficiency("mill", 0.5))
	assert.Equal(t, 4.0, b.Cycle.EffectiveCycleTime())
}

func TestRemoveBuilding(t *testing.T) {
	w := newTestWorld(t)
	require.NoError(t, w.PlaceWarehouse(depot, 0))
	b, err := w.PlaceBuilding(Placement{ID: "camp-1", Kind: "camp", Root: campRoot})
	require.NoError(t, err)

	require.NoError(t, w.RemoveBuilding("camp-1"))
	assert.True(t, b.Cycle.Closed())
	assert.Equal(t, 0, b.Output.OnFull().Len())
	_, onMap := w.Map().StructureAt(campRoot)
	assert.False(t, onMap)
	assert.ErrorIs(t, w.RemoveBuilding("camp-1"), ErrUnknownBuilding)
}

func TestMetrics_WiredToWorld(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewProductionMetricsCollector()
	require.NoError(t, collector.Register(reg))

	w := newTestWorld(t, WithMetrics(collector))
	require.NoError(t, w.PlaceWarehouse(depot, 0))
	_, err := w.PlaceBuilding(Placement{ID: "camp-1", Kind: "camp", Owner: "p1", Root: campRoot})
	require.NoError(t, err)

	w.Tick(4)
	w.Haul()

	count, err := testutil.GatherAndCount(reg,
		"millworks_production_cycles_completed_total",
		"millworks_production_haul_units_total",
		"millworks_production_pauses_total",
		"millworks_production_resumes_total",
	)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	count, err = testutil.GatherAndCount(reg, "millworks_production_tick_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNewFromConfig_SampleScenario(t *testing.T) {
	cfg, err := config.Load("../../configs/millworks.yaml")
	require.NoError(t, err)

	w, err := NewFromConfig(cfg, quietLogger)
	require.NoError(t, err)
	snap := w.Snapshot()
	require.Len(t, snap.Buildings, 4)
	require.Len(t, snap.Warehouses, 2)

	bindings := map[production.BuildingID]string{}
	for _, b := range snap.Buildings {
		require.NotNil(t, b.Cycle, b.ID)
		if b.Cycle.Binding != nil {
			bindings[b.ID] = b.Cycle.Binding.WarehouseID
		}
	}
	assert.Equal(t, map[production.BuildingID]string{
		"lumber-1":  "depot-west",
		"sawmill-1": "depot-west", // depot-east is nearer but out of its radius
		"quarry-1":  "depot-east",
	}, bindings)

	quarry2, _ := snap.Building("quarry-2")
	assert.Equal(t, production.StateBlockedLogistics, quarry2.Cycle.State)

	sawmill, _ := snap.Building("sawmill-1")
	assert.Equal(t, []inventory.Cost{{Item: "log", Quantity: 4}}, sawmill.Input)
	assert.Equal(t, 1, sawmill.Cycle.Modules)

	west, _ := snap.Warehouse("depot-west")
	assert.Equal(t, []inventory.Cost{{Item: "log", Quantity: 20}}, west.Stock)
}
