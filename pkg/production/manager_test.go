package production

import (
	"errors"
	"testing"

	"github.com/gravitas-games/millworks/pkg/hexcore/hex"
	"github.com/gravitas-games/millworks/pkg/inventory"
	"github.com/gravitas-games/millworks/pkg/logistics"
)

func TestManagerStartAndUpdateOrder(t *testing.T) {
	registry := NewRecipeRegistry()
	err := registry.Register(&Recipe{
		ID:       "stone",
		Name:     "Quarried Stone",
		Category: "extraction",
		Output:   ItemYield{Item: "stone", Quantity: 1},
		Duration: 1,
	})
	if err != nil {
		t.Fatalf("Failed to register recipe: %v", err)
	}

	bus := NewSimpleEventBus()
	var order []BuildingID
	bus.Subscribe(AnyOwner, func(e Event) {
		if e.Type == EventCycleCompleted {
			order = append(order, e.Building)
		}
	})
	mgr := NewManager("test_manager", registry, bus)

	for _, id := range []BuildingID{"quarry-c", "quarry-a", "quarry-b"} {
		c, err := mgr.StartCycle(id, "player1", hex.Axial{}, "stone", nil, inventory.NewOutput(string(id), "stone", inventory.Unlimited))
		if err != nil {
			t.Fatalf("Failed to start cycle %s: %v", id, err)
		}
		c.Bind(testBinding)
	}
	if mgr.Count() != 3 {
		t.Fatalf("Expected 3 cycles, got %d", mgr.Count())
	}

	mgr.Update(1)
	want := []BuildingID{"quarry-a", "quarry-b", "quarry-c"}
	if len(order) != len(want) {
		t.Fatalf("Expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("Expected tick order %v, got %v", want, order)
		}
	}
}

func TestManagerStartErrors(t *testing.T) {
	registry := NewRecipeRegistry()
	if err := registry.Register(sawmillRecipe(5)); err != nil {
		t.Fatal(err)
	}
	mgr := NewManager("m", registry, nil)

	_, err := mgr.StartCycle("b1", "p", hex.Axial{}, "missing", nil, nil)
	if !errors.Is(err, ErrRecipeNotFound) || !IsConfigurationError(err) {
		t.Fatalf("Expected ErrRecipeNotFound, got %v", err)
	}
	_, err = mgr.StartCycle("b1", "p", hex.Axial{}, "planks", nil, inventory.NewOutput("o", "plank", 5))
	if !IsConfigurationError(err) {
		t.Fatalf("Expected ConfigurationError for missing input, got %v", err)
	}
	if mgr.Count() != 0 {
		t.Fatalf("Failed starts must not register cycles")
	}

	in := stockedInput(t, 0)
	if _, err := mgr.StartCycle("b1", "p", hex.Axial{}, "planks", in, inventory.NewOutput("o", "plank", 5)); err != nil {
		t.Fatalf("Failed to start cycle: %v", err)
	}
	_, err = mgr.StartCycle("b1", "p", hex.Axial{}, "planks", in, inventory.NewOutput("o2", "plank", 5))
	if !errors.Is(err, ErrDuplicateCycle) {
		t.Fatalf("Expected ErrDuplicateCycle, got %v", err)
	}
}

func TestManagerModuleBonusApplies(t *testing.T) {
	registry := NewRecipeRegistry()
	if err := registry.Register(sawmillRecipe(6)); err != nil {
		t.Fatal(err)
	}
	mgr := NewManager("m", registry, nil, WithModuleBonus(0.5))
	c, err := mgr.StartCycle("b", "p", hex.Axial{}, "planks", stockedInput(t, 0),
		inventory.NewOutput("o", "plank", 5), WithModules(2))
	if err != nil {
		t.Fatal(err)
	}
	if c.EffectiveCycleTime() != 3 {
		t.Fatalf("2 modules at 0.5: expected 3s, got %v", c.EffectiveCycleTime())
	}
}

func TestManagerRemoveClosesCycle(t *testing.T) {
	registry := NewRecipeRegistry()
	if err := registry.Register(sawmillRecipe(1)); err != nil {
		t.Fatal(err)
	}
	mgr := NewManager("m", registry, NewNullEventBus())
	out := inventory.NewOutput("o", "plank", 5)
	c, err := mgr.StartCycle("b", "p", hex.Axial{}, "planks", stockedInput(t, 1), out)
	if err != nil {
		t.Fatal(err)
	}
	c.Bind(testBinding)

	if !mgr.Remove("b") || mgr.Remove("b") {
		t.Fatalf("Remove should report existence once")
	}
	if !c.Closed() || out.OnFull().Len() != 0 {
		t.Fatalf("Removed cycle should be closed and unsubscribed")
	}
	if mgr.Get("b") != nil {
		t.Fatalf("Removed cycle still retrievable")
	}
}

func TestManagerResolveWhere(t *testing.T) {
	registry := NewRecipeRegistry()
	if err := registry.Register(sawmillRecipe(1)); err != nil {
		t.Fatal(err)
	}
	mgr := NewManager("m", registry, nil)
	for _, id := range []BuildingID{"a", "b"} {
		if _, err := mgr.StartCycle(id, "p", hex.Axial{}, "planks", stockedInput(t, 0), inventory.NewOutput(string(id), "plank", 5)); err != nil {
			t.Fatal(err)
		}
	}
	mgr.Get("a").Bind(&logistics.Binding{WarehouseID: "old", Distance: 1, Radius: 3})

	loc := &fixedLocator{binding: testBinding}
	resolved, err := mgr.ResolveWhere(loc, logistics.NewMemoryRegistry(), Unserved)
	if err != nil {
		t.Fatal(err)
	}
	if len(resolved) != 1 || resolved[0].ID() != "b" || loc.calls != 1 {
		t.Fatalf("only the unserved cycle should be re-resolved, got %d calls", loc.calls)
	}

	resolved, _ = mgr.ResolveWhere(loc, logistics.NewMemoryRegistry(), BoundTo("old"))
	if len(resolved) != 1 || mgr.Get("a").Binding().WarehouseID != "depot" {
		t.Fatalf("cycle bound to old should be rebound to depot")
	}

	_, err = mgr.ResolveWhere(nil, nil, nil)
	if !errors.Is(err, ErrMissingLocator) {
		t.Fatalf("expected joined ErrMissingLocator, got %v", err)
	}
}

func TestRecipeRegistryValidationAndIndices(t *testing.T) {
	registry := NewRecipeRegistry()
	bad := []*Recipe{
		nil,
		{ID: "", Duration: 1},
		{ID: "no-time", Duration: 0},
		{ID: "neg-in", Duration: 1, Inputs: []ItemRequirement{{Item: "log", Quantity: -1}}},
		{ID: "blank-in", Duration: 1, Inputs: []ItemRequirement{{Item: "", Quantity: 1}}},
		{ID: "neg-out", Duration: 1, Output: ItemYield{Item: "plank", Quantity: -1}},
		{ID: "twice", Duration: 1, Inputs: []ItemRequirement{{Item: "log", Quantity: 2}, {Item: "log", Quantity: 2}}},
	}
	for _, r := range bad {
		if err := registry.Register(r); err == nil {
			t.Fatalf("Expected validation error for %+v", r)
		}
	}

	recipe := sawmillRecipe(4)
	recipe.Category = "wood"
	if err := registry.Register(recipe); err != nil {
		t.Fatal(err)
	}
	recipe.Duration = 99
	if registry.Lookup("planks").Duration != 4 {
		t.Fatalf("Registry should keep its own copy")
	}
	if ids := registry.GetByOutput("plank"); len(ids) != 1 || ids[0] != "planks" {
		t.Fatalf("Unexpected output index %v", ids)
	}
	if ids := registry.GetByCategory("wood"); len(ids) != 1 {
		t.Fatalf("Unexpected category index %v", ids)
	}

	if !registry.Remove("planks") || registry.Count() != 0 {
		t.Fatalf("Remove failed")
	}
	if len(registry.GetByOutput("plank")) != 0 || len(registry.GetByCategory("wood")) != 0 {
		t.Fatalf("Indices should be cleared on remove")
	}
}

func TestRecipeFitsContainers(t *testing.T) {
	recipe := &Recipe{
		ID:       "planks",
		Inputs:   []ItemRequirement{{Item: "log", Quantity: 2}},
		Output:   ItemYield{Item: "plank", Quantity: 3},
		Duration: 4,
	}
	items := inventory.NewRegistry(inventory.ItemDetails{ID: "plank", VolumePerUnit: 2})

	cases := []struct {
		name          string
		input, output int
		ok            bool
	}{
		{"unlimited", 0, 0, true},
		{"exact", 2, 6, true},
		{"input short", 1, 0, false},
		{"output short of volume", 0, 5, false},
	}
	for _, tc := range cases {
		err := recipe.FitsContainers(tc.input, tc.output, items)
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && !errors.Is(err, ErrCapacityTooSmall) {
			t.Errorf("%s: expected ErrCapacityTooSmall, got %v", tc.name, err)
		}
	}
	if err := recipe.FitsContainers(0, 3, nil); err != nil {
		t.Fatalf("unknown volumes count one unit each: %v", err)
	}
}

func TestEventBusRouting(t *testing.T) {
	bus := NewSimpleEventBus()
	var alice, everyone int
	bus.Subscribe("alice", func(Event) { alice++ })
	bus.Subscribe(AnyOwner, func(Event) { everyone++ })

	bus.Publish(Event{Type: EventBound, Owner: "alice"})
	bus.Publish(Event{Type: EventBound, Owner: "bob"})
	if alice != 1 || everyone != 2 {
		t.Fatalf("Expected alice=1 everyone=2, got %d/%d", alice, everyone)
	}

	bus.Unsubscribe("alice")
	bus.Publish(Event{Type: EventBound, Owner: "alice"})
	if alice != 1 || everyone != 3 {
		t.Fatalf("Unsubscribed handler still called")
	}
}
