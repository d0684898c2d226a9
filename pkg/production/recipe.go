package production

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/gravitas-games/millworks/pkg/inventory"
)

// RecipeRegistry stores recipes with efficient lookup and thread-safe access.
type RecipeRegistry struct {
	mu         sync.RWMutex
	recipes    map[RecipeID]*Recipe
	byCategory map[string][]RecipeID
	byOutput   map[inventory.ItemID][]RecipeID
}

// NewRecipeRegistry creates an empty recipe registry.
func NewRecipeRegistry() *RecipeRegistry {
	return &RecipeRegistry{
		recipes:    make(map[RecipeID]*Recipe),
		byCategory: make(map[string][]RecipeID),
		byOutput:   make(map[inventory.ItemID][]RecipeID),
	}
}

// ValidateRecipe checks a recipe without registering it.
func ValidateRecipe(recipe *Recipe) error {
	if recipe == nil {
		return errors.New("recipe cannot be nil")
	}
	if recipe.ID == "" {
		return errors.New("recipe ID cannot be empty")
	}
	if !(recipe.Duration > 0) || math.IsInf(recipe.Duration, 0) {
		return fmt.Errorf("recipe %s: duration must be a positive number of seconds", recipe.ID)
	}
	seen := make(map[inventory.ItemID]bool, len(recipe.Inputs))
	for i, input := range recipe.Inputs {
		if input.Item == "" {
			return fmt.Errorf("recipe %s: input %d: item ID cannot be empty", recipe.ID, i)
		}
		if seen[input.Item] {
			return fmt.Errorf("recipe %s: input %d: %w: %s", recipe.ID, i, ErrDuplicateInput, input.Item)
		}
		seen[input.Item] = true
		if input.Quantity < 0 {
			return fmt.Errorf("recipe %s: input %d: quantity cannot be negative", recipe.ID, i)
		}
	}
	if recipe.Output.Quantity < 0 {
		return fmt.Errorf("recipe %s: output quantity cannot be negative", recipe.ID)
	}
	if recipe.Output.Quantity > 0 && recipe.Output.Item == "" {
		return fmt.Errorf("recipe %s: output item ID cannot be empty", recipe.ID)
	}
	return nil
}

// Register adds or updates a recipe in the registry.
// The registry keeps its own copy; later changes to recipe have no effect.
func (r *RecipeRegistry) Register(recipe *Recipe) error {
	if err := ValidateRecipe(recipe); err != nil {
		return err
	}
	stored := cloneRecipe(recipe)

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, exists := r.recipes[stored.ID]; exists {
		r.removeIndices(existing)
	}
	r.recipes[stored.ID] = stored

	if stored.Category != "" {
		r.byCategory[stored.Category] = append(r.byCategory[stored.Category], stored.ID)
	}
	if stored.Output.Item != "" {
		r.byOutput[stored.Output.Item] = append(r.byOutput[stored.Output.Item], stored.ID)
	}
	return nil
}

func cloneRecipe(src *Recipe) *Recipe {
	dst := *src
	dst.Inputs = append([]ItemRequirement(nil), src.Inputs...)
	if src.Metadata != nil {
		dst.Metadata = make(map[string]any, len(src.Metadata))
		for k, v := range src.Metadata {
			dst.Metadata[k] = v
		}
	}
	return &dst
}

// removeIndices removes a recipe from secondary indices (caller must hold lock).
func (r *RecipeRegistry) removeIndices(recipe *Recipe) {
	if recipe.Category != "" {
		if ids, exists := r.byCategory[recipe.Category]; exists {
			r.byCategory[recipe.Category] = removeRecipeID(ids, recipe.ID)
			if len(r.byCategory[recipe.Category]) == 0 {
				delete(r.byCategory, recipe.Category)
			}
		}
	}
	if ids, exists := r.byOutput[recipe.Output.Item]; exists {
		r.byOutput[recipe.Output.Item] = removeRecipeID(ids, recipe.ID)
		if len(r.byOutput[recipe.Output.Item]) == 0 {
			delete(r.byOutput, recipe.Output.Item)
		}
	}
}

// removeRecipeID removes a recipe ID from a slice.
func removeRecipeID(ids []RecipeID, target RecipeID) []RecipeID {
	result := make([]RecipeID, 0, len(ids))
	for _, id := range ids {
		if id != target {
			result = append(result, id)
		}
	}
	return result
}

// Lookup retrieves a recipe by ID. Returns nil if not found.
// The returned recipe is shared and must not be modified.
func (r *RecipeRegistry) Lookup(id RecipeID) *Recipe {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.recipes[id]
}

// GetByCategory returns all recipe IDs in a category.
func (r *RecipeRegistry) GetByCategory(category string) []RecipeID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]RecipeID(nil), r.byCategory[category]...)
}

// GetByOutput returns all recipe IDs that produce a given item.
func (r *RecipeRegistry) GetByOutput(item inventory.ItemID) []RecipeID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]RecipeID(nil), r.byOutput[item]...)
}

// GetAll returns all recipes sorted by ID.
func (r *RecipeRegistry) GetAll() []*Recipe {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Recipe, 0, len(r.recipes))
	for _, recipe := range r.recipes {
		result = append(result, recipe)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Count returns the number of recipes in the registry.
func (r *RecipeRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.recipes)
}

// Remove deletes a recipe from the registry. Returns true if recipe existed.
// Cycles already running keep the recipe they were created with.
func (r *RecipeRegistry) Remove(id RecipeID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	recipe, exists := r.recipes[id]
	if !exists {
		return false
	}
	r.removeIndices(recipe)
	delete(r.recipes, id)
	return true
}

// Clear removes all recipes from the registry.
func (r *RecipeRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.recipes = make(map[RecipeID]*Recipe)
	r.byCategory = make(map[string][]RecipeID)
	r.byOutput = make(map[inventory.ItemID][]RecipeID)
}
