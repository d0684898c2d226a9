package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gravitas-games/millworks/pkg/inventory"
	"github.com/gravitas-games/millworks/pkg/production"
)

// NewRecipesCommand creates the recipes command
func NewRecipesCommand() *cobra.Command {
	var (
		output   string
		category string
	)

	cmd := &cobra.Command{
		Use:   "recipes",
		Short: "List the recipes of the loaded catalog",
		Long: `List recipes with their inputs, yield and cycle time.

Examples:
  simctl recipes
  simctl recipes --output plank
  simctl recipes --category extraction`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, w, err := loadWorld(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			registry := w.Recipes()

			var recipes []*production.Recipe
			switch {
			case output != "" || category != "":
				recipes = filterRecipes(registry, inventory.ItemID(output), category)
			default:
				recipes = registry.GetAll()
			}
			if len(recipes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No matching recipes")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RECIPE\tCATEGORY\tSECONDS\tINPUTS\tOUTPUT")
			for _, r := range recipes {
				out := "-"
				if r.HasOutput() {
					out = formatCosts([]inventory.Cost{{Item: r.Output.Item, Quantity: r.Output.Quantity}})
				}
				fmt.Fprintf(tw, "%s\t%s\t%g\t%s\t%s\n", r.ID, orDash(r.Category), r.Duration, formatCosts(r.Costs()), out)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&output, "output", "", "Only recipes producing this item")
	cmd.Flags().StringVar(&category, "category", "", "Only recipes in this category")

	return cmd
}

// filterRecipes intersects the output and category indices; an empty filter
// matches everything.
func filterRecipes(registry *production.RecipeRegistry, output inventory.ItemID, category string) []*production.Recipe {
	var ids []production.RecipeID
	if output != "" {
		ids = registry.GetByOutput(output)
	} else {
		ids = registry.GetByCategory(category)
	}

	var result []*production.Recipe
	for _, id := range ids {
		r := registry.Lookup(id)
		if r == nil || (category != "" && r.Category != category) {
			continue
		}
		result = append(result, r)
	}
	return result
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
