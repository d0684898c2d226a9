package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gravitas-games/millworks/internal/simulation"
	"github.com/gravitas-games/millworks/pkg/inventory"
	"github.com/gravitas-games/millworks/pkg/production"
)

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	var (
		ticks int
		dt    float64
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Advance the world and print a production report",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ticks < 0 {
				return fmt.Errorf("--ticks must not be negative")
			}
			cfg, w, err := loadWorld(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			step := dt
			if step <= 0 {
				step = cfg.Simulation.TickInterval()
			}
			for i := 0; i < ticks; i++ {
				w.Tick(step)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Advanced %d ticks of %gs (%gs simulated)\n\n", ticks, step, float64(ticks)*step)
			return printReport(cmd.OutOrStdout(), w.Snapshot())
		},
	}

	cmd.Flags().IntVarP(&ticks, "ticks", "n", 600, "Number of ticks to advance")
	cmd.Flags().Float64Var(&dt, "dt", 0, "Simulated seconds per tick (default from config)")

	return cmd
}

// NewRouteCommand creates the route command
func NewRouteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "route <building>",
		Short: "Print the road path from a building to its warehouse",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, w, err := loadWorld(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			cells, err := w.Route(production.BuildingID(args[0]))
			if err != nil {
				return err
			}
			if len(cells) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s has no route to a warehouse\n", args[0])
				return nil
			}
			parts := make([]string, len(cells))
			for i, c := range cells {
				parts[i] = c.String()
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], strings.Join(parts, " -> "))
			return nil
		},
	}
}

func printReport(out io.Writer, snap simulation.Snapshot) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BUILDING\tKIND\tSTATE\tDONE\tWAREHOUSE\tDIST\tINPUT\tOUTPUT")
	for _, b := range snap.Buildings {
		state, done, warehouse, dist := "unconfigured", "-", "-", "-"
		if b.Cycle != nil {
			state = b.Cycle.State.String()
			if b.ShowRequesting {
				state += " (requesting)"
			}
			done = fmt.Sprint(b.Cycle.Completed)
			if b.Cycle.Binding != nil {
				warehouse = b.Cycle.Binding.WarehouseID
				dist = fmt.Sprint(b.Cycle.Binding.Distance)
			}
		}
		output := "-"
		if b.Output != nil {
			output = formatCosts([]inventory.Cost{*b.Output})
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			b.ID, b.Kind, state, done, warehouse, dist, formatCosts(b.Input), output)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "WAREHOUSE\tROOT\tRADIUS\tSTOCK")
	for _, wh := range snap.Warehouses {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", wh.ID, wh.Root, wh.Radius, formatCosts(wh.Stock))
	}
	return tw.Flush()
}

func formatCosts(costs []inventory.Cost) string {
	if len(costs) == 0 {
		return "-"
	}
	parts := make([]string, len(costs))
	for i, c := range costs {
		parts[i] = fmt.Sprintf("%d %s", c.Quantity, c.Item)
	}
	return strings.Join(parts, ", ")
}
