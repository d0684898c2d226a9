package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gravitas-games/millworks/internal/config"
	"github.com/gravitas-games/millworks/internal/simulation"
)

var (
	// Global flags
	configPath string
	verbose    bool
)

// NewRootCommand creates the root command for the CLI
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "simctl",
		Short: "Run millworks scenarios offline",
		Long: `simctl loads a world from a configuration file and advances it without
a server, printing production and warehouse state.

Examples:
  simctl run --ticks 600
  simctl run --config configs/millworks.yaml --dt 0.5 --ticks 120
  simctl route sawmill-1
  simctl recipes --output plank`,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath(),
		"Path to the world configuration")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Log world events to stderr")

	rootCmd.AddCommand(NewRunCommand())
	rootCmd.AddCommand(NewRouteCommand())
	rootCmd.AddCommand(NewRecipesCommand())

	return rootCmd
}

func defaultConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return "./configs/millworks.yaml"
}

// loadWorld reads the configuration and builds its world.
func loadWorld(errOut io.Writer) (*config.Config, *simulation.World, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if verbose {
		logger = config.NewLogger(cfg.Logging, errOut)
	}
	w, err := simulation.NewFromConfig(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build world: %w", err)
	}
	return cfg, w, nil
}

// Execute runs the root command
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
