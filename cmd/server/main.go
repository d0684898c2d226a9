package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/gravitas-games/millworks/internal/config"
	"github.com/gravitas-games/millworks/internal/server"
)

func main() {
	// optional .env for local runs
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/millworks.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load configuration", "path", configPath, "error", err)
		os.Exit(1)
	}

	logger := config.NewLogger(cfg.Logging, os.Stderr)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "path", configPath, "host", cfg.Server.Host, "port", cfg.Server.Port)

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := srv.Start(addr); err != nil {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		logger.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-sigChan:
		logger.Info("received signal, shutting down", "signal", sig.String())
	}

	if err := srv.Shutdown(); err != nil {
		logger.Error("error during shutdown", "error", err)
	}
	logger.Info("server stopped")
}
