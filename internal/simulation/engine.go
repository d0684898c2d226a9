package simulation

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Engine drives a World forward on a wall-clock ticker.
type Engine struct {
	World *World

	Interval          time.Duration // wall time between ticks
	Step              float64       // simulated seconds per tick
	BroadcastInterval uint64        // ticks between OnBroadcast calls, 0 disables

	// OnBroadcast receives a snapshot every BroadcastInterval ticks.
	OnBroadcast func(Snapshot)

	logger *slog.Logger
}

// NewEngine creates an engine ticking at rate Hz, advancing step simulated
// seconds per tick.
func NewEngine(w *World, rate int, step float64, broadcastEvery int, logger *slog.Logger) (*Engine, error) {
	if w == nil {
		return nil, errors.New("simulation: engine needs a world")
	}
	if rate <= 0 {
		return nil, errors.New("simulation: tick rate must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}
	var every uint64
	if broadcastEvery > 0 {
		every = uint64(broadcastEvery)
	}
	return &Engine{
		World:             w,
		Interval:          time.Second / time.Duration(rate),
		Step:              step,
		BroadcastInterval: every,
		logger:            logger,
	}, nil
}

// Run ticks the world until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.Interval)
	defer ticker.Stop()

	e.logger.Info("simulation engine started", "tick", e.World.Ticks(), "interval", e.Interval, "step", e.Step)
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("simulation engine stopped", "tick", e.World.Ticks())
			return ctx.Err()
		case <-ticker.C:
			e.step()
		}
	}
}

// step advances the world by one tick.
func (e *Engine) step() {
	e.World.Tick(e.Step)
	if e.OnBroadcast == nil || e.BroadcastInterval == 0 {
		return
	}
	if e.World.Ticks()%e.BroadcastInterval == 0 {
		e.OnBroadcast(e.World.Snapshot())
	}
}

// Advance runs n ticks synchronously without waiting on the clock.
func (e *Engine) Advance(n int) {
	for i := 0; i < n; i++ {
		e.step()
	}
}
