package simulation

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngine_Validation(t *testing.T) {
	_, err := NewEngine(nil, 10, 0.1, 0, quietLogger)
	assert.Error(t, err)

	w := newTestWorld(t)
	_, err = NewEngine(w, 0, 0.1, 0, quietLogger)
	assert.Error(t, err)

	e, err := NewEngine(w, 20, 0.05, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, e.Interval)
	assert.Equal(t, uint64(5), e.BroadcastInterval)
}

func TestEngine_AdvanceBroadcasts(t *testing.T) {
	w := newTestWorld(t)
	require.NoError(t, w.PlaceWarehouse(depot, 0))
	_, err := w.PlaceBuilding(Placement{ID: "camp-1", Kind: "camp", Root: campRoot})
	require.NoError(t, err)

	e, err := NewEngine(w, 10, 0.5, 4, quietLogger)
	require.NoError(t, err)

	var snaps []Snapshot
	e.OnBroadcast = func(s Snapshot) { snaps = append(snaps, s) }
	e.Advance(8)

	require.Len(t, snaps, 2)
	assert.Equal(t, uint64(4), snaps[0].Tick)
	assert.Equal(t, uint64(8), snaps[1].Tick)

	camp, ok := snaps[1].Building("camp-1")
	require.True(t, ok)
	assert.Equal(t, 2, camp.Cycle.Completed, "8 ticks of 0.5s is two 2s cycles")
}

func TestEngine_RunStopsOnCancel(t *testing.T) {
	w := newTestWorld(t)
	e, err := NewEngine(w, 1000, 0.001, 1, quietLogger)
	require.NoError(t, err)

	var broadcasts atomic.Int32
	e.OnBroadcast = func(Snapshot) { broadcasts.Add(1) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	require.Eventually(t, func() bool { return broadcasts.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("engine did not stop")
	}
	assert.GreaterOrEqual(t, w.Ticks(), uint64(3))
}
