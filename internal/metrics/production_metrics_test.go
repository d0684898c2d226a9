package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravitas-games/millworks/pkg/production"
)

func TestProductionMetrics_EventsFromBus(t *testing.T) {
	c := NewProductionMetricsCollector()
	reg := prometheus.NewRegistry()
	require.NoError(t, c.Register(reg))

	bus := production.NewSimpleEventBus()
	c.Subscribe(bus)

	bus.Publish(production.Event{Type: production.EventCycleCompleted, Owner: "p1", Recipe: "planks"})
	bus.Publish(production.Event{Type: production.EventCycleCompleted, Owner: "p1", Recipe: "planks"})
	bus.Publish(production.Event{Type: production.EventPaused, Reason: production.ReasonOutputFull})
	bus.Publish(production.Event{Type: production.EventPaused, Reason: production.ReasonLogistics})
	bus.Publish(production.Event{Type: production.EventResumed})
	bus.Publish(production.Event{Type: production.EventBound})
	bus.Publish(production.Event{Type: production.EventUnserved})
	bus.Publish(production.Event{Type: production.EventBlockedInput, Recipe: "planks"})

	assert.Equal(t, 2.0, testutil.ToFloat64(c.cyclesCompletedTotal.WithLabelValues("p1", "planks")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.pausesTotal.WithLabelValues(production.ReasonOutputFull)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.pausesTotal.WithLabelValues(production.ReasonLogistics)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.resumesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.bindOutcomesTotal.WithLabelValues("bound")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.bindOutcomesTotal.WithLabelValues("unserved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.blockedInputTotal.WithLabelValues("planks")))
}

func TestProductionMetrics_StateGaugeAndHaul(t *testing.T) {
	c := NewProductionMetricsCollector()

	c.SetStateCounts(map[production.State]int{
		production.StateAccumulating:  3,
		production.StateBlockedOutput: 1,
	})
	assert.Equal(t, 3.0, testutil.ToFloat64(c.cyclesByState.WithLabelValues("Accumulating")))

	c.SetStateCounts(map[production.State]int{production.StateIdle: 2})
	assert.Equal(t, 1, testutil.CollectAndCount(c.cyclesByState))

	c.RecordHaul(HaulCollect, "plank", 6)
	c.RecordHaul(HaulCollect, "plank", 0)
	assert.Equal(t, 6.0, testutil.ToFloat64(c.haulUnitsTotal.WithLabelValues(HaulCollect, "plank")))

	c.ObserveTick(2 * time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(c.tickDurationSeconds))
}

func TestProductionMetrics_RegisterTwiceFails(t *testing.T) {
	c := NewProductionMetricsCollector()
	reg := prometheus.NewRegistry()
	require.NoError(t, c.Register(reg))
	assert.Error(t, c.Register(reg))
	assert.Error(t, c.Register(nil))
}
