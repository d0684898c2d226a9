package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gravitas-games/millworks/pkg/production"
)

const (
	// Namespace for all metrics
	namespace = "millworks"
	// Subsystem for production metrics
	subsystem = "production"
)

// Haul directions
const (
	HaulCollect = "collect"
	HaulSupply  = "supply"
)

// ProductionMetricsCollector turns production events and world ticks into
// Prometheus metrics.
type ProductionMetricsCollector struct {
	cyclesCompletedTotal *prometheus.CounterVec
	pausesTotal          *prometheus.CounterVec
	resumesTotal         prometheus.Counter
	bindOutcomesTotal    *prometheus.CounterVec
	blockedInputTotal    *prometheus.CounterVec
	cyclesByState        *prometheus.GaugeVec
	tickDurationSeconds  prometheus.Histogram
	haulUnitsTotal       *prometheus.CounterVec
}

// NewProductionMetricsCollector creates a new production metrics collector
func NewProductionMetricsCollector() *ProductionMetricsCollector {
	return &ProductionMetricsCollector{
		cyclesCompletedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cycles_completed_total",
				Help:      "Total completed production cycles",
			},
			[]string{"owner", "recipe"},
		),

		pausesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "pauses_total",
				Help:      "Total transitions into a paused state by reason",
			},
			[]string{"reason"},
		),

		resumesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "resumes_total",
				Help:      "Total transitions out of a paused state",
			},
		),

		bindOutcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "bind_outcomes_total",
				Help:      "Warehouse resolutions by outcome",
			},
			[]string{"outcome"},
		),

		blockedInputTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "blocked_input_total",
				Help:      "Cycle boundaries reached without enough input",
			},
			[]string{"recipe"},
		),

		cyclesByState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cycles",
				Help:      "Current number of production cycles by state",
			},
			[]string{"state"},
		),

		tickDurationSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "tick_duration_seconds",
				Help:      "Wall time spent advancing the world by one tick",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
		),

		haulUnitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "haul_units_total",
				Help:      "Units moved between buildings and warehouses",
			},
			[]string{"direction", "item"},
		),
	}
}

// Register registers all production metrics with reg
func (c *ProductionMetricsCollector) Register(reg prometheus.Registerer) error {
	if reg == nil {
		return errors.New("metrics: nil registerer")
	}
	metrics := []prometheus.Collector{
		c.cyclesCompletedTotal,
		c.pausesTotal,
		c.resumesTotal,
		c.bindOutcomesTotal,
		c.blockedInputTotal,
		c.cyclesByState,
		c.tickDurationSeconds,
		c.haulUnitsTotal,
	}
	for _, m := range metrics {
		if err := reg.Register(m); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe feeds every event published on bus into the collector.
func (c *ProductionMetricsCollector) Subscribe(bus production.EventBus) {
	bus.Subscribe(production.AnyOwner, c.HandleEvent)
}

// HandleEvent records a single production event
func (c *ProductionMetricsCollector) HandleEvent(e production.Event) {
	switch e.Type {
	case production.EventCycleCompleted:
		c.cyclesCompletedTotal.WithLabelValues(string(e.Owner), string(e.Recipe)).Inc()
	case production.EventPaused:
		c.pausesTotal.WithLabelValues(e.Reason).Inc()
	case production.EventResumed:
		c.resumesTotal.Inc()
	case production.EventBound:
		c.bindOutcomesTotal.WithLabelValues("bound").Inc()
	case production.EventUnserved:
		c.bindOutcomesTotal.WithLabelValues("unserved").Inc()
	case production.EventBlockedInput:
		c.blockedInputTotal.WithLabelValues(string(e.Recipe)).Inc()
	}
}

// ObserveTick records how long one world tick took
func (c *ProductionMetricsCollector) ObserveTick(d time.Duration) {
	c.tickDurationSeconds.Observe(d.Seconds())
}

// SetStateCounts replaces the per-state cycle gauge
func (c *ProductionMetricsCollector) SetStateCounts(counts map[production.State]int) {
	c.cyclesByState.Reset()
	for state, n := range counts {
		c.cyclesByState.WithLabelValues(state.String()).Set(float64(n))
	}
}

// RecordHaul records units moved by haulage
func (c *ProductionMetricsCollector) RecordHaul(direction, item string, units int) {
	if units <= 0 {
		return
	}
	c.haulUnitsTotal.WithLabelValues(direction, item).Add(float64(units))
}
