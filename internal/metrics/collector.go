// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector records coordination metrics. Metrics register on the given
// registerer, so independent coordinators in one process can keep separate
// registries.
type Collector struct {
	tasksCreated     prometheus.Counter
	taskTransitions  *prometheus.CounterVec
	tasksDistributed *prometheus.CounterVec
	distributionTime *prometheus.HistogramVec

	messagesSent    *prometheus.CounterVec
	resultsReceived *prometheus.CounterVec

	coordinationRounds *prometheus.CounterVec
	coordinationTime   *prometheus.HistogramVec

	aggregations *prometheus.CounterVec

	agentsActive prometheus.Gauge

	logger *zap.Logger
}

// NewCollector creates a metrics collector. A nil registerer falls back to
// the default prometheus registerer.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.tasksCreated = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_created_total",
		Help:      "Total number of tasks created",
	})

	c.taskTransitions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_transitions_total",
			Help:      "Total number of task state transitions",
		},
		[]string{"from", "to"},
	)

	c.tasksDistributed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_distributed_total",
			Help:      "Total number of distribution attempts",
		},
		[]string{"distributor", "status"},
	)

	c.distributionTime = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "distribution_duration_seconds",
			Help:      "Task distribution duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"distributor"},
	)

	c.messagesSent = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Total number of messages sent",
		},
		[]string{"channel", "type"},
	)

	c.resultsReceived = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_received_total",
			Help:      "Total number of result messages received",
		},
		[]string{"status"},
	)

	c.coordinationRounds = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coordination_rounds_total",
			Help:      "Total number of coordination pattern rounds",
		},
		[]string{"pattern", "status"},
	)

	c.coordinationTime = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "coordination_duration_seconds",
			Help:      "Coordination round duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"pattern"},
	)

	c.aggregations = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregations_total",
			Help:      "Total number of result aggregations",
		},
		[]string{"aggregator", "status"},
	)

	c.agentsActive = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "agents_active",
		Help:      "Number of registered active agents",
	})

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// RecordTaskCreated counts a task creation.
func (c *Collector) RecordTaskCreated() {
	c.tasksCreated.Inc()
}

// RecordTransition counts a task state transition.
func (c *Collector) RecordTransition(from, to string) {
	c.taskTransitions.WithLabelValues(from, to).Inc()
}

// RecordDistribution counts a distribution attempt and its latency.
func (c *Collector) RecordDistribution(distributor, status string, duration time.Duration) {
	c.tasksDistributed.WithLabelValues(distributor, status).Inc()
	c.distributionTime.WithLabelValues(distributor).Observe(duration.Seconds())
}

// RecordMessageSent counts an outgoing message.
func (c *Collector) RecordMessageSent(channel, msgType string) {
	c.messagesSent.WithLabelValues(channel, msgType).Inc()
}

// RecordResultReceived counts an incoming result message.
func (c *Collector) RecordResultReceived(status string) {
	c.resultsReceived.WithLabelValues(status).Inc()
}

// RecordCoordination counts a pattern round and its latency.
func (c *Collector) RecordCoordination(pattern, status string, duration time.Duration) {
	c.coordinationRounds.WithLabelValues(pattern, status).Inc()
	c.coordinationTime.WithLabelValues(pattern).Observe(duration.Seconds())
}

// RecordAggregation counts an aggregation.
func (c *Collector) RecordAggregation(aggregator, status string) {
	c.aggregations.WithLabelValues(aggregator, status).Inc()
}

// SetActiveAgents tracks the active agent count.
func (c *Collector) SetActiveAgents(n int) {
	c.agentsActive.Set(float64(n))
}
