// Package metrics provides Prometheus metrics for the battle engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Timeline
	ticks          prometheus.Counter
	turns          *prometheus.CounterVec
	skillUses      *prometheus.CounterVec
	damageDealt    prometheus.Histogram
	rendezvousWait *prometheus.HistogramVec
	battles        *prometheus.CounterVec
	battlesActive  prometheus.Gauge

	// Decision policy
	decisionLatency   prometheus.Histogram
	decisionFallbacks prometheus.Counter

	// Bus
	busPublishes   *prometheus.CounterVec
	busSubscribers prometheus.Gauge

	// Narration queue and worker
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueueErrors *prometheus.CounterVec
	narrationJobs      *prometheus.CounterVec
	narrationLatency   prometheus.Histogram

	// Repository
	repositoryRecords      prometheus.Gauge
	repositoryQueryLatency *prometheus.HistogramVec
	repositoryErrors       *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec
	duplicateChoices    prometheus.Counter
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Init rebuilds the global manager with opts on a fresh registry. It must run
// at startup, before metrics are recorded from other goroutines.
func Init(opts ...Option) {
	customRegistry = prometheus.NewRegistry()
	globalManager = NewManager(append([]Option{WithPrometheusRegistry(customRegistry)}, opts...)...)
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "xianxia",
		subsystem:        "battle",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.ticks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ticks_total",
		Help:      "Timeline ticks that advanced simulated time",
	})

	m.turns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "turns_total",
		Help:      "Completed turns by controller (player or ai)",
	}, []string{"controller"})

	m.skillUses = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "skill_uses_total",
		Help:      "Skill resolutions by skill and outcome",
	}, []string{"skill", "outcome"})

	m.damageDealt = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "damage_dealt",
		Help:      "Final damage per hit after mitigation",
		Buckets:   []float64{1, 2, 5, 10, 20, 35, 50, 75, 100},
	})

	m.rendezvousWait = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rendezvous_wait_milliseconds",
		Help:      "Time the scheduler spent suspended waiting for an external event",
		Buckets:   m.histogramBuckets,
	}, []string{"kind"})

	m.battles = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "battles_total",
		Help:      "Finished battles by result (victory, defeat, draw, aborted)",
	}, []string{"result"})

	m.battlesActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "battles_active",
		Help:      "Battles currently running",
	})

	m.decisionLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "policy",
		Name:      "decision_latency_milliseconds",
		Help:      "AI decision latency including think delay",
		Buckets:   m.histogramBuckets,
	})

	m.decisionFallbacks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "policy",
		Name:      "fallbacks_total",
		Help:      "Decisions that found no usable candidate and fell back",
	})

	m.busPublishes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "bus",
		Name:      "publishes_total",
		Help:      "Events published on the coordination bus by kind",
	}, []string{"kind"})

	m.busSubscribers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "bus",
		Name:      "subscribers",
		Help:      "Live bus subscriptions",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "narration",
		Name:      "queue_size",
		Help:      "Narration jobs waiting to be typed",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "narration",
		Name:      "queue_capacity",
		Help:      "Maximum narration queue capacity",
	})

	m.queueEnqueueErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "narration",
		Name:      "enqueue_errors_total",
		Help:      "Narration jobs rejected by reason",
	}, []string{"reason"})

	m.narrationJobs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "narration",
		Name:      "jobs_total",
		Help:      "Narration jobs processed by kind and status",
	}, []string{"kind", "status"})

	m.narrationLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "narration",
		Name:      "job_latency_milliseconds",
		Help:      "Time to type one narration job",
		Buckets:   m.histogramBuckets,
	})

	m.repositoryRecords = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "repository",
		Name:      "records",
		Help:      "Battle records currently held",
	})

	m.repositoryQueryLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "repository",
		Name:      "operation_latency_microseconds",
		Help:      "Repository operation latency in microseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"operation"})

	m.repositoryErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "repository",
		Name:      "errors_total",
		Help:      "Repository errors by reason",
	}, []string{"reason"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.httpErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "errors_total",
		Help:      "HTTP error responses by endpoint and error type",
	}, []string{"endpoint", "method", "error_type"})

	m.duplicateChoices = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "duplicate_choices_total",
		Help:      "Skill choices dropped because their request id was already seen",
	})
}

// RecordTick increments the timeline tick counter.
func RecordTick() { globalManager.ticks.Inc() }

// RecordTurn counts a finished turn for the given controller.
func RecordTurn(controller string) { globalManager.turns.WithLabelValues(controller).Inc() }

// RecordSkillUse counts a skill resolution; outcome is "success" or "no_resource".
func RecordSkillUse(skill, outcome string) {
	globalManager.skillUses.WithLabelValues(skill, outcome).Inc()
}

// RecordDamage observes the final damage of one hit.
func RecordDamage(amount int) { globalManager.damageDealt.Observe(float64(amount)) }

// RecordRendezvousWait observes how long the scheduler waited on kind.
func RecordRendezvousWait(kind string, latencyMs float64) {
	globalManager.rendezvousWait.WithLabelValues(kind).Observe(latencyMs)
}

// RecordBattle counts a finished battle.
func RecordBattle(result string) { globalManager.battles.WithLabelValues(result).Inc() }

// AddActiveBattles moves the active battle gauge by delta.
func AddActiveBattles(delta int) { globalManager.battlesActive.Add(float64(delta)) }

// RecordDecisionLatency observes one AI decision.
func RecordDecisionLatency(latencyMs float64) { globalManager.decisionLatency.Observe(latencyMs) }

// RecordDecisionFallback counts a fallback decision.
func RecordDecisionFallback() { globalManager.decisionFallbacks.Inc() }

// RecordBusPublish counts a published event.
func RecordBusPublish(kind string) { globalManager.busPublishes.WithLabelValues(kind).Inc() }

// AddBusSubscribers moves the live subscription gauge by delta.
func AddBusSubscribers(delta int) { globalManager.busSubscribers.Add(float64(delta)) }

// UpdateQueueSize sets the current narration queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the narration queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// RecordQueueEnqueueError counts a rejected job.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// RecordNarrationJob counts a processed narration job.
func RecordNarrationJob(kind, status string) {
	globalManager.narrationJobs.WithLabelValues(kind, status).Inc()
}

// RecordNarrationLatency observes the typing time of one job.
func RecordNarrationLatency(latencyMs float64) { globalManager.narrationLatency.Observe(latencyMs) }

// UpdateRepositoryRecords sets the number of stored battle records.
func UpdateRepositoryRecords(n int) { globalManager.repositoryRecords.Set(float64(n)) }

// RecordRepositoryLatency observes one repository operation in microseconds.
func RecordRepositoryLatency(operation string, latencyUs float64) {
	globalManager.repositoryQueryLatency.WithLabelValues(operation).Observe(latencyUs)
}

// RecordRepositoryError counts a failed repository operation.
func RecordRepositoryError(reason string) {
	globalManager.repositoryErrors.WithLabelValues(reason).Inc()
}

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordHTTPError counts an error response.
func RecordHTTPError(endpoint, method, errorType string) {
	globalManager.httpErrors.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordDuplicateChoice counts a replayed skill choice.
func RecordDuplicateChoice() { globalManager.duplicateChoices.Inc() }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
