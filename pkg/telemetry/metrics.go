package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for polcheck.
type Metrics struct {
	config MetricsConfig

	// Parsing metrics
	documentsParsed *prometheus.CounterVec
	resourcesParsed *prometheus.CounterVec
	parseErrors     *prometheus.CounterVec
	parseDuration   *prometheus.HistogramVec

	// Evaluation metrics
	evaluationsCompleted *prometheus.CounterVec
	evaluationDuration   *prometheus.HistogramVec
	verdicts             *prometheus.CounterVec

	// Comparison metrics
	divergences      prometheus.Counter
	ambiguousMatches prometheus.Counter

	// Rule metrics
	rulesLoaded prometheus.Gauge
	ruleReloads *prometheus.CounterVec

	// Error metrics
	errorsByClass *prometheus.CounterVec

	// System metrics
	activeEvaluations prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	// Create a new registry
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		// Parsing metrics
		documentsParsed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "documents_parsed_total",
				Help:      "Total number of policy documents parsed",
			},
			[]string{"dialect"},
		),
		resourcesParsed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resources_parsed_total",
				Help:      "Total number of resources extracted from parsed documents",
			},
			[]string{"dialect"},
		),
		parseErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "parse_errors_total",
				Help:      "Total number of document parse failures",
			},
			[]string{"dialect"},
		),
		parseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "parse_duration_seconds",
				Help:      "Duration of document parsing in seconds",
				Buckets:   buckets,
			},
			[]string{"dialect"},
		),

		// Evaluation metrics
		evaluationsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evaluations_completed_total",
				Help:      "Total number of evaluation runs completed",
			},
			[]string{"result"},
		),
		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of evaluation runs in seconds",
				Buckets:   buckets,
			},
			[]string{"result"},
		),
		verdicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "verdicts_total",
				Help:      "Total number of verdicts produced by outcome",
			},
			[]string{"outcome"},
		),

		// Comparison metrics
		divergences: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "divergences_total",
				Help:      "Total number of divergences found against reference evaluations",
			},
		),
		ambiguousMatches: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ambiguous_matches_total",
				Help:      "Total number of reference comparisons skipped as ambiguous",
			},
		),

		// Rule metrics
		rulesLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "rules_loaded",
				Help:      "Current number of rules in the registry",
			},
		),
		ruleReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rule_reloads_total",
				Help:      "Total number of rule file reloads",
			},
			[]string{"status"},
		),

		// Error metrics
		errorsByClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_class_total",
				Help:      "Total number of errors by error class",
			},
			[]string{"class"},
		),

		// System metrics
		activeEvaluations: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_evaluations",
				Help:      "Current number of in-flight evaluation runs",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.documentsParsed,
		m.resourcesParsed,
		m.parseErrors,
		m.parseDuration,
		m.evaluationsCompleted,
		m.evaluationDuration,
		m.verdicts,
		m.divergences,
		m.ambiguousMatches,
		m.rulesLoaded,
		m.ruleReloads,
		m.errorsByClass,
		m.activeEvaluations,
	)

	return m, nil
}

// Parsing Metrics

// RecordDocumentParsed records a successfully parsed document and its
// resource count.
func (m *Metrics) RecordDocumentParsed(dialect string, resources int, duration time.Duration) {
	if m.documentsParsed == nil {
		return
	}
	m.documentsParsed.WithLabelValues(dialect).Inc()
	m.resourcesParsed.WithLabelValues(dialect).Add(float64(resources))
	m.parseDuration.WithLabelValues(dialect).Observe(duration.Seconds())
}

// RecordParseError records a document parse failure.
func (m *Metrics) RecordParseError(dialect string) {
	if m.parseErrors == nil {
		return
	}
	m.parseErrors.WithLabelValues(dialect).Inc()
}

// Evaluation Metrics

// RecordEvaluationStarted increments the in-flight evaluation gauge.
func (m *Metrics) RecordEvaluationStarted() {
	if m.activeEvaluations == nil {
		return
	}
	m.activeEvaluations.Inc()
}

// RecordEvaluationCompleted records a completed evaluation run with its
// overall result and duration.
func (m *Metrics) RecordEvaluationCompleted(result string, duration time.Duration) {
	if m.evaluationsCompleted == nil {
		return
	}
	m.evaluationsCompleted.WithLabelValues(result).Inc()
	m.evaluationDuration.WithLabelValues(result).Observe(duration.Seconds())
	m.activeEvaluations.Dec()
}

// RecordVerdict records one verdict by outcome.
func (m *Metrics) RecordVerdict(outcome string) {
	if m.verdicts == nil {
		return
	}
	m.verdicts.WithLabelValues(outcome).Inc()
}

// Comparison Metrics

// RecordDivergences records divergences found in a reference comparison.
func (m *Metrics) RecordDivergences(count int) {
	if m.divergences == nil {
		return
	}
	m.divergences.Add(float64(count))
}

// RecordAmbiguousMatch records a comparison skipped as ambiguous.
func (m *Metrics) RecordAmbiguousMatch() {
	if m.ambiguousMatches == nil {
		return
	}
	m.ambiguousMatches.Inc()
}

// Rule Metrics

// SetRulesLoaded sets the current number of registered rules.
func (m *Metrics) SetRulesLoaded(count float64) {
	if m.rulesLoaded == nil {
		return
	}
	m.rulesLoaded.Set(count)
}

// RecordRuleReload records a rule file reload with its status.
func (m *Metrics) RecordRuleReload(status string) {
	if m.ruleReloads == nil {
		return
	}
	m.ruleReloads.WithLabelValues(status).Inc()
}

// Error Metrics

// RecordError records an error by class.
func (m *Metrics) RecordError(errorClass string) {
	if m.errorsByClass == nil {
		return
	}
	m.errorsByClass.WithLabelValues(errorClass).Inc()
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration is a helper to time an operation and record it.
func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(t.Duration().Seconds())
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// Log error but don't fail the application
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
