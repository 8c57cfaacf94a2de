package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry provides a unified telemetry interface combining logging, tracing, metrics, and events.
type Telemetry struct {
	Logger  *Logger
	Tracer  *Tracer
	Metrics *Metrics
	Events  *EventPublisher
	Config  *Config
}

// telemetryContextKey is the context key for telemetry instances.
type telemetryContextKey struct{}

// NewTelemetry creates a new telemetry instance from configuration.
func NewTelemetry(cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Initialize logger
	logger, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	// Initialize tracer
	tracer, err := NewTracer(cfg.Tracing, cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	if err != nil {
		return nil, err
	}

	// Initialize metrics
	metrics, err := NewMetrics(cfg.Metrics)
	if err != nil {
		return nil, err
	}

	// Initialize event publisher
	events, err := NewEventPublisher(cfg.Events)
	if err != nil {
		return nil, err
	}

	return &Telemetry{
		Logger:  logger,
		Tracer:  tracer,
		Metrics: metrics,
		Events:  events,
		Config:  cfg,
	}, nil
}

// WithContext adds the telemetry instance to the context.
func (t *Telemetry) WithContext(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, telemetryContextKey{}, t)
	ctx = t.Logger.WithContext(ctx)
	return ctx
}

// FromTelemetryContext retrieves the telemetry instance from the context.
// If no telemetry is found, it returns nil.
func FromTelemetryContext(ctx context.Context) *Telemetry {
	if t, ok := ctx.Value(telemetryContextKey{}).(*Telemetry); ok {
		return t
	}
	return nil
}

// Shutdown gracefully shuts down all telemetry components.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	// Shutdown in reverse order of initialization
	if err := t.Events.Shutdown(ctx); err != nil {
		return err
	}

	if err := t.Tracer.Shutdown(ctx); err != nil {
		return err
	}

	// Metrics server is not explicitly shut down here as it may need to continue
	// serving metrics until the very end of the application lifecycle

	return nil
}

// Flush forces all pending telemetry data to be exported.
func (t *Telemetry) Flush(ctx context.Context) error {
	return t.Tracer.ForceFlush(ctx)
}

// StartMetricsServer starts the metrics HTTP server if metrics are enabled.
func (t *Telemetry) StartMetricsServer() error {
	return t.Metrics.StartMetricsServer()
}

// Context Helpers for common instrumentation patterns

// InstrumentedContext creates a context with telemetry, logger fields, and a trace span.
type InstrumentedContext struct {
	Ctx    context.Context
	Span   trace.Span
	Logger *Logger
	Timer  *Timer
}

// StartOperation begins an instrumented operation with logging, tracing, and timing.
func StartOperation(ctx context.Context, operation string, attrs ...attribute.KeyValue) *InstrumentedContext {
	tel := FromTelemetryContext(ctx)
	if tel == nil {
		return &InstrumentedContext{
			Ctx:    ctx,
			Logger: FromContext(ctx),
			Timer:  NewTimer(),
		}
	}

	// Start trace span
	spanCtx, span := tel.Tracer.StartSpan(ctx, operation, attrs...)

	// Create logger with operation field
	logger := tel.Logger.WithField("operation", operation)

	// Add trace context to logger if available
	if span.SpanContext().IsValid() {
		logger = logger.WithFields(map[string]interface{}{
			"trace_id": span.SpanContext().TraceID().String(),
			"span_id":  span.SpanContext().SpanID().String(),
		})
	}

	return &InstrumentedContext{
		Ctx:    spanCtx,
		Span:   span,
		Logger: logger,
		Timer:  NewTimer(),
	}
}

// End finishes the instrumented operation, recording success or failure.
func (ic *InstrumentedContext) End(err error) {
	if ic.Span != nil {
		if err != nil {
			RecordError(ic.Span, err)
		} else {
			RecordSuccess(ic.Span)
		}
		ic.Span.End()
	}
}

// WithEvaluationContext creates a context enriched with evaluation-specific telemetry.
func WithEvaluationContext(ctx context.Context, reportID, policyFile, dialect string) context.Context {
	tel := FromTelemetryContext(ctx)
	if tel == nil {
		return ctx
	}

	// Start evaluation span
	spanCtx, span := tel.Tracer.StartEvaluationSpan(ctx, reportID, dialect)

	// Create evaluation-specific logger
	logger := tel.Logger.WithReportID(reportID).WithDialect(dialect)
	spanCtx = logger.WithContext(spanCtx)

	// Record evaluation started metric
	tel.Metrics.RecordEvaluationStarted()

	// Publish evaluation started event
	_ = tel.Events.PublishEvaluationStarted(reportID, policyFile, dialect)

	// Store the span and timer in context for later retrieval
	spanCtx = context.WithValue(spanCtx, evaluationSpanKey{}, span)
	spanCtx = context.WithValue(spanCtx, evaluationTimerKey{}, NewTimer())

	return spanCtx
}

// evaluationSpanKey is the context key for evaluation spans.
type evaluationSpanKey struct{}

// evaluationTimerKey is the context key for evaluation timers.
type evaluationTimerKey struct{}

// EndEvaluationContext completes the evaluation context, recording metrics and events.
func EndEvaluationContext(ctx context.Context, reportID string, pass bool, err error) {
	tel := FromTelemetryContext(ctx)
	if tel == nil {
		return
	}

	// Get the evaluation span from context
	if span, ok := ctx.Value(evaluationSpanKey{}).(trace.Span); ok {
		if err != nil {
			RecordError(span, err)
		} else {
			RecordSuccess(span)
		}
		span.End()
	}

	// Get the timer from context
	var duration time.Duration
	if timer, ok := ctx.Value(evaluationTimerKey{}).(*Timer); ok {
		duration = timer.Duration()
	}

	result := "pass"
	if !pass || err != nil {
		result = "fail"
	}

	// Record metrics
	tel.Metrics.RecordEvaluationCompleted(result, duration)

	// Publish events
	if err != nil {
		_ = tel.Events.PublishEvaluationFailed(reportID, err.Error())
	} else {
		_ = tel.Events.PublishEvaluationCompleted(reportID, pass, duration)
	}
}

// RecordParseOperation records a document parse with metrics and tracing.
func RecordParseOperation(ctx context.Context, document, dialect string, fn func() (int, error)) error {
	tel := FromTelemetryContext(ctx)

	// Start span
	var span trace.Span
	if tel != nil {
		ctx, span = tel.Tracer.StartParseSpan(ctx, document, dialect)
		defer span.End()
	}

	// Start timer
	timer := NewTimer()

	// Execute parse
	resources, err := fn()

	// Record metrics
	if tel != nil {
		duration := timer.Duration()
		if err != nil {
			tel.Metrics.RecordParseError(dialect)
			RecordError(span, err)
		} else {
			tel.Metrics.RecordDocumentParsed(dialect, resources, duration)
			RecordSuccess(span)
		}
	}

	return err
}
