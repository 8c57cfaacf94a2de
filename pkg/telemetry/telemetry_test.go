package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default is valid", func(c *Config) {}, false},
		{"production is valid", func(c *Config) { *c = *ProductionConfig() }, false},
		{"development is valid", func(c *Config) { *c = *DevelopmentConfig() }, false},
		{"missing service name", func(c *Config) { c.ServiceName = "" }, true},
		{"missing service version", func(c *Config) { c.ServiceVersion = "" }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, true},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, true},
		{"bad exporter", func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.Exporter = "jaeger"
		}, true},
		{"sampling rate too high", func(c *Config) { c.Tracing.SamplingRate = 1.5 }, true},
		{"metrics without address", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.ListenAddress = ""
		}, true},
		{"events without buffer", func(c *Config) { c.Events.BufferSize = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMetricsDisabledIsNoop(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}

	// Every recording method must be safe on a disabled instance.
	m.RecordDocumentParsed("terraform-hcl", 3, time.Millisecond)
	m.RecordParseError("rego")
	m.RecordEvaluationStarted()
	m.RecordEvaluationCompleted("pass", time.Millisecond)
	m.RecordVerdict("fail")
	m.RecordDivergences(2)
	m.RecordAmbiguousMatch()
	m.SetRulesLoaded(6)
	m.RecordRuleReload("success")
	m.RecordError("syntax")
}

func TestMetricsEnabled(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{
		Enabled:       true,
		ListenAddress: ":0",
		Path:          "/metrics",
		Namespace:     "polcheck",
	})
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}

	m.RecordDocumentParsed("kubernetes-yaml", 2, time.Millisecond)
	m.RecordEvaluationStarted()
	m.RecordEvaluationCompleted("fail", 10*time.Millisecond)
	m.RecordVerdict("pass")
	m.RecordVerdict("fail")

	if m.Handler() == nil {
		t.Error("Expected a metrics handler")
	}
}

func TestEventPublisherSynchronous(t *testing.T) {
	ep, err := NewEventPublisher(EventsConfig{
		Enabled:     true,
		BufferSize:  10,
		EnableAsync: false,
	})
	if err != nil {
		t.Fatalf("NewEventPublisher failed: %v", err)
	}

	var mu sync.Mutex
	var received []Event
	done := make(chan struct{}, 2)

	ep.Subscribe(func(event Event) {
		mu.Lock()
		received = append(received, event)
		mu.Unlock()
		done <- struct{}{}
	}, FilterByType(EventTypeVerdictFailed))

	if err := ep.PublishVerdictFailed("r1", "bucket-encryption", "bucket/logs", "1 of 1 required condition(s) not satisfied"); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	// Filtered out by the subscriber's type filter.
	if err := ep.PublishRulesReloaded(6, "./rules"); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for event delivery")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("Expected 1 delivered event, got %d", len(received))
	}
	e := received[0]
	if e.Type != EventTypeVerdictFailed || e.RuleID != "bucket-encryption" || e.ReportID != "r1" {
		t.Errorf("Unexpected event: %+v", e)
	}
	if e.ID == "" || e.Timestamp.IsZero() {
		t.Error("Expected event ID and timestamp to be set")
	}
}

func TestEventPublisherDisabled(t *testing.T) {
	ep, err := NewEventPublisher(EventsConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewEventPublisher failed: %v", err)
	}
	if err := ep.Publish(Event{Type: EventTypeError}); err != nil {
		t.Errorf("Disabled publisher must accept events silently, got %v", err)
	}
	if err := ep.Shutdown(context.Background()); err != nil {
		t.Errorf("Disabled publisher shutdown failed: %v", err)
	}
}

func TestFilterByLevel(t *testing.T) {
	filter := FilterByLevel(EventLevelWarning)

	if filter(Event{Level: EventLevelInfo}) {
		t.Error("Info events must be filtered below warning")
	}
	if !filter(Event{Level: EventLevelWarning}) {
		t.Error("Warning events must pass")
	}
	if !filter(Event{Level: EventLevelError}) {
		t.Error("Error events must pass")
	}
}

func TestLoggerComponent(t *testing.T) {
	logger, err := NewLogger(LoggingConfig{
		Level:  "debug",
		Format: "json",
		Output: "stderr",
	})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	child := logger.NewComponentLogger("evaluator").WithRuleID("bucket-encryption")
	if child == nil {
		t.Fatal("Expected a child logger")
	}

	ctx := child.WithContext(context.Background())
	if got := FromContext(ctx); got != child {
		t.Error("Expected logger round-trip through context")
	}
}

func TestTelemetryAggregate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tracing.Enabled = false
	cfg.Metrics.Enabled = false
	cfg.Logging.Output = "stderr"

	tel, err := NewTelemetry(cfg)
	if err != nil {
		t.Fatalf("NewTelemetry failed: %v", err)
	}

	ctx := tel.WithContext(context.Background())
	if FromTelemetryContext(ctx) != tel {
		t.Error("Expected telemetry round-trip through context")
	}

	// Instrumented operation on a no-op tracer still works.
	ic := StartOperation(ctx, "parse.document")
	ic.End(nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := tel.Shutdown(shutdownCtx); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}
