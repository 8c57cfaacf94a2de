package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event represents a telemetry event in the polcheck system.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// Source identifies where the event originated.
	Source string `json:"source"`

	// ReportID is the associated report ID, if applicable.
	ReportID string `json:"report_id,omitempty"`

	// RuleID is the associated rule ID, if applicable.
	RuleID string `json:"rule_id,omitempty"`

	// Resource is the associated resource reference, if applicable.
	Resource string `json:"resource,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventType constants for common event types.
const (
	EventTypeEvaluationStarted   = "evaluation.started"
	EventTypeEvaluationCompleted = "evaluation.completed"
	EventTypeEvaluationFailed    = "evaluation.failed"
	EventTypeDocumentParsed      = "document.parsed"
	EventTypeVerdictFailed       = "verdict.failed"
	EventTypeDivergenceDetected  = "divergence.detected"
	EventTypeRulesReloaded       = "rules.reloaded"
	EventTypeError               = "error"
)

// EventLevel constants for event severity.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber is a function that handles events.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be processed.
type EventFilter func(event Event) bool

// EventPublisher manages event publishing and subscriptions.
type EventPublisher struct {
	config      EventsConfig
	buffer      chan Event
	subscribers []subscriberEntry
	filters     []EventFilter
	wg          sync.WaitGroup
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventPublisher creates a new event publisher with the given configuration.
func NewEventPublisher(cfg EventsConfig) (*EventPublisher, error) {
	if !cfg.Enabled {
		return &EventPublisher{config: cfg}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	ep := &EventPublisher{
		config:      cfg,
		buffer:      make(chan Event, cfg.BufferSize),
		subscribers: make([]subscriberEntry, 0),
		filters:     make([]EventFilter, 0),
		ctx:         ctx,
		cancel:      cancel,
	}

	// Start the event processing goroutine
	if cfg.EnableAsync {
		ep.wg.Add(1)
		go ep.processEvents()
	}

	// Start the periodic flush goroutine
	if cfg.FlushInterval > 0 {
		ep.wg.Add(1)
		go ep.periodicFlush()
	}

	return ep, nil
}

// Publish publishes an event to all subscribers.
func (ep *EventPublisher) Publish(event Event) error {
	if !ep.config.Enabled {
		return nil
	}

	// Set ID and timestamp if not already set
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// Apply global filters
	ep.mu.RLock()
	for _, filter := range ep.filters {
		if !filter(event) {
			ep.mu.RUnlock()
			return nil // Event filtered out
		}
	}
	ep.mu.RUnlock()

	// Send to buffer if async, otherwise process immediately
	if ep.config.EnableAsync {
		select {
		case ep.buffer <- event:
			return nil
		case <-ep.ctx.Done():
			return fmt.Errorf("event publisher stopped")
		default:
			// Buffer full, drop event or log warning
			return fmt.Errorf("event buffer full, event dropped")
		}
	}

	// Synchronous publishing
	ep.deliverEvent(event)
	return nil
}

// PublishEvaluationStarted publishes an evaluation started event.
func (ep *EventPublisher) PublishEvaluationStarted(reportID, policyFile, dialect string) error {
	return ep.Publish(Event{
		Type:     EventTypeEvaluationStarted,
		Source:   "evaluator",
		ReportID: reportID,
		Message:  fmt.Sprintf("Evaluation %s started for %s (%s)", reportID, policyFile, dialect),
		Level:    EventLevelInfo,
		Data: map[string]interface{}{
			"policy_file": policyFile,
			"dialect":     dialect,
		},
	})
}

// PublishEvaluationCompleted publishes an evaluation completed event.
func (ep *EventPublisher) PublishEvaluationCompleted(reportID string, pass bool, duration time.Duration) error {
	result := "pass"
	if !pass {
		result = "fail"
	}
	return ep.Publish(Event{
		Type:     EventTypeEvaluationCompleted,
		Source:   "evaluator",
		ReportID: reportID,
		Message:  fmt.Sprintf("Evaluation %s completed: %s", reportID, result),
		Level:    EventLevelInfo,
		Data: map[string]interface{}{
			"pass":     pass,
			"duration": duration.Seconds(),
		},
	})
}

// PublishEvaluationFailed publishes an evaluation failed event.
func (ep *EventPublisher) PublishEvaluationFailed(reportID, reason string) error {
	return ep.Publish(Event{
		Type:     EventTypeEvaluationFailed,
		Source:   "evaluator",
		ReportID: reportID,
		Message:  fmt.Sprintf("Evaluation %s failed: %s", reportID, reason),
		Level:    EventLevelError,
		Data: map[string]interface{}{
			"reason": reason,
		},
	})
}

// PublishDocumentParsed publishes a document parsed event.
func (ep *EventPublisher) PublishDocumentParsed(reportID, document, dialect string, resources int) error {
	return ep.Publish(Event{
		Type:     EventTypeDocumentParsed,
		Source:   "parser",
		ReportID: reportID,
		Message:  fmt.Sprintf("Parsed %s (%s): %d resources", document, dialect, resources),
		Level:    EventLevelInfo,
		Data: map[string]interface{}{
			"document":  document,
			"dialect":   dialect,
			"resources": resources,
		},
	})
}

// PublishVerdictFailed publishes a failing verdict event.
func (ep *EventPublisher) PublishVerdictFailed(reportID, ruleID, resource, observation string) error {
	return ep.Publish(Event{
		Type:     EventTypeVerdictFailed,
		Source:   "evaluator",
		ReportID: reportID,
		RuleID:   ruleID,
		Resource: resource,
		Message:  fmt.Sprintf("Rule %s failed on %s: %s", ruleID, resource, observation),
		Level:    EventLevelWarning,
		Data: map[string]interface{}{
			"observation": observation,
		},
	})
}

// PublishDivergenceDetected publishes a divergence detected event.
func (ep *EventPublisher) PublishDivergenceDetected(reportID, ruleID, resource, candidate, reference string) error {
	return ep.Publish(Event{
		Type:     EventTypeDivergenceDetected,
		Source:   "comparator",
		ReportID: reportID,
		RuleID:   ruleID,
		Resource: resource,
		Message:  fmt.Sprintf("Divergence on %s for rule %s: candidate %s, reference %s", resource, ruleID, candidate, reference),
		Level:    EventLevelWarning,
		Data: map[string]interface{}{
			"candidate": candidate,
			"reference": reference,
		},
	})
}

// PublishRulesReloaded publishes a rules reloaded event.
func (ep *EventPublisher) PublishRulesReloaded(count int, source string) error {
	return ep.Publish(Event{
		Type:    EventTypeRulesReloaded,
		Source:  "registry",
		Message: fmt.Sprintf("Rules reloaded from %s: %d rules", source, count),
		Level:   EventLevelInfo,
		Data: map[string]interface{}{
			"count":  count,
			"source": source,
		},
	})
}

// Subscribe adds a new event subscriber.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.subscribers = append(ep.subscribers, subscriberEntry{
		subscriber: subscriber,
		filter:     filter,
	})
}

// AddFilter adds a global event filter.
func (ep *EventPublisher) AddFilter(filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.filters = append(ep.filters, filter)
}

// processEvents processes events from the buffer asynchronously.
func (ep *EventPublisher) processEvents() {
	defer ep.wg.Done()

	batch := make([]Event, 0, ep.config.MaxBatchSize)

	for {
		select {
		case event := <-ep.buffer:
			batch = append(batch, event)

			// Flush batch if it reaches max size
			if len(batch) >= ep.config.MaxBatchSize {
				ep.flushBatch(batch)
				batch = make([]Event, 0, ep.config.MaxBatchSize)
			}

		case <-ep.ctx.Done():
			// Flush remaining events before shutting down
			if len(batch) > 0 {
				ep.flushBatch(batch)
			}
			return
		}
	}
}

// periodicFlush flushes events periodically.
func (ep *EventPublisher) periodicFlush() {
	defer ep.wg.Done()

	ticker := time.NewTicker(ep.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Trigger flush by draining buffer
			// This is handled by the processEvents goroutine
		case <-ep.ctx.Done():
			return
		}
	}
}

// flushBatch delivers a batch of events to subscribers.
func (ep *EventPublisher) flushBatch(events []Event) {
	for _, event := range events {
		ep.deliverEvent(event)
	}
}

// deliverEvent delivers an event to all subscribers.
func (ep *EventPublisher) deliverEvent(event Event) {
	ep.mu.RLock()
	defer ep.mu.RUnlock()

	for _, entry := range ep.subscribers {
		// Apply subscriber-specific filter
		if entry.filter != nil && !entry.filter(event) {
			continue
		}

		// Call subscriber in a goroutine to avoid blocking
		go entry.subscriber(event)
	}
}

// Shutdown gracefully shuts down the event publisher.
func (ep *EventPublisher) Shutdown(ctx context.Context) error {
	if !ep.config.Enabled {
		return nil
	}

	// Signal shutdown
	ep.cancel()

	// Wait for processing to complete with timeout
	done := make(chan struct{})
	go func() {
		ep.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event publisher shutdown timeout")
	}
}

// Common event filters.

// FilterByLevel creates a filter that only allows events of a specific level or higher.
func FilterByLevel(minLevel string) EventFilter {
	levels := map[string]int{
		EventLevelInfo:    0,
		EventLevelWarning: 1,
		EventLevelError:   2,
	}

	minLevelValue := levels[minLevel]

	return func(event Event) bool {
		return levels[event.Level] >= minLevelValue
	}
}

// FilterByType creates a filter that only allows events of specific types.
func FilterByType(types ...string) EventFilter {
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	return func(event Event) bool {
		return typeSet[event.Type]
	}
}

// FilterByReportID creates a filter that only allows events for a specific report.
func FilterByReportID(reportID string) EventFilter {
	return func(event Event) bool {
		return event.ReportID == reportID
	}
}

// FilterByRuleID creates a filter that only allows events for a specific rule.
func FilterByRuleID(ruleID string) EventFilter {
	return func(event Event) bool {
		return event.RuleID == ruleID
	}
}
