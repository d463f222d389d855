// Package audit records every access to protected health information and
// classifies each access against the HIPAA violation rules at write time.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	audit "pedcare/pkg/platform/audit"
	"pedcare/pkg/platform/audit/metrics"
	"pedcare/pkg/platform/audit/store/memory"
	"pedcare/pkg/platform/audit/tracker"
	"pedcare/pkg/platform/audit/window"
)

// Publisher receives every recorded event after it is committed to the log.
// Implementations must not block; the engine calls Publish outside its lock.
type Publisher interface {
	Publish(event audit.Event)
}

// Engine is the single process-wide audit log. Recording is serialized: id
// allocation, classification, append and tracker update happen under one
// lock so window counts always reflect exactly the events before the one
// being classified. Queries only take the log's read lock.
type Engine struct {
	mu      sync.Mutex
	seq     uint64
	log     *memory.Log
	window  window.Counter
	tracker *tracker.Tracker
	rules   *classifier

	policy  Policy
	indexed bool
	now     func() time.Time
	loc     *time.Location

	logger    *slog.Logger
	metrics   *metrics.Metrics
	publisher Publisher
	tracer    trace.Tracer
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithPublisher forwards recorded events to external sinks.
func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithClock replaces time.Now as the source of event timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the zone used for timestamps, business hours and the
// "today" boundary. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

func WithPolicy(p Policy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithIndexedWindows answers window queries from per-user sliding windows
// instead of rescanning the log. Results are identical as long as event
// timestamps do not go backwards.
func WithIndexedWindows() Option {
	return func(e *Engine) { e.indexed = true }
}

func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

func New(opts ...Option) *Engine {
	e := &Engine{
		log:     memory.NewLog(),
		tracker: tracker.New(),
		policy:  DefaultPolicy(),
		now:     time.Now,
		loc:     time.Local,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer("pedcare/internal/audit")
	}
	if e.indexed {
		e.window = window.NewIndex(e.policy.retention())
	} else {
		e.window = window.NewLogScan(e.log)
	}
	e.rules = newClassifier(e.policy, e.window, e.loc)
	return e
}

// LogEvent records an access and returns the event as stored, including any
// violation verdict. It never fails: recording is unconditional and sink
// failures are handled by the publisher.
func (e *Engine) LogEvent(ctx context.Context, entry audit.Entry) audit.Event {
	ctx, span := e.tracer.Start(ctx, "audit.LogEvent",
		trace.WithAttributes(attribute.String("audit.event_type", entry.Type.String())))
	defer span.End()
	start := time.Now()

	e.mu.Lock()
	e.seq++
	event := audit.Event{
		ID:           fmt.Sprintf("AUD-%06d", e.seq),
		Timestamp:    e.now().In(e.loc),
		Type:         entry.Type,
		UserID:       entry.UserID,
		UserEmail:    entry.UserEmail,
		UserRole:     entry.UserRole,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		PatientID:    entry.PatientID,
		IPAddress:    entry.IPAddress,
		Details:      entry.Details.Clone(),
	}
	matched := e.rules.classify(&event)
	e.log.Append(event)
	e.window.Observe(event)
	e.tracker.Record(event.UserID, event.PatientID, event.Timestamp)
	size := e.log.Len()
	e.mu.Unlock()

	span.SetAttributes(
		attribute.String("audit.event_id", event.ID),
		attribute.Bool("audit.violation", event.IsViolation),
	)
	for _, name := range matched {
		e.metrics.IncRuleMatch(name)
	}
	e.metrics.ObserveRecorded(event.Type.String(), event.Severity.String(), time.Since(start), size)

	if event.IsViolation {
		e.logger.WarnContext(ctx, "PHI violation detected",
			"event", event.Type.String(),
			"event_id", event.ID,
			"severity", event.Severity.String(),
			"reason", event.Reason,
			"user_email", event.UserEmail,
			"patient_id", event.PatientID,
			"rules", matched,
			"log_type", "audit",
		)
	} else {
		e.logger.InfoContext(ctx, "audit event recorded",
			"event", event.Type.String(),
			"event_id", event.ID,
			"user_email", event.UserEmail,
			"resource_type", event.ResourceType,
			"resource_id", event.ResourceID,
			"log_type", "audit",
		)
	}

	if e.publisher != nil {
		e.publisher.Publish(event.Clone())
	}
	return event
}

// Location is the zone the engine stamps events in.
func (e *Engine) Location() *time.Location { return e.loc }
