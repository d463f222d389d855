package sink

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	audit "pedcare/pkg/platform/audit"
	"pedcare/pkg/platform/circuit"
	"pedcare/pkg/platform/sentinel"
)

// Dispatcher buffers published events and delivers them in batches to every
// sink concurrently. Each sink sits behind its own circuit breaker so one
// slow or failing store cannot hold back the others. Publish never blocks;
// when the buffer is full the oldest event is dropped.
type Dispatcher struct {
	sinks  []*guarded
	buffer *RingBuffer

	batchSize     int
	flushInterval time.Duration
	writeTimeout  time.Duration

	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer

	notify    chan struct{}
	done      chan struct{}
	stopped   chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
	started   bool
	mu        sync.Mutex
}

type guarded struct {
	sink    Sink
	breaker *circuit.Breaker
}

type Config struct {
	BufferSize       int
	BatchSize        int
	FlushInterval    time.Duration
	WriteTimeout     time.Duration
	FailureThreshold int
	SuccessThreshold int
	Cooldown         time.Duration
}

func DefaultConfig() Config {
	return Config{
		BufferSize:       10000,
		BatchSize:        100,
		FlushInterval:    time.Second,
		WriteTimeout:     5 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Cooldown:         30 * time.Second,
	}
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(d *Dispatcher) { d.tracer = t }
}

func NewDispatcher(cfg Config, sinks []Sink, opts ...Option) *Dispatcher {
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}

	d := &Dispatcher{
		buffer:        NewRingBuffer(cfg.BufferSize),
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		writeTimeout:  cfg.WriteTimeout,
		logger:        slog.Default(),
		notify:        make(chan struct{}, 1),
		done:          make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, s := range sinks {
		d.sinks = append(d.sinks, &guarded{
			sink: s,
			breaker: circuit.New(s.Name(),
				circuit.WithFailureThreshold(cfg.FailureThreshold),
				circuit.WithSuccessThreshold(cfg.SuccessThreshold),
				circuit.WithCooldown(cfg.Cooldown),
			),
		})
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.tracer == nil {
		d.tracer = otel.Tracer("pedcare/pkg/platform/audit/sink")
	}
	return d
}

// Publish queues an event for delivery.
func (d *Dispatcher) Publish(event audit.Event) {
	if len(d.sinks) == 0 {
		return
	}
	if d.buffer.Enqueue(event) {
		d.metrics.dropped()
	}
	n := d.buffer.Len()
	d.metrics.buffered(n)
	if n >= d.batchSize {
		select {
		case d.notify <- struct{}{}:
		default:
		}
	}
}

// Start runs the delivery loop in the background. Cancelling ctx does not stop
// it; only Close does.
func (d *Dispatcher) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		d.mu.Lock()
		d.started = true
		d.mu.Unlock()
		go d.run(context.WithoutCancel(ctx))
	})
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.stopped)
	ticker := time.NewTicker(d.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.done:
			d.Flush(ctx)
			return
		case <-d.notify:
			d.Flush(ctx)
		case <-ticker.C:
			d.Flush(ctx)
		}
	}
}

// Flush delivers everything currently buffered.
func (d *Dispatcher) Flush(ctx context.Context) {
	for {
		batch := d.buffer.DequeueBatch(d.batchSize)
		d.metrics.buffered(d.buffer.Len())
		if len(batch) == 0 {
			return
		}
		d.deliver(ctx, batch)
	}
}

// Close stops the delivery loop after a final flush. It waits for the flush
// until ctx is done, then delivers anything published after the loop exited.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.closeOnce.Do(func() { close(d.done) })

	d.mu.Lock()
	started := d.started
	d.mu.Unlock()
	if !started {
		d.Flush(ctx)
		return nil
	}

	select {
	case <-d.stopped:
	case <-ctx.Done():
		return ctx.Err()
	}
	d.Flush(ctx)
	return nil
}

// deliver writes one batch to every sink. Sink errors are logged, never
// returned: losing a sink must not affect recording.
func (d *Dispatcher) deliver(ctx context.Context, batch []audit.Event) {
	var g errgroup.Group
	for _, gs := range d.sinks {
		g.Go(func() error {
			d.write(ctx, gs, batch)
			return nil
		})
	}
	_ = g.Wait()
}

func (d *Dispatcher) write(ctx context.Context, gs *guarded, batch []audit.Event) {
	name := gs.sink.Name()
	if !gs.breaker.Allow() {
		d.metrics.skipped(name, len(batch))
		d.logger.DebugContext(ctx, "audit sink circuit open, batch skipped",
			"sink", name,
			"events", len(batch),
			"error", sentinel.ErrUnavailable,
		)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, d.writeTimeout)
	defer cancel()
	ctx, span := d.tracer.Start(ctx, "audit.sink.Write", trace.WithAttributes(
		attribute.String("audit.sink", name),
		attribute.Int("audit.batch_size", len(batch)),
	))
	defer span.End()

	if err := gs.sink.Write(ctx, batch); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sink write failed")
		d.metrics.failed(name)
		_, change := gs.breaker.RecordFailure()
		d.logger.ErrorContext(ctx, "audit sink write failed",
			"sink", name,
			"events", len(batch),
			"error", err,
		)
		if change.Opened {
			d.metrics.breaker(name, true)
			d.logger.WarnContext(ctx, "audit sink circuit opened", "sink", name)
		}
		return
	}

	d.metrics.written(name, len(batch))
	if _, change := gs.breaker.RecordSuccess(); change.Closed {
		d.metrics.breaker(name, false)
		d.logger.InfoContext(ctx, "audit sink circuit closed", "sink", name)
	}
}
