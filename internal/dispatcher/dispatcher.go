package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrClosed is returned when submitting to a closed dispatcher.
	ErrClosed = errors.New("dispatcher closed")
	// ErrQueueFull is returned by Go when a non-blocking queue is full.
	ErrQueueFull = errors.New("queue full")
)

// DefaultBufferSize is the queue size used without the Buffered option.
const DefaultBufferSize = 64

// Task is a unit of work run on the dispatcher goroutine.
type Task func(ctx context.Context) error

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures a Dispatcher.
type Option func(*config)

type config struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered sets the queue size.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Blocking makes Go block when the queue is full instead of dropping.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Logged adds debug logging around every task.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

type job struct {
	name string
	ctx  context.Context
	task Task
	done chan error // nil for fire-and-forget
}

// Dispatcher runs submitted tasks one at a time, in submission order.
type Dispatcher struct {
	name   string
	logger Logger
	cfg    config

	queue    chan job
	finished chan struct{}

	mu     sync.RWMutex
	closed bool

	// OTEL metrics
	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	failed    metric.Int64Counter
	dropped   metric.Int64Counter
	attrs     metric.MeasurementOption
}

// New creates a Dispatcher and starts its worker goroutine.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(name string, logger Logger, opts ...Option) (*Dispatcher, error) {
	cfg := config{bufferSize: DefaultBufferSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.bufferSize <= 0 {
		cfg.bufferSize = DefaultBufferSize
	}

	d := &Dispatcher{
		name:     name,
		logger:   logger,
		cfg:      cfg,
		queue:    make(chan job, cfg.bufferSize),
		finished: make(chan struct{}),
		attrs:    metric.WithAttributes(attribute.String("queue", name)),
	}

	m := meter()

	var err error

	d.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Current number of tasks waiting in queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(d.queueSize, int64(len(d.queue)), d.attrs)
			return nil
		},
		d.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"dispatcher.tasks.processed",
		metric.WithDescription("Total tasks run"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.failed, err = m.Int64Counter(
		"dispatcher.tasks.failed",
		metric.WithDescription("Total tasks that returned an error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"dispatcher.tasks.dropped",
		metric.WithDescription("Total tasks dropped due to full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	go d.run()

	return d, nil
}

// Go queues a task without waiting for it. Errors from the task are logged.
func (d *Dispatcher) Go(name string, t Task) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}

	j := job{name: name, ctx: context.Background(), task: t}
	if d.cfg.blocking {
		d.queue <- j
		return nil
	}

	select {
	case d.queue <- j:
		return nil
	default:
		d.dropped.Add(context.Background(), 1, d.attrs)
		return fmt.Errorf("%w: %s", ErrQueueFull, d.name)
	}
}

// Enqueue queues a task without waiting for it to run. Unlike Go it never
// drops: while the queue is full it blocks, whatever the Blocking option.
func (d *Dispatcher) Enqueue(name string, t Task) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	d.queue <- job{name: name, ctx: context.Background(), task: t}
	return nil
}

// Do queues a task behind everything already submitted and waits for it.
// If ctx ends first Do returns ctx.Err(); the task still runs, with ctx.
func (d *Dispatcher) Do(ctx context.Context, name string, t Task) error {
	j := job{name: name, ctx: ctx, task: t, done: make(chan error, 1)}

	if err := d.enqueue(ctx, j); err != nil {
		return err
	}

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) enqueue(ctx context.Context, j job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.queue <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len returns the number of tasks waiting to run.
func (d *Dispatcher) Len() int {
	return len(d.queue)
}

// Close stops accepting tasks, runs what is already queued and waits for it.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.finished
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	<-d.finished
}

func (d *Dispatcher) run() {
	defer close(d.finished)
	for j := range d.queue {
		err := d.execute(j)
		if j.done != nil {
			j.done <- err
		} else if err != nil && d.logger != nil {
			d.logger.Error("task failed", "queue", d.name, "task", j.name, "error", err)
		}
	}
}

func (d *Dispatcher) execute(j job) (err error) {
	start := time.Now()
	if d.cfg.logged && d.logger != nil {
		d.logger.Debug("running task", "queue", d.name, "task", j.name)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", j.name, r)
		}

		taskAttr := metric.WithAttributes(attribute.String("queue", d.name), attribute.String("task", j.name))
		d.processed.Add(context.Background(), 1, taskAttr)
		if err != nil {
			d.failed.Add(context.Background(), 1, taskAttr)
		}

		if d.cfg.logged && d.logger != nil && err == nil {
			d.logger.Debug("task complete", "queue", d.name, "task", j.name, "duration", time.Since(start))
		}
	}()

	return j.task(j.ctx)
}
