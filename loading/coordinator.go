// Package loading wraps operations in simulated network latency and tracks
// whether any wrapped operation is still in flight.
package loading

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"task-board/broker"
)

const tracerName = "task-board/loading"

// Range bounds a simulated delay.
type Range struct {
	Min time.Duration
	Max time.Duration
}

// Millis builds a Range from millisecond bounds.
func Millis(min, max int) Range {
	return Range{Min: time.Duration(min) * time.Millisecond, Max: time.Duration(max) * time.Millisecond}
}

// Sample picks a delay uniformly over whole milliseconds in [Min, Max].
func (r Range) Sample() time.Duration {
	lo, hi := r.Min.Milliseconds(), r.Max.Milliseconds()
	if hi <= lo {
		return time.Duration(lo) * time.Millisecond
	}
	return time.Duration(lo+rand.Int63n(hi-lo+1)) * time.Millisecond
}

// Coordinator runs operations alongside an artificial delay and exposes a
// single busy signal. Busy is a count of in-flight calls, so overlapping
// operations cannot clear each other's loading state.
type Coordinator struct {
	logger *log.Logger
	tracer trace.Tracer
	sample func(Range) time.Duration

	mu       sync.Mutex
	inFlight int
	edges    *broker.Broker[bool]
}

// Option customises a Coordinator.
type Option func(*Coordinator)

// WithSampler replaces the delay sampler.
func WithSampler(fn func(Range) time.Duration) Option {
	return func(c *Coordinator) { c.sample = fn }
}

// WithTracer replaces the tracer taken from the global provider.
func WithTracer(tr trace.Tracer) Option {
	return func(c *Coordinator) { c.tracer = tr }
}

// New creates a Coordinator.
func New(logger *log.Logger, opts ...Option) *Coordinator {
	if logger == nil {
		panic("loading.New: logger is nil")
	}
	c := &Coordinator{
		logger: logger,
		tracer: otel.Tracer(tracerName),
		sample: Range.Sample,
		edges:  broker.New[bool](16),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Busy reports whether at least one wrapped operation is in flight.
func (c *Coordinator) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight > 0
}

// Subscribe returns a channel receiving every busy edge (true when the first
// operation starts, false when the last one ends) and a func that stops
// delivery.
func (c *Coordinator) Subscribe() (<-chan bool, func()) {
	return c.edges.Subscribe()
}

// WithLoading marks the coordinator busy, runs op concurrently with a delay
// sampled from r, waits for both and returns op's error. The delay runs to
// completion even if op finishes early or ctx is cancelled.
func (c *Coordinator) WithLoading(ctx context.Context, name string, r Range, op func(context.Context) error) error {
	ctx, span := c.tracer.Start(ctx, "loading."+name)
	defer span.End()

	delay := c.sample(r)
	span.SetAttributes(attribute.Int64("delay_ms", delay.Milliseconds()))

	start := time.Now()
	c.acquire()
	defer c.release()

	elapsed := time.After(delay)
	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				errCh <- fmt.Errorf("loading %s: panic: %v", name, rec)
			}
		}()
		errCh <- op(ctx)
	}()
	err := <-errCh
	<-elapsed

	fields := log.Fields{
		"op":         name,
		"delay_ms":   delay.Milliseconds(),
		"elapsed_ms": durationToMillis(time.Since(start)),
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.WithFields(fields).WithError(err).Warn("loading.failed")
		return err
	}
	c.logger.WithFields(fields).Debug("loading.completed")
	return nil
}

// Do is WithLoading for operations that produce a value.
func Do[T any](ctx context.Context, c *Coordinator, name string, r Range, op func(context.Context) (T, error)) (T, error) {
	var out T
	err := c.WithLoading(ctx, name, r, func(ctx context.Context) error {
		v, err := op(ctx)
		out = v
		return err
	})
	return out, err
}

func (c *Coordinator) acquire() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight++
	if c.inFlight == 1 {
		c.notify(true)
	}
}

func (c *Coordinator) release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight--
	if c.inFlight == 0 {
		c.notify(false)
	}
}

// notify must be called with mu held so edges go out in order.
func (c *Coordinator) notify(busy bool) {
	if dropped := c.edges.Publish(busy); dropped > 0 {
		c.logger.WithFields(log.Fields{"busy": busy, "dropped": dropped}).Warn("busy subscriber lagging, edge dropped")
	}
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
