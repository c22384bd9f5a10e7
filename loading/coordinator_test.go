package loading

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestCoordinator(t *testing.T, opts ...Option) (*Coordinator, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)))
	t.Cleanup(func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Logf("shutdown tracer provider: %v", err)
		}
	})
	logger, _ := test.NewNullLogger()
	opts = append([]Option{WithTracer(tp.Tracer(tracerName))}, opts...)
	return New(logger, opts...), exporter
}

func TestRangeSampleStaysInBounds(t *testing.T) {
	r := Millis(5, 9)
	for i := 0; i < 200; i++ {
		d := r.Sample()
		if d < 5*time.Millisecond || d > 9*time.Millisecond || d%time.Millisecond != 0 {
			t.Fatalf("sample %v outside [5ms, 9ms] or not whole ms", d)
		}
	}
	if d := Millis(7, 7).Sample(); d != 7*time.Millisecond {
		t.Fatalf("expected fixed 7ms, got %v", d)
	}
}

func TestWithLoadingTogglesBusyOnce(t *testing.T) {
	c, _ := newTestCoordinator(t)
	edges, stop := c.Subscribe()
	defer stop()

	if c.Busy() {
		t.Fatal("expected idle coordinator")
	}
	start := time.Now()
	var sawBusy bool
	err := c.WithLoading(context.Background(), "op", Millis(40, 40), func(context.Context) error {
		sawBusy = c.Busy()
		return nil
	})
	held := time.Since(start)
	if err != nil {
		t.Fatalf("with loading: %v", err)
	}
	if !sawBusy {
		t.Fatal("expected busy while operation runs")
	}
	if held < 40*time.Millisecond {
		t.Fatalf("busy held for %v, want at least 40ms", held)
	}
	if c.Busy() {
		t.Fatal("expected idle after completion")
	}

	var got []bool
	for len(edges) > 0 {
		got = append(got, <-edges)
	}
	if len(got) != 2 || !got[0] || got[1] {
		t.Fatalf("expected edges [true false], got %v", got)
	}
}

func TestWithLoadingWaitsForSlowOperation(t *testing.T) {
	c, _ := newTestCoordinator(t)
	start := time.Now()
	err := c.WithLoading(context.Background(), "slow", Millis(1, 1), func(context.Context) error {
		time.Sleep(30 * time.Millisecond)
		return nil
	})
	if err != nil {
		t.Fatalf("with loading: %v", err)
	}
	if time.Since(start) < 30*time.Millisecond {
		t.Fatal("returned before operation finished")
	}
}

func TestOverlappingCallsKeepBusy(t *testing.T) {
	c, _ := newTestCoordinator(t)
	edges, stop := c.Subscribe()
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = c.WithLoading(context.Background(), "long", Millis(80, 80), func(context.Context) error { return nil })
	}()
	time.Sleep(10 * time.Millisecond)
	if err := c.WithLoading(context.Background(), "short", Millis(10, 10), func(context.Context) error { return nil }); err != nil {
		t.Fatalf("short: %v", err)
	}
	if !c.Busy() {
		t.Fatal("short call cleared busy while long call still in flight")
	}
	wg.Wait()
	if c.Busy() {
		t.Fatal("expected idle after both calls")
	}
	if n := len(edges); n != 2 {
		t.Fatalf("expected 2 busy edges, got %d", n)
	}
}

func TestWithLoadingPropagatesErrorAndRecordsSpan(t *testing.T) {
	c, exporter := newTestCoordinator(t)
	boom := errors.New("boom")
	err := c.WithLoading(context.Background(), "create", Millis(2, 2), func(context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if c.Busy() {
		t.Fatal("busy not released after failure")
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name != "loading.create" {
		t.Fatalf("unexpected span name %q", span.Name)
	}
	if span.Status.Code != codes.Error {
		t.Fatalf("expected error status, got %v", span.Status.Code)
	}
	var delay attribute.Value
	for _, kv := range span.Attributes {
		if kv.Key == "delay_ms" {
			delay = kv.Value
		}
	}
	if delay.AsInt64() != 2 {
		t.Fatalf("expected delay_ms=2, got %v", delay.AsInterface())
	}
}

func TestWithLoadingRecoversPanic(t *testing.T) {
	c, _ := newTestCoordinator(t)
	err := c.WithLoading(context.Background(), "panics", Millis(1, 1), func(context.Context) error {
		panic("kaboom")
	})
	if err == nil {
		t.Fatal("expected error from panicking operation")
	}
	if c.Busy() {
		t.Fatal("busy not released after panic")
	}
}

func TestDoReturnsValueAndUsesSampler(t *testing.T) {
	var sampled Range
	c, _ := newTestCoordinator(t, WithSampler(func(r Range) time.Duration {
		sampled = r
		return 0
	}))
	v, err := Do(context.Background(), c, "answer", Millis(800, 1200), func(context.Context) (int, error) { return 42, nil })
	if err != nil || v != 42 {
		t.Fatalf("unexpected result %d/%v", v, err)
	}
	if sampled != Millis(800, 1200) {
		t.Fatalf("sampler saw %+v", sampled)
	}
}
