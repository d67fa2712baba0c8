package blob

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	opTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "borecore",
		Subsystem: "blob",
		Name:      "operations_total",
		Help:      "Object store operations by op, driver and outcome.",
	}, []string{"op", "driver", "outcome"})

	opDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "borecore",
		Subsystem: "blob",
		Name:      "operation_duration_seconds",
		Help:      "Object store operation latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op", "driver"})
)

// Instrumented decorates a Store with prometheus counters and latency
// histograms. It changes no semantics.
type Instrumented struct {
	next Store
}

// NewInstrumented wraps next with metrics collection.
func NewInstrumented(next Store) *Instrumented { return &Instrumented{next: next} }

func (i *Instrumented) Driver() Driver { return i.next.Driver() }

func (i *Instrumented) observe(op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	driver := string(i.next.Driver())
	opTotal.WithLabelValues(op, driver, outcome).Inc()
	opDuration.WithLabelValues(op, driver).Observe(time.Since(start).Seconds())
}

func (i *Instrumented) List(ctx context.Context, prefix string, max int) ([]Info, error) {
	start := time.Now()
	out, err := i.next.List(ctx, prefix, max)
	i.observe("list", start, err)
	return out, err
}

func (i *Instrumented) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	out, err := i.next.Get(ctx, key)
	i.observe("get", start, err)
	return out, err
}

func (i *Instrumented) Put(ctx context.Context, key string, body []byte, contentType string) error {
	start := time.Now()
	err := i.next.Put(ctx, key, body, contentType)
	i.observe("put", start, err)
	return err
}

func (i *Instrumented) Exists(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	ok, err := i.next.Exists(ctx, key)
	i.observe("exists", start, err)
	return ok, err
}

func (i *Instrumented) Delete(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	ok, err := i.next.Delete(ctx, key)
	i.observe("delete", start, err)
	return ok, err
}
