package store

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var OpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "idxtable",
	Subsystem: "store",
	Name:      "op_duration_seconds",
	Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
}, []string{"backend", "op", "result"})

var OpBytes = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "idxtable",
	Subsystem: "store",
	Name:      "bytes",
}, []string{"backend", "op"})

// Collectors returns the metrics of this package for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{OpDuration, OpBytes}
}

type instrumented struct {
	inner Backend
	name  string
}

// Instrument records call durations and transferred bytes of b under the
// given backend label.
func Instrument(b Backend, name string) Backend {
	return &instrumented{inner: b, name: name}
}

func (b *instrumented) Unwrap() Backend { return b.inner }

func (b *instrumented) observe(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	OpDuration.WithLabelValues(b.name, op, result).Observe(time.Since(start).Seconds())
}

func (b *instrumented) Get(ctx context.Context, key Key) (rec *Record, err error) {
	start := time.Now()
	defer func() { b.observe("get", start, err) }()
	rec, err = b.inner.Get(ctx, key)
	if rec != nil {
		OpBytes.WithLabelValues(b.name, "get").Add(float64(len(rec.Data)))
	}
	return rec, err
}

func (b *instrumented) Upsert(ctx context.Context, key Key, data []byte, updatedAt int64) (err error) {
	start := time.Now()
	defer func() { b.observe("upsert", start, err) }()
	err = b.inner.Upsert(ctx, key, data, updatedAt)
	if err == nil {
		OpBytes.WithLabelValues(b.name, "upsert").Add(float64(len(data)))
	}
	return err
}

func (b *instrumented) Delete(ctx context.Context, key Key) (err error) {
	start := time.Now()
	defer func() { b.observe("delete", start, err) }()
	return b.inner.Delete(ctx, key)
}
