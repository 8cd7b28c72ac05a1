package idxtable

import (
	"github.com/prometheus/client_golang/prometheus"
)

var LoadCount = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "idxtable",
	Subsystem: "table",
	Name:      "loads",
}, []string{"type", "result"})

var CommitCount = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "idxtable",
	Subsystem: "table",
	Name:      "commits",
}, []string{"type", "result"})

var DestroyCount = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "idxtable",
	Subsystem: "table",
	Name:      "destroys",
}, []string{"type", "result"})

var CommitSize = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "idxtable",
	Subsystem: "table",
	Name:      "commit_bytes",
	Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
}, []string{"type"})

var CachedTables = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "idxtable",
	Subsystem: "registry",
	Name:      "tables",
})

// Collectors returns the metrics of this package for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{LoadCount, CommitCount, DestroyCount, CommitSize, CachedTables}
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

type SetStats struct {
	Rows        int
	Columns     int
	EncodedSize int
}

func (s *Set) Stats() SetStats {
	return SetStats{
		Rows:        s.Count(),
		Columns:     len(s.cols),
		EncodedSize: encodedSize(len(s.cols), s.Count()),
	}
}
