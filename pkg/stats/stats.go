// Package stats holds the run counters shared by all crawl workers.
package stats

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Stats tracks process-wide counters for a crawl run. All increments are
// atomic; a Stats value is shared by every worker.
type Stats struct {
	filesTotal     atomic.Int64
	filesProcessed atomic.Int64
	filesSkipped   atomic.Int64
	filesError     atomic.Int64
	nestedDropped  atomic.Int64
	startTime      time.Time
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	FilesTotal     int64
	FilesProcessed int64
	FilesSkipped   int64
	FilesError     int64
	NestedDropped  int64
	StartTime      time.Time
	Elapsed        time.Duration
}

// New creates a Stats with the start time set to now.
func New() *Stats {
	return &Stats{startTime: time.Now()}
}

func (s *Stats) SetTotal(n int64)  { s.filesTotal.Store(n) }
func (s *Stats) AddProcessed()     { s.filesProcessed.Add(1) }
func (s *Stats) AddSkipped()       { s.filesSkipped.Add(1) }
func (s *Stats) AddError()         { s.filesError.Add(1) }
func (s *Stats) AddNestedDropped() { s.nestedDropped.Add(1) }

// Done reports how many files have reached a terminal state.
func (s *Stats) Done() int64 {
	return s.filesProcessed.Load() + s.filesSkipped.Load() + s.filesError.Load()
}

// Snapshot copies the current counter values.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		FilesTotal:     s.filesTotal.Load(),
		FilesProcessed: s.filesProcessed.Load(),
		FilesSkipped:   s.filesSkipped.Load(),
		FilesError:     s.filesError.Load(),
		NestedDropped:  s.nestedDropped.Load(),
		StartTime:      s.startTime,
		Elapsed:        time.Since(s.startTime),
	}
}

// Register exposes the counters on a Prometheus registry so the serve
// façade can publish them at /metrics.
func (s *Stats) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "crawl_files_processed_total",
			Help: "Files fully processed and emitted.",
		}, func() float64 { return float64(s.filesProcessed.Load()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "crawl_files_skipped_total",
			Help: "Files skipped (already claimed or deduplicated).",
		}, func() float64 { return float64(s.filesSkipped.Load()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "crawl_files_error_total",
			Help: "Files whose extraction failed or timed out.",
		}, func() float64 { return float64(s.filesError.Load()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "crawl_nested_dropped_total",
			Help: "Nested files dropped by the fan-out cap. Containers left unexpanded at the depth limit are not counted.",
		}, func() float64 { return float64(s.nestedDropped.Load()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "crawl_files_total",
			Help: "Files discovered under the crawl root.",
		}, func() float64 { return float64(s.filesTotal.Load()) }),
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
