package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultCompleted = "completed"
	ResultFailed    = "failed"
	ResultCancelled = "cancelled"
	ResultCached    = "cached"
)

var (
	once sync.Once

	// StreamsTotal counts summarize streams by outcome.
	StreamsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ytsummarizer",
		Subsystem: "server",
		Name:      "streams_total",
		Help:      "Total number of summarize streams served, labeled by result.",
	}, []string{"result"})

	// StreamDurationSeconds is the time from request to the last written line.
	StreamDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ytsummarizer",
		Subsystem: "server",
		Name:      "stream_duration_seconds",
		Help:      "Time to stream a summary to the client.",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 60, 120, 300},
	}, []string{"result"})

	LinesWrittenTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ytsummarizer",
		Subsystem: "server",
		Name:      "lines_written_total",
		Help:      "Total number of summary lines written to clients.",
	})

	InFlightStreams = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ytsummarizer",
		Subsystem: "server",
		Name:      "in_flight_streams",
		Help:      "Current number of summaries being streamed.",
	})

	CacheLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ytsummarizer",
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Summary cache lookups, labeled by hit or miss.",
	}, []string{"outcome"})

	PrunedSummariesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ytsummarizer",
		Subsystem: "cache",
		Name:      "pruned_summaries_total",
		Help:      "Total number of expired summaries deleted by the scheduler.",
	})
)

// Register registers all metrics with the default Prometheus registry.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			StreamsTotal,
			StreamDurationSeconds,
			LinesWrittenTotal,
			InFlightStreams,
			CacheLookupsTotal,
			PrunedSummariesTotal,
		)
	})
}
