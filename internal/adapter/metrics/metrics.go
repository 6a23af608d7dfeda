package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons recorded on WriterMetrics.DroppedTotal.
const (
	ReasonBufferFull = "buffer_full"
	ReasonClosed     = "closed"
	ReasonSendFailed = "send_failed"
	ReasonTokenError = "token_error"
)

// WriterMetrics holds all Prometheus metrics for one writer instance.
type WriterMetrics struct {
	EnqueuedTotal    prometheus.Counter
	DroppedTotal     *prometheus.CounterVec
	FlushesTotal     *prometheus.CounterVec
	BatchSize        prometheus.Histogram
	SentEntriesTotal prometheus.Counter
	TokenCacheHits   prometheus.Counter
	TokenCacheMisses prometheus.Counter
}

// NewWriterMetrics initializes and registers the writer metrics on reg.
// A nil reg registers on the process-default registry.
func NewWriterMetrics(reg prometheus.Registerer) *WriterMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &WriterMetrics{
		EnqueuedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "logship",
			Subsystem: "writer",
			Name:      "enqueued_total",
			Help:      "Total number of records accepted by the ingress queue.",
		}),
		DroppedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "logship",
			Subsystem: "writer",
			Name:      "dropped_total",
			Help:      "Total number of records dropped, by reason.",
		}, []string{"reason"}), // reason: buffer_full, closed, send_failed, token_error
		FlushesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "logship",
			Subsystem: "writer",
			Name:      "flushes_total",
			Help:      "Total number of batch flushes, by trigger.",
		}, []string{"trigger"}), // trigger: size, timeout, shutdown
		BatchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "logship",
			Subsystem: "writer",
			Name:      "batch_size",
			Help:      "Number of entries per flushed batch.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		SentEntriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "logship",
			Subsystem: "writer",
			Name:      "sent_entries_total",
			Help:      "Total number of entries successfully written to the logging API.",
		}),
		TokenCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "logship",
			Subsystem: "auth",
			Name:      "token_cache_hits_total",
			Help:      "Total number of bearer token cache hits.",
		}),
		TokenCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "logship",
			Subsystem: "auth",
			Name:      "token_cache_misses_total",
			Help:      "Total number of bearer token cache misses (token exchanges).",
		}),
	}
}
