package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "strata_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	ShapesExtractedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "strata_shapes_extracted_total",
		Help: "Total number of file shapes extracted.",
	}, []string{"language"})

	SymbolsExtractedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "strata_symbols_extracted_total",
		Help: "Total number of symbols extracted across all shapes.",
	})

	DiffsComputedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "strata_diffs_computed_total",
		Help: "Total number of structural diffs computed.",
	})

	UsagesLocatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "strata_usages_located_total",
		Help: "Total number of usages located across all searches.",
	})

	OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "strata_operation_seconds",
		Help:    "Time spent serving one analysis operation.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	OperationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "strata_operation_errors_total",
		Help: "Total number of failed analysis operations.",
	}, []string{"operation", "code"})

	EncoderTruncationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "strata_encoder_truncations_total",
		Help: "Total number of responses truncated by the token budget.",
	})

	AuditQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "strata_audit_queue_depth",
		Help: "Current number of audit entries waiting to be persisted.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "strata_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)
