package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsUploaded tracks records credited as uploaded.
	RecordsUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "logship_records_uploaded_total",
			Help: "Total number of records credited as uploaded",
		},
	)

	// RowsRejected tracks per-row failures inside successful inserts.
	RowsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "logship_rows_rejected_total",
			Help: "Total number of rows the sink rejected individually",
		},
	)

	// RetriesTotal tracks retries by failure kind.
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logship_retries_total",
			Help: "Total number of retried insert attempts",
		},
		[]string{"kind"},
	)

	// BatchSplits tracks oversized batches that were halved.
	BatchSplits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "logship_batch_splits_total",
			Help: "Total number of oversized batches split in half",
		},
	)

	// ConnectionResets tracks sink connections replaced mid-batch.
	ConnectionResets = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "logship_connection_resets_total",
			Help: "Total number of sink connections replaced",
		},
	)

	// InsertLatency tracks insert call latency.
	InsertLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "logship_insert_latency_seconds",
			Help:    "Insert call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)
