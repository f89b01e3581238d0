// Package upload implements the resilient batch upload engine: partitioning,
// error classification, retry with exponential backoff, adaptive splitting of
// oversized batches, and connection replacement on transport failure.
package upload

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/logship/logship/internal/core/domain"
	"github.com/logship/logship/internal/infra/sink"
	"github.com/logship/logship/internal/upload/metrics"
)

// retryContext is local to one batch attempt. Counters are never shared
// across batches or hoisted into the Uploader.
type retryContext struct {
	transientRetries int
	connectionResets int
}

// Uploader ships records to a sink in bounded, sequential batches.
type Uploader struct {
	Dest      sink.Destination
	BatchSize int
	Limits    Limits

	// sleep is replaceable so tests can observe waits instead of serving them.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewUploader creates an uploader for the given destination.
func NewUploader(dest sink.Destination, batchSize int, limits Limits) *Uploader {
	return &Uploader{
		Dest:      dest,
		BatchSize: batchSize,
		Limits:    limits,
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// prepareRows attaches each record's id as the sink-side insert key.
func prepareRows(records []domain.Record) []sink.Row {
	rows := make([]sink.Row, len(records))
	for i, r := range records {
		rows[i] = sink.Row{InsertID: r.ID, JSON: r}
	}
	return rows
}

func chunkIDs(records []domain.Record) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}

// Upload partitions records by BatchSize and ships the batches one at a time,
// in order, through sinks obtained from the factory. A fixed inter-batch
// delay bounds the outbound request rate between successive batches. Any
// fatal batch failure aborts the whole call.
func (u *Uploader) Upload(
	ctx context.Context,
	records []domain.Record,
	factory sink.Factory,
) (*domain.UploadSummary, error) {
	return u.run(ctx, records, func(ctx context.Context, chunk []domain.Record, batchNum int) ([]string, error) {
		return u.uploadBatch(ctx, factory, chunk, batchNum)
	})
}

// UploadWithSink is the simpler variant with a single caller-supplied sink.
// Connection-level failures are not separately recoverable here; they spend
// the same retry budget as transient ones.
func (u *Uploader) UploadWithSink(
	ctx context.Context,
	records []domain.Record,
	s sink.Sink,
) (*domain.UploadSummary, error) {
	return u.run(ctx, records, func(ctx context.Context, chunk []domain.Record, batchNum int) ([]string, error) {
		return u.uploadBatchWithSink(ctx, s, chunk, batchNum)
	})
}

func (u *Uploader) run(
	ctx context.Context,
	records []domain.Record,
	uploadOne func(ctx context.Context, chunk []domain.Record, batchNum int) ([]string, error),
) (*domain.UploadSummary, error) {
	summary := &domain.UploadSummary{}
	if len(records) == 0 {
		return summary, nil
	}

	batches := Partition(records, u.BatchSize)
	slog.Info("Uploading records",
		"records", len(records), "batches", len(batches), "batch_size", u.BatchSize)

	for i, chunk := range batches {
		ids, err := uploadOne(ctx, chunk, i+1)
		if err != nil {
			return nil, fmt.Errorf("upload batch %d/%d: %w", i+1, len(batches), err)
		}

		summary.Merge(domain.UploadResult{
			UploadedCount: len(ids),
			FailedCount:   len(chunk) - len(ids),
			UploadedIDs:   ids,
		})
		metrics.RecordsUploaded.Add(float64(len(ids)))

		if i+1 < len(batches) {
			if err := u.sleep(ctx, u.Limits.InterBatchDelay); err != nil {
				return nil, err
			}
		}
	}

	slog.Info("Upload finished",
		"uploaded", summary.UploadedCount,
		"failed", summary.FailedCount,
		"total", len(records))

	return summary, nil
}

// uploadBatch runs the per-batch state machine with connection recovery. Each
// invocation, including the recursive halves of a split, gets a fresh sink
// from the factory and fresh retry counters.
func (u *Uploader) uploadBatch(
	ctx context.Context,
	factory sink.Factory,
	chunk []domain.Record,
	batchNum int,
) ([]string, error) {
	rows := prepareRows(chunk)
	var rc retryContext

	s, err := factory.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("create sink: %w", err)
	}

	for {
		start := time.Now()
		outcome, err := s.Insert(ctx, u.Dest, rows)
		metrics.InsertLatency.Observe(time.Since(start).Seconds())

		if err == nil {
			return creditBatch(chunk, outcome, batchNum, rc), nil
		}

		kind := Classify(err)
		switch kind {
		case KindOversized:
			if len(chunk) <= u.Limits.MinSplitSize {
				return nil, fmt.Errorf(
					"batch %d too large even at minimum size (%d records): %w",
					batchNum, len(chunk), err)
			}

			mid := len(chunk) / 2
			slog.Warn("Batch too large, splitting",
				"batch", batchNum, "records", len(chunk), "left", mid, "right", len(chunk)-mid)
			metrics.BatchSplits.Inc()

			left, err := u.uploadBatch(ctx, factory, chunk[:mid], batchNum)
			if err != nil {
				return nil, err
			}
			right, err := u.uploadBatch(ctx, factory, chunk[mid:], batchNum)
			if err != nil {
				return nil, err
			}
			return append(left, right...), nil

		case KindConnection:
			rc.connectionResets++
			if rc.connectionResets > u.Limits.MaxConnectionResets {
				return nil, fmt.Errorf("batch %d failed after %d connection resets: %w",
					batchNum, rc.connectionResets, err)
			}

			slog.Warn("Connection error, replacing sink",
				"batch", batchNum, "reset", rc.connectionResets, "error", ChainString(err))
			metrics.ConnectionResets.Inc()

			ns, cerr := factory.Create(ctx)
			if cerr != nil {
				return nil, fmt.Errorf("recreate sink: %w", cerr)
			}
			s = ns

			if serr := u.sleep(ctx, u.Limits.Delay(rc.connectionResets)); serr != nil {
				return nil, serr
			}
			// Fresh connection, fresh transient budget.
			rc.transientRetries = 0

		case KindTransient:
			rc.transientRetries++
			if rc.transientRetries > u.Limits.MaxRetries {
				return nil, fmt.Errorf("batch %d failed after %d retries: %w",
					batchNum, u.Limits.MaxRetries, err)
			}

			delay := u.Limits.Delay(rc.transientRetries)
			slog.Warn("Transient error, retrying",
				"batch", batchNum, "attempt", rc.transientRetries,
				"delay", delay, "error", ChainString(err))
			metrics.RetriesTotal.WithLabelValues(kind.String()).Inc()

			if serr := u.sleep(ctx, delay); serr != nil {
				return nil, serr
			}

		default:
			return nil, fmt.Errorf("batch %d upload failed: %w", batchNum, err)
		}
	}
}

// uploadBatchWithSink is the single-connection variant: connection-level and
// transient failures share one retry budget, oversized batches still split.
func (u *Uploader) uploadBatchWithSink(
	ctx context.Context,
	s sink.Sink,
	chunk []domain.Record,
	batchNum int,
) ([]string, error) {
	rows := prepareRows(chunk)
	var rc retryContext

	for {
		start := time.Now()
		outcome, err := s.Insert(ctx, u.Dest, rows)
		metrics.InsertLatency.Observe(time.Since(start).Seconds())

		if err == nil {
			return creditBatch(chunk, outcome, batchNum, rc), nil
		}

		kind := Classify(err)
		if kind == KindOversized {
			if len(chunk) <= u.Limits.MinSplitSize {
				return nil, fmt.Errorf(
					"batch %d too large even at minimum size (%d records): %w",
					batchNum, len(chunk), err)
			}

			mid := len(chunk) / 2
			slog.Warn("Batch too large, splitting",
				"batch", batchNum, "records", len(chunk), "left", mid, "right", len(chunk)-mid)
			metrics.BatchSplits.Inc()

			left, err := u.uploadBatchWithSink(ctx, s, chunk[:mid], batchNum)
			if err != nil {
				return nil, err
			}
			right, err := u.uploadBatchWithSink(ctx, s, chunk[mid:], batchNum)
			if err != nil {
				return nil, err
			}
			return append(left, right...), nil
		}

		if kind == KindFatal || rc.transientRetries >= u.Limits.MaxRetries {
			return nil, fmt.Errorf("batch %d upload failed after %d retries: %w",
				batchNum, rc.transientRetries, err)
		}

		rc.transientRetries++
		delay := u.Limits.Delay(rc.transientRetries)
		slog.Warn("Retryable error",
			"batch", batchNum, "attempt", rc.transientRetries,
			"delay", delay, "error", ChainString(err))
		metrics.RetriesTotal.WithLabelValues(kind.String()).Inc()

		if serr := u.sleep(ctx, delay); serr != nil {
			return nil, serr
		}
	}
}

// creditBatch turns a successful insert outcome into the credited id list.
// A batch with per-row errors is credited zero ids: partial credit is not
// given, the rejected rows are only surfaced in the log.
func creditBatch(
	chunk []domain.Record,
	outcome *sink.InsertOutcome,
	batchNum int,
	rc retryContext,
) []string {
	if outcome != nil && len(outcome.RowErrors) > 0 {
		slog.Warn("Batch had row errors, crediting no records",
			"batch", batchNum, "row_errors", len(outcome.RowErrors))
		for _, re := range outcome.RowErrors {
			slog.Warn("Row rejected", "batch", batchNum, "row", re.Index, "error", re.Message)
		}
		metrics.RowsRejected.Add(float64(len(outcome.RowErrors)))
		return nil
	}

	if rc.connectionResets > 0 {
		slog.Info("Batch uploaded after connection recovery",
			"batch", batchNum, "resets", rc.connectionResets)
	} else {
		slog.Debug("Batch uploaded", "batch", batchNum, "records", len(chunk))
	}

	return chunkIDs(chunk)
}
