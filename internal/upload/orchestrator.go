package upload

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/logship/logship/internal/core/dedup"
	"github.com/logship/logship/internal/core/domain"
	"github.com/logship/logship/internal/infra/sink"
	"github.com/logship/logship/internal/infra/state"
)

// Orchestrator sequences a full run: dedup against persisted state, upload,
// then merge and persist the newly credited ids. State is written once per
// run; a fatal abort mid-run leaves earlier batches' ids unrecorded, and the
// next run re-sends them relying on the sink's insert-key deduplication.
type Orchestrator struct {
	Uploader *Uploader
	Store    state.Store
	StateKey string
	Dedup    bool

	now func() time.Time
}

// NewOrchestrator wires an orchestrator around an uploader and a state store.
func NewOrchestrator(u *Uploader, store state.Store, stateKey string, dedupEnabled bool) *Orchestrator {
	return &Orchestrator{
		Uploader: u,
		Store:    store,
		StateKey: stateKey,
		Dedup:    dedupEnabled,
		now:      time.Now,
	}
}

// Run executes one upload run for the candidate records under the given batch
// id. Empty input returns a zero summary without touching the store.
func (o *Orchestrator) Run(
	ctx context.Context,
	records []domain.Record,
	factory sink.Factory,
	batchID string,
) (*domain.UploadSummary, error) {
	if len(records) == 0 {
		slog.Info("No records to upload")
		return &domain.UploadSummary{}, nil
	}

	st, err := o.Store.Load(ctx, o.StateKey)
	if err != nil {
		return nil, fmt.Errorf("load upload state: %w", err)
	}

	filtered := dedup.Filter(records, st.UploadedIDs, o.Dedup)
	if len(filtered) < len(records) {
		slog.Info("Skipped already-uploaded records",
			"skipped", len(records)-len(filtered), "remaining", len(filtered))
	}
	if len(filtered) == 0 {
		slog.Info("All records already uploaded")
		return &domain.UploadSummary{}, nil
	}

	summary, err := o.Uploader.Upload(ctx, filtered, factory)
	if err != nil {
		return nil, err
	}

	if len(summary.UploadedIDs) > 0 {
		// Reload before merging: narrows (does not close) the lost-update
		// window against a concurrent writer on the same key.
		fresh, err := o.Store.Load(ctx, o.StateKey)
		if err != nil {
			return nil, fmt.Errorf("reload upload state: %w", err)
		}

		added := fresh.AddUploaded(summary.UploadedIDs, batchID, o.now().UTC())
		if err := o.Store.Save(ctx, o.StateKey, fresh); err != nil {
			return nil, fmt.Errorf("save upload state: %w", err)
		}

		slog.Info("Upload state updated",
			"new_ids", added, "total_uploaded", fresh.TotalUploaded, "batch_id", batchID)
	}

	return summary, nil
}
