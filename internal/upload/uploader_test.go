package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/logship/logship/internal/infra/sink"
)

// scriptedSink answers each Insert call from a script keyed by call number.
type scriptedSink struct {
	calls  int
	script func(call int, rows []sink.Row) (*sink.InsertOutcome, error)
}

func (s *scriptedSink) Insert(
	ctx context.Context,
	dest sink.Destination,
	rows []sink.Row,
) (*sink.InsertOutcome, error) {
	s.calls++
	return s.script(s.calls, rows)
}

func okSink() *scriptedSink {
	return &scriptedSink{script: func(int, []sink.Row) (*sink.InsertOutcome, error) {
		return &sink.InsertOutcome{}, nil
	}}
}

// fixedFactory hands out the same sink for every Create.
type fixedFactory struct {
	s       sink.Sink
	creates int
}

func (f *fixedFactory) Create(ctx context.Context) (sink.Sink, error) {
	f.creates++
	return f.s, nil
}

// queueFactory hands out sinks in order and errors when exhausted.
type queueFactory struct {
	sinks   []sink.Sink
	creates int
}

func (f *queueFactory) Create(ctx context.Context) (sink.Sink, error) {
	f.creates++
	if len(f.sinks) == 0 {
		return nil, errors.New("no more sinks available")
	}
	s := f.sinks[0]
	f.sinks = f.sinks[1:]
	return s, nil
}

// newTestUploader records sleeps instead of serving them.
func newTestUploader(batchSize int, limits Limits) (*Uploader, *[]time.Duration) {
	u := NewUploader(sink.Destination{Dataset: "logs", Table: "records"}, batchSize, limits)
	sleeps := &[]time.Duration{}
	u.sleep = func(ctx context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	}
	return u, sleeps
}

func TestUploadAllSucceed(t *testing.T) {
	s := okSink()
	factory := &fixedFactory{s: s}
	u, sleeps := newTestUploader(2, DefaultLimits)

	summary, err := u.Upload(context.Background(), makeRecords(5), factory)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if summary.UploadedCount != 5 || summary.FailedCount != 0 {
		t.Errorf("summary = %d/%d, want 5/0", summary.UploadedCount, summary.FailedCount)
	}
	if len(summary.UploadedIDs) != 5 {
		t.Fatalf("got %d credited ids, want 5", len(summary.UploadedIDs))
	}
	for i, id := range summary.UploadedIDs {
		if want := fmt.Sprintf("uuid-%d", i); id != want {
			t.Errorf("credited id %d = %s, want %s", i, id, want)
		}
	}
	if s.calls != 3 {
		t.Errorf("sink called %d times, want 3", s.calls)
	}

	// Inter-batch delay between batches 1-2 and 2-3, not after the last.
	if len(*sleeps) != 2 {
		t.Fatalf("got %d sleeps, want 2", len(*sleeps))
	}
	for i, d := range *sleeps {
		if d != DefaultInterBatchDelay {
			t.Errorf("sleep %d = %v, want %v", i, d, DefaultInterBatchDelay)
		}
	}
}

func TestUploadEmpty(t *testing.T) {
	factory := &fixedFactory{s: okSink()}
	u, _ := newTestUploader(10, DefaultLimits)

	summary, err := u.Upload(context.Background(), nil, factory)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if summary.UploadedCount != 0 || len(summary.UploadedIDs) != 0 {
		t.Errorf("expected zero summary, got %+v", summary)
	}
	if factory.creates != 0 {
		t.Errorf("factory called %d times for empty input, want 0", factory.creates)
	}
}

func TestUploadTransientThenSuccess(t *testing.T) {
	s := &scriptedSink{script: func(call int, rows []sink.Row) (*sink.InsertOutcome, error) {
		if call == 1 {
			return nil, errors.New("503 Service Unavailable")
		}
		return &sink.InsertOutcome{}, nil
	}}
	u, sleeps := newTestUploader(0, DefaultLimits)

	summary, err := u.Upload(context.Background(), makeRecords(1), &fixedFactory{s: s})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if s.calls != 2 {
		t.Errorf("sink called %d times, want 2", s.calls)
	}
	if summary.UploadedCount != 1 {
		t.Errorf("uploaded %d, want 1", summary.UploadedCount)
	}
	if len(*sleeps) != 1 || (*sleeps)[0] != DefaultInitialRetryDelay {
		t.Errorf("sleeps = %v, want one %v backoff", *sleeps, DefaultInitialRetryDelay)
	}
}

func TestUploadMaxRetriesExceeded(t *testing.T) {
	s := &scriptedSink{script: func(int, []sink.Row) (*sink.InsertOutcome, error) {
		return nil, errors.New("503 Service Unavailable")
	}}
	u, _ := newTestUploader(0, DefaultLimits)

	_, err := u.Upload(context.Background(), makeRecords(1), &fixedFactory{s: s})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if want := DefaultMaxRetries + 1; s.calls != want {
		t.Errorf("sink called %d times, want %d", s.calls, want)
	}
}

func TestUploadConnectionResetRecovery(t *testing.T) {
	broken := &scriptedSink{script: func(int, []sink.Row) (*sink.InsertOutcome, error) {
		return nil, errors.New("Connection reset by peer")
	}}
	healthy := okSink()
	factory := &queueFactory{sinks: []sink.Sink{broken, healthy}}
	u, _ := newTestUploader(0, DefaultLimits)

	summary, err := u.Upload(context.Background(), makeRecords(3), factory)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if factory.creates != 2 {
		t.Errorf("factory called %d times, want 2", factory.creates)
	}
	if broken.calls != 1 {
		t.Errorf("first sink called %d times, want 1", broken.calls)
	}
	if healthy.calls != 1 {
		t.Errorf("second sink called %d times, want 1", healthy.calls)
	}
	if summary.UploadedCount != 3 || len(summary.UploadedIDs) != 3 {
		t.Errorf("summary = %+v, want all 3 credited", summary)
	}
}

func TestUploadMaxConnectionResets(t *testing.T) {
	var sinks []sink.Sink
	for i := 0; i <= DefaultMaxConnectionResets; i++ {
		sinks = append(sinks, &scriptedSink{script: func(int, []sink.Row) (*sink.InsertOutcome, error) {
			return nil, errors.New("Connection reset by peer")
		}})
	}
	factory := &queueFactory{sinks: sinks}
	u, _ := newTestUploader(0, DefaultLimits)

	_, err := u.Upload(context.Background(), makeRecords(1), factory)
	if err == nil {
		t.Fatal("expected error after exhausting connection resets")
	}
	if !strings.Contains(err.Error(), "connection resets") {
		t.Errorf("error should mention connection resets: %v", err)
	}
	if want := DefaultMaxConnectionResets + 1; factory.creates != want {
		t.Errorf("factory called %d times, want %d", factory.creates, want)
	}
}

func TestUploadFactoryFailurePropagates(t *testing.T) {
	broken := &scriptedSink{script: func(int, []sink.Row) (*sink.InsertOutcome, error) {
		return nil, errors.New("broken pipe")
	}}
	factory := &queueFactory{sinks: []sink.Sink{broken}}
	u, _ := newTestUploader(0, DefaultLimits)

	_, err := u.Upload(context.Background(), makeRecords(1), factory)
	if err == nil {
		t.Fatal("expected factory failure to propagate")
	}
	if !strings.Contains(err.Error(), "no more sinks") {
		t.Errorf("error should carry the factory failure: %v", err)
	}
}

// A connection reset hands the next sink a fresh transient budget.
func TestConnectionResetRefreshesTransientBudget(t *testing.T) {
	limits := DefaultLimits
	limits.MaxRetries = 1

	first := &scriptedSink{script: func(call int, rows []sink.Row) (*sink.InsertOutcome, error) {
		if call == 1 {
			return nil, errors.New("503 Service Unavailable")
		}
		return nil, errors.New("Connection reset by peer")
	}}
	second := &scriptedSink{script: func(call int, rows []sink.Row) (*sink.InsertOutcome, error) {
		if call == 1 {
			return nil, errors.New("503 Service Unavailable")
		}
		return &sink.InsertOutcome{}, nil
	}}
	factory := &queueFactory{sinks: []sink.Sink{first, second}}
	u, _ := newTestUploader(0, limits)

	summary, err := u.Upload(context.Background(), makeRecords(2), factory)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if summary.UploadedCount != 2 {
		t.Errorf("uploaded %d, want 2", summary.UploadedCount)
	}
}

func TestUploadOversizedSplit(t *testing.T) {
	// Refuses anything bigger than 2 rows: the engine has to discover the
	// limit by halving.
	s := &scriptedSink{script: func(call int, rows []sink.Row) (*sink.InsertOutcome, error) {
		if len(rows) > 2 {
			return nil, errors.New("413 Request Entity Too Large")
		}
		return &sink.InsertOutcome{}, nil
	}}
	limits := DefaultLimits
	limits.MinSplitSize = 1
	u, _ := newTestUploader(0, limits)

	summary, err := u.Upload(context.Background(), makeRecords(8), &fixedFactory{s: s})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if summary.UploadedCount != 8 {
		t.Errorf("uploaded %d, want 8", summary.UploadedCount)
	}
	// Halving preserves order across the joined halves.
	for i, id := range summary.UploadedIDs {
		if want := fmt.Sprintf("uuid-%d", i); id != want {
			t.Errorf("credited id %d = %s, want %s", i, id, want)
		}
	}
	// 8 fails, both 4s fail, four 2s succeed.
	if s.calls != 7 {
		t.Errorf("sink called %d times, want 7", s.calls)
	}
}

func TestUploadOversizedAtMinimumSize(t *testing.T) {
	s := &scriptedSink{script: func(int, []sink.Row) (*sink.InsertOutcome, error) {
		return nil, errors.New("413 Request Entity Too Large")
	}}
	u, _ := newTestUploader(0, DefaultLimits)

	_, err := u.Upload(context.Background(), makeRecords(5), &fixedFactory{s: s})
	if err == nil {
		t.Fatal("expected failure for oversized batch at minimum size")
	}
	if !strings.Contains(err.Error(), "too large even at minimum size") {
		t.Errorf("unexpected error: %v", err)
	}
	// No recursion below the minimum size: one attempt, immediate failure.
	if s.calls != 1 {
		t.Errorf("sink called %d times, want 1", s.calls)
	}
}

func TestUploadPerRowErrorsCreditNothing(t *testing.T) {
	s := &scriptedSink{script: func(int, []sink.Row) (*sink.InsertOutcome, error) {
		return &sink.InsertOutcome{RowErrors: []sink.RowError{
			{Index: 1, Message: "invalid payload"},
		}}, nil
	}}
	u, _ := newTestUploader(0, DefaultLimits)

	summary, err := u.Upload(context.Background(), makeRecords(3), &fixedFactory{s: s})
	if err != nil {
		t.Fatalf("row errors must not fail the run: %v", err)
	}

	if summary.UploadedCount != 0 {
		t.Errorf("uploaded %d, want 0", summary.UploadedCount)
	}
	if summary.FailedCount != 3 {
		t.Errorf("failed %d, want 3", summary.FailedCount)
	}
	if len(summary.UploadedIDs) != 0 {
		t.Errorf("credited ids = %v, want none", summary.UploadedIDs)
	}
}

func TestUploadFatalNoRetry(t *testing.T) {
	s := &scriptedSink{script: func(int, []sink.Row) (*sink.InsertOutcome, error) {
		return nil, errors.New("Authentication failed")
	}}
	u, sleeps := newTestUploader(0, DefaultLimits)

	_, err := u.Upload(context.Background(), makeRecords(1), &fixedFactory{s: s})
	if err == nil {
		t.Fatal("expected fatal error")
	}
	if s.calls != 1 {
		t.Errorf("sink called %d times, want 1", s.calls)
	}
	if len(*sleeps) != 0 {
		t.Errorf("fatal error must not back off, slept %v", *sleeps)
	}
}

// The single-sink variant cannot replace the connection, so connection-level
// failures spend the ordinary retry budget.
func TestUploadWithSinkConnectionSharesRetryBudget(t *testing.T) {
	limits := DefaultLimits
	limits.MaxRetries = 2

	s := &scriptedSink{script: func(int, []sink.Row) (*sink.InsertOutcome, error) {
		return nil, errors.New("connection reset by peer")
	}}
	u, _ := newTestUploader(0, limits)

	_, err := u.UploadWithSink(context.Background(), makeRecords(1), s)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if want := limits.MaxRetries + 1; s.calls != want {
		t.Errorf("sink called %d times, want %d", s.calls, want)
	}
}

func TestUploadWithSinkSuccess(t *testing.T) {
	s := okSink()
	u, sleeps := newTestUploader(2, DefaultLimits)

	summary, err := u.UploadWithSink(context.Background(), makeRecords(5), s)
	if err != nil {
		t.Fatalf("UploadWithSink failed: %v", err)
	}
	if summary.UploadedCount != 5 {
		t.Errorf("uploaded %d, want 5", summary.UploadedCount)
	}
	if s.calls != 3 {
		t.Errorf("sink called %d times, want 3", s.calls)
	}
	if len(*sleeps) != 2 {
		t.Errorf("got %d inter-batch sleeps, want 2", len(*sleeps))
	}
}

func TestPrepareRowsAttachesInsertKeys(t *testing.T) {
	records := makeRecords(3)
	rows := prepareRows(records)

	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	for i, row := range rows {
		if row.InsertID != records[i].ID {
			t.Errorf("row %d insert key = %s, want %s", i, row.InsertID, records[i].ID)
		}
	}
}
