package domain

// UploadResult is the outcome for a single batch.
type UploadResult struct {
	UploadedCount int
	FailedCount   int
	UploadedIDs   []string
}

// UploadSummary aggregates batch results across one run.
type UploadSummary struct {
	UploadedCount int
	FailedCount   int
	UploadedIDs   []string
}

// Merge folds one batch result into the summary.
func (s *UploadSummary) Merge(r UploadResult) {
	s.UploadedCount += r.UploadedCount
	s.FailedCount += r.FailedCount
	s.UploadedIDs = append(s.UploadedIDs, r.UploadedIDs...)
}
