package upload

import "github.com/logship/logship/internal/core/domain"

// Partition splits records into consecutive batches of at most size records;
// the last batch may be smaller. size 0 means no splitting: one batch holding
// everything. Concatenating the result reproduces the input in order.
func Partition(records []domain.Record, size int) [][]domain.Record {
	if len(records) == 0 {
		return nil
	}
	if size <= 0 {
		return [][]domain.Record{records}
	}

	batches := make([][]domain.Record, 0, (len(records)+size-1)/size)
	for start := 0; start < len(records); start += size {
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		batches = append(batches, records[start:end])
	}
	return batches
}
