// Package dedup removes records that a previous run already shipped.
package dedup

import "github.com/logship/logship/internal/core/domain"

// Filter returns the subsequence of records whose id is not in uploadedIDs,
// preserving input order. When enabled is false the input is returned
// unchanged. No side effects.
func Filter(
	records []domain.Record,
	uploadedIDs map[string]struct{},
	enabled bool,
) []domain.Record {
	if !enabled {
		return records
	}

	filtered := make([]domain.Record, 0, len(records))
	for _, r := range records {
		if _, ok := uploadedIDs[r.ID]; ok {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}

// ExtractIDs returns the ids of the given records, in order.
func ExtractIDs(records []domain.Record) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}
