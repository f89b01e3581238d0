package domain

import (
	"encoding/json"
	"sort"
	"time"
)

// UploadState is the durable record of what has already been shipped.
// UploadedIDs only grows during normal operation; shrinking it is an
// out-of-band reset, not an engine operation.
type UploadState struct {
	LastUploadTimestamp *time.Time
	UploadedIDs         map[string]struct{}
	LastBatchID         *string
	TotalUploaded       uint64
}

// NewUploadState returns the zero state: empty id set, zero counter.
func NewUploadState() *UploadState {
	return &UploadState{
		UploadedIDs: make(map[string]struct{}),
	}
}

// IsUploaded reports whether the given record id has already been credited.
func (s *UploadState) IsUploaded(id string) bool {
	_, ok := s.UploadedIDs[id]
	return ok
}

// AddUploaded merges the credited ids from one run into the state, stamps the
// batch id and timestamp, and bumps TotalUploaded by the number of ids that
// were actually new. Returns that count.
func (s *UploadState) AddUploaded(ids []string, batchID string, ts time.Time) int {
	if s.UploadedIDs == nil {
		s.UploadedIDs = make(map[string]struct{})
	}

	added := 0
	for _, id := range ids {
		if _, ok := s.UploadedIDs[id]; !ok {
			s.UploadedIDs[id] = struct{}{}
			added++
		}
	}

	s.TotalUploaded += uint64(added)
	s.LastBatchID = &batchID
	s.LastUploadTimestamp = &ts

	return added
}

// uploadStateJSON is the persisted representation: the id set serializes as a
// sorted array so state files diff cleanly.
type uploadStateJSON struct {
	LastUploadTimestamp *time.Time `json:"last_upload_timestamp"`
	UploadedIDs         []string   `json:"uploaded_ids"`
	LastBatchID         *string    `json:"last_batch_id"`
	TotalUploaded       uint64     `json:"total_uploaded"`
}

func (s *UploadState) MarshalJSON() ([]byte, error) {
	ids := make([]string, 0, len(s.UploadedIDs))
	for id := range s.UploadedIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return json.Marshal(uploadStateJSON{
		LastUploadTimestamp: s.LastUploadTimestamp,
		UploadedIDs:         ids,
		LastBatchID:         s.LastBatchID,
		TotalUploaded:       s.TotalUploaded,
	})
}

func (s *UploadState) UnmarshalJSON(data []byte) error {
	var raw uploadStateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.LastUploadTimestamp = raw.LastUploadTimestamp
	s.LastBatchID = raw.LastBatchID
	s.TotalUploaded = raw.TotalUploaded
	s.UploadedIDs = make(map[string]struct{}, len(raw.UploadedIDs))
	for _, id := range raw.UploadedIDs {
		s.UploadedIDs[id] = struct{}{}
	}

	return nil
}
