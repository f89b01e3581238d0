package domain

import (
	"encoding/json"
	"time"
)

// Record is one loggable unit read from a source file. The ID doubles as the
// deduplication key and the sink-side insert/idempotency key. Records are
// immutable once produced.
type Record struct {
	ID        string          `json:"uuid"        db:"uuid"`
	Timestamp time.Time       `json:"timestamp"   db:"ts"`
	SessionID string          `json:"session_id"  db:"session_id"`
	Kind      string          `json:"record_type" db:"record_type"`
	Payload   json.RawMessage `json:"payload"     db:"payload"`

	Provenance
}

// Provenance records where a Record came from and which run shipped it.
type Provenance struct {
	UploaderID  string    `json:"uploader_id"     db:"uploader_id"`
	Hostname    string    `json:"hostname"        db:"hostname"`
	ProjectName string    `json:"project_name"    db:"project_name"`
	SourceFile  string    `json:"source_file"     db:"source_file"`
	BatchID     string    `json:"upload_batch_id" db:"upload_batch_id"`
	UploadedAt  time.Time `json:"uploaded_at"     db:"uploaded_at"`
}
