// Package sink defines the remote write capability records are delivered to,
// plus the network and database implementations.
package sink

import "context"

// Destination names the table rows are inserted into.
type Destination struct {
	Dataset string `yaml:"dataset"`
	Table   string `yaml:"table"`
}

// Row is one record prepared for insertion. InsertID is the per-record
// idempotency key: the sink deduplicates at-least-once redelivery on it.
type Row struct {
	InsertID string `json:"insert_id"`
	JSON     any    `json:"json"`
}

// RowError reports a single row the sink rejected inside an otherwise
// successful insert.
type RowError struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

// InsertOutcome is a successful insert response. RowErrors is empty when every
// row was accepted.
type InsertOutcome struct {
	RowErrors []RowError `json:"insert_errors,omitempty"`
}

// Sink inserts rows into a destination table.
type Sink interface {
	Insert(ctx context.Context, dest Destination, rows []Row) (*InsertOutcome, error)
}

// Factory (re)establishes a sink connection. The uploader asks for a fresh
// sink when the transport becomes unusable.
type Factory interface {
	Create(ctx context.Context) (Sink, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(ctx context.Context) (Sink, error)

func (f FactoryFunc) Create(ctx context.Context) (Sink, error) {
	return f(ctx)
}
