package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/logship/logship/internal/core/domain"
)

// PostgresConfig holds connection settings for the Postgres sink.
type PostgresConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

// PostgresSink inserts records into a Postgres table. The record id is the
// primary key, so redelivered rows are dropped by ON CONFLICT DO NOTHING.
type PostgresSink struct {
	db *sqlx.DB
}

// NewPostgresSink opens a connection pool and verifies it with a ping.
func NewPostgresSink(ctx context.Context, cfg PostgresConfig) (*PostgresSink, error) {
	db, err := sqlx.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	} else {
		db.SetMaxOpenConns(4)
	}
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresSink{db: db}, nil
}

// Close releases the connection pool.
func (s *PostgresSink) Close() error {
	return s.db.Close()
}

// Insert writes the rows in one transaction. Rows whose payload is not a
// domain.Record are reported as row errors rather than failing the insert.
func (s *PostgresSink) Insert(
	ctx context.Context,
	dest Destination,
	rows []Row,
) (*InsertOutcome, error) {
	table := pq.QuoteIdentifier(dest.Dataset) + "." + pq.QuoteIdentifier(dest.Table)
	query := fmt.Sprintf(`
		INSERT INTO %s (
			uuid, ts, session_id, record_type, payload,
			uploader_id, hostname, project_name, source_file,
			upload_batch_id, uploaded_at
		) VALUES (
			:uuid, :ts, :session_id, :record_type, :payload,
			:uploader_id, :hostname, :project_name, :source_file,
			:upload_batch_id, :uploaded_at
		) ON CONFLICT (uuid) DO NOTHING`, table)

	outcome := &InsertOutcome{}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin insert transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i, row := range rows {
		rec, ok := row.JSON.(domain.Record)
		if !ok {
			outcome.RowErrors = append(outcome.RowErrors, RowError{
				Index:   i,
				Message: fmt.Sprintf("unsupported row payload %T", row.JSON),
			})
			continue
		}

		if _, err := tx.NamedExecContext(ctx, query, rec); err != nil {
			return nil, fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit insert transaction: %w", err)
	}

	return outcome, nil
}

// PostgresFactory creates Postgres sinks, one connection pool per Create.
type PostgresFactory struct {
	cfg PostgresConfig
}

// NewPostgresFactory returns a factory for Postgres sinks.
func NewPostgresFactory(cfg PostgresConfig) *PostgresFactory {
	return &PostgresFactory{cfg: cfg}
}

// Create opens a fresh connection pool.
func (f *PostgresFactory) Create(ctx context.Context) (Sink, error) {
	return NewPostgresSink(ctx, f.cfg)
}
