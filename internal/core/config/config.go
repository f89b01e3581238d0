package config

import (
	"time"

	"github.com/logship/logship/internal/infra/sink"
	"github.com/logship/logship/internal/infra/state"
	"github.com/logship/logship/internal/upload"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Sink     SinkConfig     `yaml:"sink"`
	State    StateConfig    `yaml:"state"`
	Upload   UploadConfig   `yaml:"upload"`
	Logs     LogsConfig     `yaml:"logs"`
	Uploader UploaderConfig `yaml:"uploader"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SinkConfig selects and configures the sink implementation.
type SinkConfig struct {
	Kind        string              `yaml:"kind"` // http, postgres
	Destination sink.Destination    `yaml:"destination"`
	HTTP        sink.HTTPConfig     `yaml:"http"`
	Postgres    sink.PostgresConfig `yaml:"postgres"`
}

// StateConfig selects and configures the upload-state store.
type StateConfig struct {
	Kind  string            `yaml:"kind"` // file, redis
	Path  string            `yaml:"path"` // file store
	Redis state.RedisConfig `yaml:"redis"`
	Key   string            `yaml:"key"` // redis store
}

// UploadConfig holds the engine's tuning knobs.
type UploadConfig struct {
	BatchSize           int  `yaml:"batch_size"`
	EnableDeduplication bool `yaml:"enable_deduplication"`
	DryRun              bool `yaml:"dry_run"`
	MaxRetries          int  `yaml:"max_retries"`
	MaxConnectionResets int  `yaml:"max_connection_resets"`
	InitialRetryDelayMs int  `yaml:"initial_retry_delay_ms"`
	MaxRetryDelayMs     int  `yaml:"max_retry_delay_ms"`
	InterBatchDelayMs   int  `yaml:"inter_batch_delay_ms"`
	MinSplitSize        int  `yaml:"min_split_size"`
}

// Limits converts the configured knobs to engine limits.
func (c UploadConfig) Limits() upload.Limits {
	return upload.Limits{
		MaxRetries:          c.MaxRetries,
		MaxConnectionResets: c.MaxConnectionResets,
		InitialRetryDelay:   time.Duration(c.InitialRetryDelayMs) * time.Millisecond,
		MaxRetryDelay:       time.Duration(c.MaxRetryDelayMs) * time.Millisecond,
		InterBatchDelay:     time.Duration(c.InterBatchDelayMs) * time.Millisecond,
		MinSplitSize:        c.MinSplitSize,
	}
}

// LogsConfig points at the record source.
type LogsConfig struct {
	Dir string `yaml:"dir"`
}

// UploaderConfig identifies who is shipping records.
type UploaderConfig struct {
	UploaderID  string `yaml:"uploader_id"`
	ProjectName string `yaml:"project_name"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}
