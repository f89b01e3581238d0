package config

import (
	"os"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	tmpFile, err := os.CreateTemp(t.TempDir(), "config_*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	if _, err := tmpFile.Write([]byte(content)); err != nil {
		t.Fatalf("Failed to write to temp file: %v", err)
	}
	tmpFile.Close()

	return tmpFile.Name()
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
sink:
  destination:
    dataset: logs
    table: records
upload:
  enable_deduplication: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Sink.Kind != "http" {
		t.Errorf("Sink.Kind = %s, want http", cfg.Sink.Kind)
	}
	if cfg.State.Kind != "file" {
		t.Errorf("State.Kind = %s, want file", cfg.State.Kind)
	}
	if cfg.Upload.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", cfg.Upload.MaxRetries)
	}
	if cfg.Upload.MaxConnectionResets != 3 {
		t.Errorf("MaxConnectionResets = %d, want 3", cfg.Upload.MaxConnectionResets)
	}
	if cfg.Upload.InitialRetryDelayMs != 1000 {
		t.Errorf("InitialRetryDelayMs = %d, want 1000", cfg.Upload.InitialRetryDelayMs)
	}
	if cfg.Upload.MaxRetryDelayMs != 32000 {
		t.Errorf("MaxRetryDelayMs = %d, want 32000", cfg.Upload.MaxRetryDelayMs)
	}
	if cfg.Upload.InterBatchDelayMs != 200 {
		t.Errorf("InterBatchDelayMs = %d, want 200", cfg.Upload.InterBatchDelayMs)
	}
	if cfg.Upload.MinSplitSize != 10 {
		t.Errorf("MinSplitSize = %d, want 10", cfg.Upload.MinSplitSize)
	}
	// batch_size 0 stays 0: one unsplit batch.
	if cfg.Upload.BatchSize != 0 {
		t.Errorf("BatchSize = %d, want 0", cfg.Upload.BatchSize)
	}
	if !cfg.Upload.EnableDeduplication {
		t.Error("EnableDeduplication not parsed")
	}
}

func TestLoad_EnvSubstitution(t *testing.T) {
	os.Setenv("TEST_SINK_TOKEN", "abc123")
	defer os.Unsetenv("TEST_SINK_TOKEN")

	path := writeConfig(t, `
sink:
  http:
    endpoint: https://sink.example.com
    token: ${TEST_SINK_TOKEN}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Sink.HTTP.Token != "abc123" {
		t.Errorf("Expected token abc123, got %s", cfg.Sink.HTTP.Token)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/logship.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestUploadConfigLimits(t *testing.T) {
	c := UploadConfig{
		MaxRetries:          4,
		MaxConnectionResets: 2,
		InitialRetryDelayMs: 500,
		MaxRetryDelayMs:     8000,
		InterBatchDelayMs:   100,
		MinSplitSize:        5,
	}

	l := c.Limits()
	if l.MaxRetries != 4 || l.MaxConnectionResets != 2 {
		t.Errorf("limits = %+v", l)
	}
	if l.InitialRetryDelay != 500*time.Millisecond {
		t.Errorf("InitialRetryDelay = %v, want 500ms", l.InitialRetryDelay)
	}
	if l.MaxRetryDelay != 8*time.Second {
		t.Errorf("MaxRetryDelay = %v, want 8s", l.MaxRetryDelay)
	}
	if l.InterBatchDelay != 100*time.Millisecond {
		t.Errorf("InterBatchDelay = %v, want 100ms", l.InterBatchDelay)
	}
	if l.MinSplitSize != 5 {
		t.Errorf("MinSplitSize = %d, want 5", l.MinSplitSize)
	}
}
