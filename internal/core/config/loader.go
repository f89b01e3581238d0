package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/logship/logship/internal/upload"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Sink.Kind == "" {
		cfg.Sink.Kind = "http"
	}
	if cfg.State.Kind == "" {
		cfg.State.Kind = "file"
	}
	if cfg.State.Path == "" {
		cfg.State.Path = ".logship/upload-state.json"
	}
	if cfg.State.Key == "" {
		cfg.State.Key = "logship:upload-state"
	}

	// BatchSize keeps its zero value: 0 means one unsplit batch.
	u := &cfg.Upload
	if u.MaxRetries == 0 {
		u.MaxRetries = upload.DefaultMaxRetries
	}
	if u.MaxConnectionResets == 0 {
		u.MaxConnectionResets = upload.DefaultMaxConnectionResets
	}
	if u.InitialRetryDelayMs == 0 {
		u.InitialRetryDelayMs = int(upload.DefaultInitialRetryDelay.Milliseconds())
	}
	if u.MaxRetryDelayMs == 0 {
		u.MaxRetryDelayMs = int(upload.DefaultMaxRetryDelay.Milliseconds())
	}
	if u.InterBatchDelayMs == 0 {
		u.InterBatchDelayMs = int(upload.DefaultInterBatchDelay.Milliseconds())
	}
	if u.MinSplitSize == 0 {
		u.MinSplitSize = upload.DefaultMinSplitSize
	}
}
