package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/logship/logship/internal/core/domain"
)

// FileStore persists UploadState as a JSON file. The key is the file path.
type FileStore struct{}

// NewFileStore returns a file-backed state store.
func NewFileStore() *FileStore {
	return &FileStore{}
}

// Load reads the state file. A missing file is the zero state.
func (s *FileStore) Load(ctx context.Context, key string) (*domain.UploadState, error) {
	data, err := os.ReadFile(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Info("No existing upload state found, starting fresh", "path", key)
			return domain.NewUploadState(), nil
		}
		return nil, fmt.Errorf("read upload state file: %w", err)
	}

	st := domain.NewUploadState()
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("parse upload state file: %w", err)
	}

	slog.Info("Loaded upload state",
		"path", key, "total_uploaded", st.TotalUploaded)

	return st, nil
}

// Save writes the state file, creating parent directories as needed.
func (s *FileStore) Save(ctx context.Context, key string, st *domain.UploadState) error {
	if dir := filepath.Dir(key); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize upload state: %w", err)
	}

	if err := os.WriteFile(key, data, 0o644); err != nil {
		return fmt.Errorf("write upload state file: %w", err)
	}

	slog.Info("Saved upload state",
		"path", key, "total_uploaded", st.TotalUploaded)

	return nil
}
