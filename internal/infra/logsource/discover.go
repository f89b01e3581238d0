// Package logsource discovers .jsonl log files and parses them into records.
package logsource

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Discover walks dir and returns every .jsonl file path, sorted. A missing
// directory yields an empty list, not an error.
func Discover(dir string) ([]string, error) {
	if strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			dir = filepath.Join(home, dir[2:])
		}
	}

	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			slog.Warn("Log directory does not exist", "dir", dir)
			return nil, nil
		}
		return nil, fmt.Errorf("stat log directory: %w", err)
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".jsonl" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk log directory: %w", err)
	}

	sort.Strings(files)
	slog.Info("Discovered log files", "dir", dir, "count", len(files))

	return files, nil
}
