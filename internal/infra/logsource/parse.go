package logsource

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/logship/logship/internal/core/domain"
)

// lineRecord is the wire shape of one .jsonl line.
type lineRecord struct {
	ID        string          `json:"uuid"`
	Timestamp time.Time       `json:"timestamp"`
	SessionID string          `json:"sessionId"`
	Kind      string          `json:"type"`
	Message   json.RawMessage `json:"message"`
}

// Parser turns log lines into Records stamped with run provenance.
type Parser struct {
	UploaderID  string
	Hostname    string
	ProjectName string
	BatchID     string

	now func() time.Time
}

// NewParser builds a parser for one run. The hostname is resolved once here.
func NewParser(uploaderID, projectName, batchID string) *Parser {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	return &Parser{
		UploaderID:  uploaderID,
		Hostname:    hostname,
		ProjectName: projectName,
		BatchID:     batchID,
		now:         time.Now,
	}
}

// ParseFile reads one .jsonl file. Blank lines are skipped; malformed lines
// are logged and skipped rather than failing the file.
func (p *Parser) ParseFile(path string) ([]domain.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	defer f.Close()

	uploadedAt := p.now().UTC()
	var records []domain.Record

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var in lineRecord
		if err := json.Unmarshal([]byte(line), &in); err != nil {
			slog.Warn("Skipping malformed log line",
				"file", path, "line", lineNum, "error", err)
			continue
		}
		if in.ID == "" {
			slog.Warn("Skipping log line without uuid", "file", path, "line", lineNum)
			continue
		}

		records = append(records, domain.Record{
			ID:        in.ID,
			Timestamp: in.Timestamp,
			SessionID: in.SessionID,
			Kind:      in.Kind,
			Payload:   in.Message,
			Provenance: domain.Provenance{
				UploaderID:  p.UploaderID,
				Hostname:    p.Hostname,
				ProjectName: p.ProjectName,
				SourceFile:  path,
				BatchID:     p.BatchID,
				UploadedAt:  uploadedAt,
			},
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log file %s: %w", path, err)
	}

	return records, nil
}

// ParseAll parses every file in order and concatenates the results.
func (p *Parser) ParseAll(paths []string) ([]domain.Record, error) {
	var all []domain.Record
	for _, path := range paths {
		records, err := p.ParseFile(path)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}
	return all, nil
}
