package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPConfig holds settings for the HTTP streaming-insert sink.
type HTTPConfig struct {
	Endpoint   string `yaml:"endpoint"`
	Token      string `yaml:"token"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// HTTPSink inserts rows through an insertAll-style JSON API. Error responses
// keep the status code and body in the error message so the upload engine can
// classify them (413, 429, 503, ...).
type HTTPSink struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

// NewHTTPSink creates a sink with its own connection pool. Each call builds a
// fresh transport, so a factory handing out new sinks also hands out new
// connections.
func NewHTTPSink(cfg HTTPConfig) *HTTPSink {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &HTTPSink{
		endpoint: cfg.Endpoint,
		token:    cfg.Token,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Insert posts the rows to the destination table.
func (s *HTTPSink) Insert(
	ctx context.Context,
	dest Destination,
	rows []Row,
) (*InsertOutcome, error) {
	reqBody := struct {
		Rows []Row `json:"rows"`
	}{Rows: rows}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal insert request: %w", err)
	}

	url := fmt.Sprintf(
		"%s/v1/datasets/%s/tables/%s/insertAll",
		s.endpoint, dest.Dataset, dest.Table,
	)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("insert call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Classification happens on this message upstream; status code and
		// body text must survive intact.
		return nil, fmt.Errorf("http %d %s: %s",
			resp.StatusCode, http.StatusText(resp.StatusCode), string(body))
	}

	var outcome InsertOutcome
	if err := json.Unmarshal(body, &outcome); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	return &outcome, nil
}

// HTTPFactory creates HTTP sinks on demand.
type HTTPFactory struct {
	cfg HTTPConfig
}

// NewHTTPFactory returns a factory producing HTTP sinks for the given config.
func NewHTTPFactory(cfg HTTPConfig) *HTTPFactory {
	return &HTTPFactory{cfg: cfg}
}

// Create returns a new sink backed by a fresh connection pool.
func (f *HTTPFactory) Create(ctx context.Context) (Sink, error) {
	return NewHTTPSink(f.cfg), nil
}
