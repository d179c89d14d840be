package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrNotFound is returned when the query API has no record for an id.
var ErrNotFound = errors.New("not found")

// Config holds client configuration.
type Config struct {
	IngestionURL string
	QueryURL     string
	PollInterval time.Duration
}

// IngestRequest represents a request to the ingestion API.
type IngestRequest struct {
	EventType   string     `json:"event_type"`
	AggregateID string     `json:"aggregate_id"`
	OccurredAt  *time.Time `json:"occurred_at,omitempty"`
	Payload     any        `json:"payload"`
}

// IngestResponse represents the response from the ingestion API.
type IngestResponse struct {
	EventID string `json:"event_id"`
	Status  string `json:"status"`
}

// EventRecord represents an event record from the query API.
type EventRecord struct {
	ID          string          `json:"id"`
	AggregateID string          `json:"aggregate_id"`
	EventType   string          `json:"event_type"`
	Payload     json.RawMessage `json:"payload"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Processed   bool            `json:"processed"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
	RetryCount  int             `json:"retry_count"`
	State       string          `json:"state"`
}

// RecordList represents a page of event records from the query API.
type RecordList struct {
	Records []EventRecord `json:"records"`
	Total   int           `json:"total"`
	Limit   int           `json:"limit"`
	Offset  int           `json:"offset"`
}

// ErrorResponse represents an error response from the API.
type ErrorResponse struct {
	Error string `json:"error"`
}

// UniqueID generates a unique ID for test isolation.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

// IngestEvent posts an event to the ingestion API.
func IngestEvent(ctx context.Context, cfg *Config, req *IngestRequest) (*IngestResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.IngestionURL+"/api/v1/events", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var ingestResp IngestResponse
	if err := do(httpReq, http.StatusAccepted, &ingestResp); err != nil {
		return nil, err
	}
	return &ingestResp, nil
}

// GetRecord retrieves an event record from the query API.
func GetRecord(ctx context.Context, cfg *Config, id string) (*EventRecord, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.QueryURL+"/api/v1/events/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var record EventRecord
	if err := do(httpReq, http.StatusOK, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListRecords retrieves a page of event records, optionally filtered by state.
func ListRecords(ctx context.Context, cfg *Config, state string, limit, offset int) (*RecordList, error) {
	q := url.Values{}
	if state != "" {
		q.Set("state", state)
	}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.QueryURL+"/api/v1/events?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var list RecordList
	if err := do(httpReq, http.StatusOK, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// WaitForState polls the query API until the record reaches state or ctx
// expires.
func WaitForState(ctx context.Context, cfg *Config, id, state string) (*EventRecord, error) {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last *EventRecord
	for {
		record, err := GetRecord(ctx, cfg, id)
		if err != nil {
			return nil, err
		}
		if record.State == state {
			return record, nil
		}
		last = record

		select {
		case <-ctx.Done():
			return last, fmt.Errorf("timeout waiting for record %s to be %s (last state %s, retries %d): %w",
				id, state, last.State, last.RetryCount, ctx.Err())
		case <-ticker.C:
		}
	}
}

// CheckHealth checks the health endpoint of a service.
func CheckHealth(ctx context.Context, url string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status %d", resp.StatusCode)
	}

	return nil
}

// do sends req and decodes a response with status want into v.
func do(req *http.Request, want int, v any) error {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != want {
		var errResp ErrorResponse
		_ = json.Unmarshal(respBody, &errResp)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, errResp.Error)
	}

	if err := json.Unmarshal(respBody, v); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
