package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/pcmatch/internal/adapters/repository"
	"github.com/okian/pcmatch/internal/domain/model"
)

// Sentinel kinds for client errors.
var (
	ErrRejected = errors.New("submission rejected")
	ErrStatus   = errors.New("unexpected status")
)

// SubmitResponse mirrors the body of POST /solves.
type SubmitResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Client talks to the pcmatch HTTP API.
type Client struct {
	client  *http.Client
	baseURL string
}

// NewClient creates a client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type submitRequest struct {
	Round    model.Round    `json:"round"`
	Snapshot model.Snapshot `json:"snapshot"`
}

// Submit queues a solve. A 429 is reported as ErrRejected.
func (c *Client) Submit(ctx context.Context, key string, round model.Round, snap model.Snapshot) (SubmitResponse, error) { //nolint:gocritic // hugeParam: snapshot is serialized once
	var out SubmitResponse
	body, err := json.Marshal(submitRequest{Round: round, Snapshot: snap})
	if err != nil {
		return out, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/solves", bytes.NewReader(body))
	if err != nil {
		return out, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return out, fmt.Errorf("submit: %w", err)
	}
	data, err := readResponseBody(resp)
	if err != nil {
		return out, err
	}

	switch resp.StatusCode {
	case http.StatusAccepted, http.StatusOK:
		if err := json.Unmarshal(data, &out); err != nil {
			return out, fmt.Errorf("decode submit response: %w", err)
		}
		return out, nil
	case http.StatusTooManyRequests:
		return out, fmt.Errorf("%w: %s", ErrRejected, strings.TrimSpace(string(data)))
	default:
		return out, fmt.Errorf("%w %d: %s", ErrStatus, resp.StatusCode, strings.TrimSpace(string(data)))
	}
}

// Get fetches one solve record.
func (c *Client) Get(ctx context.Context, id string) (repository.Record, error) {
	var rec repository.Record
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/solves/"+id, http.NoBody)
	if err != nil {
		return rec, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return rec, fmt.Errorf("get solve: %w", err)
	}
	data, err := readResponseBody(resp)
	if err != nil {
		return rec, err
	}
	if resp.StatusCode != http.StatusOK {
		return rec, fmt.Errorf("%w %d: %s", ErrStatus, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("decode solve: %w", err)
	}
	return rec, nil
}

// Wait polls a solve until it reaches a terminal status or ctx ends.
func (c *Client) Wait(ctx context.Context, id string, interval time.Duration) (repository.Record, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		rec, err := c.Get(ctx, id)
		if err != nil {
			return rec, err
		}
		if rec.Status.Terminal() {
			return rec, nil
		}
		select {
		case <-ctx.Done():
			return rec, fmt.Errorf("wait for solve %s: %w", id, ctx.Err())
		case <-ticker.C:
		}
	}
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return data, nil
}
