package kiosksim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/okian/facepunch/internal/domain/types"
)

// HTTPClient talks to the attendance API.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// get performs a GET request and decodes a JSON body into out when out is non-nil.
func (c *HTTPClient) get(ctx context.Context, path string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out)
}

// post sends body as JSON and decodes the response into out.
func (c *HTTPClient) post(ctx context.Context, path string, body, out any) (int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *HTTPClient) do(req *http.Request, out any) (int, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	if out != nil && len(body) > 0 && json.Valid(body) {
		_ = json.Unmarshal(body, out)
	}
	return resp.StatusCode, nil
}

// Health checks /healthz.
func (c *HTTPClient) Health(ctx context.Context) error {
	status, err := c.get(ctx, "/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if status != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", status)
	}
	return nil
}

// Enroll submits an enrollment and returns the HTTP status.
func (c *HTTPClient) Enroll(ctx context.Context, p Persona, frames []types.Frame) (int, error) {
	return c.post(ctx, "/users", types.EnrollRequest{
		UserID:     p.UserID,
		Name:       p.Name,
		Department: p.Department,
		Frames:     frames,
	}, nil)
}

// Punch runs a session for action and returns the HTTP status and outcome.
func (c *HTTPClient) Punch(ctx context.Context, action string, frames []types.Frame) (int, types.Outcome, error) {
	var out types.Outcome
	status, err := c.post(ctx, "/attendance/"+url.PathEscape(action), types.SessionRequest{Frames: frames}, &out)
	return status, out, err
}

// Report fetches the attendance report, optionally for one user.
func (c *HTTPClient) Report(ctx context.Context, userID string) ([]types.Record, error) {
	path := "/attendance"
	if userID != "" {
		path += "?user_id=" + url.QueryEscape(userID)
	}
	var recs []types.Record
	status, err := c.get(ctx, path, &recs)
	if err != nil {
		return nil, err
	}
	if status != StatusOK {
		return nil, fmt.Errorf("report failed with status: %d", status)
	}
	return recs, nil
}
