// Package health probes the application health endpoint and tracks
// consecutive failures with edge-triggered alerting.
package health

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// Result is the outcome of a single health probe. Probe failures never
// surface as errors: connection problems, non-200 statuses, and malformed
// bodies all collapse to OK=false so callers have a single branch to test.
type Result struct {
	OK         bool   `json:"ok"`
	HTTPStatus int    `json:"http_status"`
	Status     string `json:"status"`
	Detail     string `json:"detail,omitempty"`
}

// Checker performs bounded-timeout health probes.
type Checker struct {
	client *http.Client
}

func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Checker{client: &http.Client{Timeout: timeout}}
}

// Check fetches url and requires HTTP 200 plus a JSON body containing a
// "status" field.
func (c *Checker) Check(ctx context.Context, url string) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{Detail: err.Error()}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{Detail: err.Error()}
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Result{HTTPStatus: resp.StatusCode, Detail: "unexpected status"}
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Result{HTTPStatus: resp.StatusCode, Detail: "malformed health body: " + err.Error()}
	}
	if body.Status == "" {
		return Result{HTTPStatus: resp.StatusCode, Detail: "health body missing status field"}
	}

	return Result{OK: true, HTTPStatus: resp.StatusCode, Status: body.Status}
}
