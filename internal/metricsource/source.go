// Package metricsource abstracts where rollout health metrics come from.
// The legacy canary script hardcoded its sample values; here the source is
// injectable so production wires the application's detailed health endpoint
// while tests and dev environments use a static source.
package metricsource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/yukyudata/deployops/internal/model"
)

// Source produces one health sample per call.
type Source interface {
	Sample(ctx context.Context) (model.HealthSample, error)
}

// HTTPSource samples GET <baseURL>/api/health/detailed, which exposes the
// application's rolling error rate and p95 latency.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSource{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSource) Sample(ctx context.Context) (model.HealthSample, error) {
	url := s.baseURL + "/api/health/detailed"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.HealthSample{}, fmt.Errorf("build metrics request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return model.HealthSample{}, fmt.Errorf("fetch metrics from %s: %w", url, err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return model.HealthSample{}, fmt.Errorf("metrics endpoint returned %d", resp.StatusCode)
	}

	var body struct {
		ErrorRate  float64 `json:"error_rate"`
		LatencyP95 float64 `json:"latency_p95"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return model.HealthSample{}, fmt.Errorf("decode metrics body: %w", err)
	}

	return model.HealthSample{
		Timestamp:        time.Now(),
		HTTPStatus:       resp.StatusCode,
		ErrorRatePercent: body.ErrorRate,
		LatencyP95Ms:     body.LatencyP95,
	}, nil
}

// Static always returns the same sample. Useful for dev environments without
// a metrics pipeline and as a drop-in for tests.
type Static struct {
	ErrorRatePercent float64
	LatencyP95Ms     float64
}

func (s Static) Sample(ctx context.Context) (model.HealthSample, error) {
	return model.HealthSample{
		Timestamp:        time.Now(),
		HTTPStatus:       http.StatusOK,
		ErrorRatePercent: s.ErrorRatePercent,
		LatencyP95Ms:     s.LatencyP95Ms,
	}, nil
}
