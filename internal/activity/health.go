package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"go.temporal.io/sdk/temporal"

	"github.com/yukyudata/deployops/internal/health"
	"github.com/yukyudata/deployops/internal/metricsource"
)

// Health contains activities that probe application health and read
// production metrics.
type Health struct {
	checker *health.Checker
	metrics metricsource.Source
}

// NewHealth creates a new Health activity struct.
func NewHealth(checker *health.Checker, metrics metricsource.Source) *Health {
	return &Health{checker: checker, metrics: metrics}
}

// CheckHealthParams holds parameters for CheckHealth.
type CheckHealthParams struct {
	URL string `json:"url"`
}

// CheckHealthResult holds the outcome of one probe.
type CheckHealthResult struct {
	OK         bool   `json:"ok"`
	HTTPStatus int    `json:"http_status"`
	Status     string `json:"status"`
	Detail     string `json:"detail,omitempty"`
}

// CheckHealth performs a single probe of the health endpoint. The probe
// result is data, not an error: an unhealthy app returns OK=false.
func (a *Health) CheckHealth(ctx context.Context, params CheckHealthParams) (*CheckHealthResult, error) {
	res := a.checker.Check(ctx, params.URL)
	return &CheckHealthResult{OK: res.OK, HTTPStatus: res.HTTPStatus, Status: res.Status, Detail: res.Detail}, nil
}

// WaitHealthyParams holds parameters for WaitForHealthy.
type WaitHealthyParams struct {
	URL      string        `json:"url"`
	Attempts int           `json:"attempts"`
	Interval time.Duration `json:"interval"`
}

// WaitForHealthy probes the health endpoint until it answers healthy or the
// attempt budget runs out. The budget exhausting is non-retryable: the
// calling workflow decides what failure means, not the Temporal retry policy.
func (a *Health) WaitForHealthy(ctx context.Context, params WaitHealthyParams) error {
	attempts := params.Attempts
	if attempts <= 0 {
		attempts = 10
	}
	interval := params.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewConstant(interval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		res := a.checker.Check(ctx, params.URL)
		if res.OK {
			return nil
		}
		return retry.RetryableError(fmt.Errorf("unhealthy: status=%d detail=%s", res.HTTPStatus, res.Detail))
	})
	if err != nil {
		return temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("app not healthy after %d attempts", attempts), "UNHEALTHY", err)
	}
	return nil
}

// GetMetricsResult holds one production metrics sample.
type GetMetricsResult struct {
	ErrorRatePercent float64 `json:"error_rate"`
	LatencyP95Ms     float64 `json:"latency_p95"`
}

// GetMetrics samples the production error rate and p95 latency.
func (a *Health) GetMetrics(ctx context.Context) (*GetMetricsResult, error) {
	sample, err := a.metrics.Sample(ctx)
	if err != nil {
		return nil, fmt.Errorf("sample metrics: %w", err)
	}
	return &GetMetricsResult{
		ErrorRatePercent: sample.ErrorRatePercent,
		LatencyP95Ms:     sample.LatencyP95Ms,
	}, nil
}

// VerifyIntegrityParams holds parameters for VerifyIntegrity.
type VerifyIntegrityParams struct {
	URL string `json:"url"`
}

// VerifyIntegrity confirms the application can serve data from the restored
// database. A database-backed endpoint answering 200 is the acceptance bar;
// anything else fails the rollback.
func (a *Health) VerifyIntegrity(ctx context.Context, params VerifyIntegrityParams) error {
	res := a.checker.Check(ctx, params.URL)
	if !res.OK {
		return temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("integrity check failed: status=%d detail=%s", res.HTTPStatus, res.Detail),
			"INTEGRITY", nil)
	}
	return nil
}
