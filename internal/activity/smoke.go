package activity

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/yukyudata/deployops/internal/smoke"
)

// Smoke contains the post-deployment smoke test activity.
type Smoke struct {
	runner *smoke.Runner
}

// NewSmoke creates a new Smoke activity struct.
func NewSmoke(logger zerolog.Logger) *Smoke {
	return &Smoke{runner: smoke.NewRunner(logger)}
}

// RunSmokeTestsParams holds parameters for RunSmokeTests.
type RunSmokeTestsParams struct {
	Host string `json:"host"`
}

// RunSmokeTestsResult is the full smoke report. OK mirrors Failed == 0 so
// workflows do not re-derive it.
type RunSmokeTestsResult struct {
	OK     bool                `json:"ok"`
	Passed int                 `json:"passed"`
	Failed int                 `json:"failed"`
	Checks []smoke.CheckResult `json:"checks"`
}

// RunSmokeTests runs the whole suite against the target host. A failing
// check is data in the report, never an activity error, so one broken
// endpoint cannot hide the rest of the results.
func (a *Smoke) RunSmokeTests(ctx context.Context, params RunSmokeTestsParams) (*RunSmokeTestsResult, error) {
	report := a.runner.Run(ctx, params.Host)
	return &RunSmokeTestsResult{
		OK:     report.OK(),
		Passed: report.Passed,
		Failed: report.Failed,
		Checks: report.Checks,
	}, nil
}
