package ctl

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog"

	"github.com/yukyudata/deployops/internal/health"
	"github.com/yukyudata/deployops/internal/smoke"
)

func consoleLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

// Smoke runs the post-deployment check suite directly against a host and
// reports pass/fail counts. Returns an error when any check failed so the
// exit code mirrors the suite result.
func Smoke(ctx context.Context, host string) error {
	runner := smoke.NewRunner(consoleLogger())
	report := runner.Run(ctx, host)

	fmt.Printf("Smoke tests: %d passed, %d failed\n", report.Passed, report.Failed)
	for _, c := range report.Checks {
		mark := "ok"
		if !c.Passed {
			mark = "FAIL"
		}
		fmt.Printf("  [%-4s] %-40s %s\n", mark, c.Name, c.Detail)
	}

	if !report.OK() {
		return fmt.Errorf("%d smoke check(s) failed", report.Failed)
	}
	return nil
}

// Watch probes a host's health endpoint on an interval with edge-triggered
// alerting: crossing the consecutive-failure threshold fires the alert
// command once, and recovery is announced once.
func Watch(ctx context.Context, host string, interval time.Duration, threshold int, alertCmd string) error {
	logger := consoleLogger()
	checker := health.NewChecker(10 * time.Second)
	monitor := health.NewMonitor(checker, host+"/api/health", threshold, logger)

	monitor.OnUnhealthy = func(failures int, last health.Result) {
		logger.Error().
			Int("consecutive_failures", failures).
			Str("detail", last.Detail).
			Msg("target unhealthy")
		if alertCmd != "" {
			cmd := exec.CommandContext(ctx, "sh", "-c", alertCmd)
			cmd.Stdout = os.Stderr
			cmd.Stderr = os.Stderr
			if err := cmd.Run(); err != nil {
				logger.Error().Err(err).Msg("alert command failed")
			}
		}
	}
	monitor.OnRecovered = func(last health.Result) {
		logger.Info().Str("status", last.Status).Msg("target recovered")
	}

	return monitor.Run(ctx, interval)
}
