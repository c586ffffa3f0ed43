package health

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const DefaultFailureThreshold = 3

// Monitor counts consecutive probe failures and fires callbacks on state
// transitions. Crossing the threshold fires OnUnhealthy exactly once; the
// alert does not repeat while the target stays down, and OnRecovered fires
// once when probes succeed again.
type Monitor struct {
	checker   *Checker
	url       string
	threshold int
	logger    zerolog.Logger

	OnUnhealthy func(consecutiveFailures int, last Result)
	OnRecovered func(last Result)

	failures int
	alerted  bool
}

func NewMonitor(checker *Checker, url string, threshold int, logger zerolog.Logger) *Monitor {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	return &Monitor{
		checker:   checker,
		url:       url,
		threshold: threshold,
		logger:    logger,
	}
}

// Observe feeds one probe result into the failure counter and returns true if
// the unhealthy alert fired for this observation.
func (m *Monitor) Observe(res Result) bool {
	if res.OK {
		if m.alerted && m.OnRecovered != nil {
			m.OnRecovered(res)
		}
		m.failures = 0
		m.alerted = false
		return false
	}

	m.failures++
	if m.failures >= m.threshold && !m.alerted {
		m.alerted = true
		if m.OnUnhealthy != nil {
			m.OnUnhealthy(m.failures, res)
		}
		return true
	}
	return false
}

// Failures returns the current consecutive-failure count.
func (m *Monitor) Failures() int {
	return m.failures
}

// Run probes the target on the given interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			res := m.checker.Check(ctx, m.url)
			fired := m.Observe(res)
			ev := m.logger.Info()
			if !res.OK {
				ev = m.logger.Warn()
			}
			ev.Str("url", m.url).
				Bool("ok", res.OK).
				Int("consecutive_failures", m.failures).
				Bool("alert_fired", fired).
				Msg("health probe")
		}
	}
}
