package model

import "time"

// HealthSample is one poll of the application's detailed health endpoint.
// Samples are consumed immediately by threshold checks and are not persisted.
type HealthSample struct {
	Timestamp        time.Time `json:"timestamp"`
	HTTPStatus       int       `json:"http_status"`
	ErrorRatePercent float64   `json:"error_rate"`
	LatencyP95Ms     float64   `json:"latency_p95"`
}

// Breached reports whether the sample exceeds either rollout threshold.
func (s HealthSample) Breached() bool {
	return s.ErrorRatePercent > MaxErrorRatePercent || s.LatencyP95Ms > MaxLatencyP95Ms
}
