package model

import "time"

// CanaryPhase is one step of a progressive rollout: shift Percentage of
// traffic to the canary, then observe for Wait before judging the phase.
type CanaryPhase struct {
	Percentage int           `json:"percentage"`
	Wait       time.Duration `json:"wait"`
}

// CanaryPhases is the fixed rollout ladder. The final 100% phase is terminal
// and has no observation window.
var CanaryPhases = []CanaryPhase{
	{Percentage: 10, Wait: 600 * time.Second},
	{Percentage: 25, Wait: 900 * time.Second},
	{Percentage: 50, Wait: 1200 * time.Second},
	{Percentage: 100, Wait: 0},
}

// Rollout health thresholds. A phase is breached when either is exceeded.
const (
	MaxErrorRatePercent = 1.0
	MaxLatencyP95Ms     = 250.0
)
