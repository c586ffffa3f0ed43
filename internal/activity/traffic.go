package activity

import (
	"context"
	"fmt"

	"github.com/yukyudata/deployops/internal/metrics"
	"github.com/yukyudata/deployops/internal/model"
	"github.com/yukyudata/deployops/internal/traffic"
)

// Traffic contains activities that reconfigure the front proxy.
type Traffic struct {
	router traffic.Router
}

// NewTraffic creates a new Traffic activity struct.
func NewTraffic(r traffic.Router) *Traffic {
	return &Traffic{router: r}
}

// SwitchTrafficParams holds parameters for SwitchTraffic.
type SwitchTrafficParams struct {
	Color string `json:"color"`
}

// SwitchTraffic points all production traffic at one slot.
func (a *Traffic) SwitchTraffic(ctx context.Context, params SwitchTrafficParams) error {
	c, err := model.ParseColor(params.Color)
	if err != nil {
		return fmt.Errorf("switch traffic: %w", err)
	}
	if err := a.router.SwitchTo(ctx, c); err != nil {
		return fmt.Errorf("switch traffic to %s: %w", c, err)
	}
	return nil
}

// SetCanaryWeightParams holds parameters for SetCanaryWeight.
type SetCanaryWeightParams struct {
	Active  string `json:"active"`
	Canary  string `json:"canary"`
	Percent int    `json:"percent"`
}

// SetCanaryWeight splits traffic between the active slot and the canary.
// Percent 0 reverts fully to the active slot; 100 promotes the canary.
func (a *Traffic) SetCanaryWeight(ctx context.Context, params SetCanaryWeightParams) error {
	active, err := model.ParseColor(params.Active)
	if err != nil {
		return fmt.Errorf("set canary weight: %w", err)
	}
	canary, err := model.ParseColor(params.Canary)
	if err != nil {
		return fmt.Errorf("set canary weight: %w", err)
	}
	if err := a.router.SetWeight(ctx, active, canary, params.Percent); err != nil {
		return fmt.Errorf("set canary weight %d%%: %w", params.Percent, err)
	}
	// Staged rollouts only ever set 0% to back out of a breach.
	if params.Percent == 0 {
		metrics.CanaryReverts.Inc()
	}
	return nil
}
