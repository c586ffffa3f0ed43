package activity

import (
	"context"
	"fmt"

	"github.com/yukyudata/deployops/internal/model"
	"github.com/yukyudata/deployops/internal/slot"
)

// Slot contains activities for the active-color tracker.
type Slot struct {
	store slot.Store
}

// NewSlot creates a new Slot activity struct.
func NewSlot(s slot.Store) *Slot {
	return &Slot{store: s}
}

// GetActiveSlotResult holds the result of GetActiveSlot.
type GetActiveSlotResult struct {
	Active string `json:"active"`
	Target string `json:"target"`
}

// GetActiveSlot reads the currently active color and derives the deployment
// target as its opposite.
func (a *Slot) GetActiveSlot(ctx context.Context) (*GetActiveSlotResult, error) {
	active, err := a.store.Active(ctx)
	if err != nil {
		return nil, fmt.Errorf("get active slot: %w", err)
	}
	return &GetActiveSlotResult{Active: string(active), Target: string(active.Next())}, nil
}

// SetActiveSlotParams holds parameters for SetActiveSlot.
type SetActiveSlotParams struct {
	Color string `json:"color"`
}

// SetActiveSlot atomically records the new active color.
func (a *Slot) SetActiveSlot(ctx context.Context, params SetActiveSlotParams) error {
	c, err := model.ParseColor(params.Color)
	if err != nil {
		return fmt.Errorf("set active slot: %w", err)
	}
	if err := a.store.SetActive(ctx, c); err != nil {
		return fmt.Errorf("set active slot: %w", err)
	}
	return nil
}
