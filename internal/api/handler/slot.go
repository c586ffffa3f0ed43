package handler

import (
	"net/http"

	"github.com/yukyudata/deployops/internal/api/response"
	"github.com/yukyudata/deployops/internal/model"
	"github.com/yukyudata/deployops/internal/slot"
)

// Slot exposes the active blue/green slot state.
type Slot struct {
	store slot.Store
}

func NewSlot(s slot.Store) *Slot {
	return &Slot{store: s}
}

// Get reports the active color, its port, and the idle target slot.
func (h *Slot) Get(w http.ResponseWriter, r *http.Request) {
	active, err := h.store.Active(r.Context())
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]any{
		"active":      string(active),
		"active_port": model.SlotPort(active),
		"target":      string(active.Next()),
		"target_port": model.SlotPort(active.Next()),
	})
}
