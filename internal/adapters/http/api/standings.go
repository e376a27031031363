package api

import (
	"context"
	"net/http"
)

// StandingDependencies defines the interface for per-user standing lookups.
type StandingDependencies interface {
	Standing(ctx context.Context, eventID, userID string) (Entry, error)
}

// StandingHandler handles standing requests.
type StandingHandler struct {
	deps StandingDependencies
}

// NewStandingHandler creates a new standing handler.
func NewStandingHandler(deps StandingDependencies) *StandingHandler {
	return &StandingHandler{deps: deps}
}

// HandleGetStanding handles GET /events/{eventID}/standings/{userID} requests.
func (h *StandingHandler) HandleGetStanding(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_standing"
	entry, err := h.deps.Standing(r.Context(), r.PathValue("eventID"), r.PathValue("userID"))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
