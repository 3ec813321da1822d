package api

import (
	"context"
	"net/http"

	"github.com/okian/xianxia/internal/domain/types"
)

// TimelineDependencies defines what the timeline endpoint needs.
type TimelineDependencies interface {
	Timeline(ctx context.Context) (types.Timeline, bool)
}

// TimelineHandler serves the latest timeline update.
type TimelineHandler struct {
	deps TimelineDependencies
}

// NewTimelineHandler creates a new timeline handler.
func NewTimelineHandler(deps TimelineDependencies) *TimelineHandler {
	return &TimelineHandler{deps: deps}
}

// HandleGetTimeline handles GET /battle/timeline requests.
func (h *TimelineHandler) HandleGetTimeline(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_timeline"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	tl, ok := h.deps.Timeline(r.Context())
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", NewKind(op, ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, tl)
}
