package api

import (
	"context"
	"net/http"

	"github.com/okian/xianxia/internal/domain/model"
	"github.com/okian/xianxia/internal/domain/types"
)

// ParticipantDependencies defines what the participant endpoint needs.
type ParticipantDependencies interface {
	Participant(ctx context.Context, id model.ParticipantID) (model.Participant, error)
}

// ParticipantHandler serves the live state of one combatant.
type ParticipantHandler struct {
	deps ParticipantDependencies
}

// NewParticipantHandler creates a new participant handler.
func NewParticipantHandler(deps ParticipantDependencies) *ParticipantHandler {
	return &ParticipantHandler{deps: deps}
}

// HandleGetParticipant handles GET /battle/participants/{id} requests.
func (h *ParticipantHandler) HandleGetParticipant(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_participant"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id, ok := pathID(r, "/battle/participants/")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	p, err := h.deps.Participant(r.Context(), model.ParticipantID(id))
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.FromParticipant(p))
}
