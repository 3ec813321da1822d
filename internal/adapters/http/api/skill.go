package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/okian/xianxia/internal/domain/dedupe"
	"github.com/okian/xianxia/internal/domain/model"
	"github.com/okian/xianxia/internal/domain/types"
	"github.com/okian/xianxia/pkg/metrics"
)

// SkillDependencies defines what the skill endpoint needs.
type SkillDependencies interface {
	dedupe.Deduper
	SelectSkill(ctx context.Context, id model.SkillID) error
}

// SkillHandler handles player choices.
type SkillHandler struct {
	deps SkillDependencies

	mu       sync.Mutex
	inflight map[string]*attempt
}

// attempt is a choice being applied; done closes once err is final.
type attempt struct {
	done chan struct{}
	err  error
}

// NewSkillHandler creates a new skill handler.
func NewSkillHandler(deps SkillDependencies) *SkillHandler {
	return &SkillHandler{deps: deps, inflight: make(map[string]*attempt)}
}

// claim returns a new attempt when id is first seen, or the attempt still
// applying it. Both are nil for an id applied earlier.
func (h *SkillHandler) claim(ctx context.Context, id string) (own, pending *attempt) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if a, ok := h.inflight[id]; ok {
		return nil, a
	}
	if h.deps.SeenAndRecord(ctx, id) {
		return nil, nil
	}
	a := &attempt{done: make(chan struct{})}
	h.inflight[id] = a
	return a, nil
}

func (h *SkillHandler) settle(ctx context.Context, id string, a *attempt, err error) {
	h.mu.Lock()
	if err != nil {
		// The choice was not applied, so the same request id may be retried.
		h.deps.Unrecord(ctx, id)
	}
	a.err = err
	delete(h.inflight, id)
	h.mu.Unlock()
	close(a.done)
}

func validateChoice(c types.SkillChoice) error {
	switch {
	case strings.TrimSpace(c.RequestID) == "":
		return errors.New("missing request_id")
	case strings.TrimSpace(c.SkillID) == "":
		return errors.New("missing skill_id")
	}
	return nil
}

// HandlePostSkill handles POST /battle/skill requests. A request id is
// applied at most once; a replay is acknowledged as a duplicate. A replay that
// arrives while the first copy is still being applied waits for it and
// shares its failure.
func (h *SkillHandler) HandlePostSkill(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_skill"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req types.SkillChoice
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := validateChoice(req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	own, pending := h.claim(r.Context(), req.RequestID)
	if pending != nil {
		select {
		case <-pending.done:
		case <-r.Context().Done():
			writeFailure(w, Wrap(op, r.Context().Err()))
			return
		}
		if pending.err != nil {
			writeFailure(w, Wrap(op, pending.err))
			return
		}
	}
	if own == nil {
		metrics.RecordDuplicateChoice()
		writeJSON(w, http.StatusOK, types.ChoiceAck{RequestID: req.RequestID, Duplicate: true})
		return
	}

	err := h.deps.SelectSkill(r.Context(), model.SkillID(req.SkillID))
	h.settle(r.Context(), req.RequestID, own, err)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusAccepted, types.ChoiceAck{RequestID: req.RequestID})
}
