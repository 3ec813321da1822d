package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/xianxia/internal/adapters/repository"
)

const (
	defaultLimit    = 10
	defaultMaxLimit = 100
)

// BattlesDependencies defines what the battle history endpoints need.
type BattlesDependencies interface {
	Battle(ctx context.Context, stateID string) (repository.Record, error)
	RecentBattles(ctx context.Context, n int) ([]repository.Record, error)
}

// BattlesHandler serves finished battles.
type BattlesHandler struct {
	deps     BattlesDependencies
	maxLimit int
}

// NewBattlesHandler creates a new battles handler.
func NewBattlesHandler(deps BattlesDependencies, maxLimit int) *BattlesHandler {
	return &BattlesHandler{deps: deps, maxLimit: maxLimit}
}

// HandleListBattles handles GET /battles?limit=N requests, newest first.
func (h *BattlesHandler) HandleListBattles(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_battles"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n := defaultLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		var err error
		n, err = strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}
	records, err := h.deps.RecentBattles(r.Context(), n)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// HandleGetBattle handles GET /battles/{state_id} requests.
func (h *BattlesHandler) HandleGetBattle(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_battle"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id, ok := pathID(r, "/battles/")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	rec, err := h.deps.Battle(r.Context(), id)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
