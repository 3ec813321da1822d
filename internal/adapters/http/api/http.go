// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/xianxia/internal/adapters/repository"
	"github.com/okian/xianxia/internal/domain/catalog"
	"github.com/okian/xianxia/internal/domain/dedupe"
	"github.com/okian/xianxia/internal/domain/model"
	"github.com/okian/xianxia/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper
	StatsProvider

	// SelectSkill answers the open player choice. It fails with ErrNoChoice
	// when the player is not choosing.
	SelectSkill(ctx context.Context, id model.SkillID) error

	// Timeline returns the latest timeline view, false before any battle.
	Timeline(ctx context.Context) (types.Timeline, bool)
	Participant(ctx context.Context, id model.ParticipantID) (model.Participant, error)

	Battle(ctx context.Context, stateID string) (repository.Record, error)
	RecentBattles(ctx context.Context, n int) ([]repository.Record, error)
}

// Server wires HTTP routes for the battle API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	skillHandler       *SkillHandler
	timelineHandler    *TimelineHandler
	participantHandler *ParticipantHandler
	battlesHandler     *BattlesHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		skillHandler:       NewSkillHandler(deps),
		timelineHandler:    NewTimelineHandler(deps),
		participantHandler: NewParticipantHandler(deps),
		battlesHandler:     NewBattlesHandler(deps, defaultMaxLimit),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/battle/skill", MetricsMiddleware(s.skillHandler.HandlePostSkill, "battle_skill"))
	mux.HandleFunc("/battle/timeline", MetricsMiddleware(s.timelineHandler.HandleGetTimeline, "battle_timeline"))
	mux.HandleFunc("/battle/participants/", MetricsMiddleware(s.participantHandler.HandleGetParticipant, "battle_participant"))
	mux.HandleFunc("/battles", MetricsMiddleware(s.battlesHandler.HandleListBattles, "battles"))
	mux.HandleFunc("/battles/", MetricsMiddleware(s.battlesHandler.HandleGetBattle, "battle"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps an upstream error onto a status and code.
func writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, catalog.ErrUnknownSkill):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case isNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, ErrNoChoice):
		writeError(w, http.StatusConflict, "no_choice_pending", err)
	case errors.Is(err, ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, repository.ErrNotFound) ||
		errors.Is(err, catalog.ErrUnknownCharacter)
}

// pathID returns the single path segment after prefix.
func pathID(r *http.Request, prefix string) (string, bool) {
	id := strings.TrimPrefix(r.URL.Path, prefix)
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
