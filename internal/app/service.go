// Package service wires the battle engine together: it owns the bus, the
// catalog and the battle store, runs battles and implements the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/okian/xianxia/internal/adapters/http/api"
	"github.com/okian/xianxia/internal/adapters/mq/bus"
	"github.com/okian/xianxia/internal/adapters/repository"
	"github.com/okian/xianxia/internal/config"
	"github.com/okian/xianxia/internal/domain/catalog"
	"github.com/okian/xianxia/internal/domain/dedupe"
	"github.com/okian/xianxia/internal/domain/event"
	"github.com/okian/xianxia/internal/domain/model"
	"github.com/okian/xianxia/internal/domain/types"
	"github.com/okian/xianxia/pkg/logger"
	"github.com/okian/xianxia/pkg/metrics"
)

// Service runs one battle at a time on its bus and keeps the views the HTTP
// API serves.
type Service struct {
	cfg      *config.Config
	bus      *bus.Bus
	client   *bus.Client
	catalog  *catalog.Catalog
	store    repository.Store
	deduper  dedupe.Deduper
	provider *Provider
	playerID model.ParticipantID

	dedupeSize int
	logger     logger.Logger

	running atomic.Bool

	mu       sync.RWMutex
	timeline *types.Timeline
	pending  *model.Participant
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig sets the engine configuration. A nil config keeps the defaults.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithBus attaches the service to an existing bus.
func WithBus(b *bus.Bus) Option {
	return func(s *Service) {
		if b != nil {
			s.bus = b
		}
	}
}

// WithCatalog sets the skill and character catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Service) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithStore sets the battle store.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithDedupeSize sets how many HTTP choice request ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Missing collaborators are created from the
// configuration: a fresh bus, the built-in catalog and an in-memory store.
func New(opts ...Option) *Service {
	s := &Service{
		cfg:    config.New(),
		logger: logger.Get().Named("app"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.dedupeSize == 0 {
		s.dedupeSize = s.cfg.DedupeSize
	}
	if s.bus == nil {
		s.bus = bus.New(bus.WithLogger(s.logger.Named("bus")))
	}
	if s.catalog == nil {
		s.catalog = catalog.Default()
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.playerID = model.ParticipantID(s.cfg.PlayerID)
	s.client = s.bus.NewClient()
	s.provider = NewProvider(s.bus, s.store, WithProviderLogger(s.logger.Named("provider")))

	bus.On(s.client, s.onTimeline)
	bus.On(s.client, s.onNextActor)
	bus.On(s.client, func(event.UserSelectSkill) { s.setPending(nil) })
	bus.On(s.client, func(event.BattleStart) { s.reset() })
	bus.On(s.client, func(event.BattleEndResult) { s.setPending(nil) })
	bus.On(s.client, s.onSetName)
	return s
}

// Close detaches the service from its bus.
func (s *Service) Close() {
	s.provider.Close()
	s.client.Destroy()
}

// Bus returns the bus battles run on.
func (s *Service) Bus() *bus.Bus { return s.bus }

// Catalog returns the catalog battles are packed from.
func (s *Service) Catalog() *catalog.Catalog { return s.catalog }

// PlayerID returns the id of the human player.
func (s *Service) PlayerID() model.ParticipantID { return s.playerID }

// Config returns the engine configuration.
func (s *Service) Config() *config.Config { return s.cfg }

func (s *Service) onTimeline(u event.TimelineUpdate) {
	view := types.FromTimeline(u, s.cfg.ActionThreshold)
	s.mu.Lock()
	s.timeline = &view
	s.mu.Unlock()
}

func (s *Service) onNextActor(e event.NextActor) {
	if e.Actor == nil || e.Actor.ID != s.playerID {
		return
	}
	actor := e.Actor.Clone()
	s.setPending(&actor)
}

func (s *Service) onSetName(e event.UserSetName) {
	ctx := context.Background()
	if err := s.catalog.Rename(s.playerID, e.Name); err != nil {
		s.logger.Warn(ctx, "rename player failed", logger.Error(err))
		return
	}
	s.logger.Info(ctx, "player renamed", logger.String("name", e.Name))
}

func (s *Service) setPending(p *model.Participant) {
	s.mu.Lock()
	s.pending = p
	s.mu.Unlock()
}

func (s *Service) reset() {
	s.mu.Lock()
	s.timeline = nil
	s.pending = nil
	s.mu.Unlock()
}

// SetName renames the player for the battles that follow.
func (s *Service) SetName(name string) {
	s.client.Publish(event.UserSetName{Name: name})
}

// SeenAndRecord reports whether a choice request id was seen and records it
// if not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	return s.deduper.SeenAndRecord(ctx, id)
}

// Unrecord forgets a choice request id so it can be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Size returns the number of remembered choice request ids.
func (s *Service) Size() int64 { return s.deduper.Size() }

// SelectSkill answers the player's open choice window with the skill id.
// Only the first answer per window is delivered.
func (s *Service) SelectSkill(ctx context.Context, id model.SkillID) error {
	s.mu.Lock()
	if s.pending == nil {
		s.mu.Unlock()
		return api.NewKind("app.select_skill", api.ErrNoChoice)
	}
	skill, ok := s.pending.Skill(id)
	if !ok {
		actor := s.pending.ID
		s.mu.Unlock()
		return fmt.Errorf("%s cannot use %s: %w", actor, id, catalog.ErrUnknownSkill)
	}
	choice := *skill
	s.pending = nil
	s.mu.Unlock()

	s.client.Publish(event.UserSelectSkill{Skill: choice})
	s.logger.Debug(ctx, "skill selected over http", logger.String("skill", string(id)))
	return nil
}

// Timeline returns the latest timeline of the running battle.
func (s *Service) Timeline(context.Context) (types.Timeline, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.timeline == nil {
		return types.Timeline{}, false
	}
	return *s.timeline, true
}

// Participant asks the running battle for the current state of id.
func (s *Service) Participant(ctx context.Context, id model.ParticipantID) (model.Participant, error) {
	if !s.running.Load() {
		return model.Participant{}, api.NewKind("app.participant", api.ErrNotFound)
	}
	lookup, cancel := context.WithTimeout(ctx, s.handshakeTimeout())
	defer cancel()
	resp, err := bus.Request(lookup, s.client, event.RequestCharacterState{ID: id},
		func(r event.ResponseCharacterState) bool { return r.Participant.ID == id })
	switch {
	case err == nil:
		return resp.Participant, nil
	case ctx.Err() != nil:
		return model.Participant{}, api.Wrap("app.participant", ctx.Err())
	default:
		// Nobody answered: the scheduler ignores ids it does not own.
		return model.Participant{}, api.WrapKind("app.participant", api.ErrNotFound, err)
	}
}

// Battle returns the record of a finished battle.
func (s *Service) Battle(ctx context.Context, stateID string) (repository.Record, error) {
	return s.store.Record(ctx, stateID)
}

// RecentBattles returns up to n records, newest first.
func (s *Service) RecentBattles(ctx context.Context, n int) ([]repository.Record, error) {
	return s.store.Recent(ctx, n)
}

// Stats returns service statistics for monitoring.
func (s *Service) Stats(ctx context.Context) map[string]any {
	s.mu.RLock()
	pending := s.pending != nil
	s.mu.RUnlock()

	records := s.store.Count(ctx)
	metrics.UpdateRepositoryRecords(records)
	return map[string]any{
		"battle_running":   s.running.Load(),
		"choice_pending":   pending,
		"battles_recorded": records,
		"dedupe_size":      s.Size(),
		"bus_subscribers":  s.bus.Len(),
	}
}
