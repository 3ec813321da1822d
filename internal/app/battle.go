package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/xianxia/internal/adapters/mq/bus"
	"github.com/okian/xianxia/internal/adapters/narrator"
	"github.com/okian/xianxia/internal/adapters/repository"
	"github.com/okian/xianxia/internal/config"
	"github.com/okian/xianxia/internal/domain/catalog"
	"github.com/okian/xianxia/internal/domain/event"
	"github.com/okian/xianxia/internal/domain/model"
	"github.com/okian/xianxia/internal/domain/narration"
	"github.com/okian/xianxia/internal/domain/policy"
	"github.com/okian/xianxia/internal/domain/timeline"
	"github.com/okian/xianxia/pkg/logger"
)

// BattlePath is the stage a prepared battle navigates to.
const BattlePath = "/battle"

const (
	closeTimeout            = 5 * time.Second
	defaultHandshakeTimeout = time.Second
)

// ResultAborted labels a battle that ended with its context.
const ResultAborted = "aborted"

// PrepareBattle packs the player and the enemies from the catalog, stores
// the setup under a new state id and publishes STAGE_SWITCH to the battle
// stage. Without enemies the Iron Mountain disciple is fought.
func (s *Service) PrepareBattle(ctx context.Context, enemies ...model.ParticipantID) (string, error) {
	if len(enemies) == 0 {
		enemies = []model.ParticipantID{catalog.IronMountain}
	}
	player, err := s.catalog.Participant(s.playerID)
	if err != nil {
		return "", fmt.Errorf("prepare battle: %w", err)
	}

	seen := map[model.ParticipantID]int{s.playerID: 1}
	roster := make([]model.Participant, 0, len(enemies))
	for _, id := range enemies {
		p, err := s.catalog.Participant(id)
		if err != nil {
			return "", fmt.Errorf("prepare battle: %w", err)
		}
		// Repeated enemies get distinct ids so lookups stay unambiguous.
		if n := seen[id]; n > 0 {
			p.ID = model.ParticipantID(fmt.Sprintf("%s_%d", id, n+1))
		}
		seen[id]++
		roster = append(roster, p)
	}

	setup := repository.Setup{
		StateID:   uuid.NewString(),
		Player:    player,
		Enemies:   roster,
		CreatedAt: time.Now(),
	}
	if err := s.store.SaveSetup(ctx, setup); err != nil {
		return "", fmt.Errorf("prepare battle: %w", err)
	}
	s.logger.Info(ctx, "battle prepared",
		logger.String("state_id", setup.StateID),
		logger.Int("enemies", len(roster)),
	)
	s.client.Publish(event.StageSwitch{Path: BattlePath, StateID: setup.StateID})
	return setup.StateID, nil
}

// Play prepares a battle and runs it once the stage switch for it is seen.
func (s *Service) Play(ctx context.Context, enemies ...model.ParticipantID) (repository.Record, error) {
	stage := bus.OnceWhere(s.client, func(e event.StageSwitch) bool { return e.Path == BattlePath })
	defer stage.Cancel()

	if _, err := s.PrepareBattle(ctx, enemies...); err != nil {
		return repository.Record{}, err
	}
	wait, cancel := context.WithTimeout(ctx, s.handshakeTimeout())
	defer cancel()
	sw, err := stage.Wait(wait)
	if err != nil {
		return repository.Record{}, fmt.Errorf("%w: %w", ErrNoStage, err)
	}
	return s.RunBattle(ctx, sw.StateID)
}

// RunBattle fetches the roster of stateID over the bus, then runs the
// scheduler and the narrator until the battle ends. The record is stored
// even when ctx ends the battle early.
func (s *Service) RunBattle(ctx context.Context, stateID string) (repository.Record, error) {
	if !s.running.CompareAndSwap(false, true) {
		return repository.Record{}, ErrBattleRunning
	}
	defer s.running.Store(false)

	lookup, cancel := context.WithTimeout(ctx, s.handshakeTimeout())
	resp, err := bus.Request(lookup, s.client, event.RequestCurrentBattle{StateID: stateID},
		func(r event.ResponseCurrentBattle) bool { return r.StateID == stateID })
	cancel()
	if err != nil {
		return repository.Record{}, fmt.Errorf("current battle %s: %w", stateID, err)
	}

	player, err := s.catalog.Participant(s.playerID)
	if err != nil {
		return repository.Record{}, fmt.Errorf("run battle: %w", err)
	}
	roster := append([]model.Participant{player}, resp.Enemies...)

	sched, err := timeline.New(s.bus, roster,
		timeline.WithPlayer(s.playerID),
		timeline.WithPolicy(s.NewPolicy()),
		timeline.WithSettings(s.Settings()),
		timeline.WithLogger(s.logger.Named("timeline")),
	)
	if err != nil {
		return repository.Record{}, fmt.Errorf("run battle: %w", err)
	}
	defer sched.Destroy()
	narr := s.newNarrator()

	started := time.Now()
	var out model.Outcome
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return narr.Run(gctx) })
	g.Go(func() error {
		var runErr error
		out, runErr = sched.Run(gctx)
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()
		return errors.Join(runErr, narr.Close(closeCtx))
	})
	runErr := g.Wait()

	rec := repository.Record{
		StateID:   stateID,
		Result:    sched.Result(out),
		Roster:    make([]model.Participant, 0, len(roster)),
		StartedAt: started,
		EndedAt:   time.Now(),
	}
	if runErr != nil {
		rec.Result = ResultAborted
	}
	if out.Winner != nil {
		rec.Winner = out.Winner.ID
	}
	for _, p := range roster {
		if cur, ok := sched.Participant(p.ID); ok {
			rec.Roster = append(rec.Roster, cur)
		}
	}
	if err := s.store.SaveRecord(context.WithoutCancel(ctx), rec); err != nil {
		s.logger.Error(ctx, "save battle record failed", logger.Error(err))
	}
	s.logger.Info(ctx, "battle recorded",
		logger.String("state_id", stateID),
		logger.String("result", rec.Result),
		logger.Duration("duration", rec.Duration()),
	)
	return rec, runErr
}

// Settings returns the timeline constants from the configuration.
func (s *Service) Settings() timeline.Settings {
	return timeline.Settings{
		ActionThreshold:  s.cfg.ActionThreshold,
		TickStep:         s.cfg.TickStep,
		TickInterval:     s.cfg.TickInterval(),
		CastCostFactor:   s.cfg.CastCostFactor,
		CastDamageFactor: s.cfg.CastDamageFactor,
		CastScale:        s.cfg.CastScale,
		ExecutePause:     s.cfg.ExecutePause(),
		NarrationTimeout: s.cfg.NarrationTimeout(),
	}
}

// NewPolicy builds the weighted decision policy from the configuration.
func (s *Service) NewPolicy() *policy.WeightedPolicy {
	return PolicyFrom(s.cfg, s.logger.Named("policy"))
}

// PolicyFrom builds the weighted decision policy described by cfg.
func PolicyFrom(cfg *config.Config, l logger.Logger) *policy.WeightedPolicy {
	return policy.NewWeighted(
		policy.WithWeights(policy.Weights{
			Damage:     cfg.AIDamageWeight,
			Efficiency: cfg.AIEfficiencyWeight,
			Counter:    cfg.AICounterWeight,
		}),
		policy.WithThinkDelay(cfg.AIThinkDelay()),
		policy.WithTopN(cfg.AITopN),
		policy.WithSeed(cfg.AISeed),
		policy.WithLogger(l),
	)
}

func (s *Service) newNarrator() *narrator.Narrator {
	return narrator.New(s.bus,
		narrator.WithGenerator(narration.New(narration.WithSeed(s.cfg.AISeed))),
		narrator.WithTypingSpeed(s.cfg.TypingSpeed()),
		narrator.WithEndSettle(s.cfg.EndSettle()),
		narrator.WithLookupTimeout(s.cfg.LookupTimeout()),
		narrator.WithQueueCapacity(s.cfg.NarrationQueueSize),
		narrator.WithLogger(s.logger.Named("narrator")),
	)
}

// handshakeTimeout bounds request/response exchanges on the bus. A zero
// lookup timeout only disables narrator lookups, not the handshakes.
func (s *Service) handshakeTimeout() time.Duration {
	if d := s.cfg.LookupTimeout(); d > 0 {
		return d
	}
	return defaultHandshakeTimeout
}
