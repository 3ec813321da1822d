// Package timeline runs a battle as a real-time simulation: participants fill
// an action bar at a rate set by their agility, choose a skill when full, cast
// it for a time set by its cost and damage, and resolve it in lock step with
// the narration layer.
package timeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/xianxia/internal/adapters/mq/bus"
	"github.com/okian/xianxia/internal/domain/combat"
	"github.com/okian/xianxia/internal/domain/event"
	"github.com/okian/xianxia/internal/domain/model"
	"github.com/okian/xianxia/internal/domain/policy"
	"github.com/okian/xianxia/pkg/logger"
	"github.com/okian/xianxia/pkg/metrics"
)

// Scheduler owns the participants of one battle. State is mutated only by
// the goroutine running Run; bus handlers read it under the lock.
type Scheduler struct {
	settings Settings
	playerID model.ParticipantID
	policy   policy.Policy
	logger   logger.Logger

	client *bus.Client
	judge  combat.Judge

	mu      sync.RWMutex
	entries []*Entry
	control event.TimeControl

	started atomic.Bool
}

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithPlayer marks the participant whose choices come from UserSelectSkill.
// Without it every participant is driven by the policy.
func WithPlayer(id model.ParticipantID) Option {
	return func(s *Scheduler) { s.playerID = id }
}

// WithPolicy sets the decision policy for computer-controlled participants.
func WithPolicy(p policy.Policy) Option {
	return func(s *Scheduler) {
		if p != nil {
			s.policy = p
		}
	}
}

// WithSettings overrides the timeline constants.
func WithSettings(st Settings) Option {
	return func(s *Scheduler) { s.settings = st }
}

// WithLogger sets a custom logger for the scheduler.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a scheduler over copies of roster, attached to b. It answers
// RequestCharacterState for its participants until Destroy.
func New(b *bus.Bus, roster []model.Participant, opts ...Option) (*Scheduler, error) {
	if len(roster) < 2 {
		return nil, ErrRosterTooSmall
	}
	s := &Scheduler{
		settings: DefaultSettings(),
		logger:   logger.Get().Named("timeline"),
		client:   b.NewClient(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.settings.validate(); err != nil {
		return nil, err
	}
	if s.policy == nil {
		s.policy = policy.NewWeighted(policy.WithLogger(s.logger))
	}

	s.entries = make([]*Entry, 0, len(roster))
	found := s.playerID == ""
	for i := range roster {
		p := roster[i].Clone()
		found = found || p.ID == s.playerID
		s.entries = append(s.entries, &Entry{Participant: &p})
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlayer, s.playerID)
	}
	normalizeAgility(s.entries)

	bus.On(s.client, s.respondState)
	return s, nil
}

// Run drives the battle to its end and returns the outcome. It returns early
// with ctx.Err() when ctx ends. Run may be called once.
func (s *Scheduler) Run(ctx context.Context) (model.Outcome, error) {
	if !s.started.CompareAndSwap(false, true) {
		return model.Outcome{}, ErrAlreadyStarted
	}
	metrics.AddActiveBattles(1)
	defer metrics.AddActiveBattles(-1)

	player, enemies := s.sides()
	s.client.Publish(event.BattleStart{Player: player, Enemies: enemies})
	s.logger.Info(ctx, "battle started",
		logger.Int("participants", len(s.entries)),
		logger.String("player", string(s.playerID)),
	)

	var ticker *time.Ticker
	if s.settings.TickInterval > 0 {
		ticker = time.NewTicker(s.settings.TickInterval)
		defer ticker.Stop()
	}

	for {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return s.abort(ctx)
			case <-ticker.C:
			}
		} else if ctx.Err() != nil {
			return s.abort(ctx)
		}

		s.tick()
		out, err := s.process(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return s.abort(ctx)
			}
			return out, err
		}
		if out.Ended {
			return s.finish(ctx, out)
		}
	}
}

// tick advances every entry by one step unless time is paused.
func (s *Scheduler) tick() {
	s.mu.Lock()
	if s.control.Paused {
		s.mu.Unlock()
		return
	}
	for _, e := range s.entries {
		e.advance(s.settings.TickStep)
	}
	update := s.updateLocked()
	s.mu.Unlock()

	metrics.RecordTick()
	s.client.Publish(update)
}

// process resolves finished casts and lets ready entries choose, in roster
// order. It reports an ended outcome as soon as a resolution ends the battle.
func (s *Scheduler) process(ctx context.Context) (model.Outcome, error) {
	for _, e := range s.entries {
		s.mu.RLock()
		broken, complete, ready := e.castBroken(), e.castComplete(), e.ready(s.settings.ActionThreshold)
		s.mu.RUnlock()

		switch {
		case broken:
			s.interrupt(ctx, e)
		case complete:
			if err := s.resolve(ctx, e); err != nil {
				return model.Outcome{}, err
			}
			if out := s.CheckEnd(); out.Ended {
				return out, nil
			}
		case ready:
			if err := s.choose(ctx, e); err != nil {
				return model.Outcome{}, err
			}
		}
	}
	return model.Outcome{}, nil
}

// choose runs the choice window of a ready entry. Time stays paused until the
// skill is known.
func (s *Scheduler) choose(ctx context.Context, e *Entry) error {
	s.mu.Lock()
	e.IsActing = true
	actor := e.Participant.Clone()
	opponent := s.opponentLocked(e.Participant).Clone()
	s.pauseLocked(event.PauseSelecting, &actor)
	update := s.updateLocked()
	s.mu.Unlock()
	s.client.Publish(update)

	var (
		skill model.Skill
		err   error
	)
	if s.isPlayer(actor.ID) {
		metrics.RecordTurn("player")
		choice := bus.Once[event.UserSelectSkill](s.client)
		s.client.Publish(event.NextActor{Actor: &actor})
		var sel event.UserSelectSkill
		sel, err = choice.Wait(ctx)
		skill = sel.Skill
	} else {
		metrics.RecordTurn("ai")
		s.client.Publish(event.NextActor{Actor: &actor})
		skill, err = s.policy.SelectSkill(ctx, policy.Context{Self: actor, Opponent: opponent})
	}
	if err != nil {
		return fmt.Errorf("choose for %s: %w", actor.ID, err)
	}

	s.mu.Lock()
	if own, ok := e.Participant.Skill(skill.ID); ok {
		skill = *own
	}
	casting := s.settings.CastingTime(skill.Cost, skill.Damage)
	e.beginCast(skill, s.settings.ActionThreshold, casting)
	s.resumeLocked()
	update = s.updateLocked()
	s.mu.Unlock()
	s.client.Publish(update)

	s.logger.Debug(ctx, "skill selected",
		logger.String("participant", string(actor.ID)),
		logger.String("skill", string(skill.ID)),
		logger.Float64("casting", casting),
	)
	return nil
}

// resolve executes the cast of e, waiting on the narration layer after each
// announcement, then resets the entry.
func (s *Scheduler) resolve(ctx context.Context, e *Entry) error {
	s.mu.Lock()
	actor := e.Participant
	target := s.opponentLocked(actor)
	skill := *e.SelectedSkill
	success := skill.Affordable(actor.MP)
	from, to := actor.Clone(), target.Clone()
	s.pauseLocked(event.PauseExecuting, &from)
	update := s.updateLocked()
	s.mu.Unlock()
	s.client.Publish(update)

	announced := bus.Once[event.SkillUseDescEnd](s.client)
	s.client.Publish(event.SkillUse{From: from, To: to, Skill: skill, Success: success})
	if err := await(ctx, s, announced, event.KindSkillUseDescEnd); err != nil {
		return err
	}

	outcome := "no_resource"
	if success {
		outcome = "success"
		s.mu.Lock()
		actor.MP -= skill.Cost
		dmg := 0
		if skill.HasDamage() {
			dmg = combat.Damage(skill.Damage, target.Defense)
			target.HP -= dmg
		}
		from, to = actor.Clone(), target.Clone()
		s.mu.Unlock()

		if skill.HasDamage() {
			metrics.RecordDamage(dmg)
			dealt := bus.Once[event.DamageDealtDescEnd](s.client)
			s.client.Publish(event.DamageDealt{From: from, To: to, Skill: skill, Damage: dmg})
			if err := await(ctx, s, dealt, event.KindDamageDealtDescEnd); err != nil {
				return err
			}
		}

		s.mu.Lock()
		actor.HP = min(actor.HP+skill.HPRecover, max(actor.MaxHP, actor.HP))
		actor.MP = min(actor.MP+skill.MPRecover, max(actor.MaxMP, actor.MP))
		if own, ok := actor.Skill(skill.ID); ok && own.Cooldown > 0 {
			own.Cooldown--
		}
		s.mu.Unlock()
	}
	metrics.RecordSkillUse(string(skill.ID), outcome)
	s.logger.Debug(ctx, "skill resolved",
		logger.String("participant", string(from.ID)),
		logger.String("skill", string(skill.ID)),
		logger.String("outcome", outcome),
	)

	if err := sleep(ctx, s.settings.ExecutePause); err != nil {
		return err
	}

	s.mu.Lock()
	e.reset()
	s.resumeLocked()
	update = s.updateLocked()
	s.mu.Unlock()
	s.client.Publish(event.NextActor{})
	s.client.Publish(update)
	return nil
}

// interrupt drops the cast of a defeated entry without resolving it.
func (s *Scheduler) interrupt(ctx context.Context, e *Entry) {
	s.mu.Lock()
	id, skill := e.Participant.ID, e.SelectedSkill.ID
	e.reset()
	update := s.updateLocked()
	s.mu.Unlock()

	metrics.RecordSkillUse(string(skill), "interrupted")
	s.logger.Debug(ctx, "cast interrupted",
		logger.String("participant", string(id)),
		logger.String("skill", string(skill)),
	)
	s.client.Publish(event.NextActor{})
	s.client.Publish(update)
}

// finish narrates the end and publishes the authoritative result.
func (s *Scheduler) finish(ctx context.Context, out model.Outcome) (model.Outcome, error) {
	_, enemies := s.sides()
	narrated := bus.Once[event.BattleEndDescEnd](s.client)
	s.client.Publish(event.BattleEnd{Enemies: enemies, Winner: out.Winner})
	if err := await(ctx, s, narrated, event.KindBattleEndDescEnd); err != nil {
		return s.abort(ctx)
	}
	s.client.Publish(event.BattleEndResult{Enemies: enemies, Winner: out.Winner})

	result := s.Result(out)
	metrics.RecordBattle(result)
	s.logger.Info(ctx, "battle ended", logger.String("result", result))
	return out, nil
}

func (s *Scheduler) abort(ctx context.Context) (model.Outcome, error) {
	metrics.RecordBattle("aborted")
	s.logger.Warn(ctx, "battle aborted", logger.Error(ctx.Err()))
	return s.judge.Outcome(), ctx.Err()
}

// Result labels out from the player's side: victory, defeat or draw, or
// decided when no participant is the player.
func (s *Scheduler) Result(out model.Outcome) string {
	switch {
	case out.Draw():
		return "draw"
	case s.playerID == "":
		return "decided"
	case out.Winner.ID == s.playerID:
		return "victory"
	default:
		return "defeat"
	}
}

// CheckEnd evaluates the end condition. The first ended outcome is kept.
func (s *Scheduler) CheckEnd() model.Outcome {
	s.mu.RLock()
	roster := make([]*model.Participant, len(s.entries))
	for i, e := range s.entries {
		roster[i] = e.Participant
	}
	out := s.judge.Check(roster)
	s.mu.RUnlock()
	return out
}

// Snapshot returns the current timeline view.
func (s *Scheduler) Snapshot() event.TimelineUpdate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updateLocked()
}

// Participant returns a copy of the participant with id.
func (s *Scheduler) Participant(id model.ParticipantID) (model.Participant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.Participant.ID == id {
			return e.Participant.Clone(), true
		}
	}
	return model.Participant{}, false
}

// Destroy detaches the scheduler from the bus.
func (s *Scheduler) Destroy() { s.client.Destroy() }

// respondState answers state requests for known participants and ignores
// the rest, leaving them to another responder or the requester's timeout.
func (s *Scheduler) respondState(req event.RequestCharacterState) {
	if p, ok := s.Participant(req.ID); ok {
		s.client.Publish(event.ResponseCharacterState{Participant: p})
	}
}

func (s *Scheduler) isPlayer(id model.ParticipantID) bool {
	return s.playerID != "" && id == s.playerID
}

// opponentLocked returns the first standing participant on the other side
// of p, then the first other standing participant, then the first other
// participant when nobody else stands. Sides are the player against the
// rest; without a player every other participant is an opponent.
func (s *Scheduler) opponentLocked(p *model.Participant) *model.Participant {
	var standing, fallback *model.Participant
	for _, e := range s.entries {
		if e.Participant == p {
			continue
		}
		if !e.Participant.Defeated() {
			if s.isPlayer(p.ID) != s.isPlayer(e.Participant.ID) || s.playerID == "" {
				return e.Participant
			}
			if standing == nil {
				standing = e.Participant
			}
		}
		if fallback == nil {
			fallback = e.Participant
		}
	}
	if standing != nil {
		return standing
	}
	return fallback
}

func (s *Scheduler) sides() (model.Participant, []model.Participant) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var player model.Participant
	enemies := make([]model.Participant, 0, len(s.entries))
	for _, e := range s.entries {
		if s.isPlayer(e.Participant.ID) {
			player = e.Participant.Clone()
			continue
		}
		enemies = append(enemies, e.Participant.Clone())
	}
	return player, enemies
}

func (s *Scheduler) pauseLocked(reason event.PauseReason, acting *model.Participant) {
	a := *acting
	s.control = event.TimeControl{Paused: true, Reason: reason, Acting: &a}
}

func (s *Scheduler) resumeLocked() {
	s.control = event.TimeControl{}
}

func (s *Scheduler) updateLocked() event.TimelineUpdate {
	entries := make([]event.TimelineEntry, len(s.entries))
	for i, e := range s.entries {
		entries[i] = e.view()
	}
	control := s.control
	if control.Acting != nil {
		a := *control.Acting
		control.Acting = &a
	}
	return event.TimelineUpdate{Entries: entries, Control: control}
}

// await waits for a narration acknowledgement. With a narration timeout set,
// a missing acknowledgement is logged and the battle proceeds.
func await[T any](ctx context.Context, s *Scheduler, f *bus.Future[T], kind event.Kind) error {
	start := time.Now()
	wctx := ctx
	if s.settings.NarrationTimeout > 0 {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(ctx, s.settings.NarrationTimeout)
		defer cancel()
	}
	_, err := f.Wait(wctx)
	metrics.RecordRendezvousWait(string(kind), float64(time.Since(start).Milliseconds()))
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn(ctx, "narration acknowledgement timed out",
			logger.String("kind", string(kind)),
			logger.Duration("timeout", s.settings.NarrationTimeout),
		)
		return nil
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
