package remote

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/xianxia/internal/domain/catalog"
	"github.com/okian/xianxia/internal/domain/event"
	"github.com/okian/xianxia/internal/domain/model"
	"github.com/okian/xianxia/internal/domain/policy"
	"github.com/okian/xianxia/internal/domain/types"
	"github.com/okian/xianxia/pkg/logger"
)

// Default player configuration constants.
const (
	defaultPollInterval = 100 * time.Millisecond
	defaultReplays      = 1
	defaultBattles      = 1
)

// Player polls the timeline and answers every choice window of its
// participant. Each answer carries a fresh request id and is posted Replays
// times concurrently; the server applies it once.
type Player struct {
	client   *Client
	playerID model.ParticipantID
	catalog  *catalog.Catalog
	policy   policy.Policy

	pollInterval time.Duration
	replays      int
	battles      int

	logger logger.Logger
}

// PlayerOption applies a configuration option to the Player.
type PlayerOption func(*Player)

// WithPollInterval sets how often the timeline is read.
func WithPollInterval(d time.Duration) PlayerOption {
	return func(p *Player) {
		if d > 0 {
			p.pollInterval = d
		}
	}
}

// WithReplays sets how many copies of each answer are posted.
func WithReplays(n int) PlayerOption {
	return func(p *Player) {
		if n > 0 {
			p.replays = n
		}
	}
}

// WithBattles sets how many finished battles end the run. Zero plays until
// the context ends.
func WithBattles(n int) PlayerOption {
	return func(p *Player) {
		if n >= 0 {
			p.battles = n
		}
	}
}

// WithCatalog sets the catalog skill ids are resolved against.
func WithCatalog(c *catalog.Catalog) PlayerOption {
	return func(p *Player) {
		if c != nil {
			p.catalog = c
		}
	}
}

// WithPolicy sets the policy that picks the answers.
func WithPolicy(pol policy.Policy) PlayerOption {
	return func(p *Player) {
		if pol != nil {
			p.policy = pol
		}
	}
}

// WithLogger sets a custom logger for the player.
func WithLogger(l logger.Logger) PlayerOption {
	return func(p *Player) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPlayer plays playerID through c.
func NewPlayer(c *Client, playerID model.ParticipantID, opts ...PlayerOption) *Player {
	p := &Player{
		client:       c,
		playerID:     playerID,
		pollInterval: defaultPollInterval,
		replays:      defaultReplays,
		battles:      defaultBattles,
		logger:       logger.Get().Named("remote"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.catalog == nil {
		p.catalog = catalog.Default()
	}
	if p.policy == nil {
		p.policy = policy.NewWeighted(policy.WithThinkDelay(0), policy.WithLogger(p.logger))
	}
	return p
}

// Run plays until the configured number of battles has finished on the
// server or ctx ends.
func (p *Player) Run(ctx context.Context) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	defer stats.finish()

	if err := p.client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}
	baseline, err := p.client.BattlesRecorded(ctx)
	if err != nil {
		return stats, err
	}
	p.logger.Info(ctx, "remote player started",
		logger.String("player", string(p.playerID)),
		logger.Int("replays", p.replays),
		logger.Int("battles", p.battles),
	)

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()
	requestID := uuid.NewString()
	for {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case <-ticker.C:
		}

		tl, ok, err := p.client.Timeline(ctx)
		if err != nil {
			stats.Failed++
			p.logger.Warn(ctx, "timeline poll failed", logger.Error(err))
			continue
		}
		if ok && p.choosing(tl) {
			if p.answer(ctx, tl, requestID, stats) {
				stats.Turns++
				requestID = uuid.NewString()
			}
			continue
		}

		if p.battles == 0 {
			continue
		}
		done, err := p.client.BattlesRecorded(ctx)
		if err != nil {
			stats.Failed++
			continue
		}
		stats.Battles = done - baseline
		if stats.Battles >= p.battles {
			return stats, nil
		}
	}
}

func (p *Player) choosing(tl types.Timeline) bool {
	return tl.Paused && tl.Reason == string(event.PauseSelecting) && tl.Acting == string(p.playerID)
}

// answer picks a skill and posts it. It reports whether the server applied
// the choice.
func (p *Player) answer(ctx context.Context, tl types.Timeline, requestID string, stats *Stats) bool {
	self, opponent := p.sides(tl)
	skill, err := p.policy.SelectSkill(ctx, policy.Context{Self: self, Opponent: opponent})
	if err != nil {
		p.logger.Warn(ctx, "no skill chosen", logger.Error(err))
		return false
	}
	choice := types.SkillChoice{RequestID: requestID, SkillID: string(skill.ID)}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		applied bool
	)
	for i := 0; i < p.replays; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub, err := p.client.SelectSkill(ctx, choice)
			mu.Lock()
			defer mu.Unlock()
			stats.record(sub, err)
			applied = applied || sub == Accepted
		}()
	}
	wg.Wait()

	if applied {
		p.logger.Debug(ctx, "choice applied",
			logger.String("request_id", requestID),
			logger.String("skill", string(skill.ID)),
		)
	}
	return applied
}

// sides rebuilds the player and the first living opponent from the timeline
// view, resolving skill ids through the catalog.
func (p *Player) sides(tl types.Timeline) (model.Participant, model.Participant) {
	var self, opponent, fallback *types.Participant
	for i := range tl.Entries {
		v := &tl.Entries[i].Participant
		switch {
		case v.ID == string(p.playerID):
			self = v
		case v.HP > 0 && opponent == nil:
			opponent = v
		case fallback == nil:
			fallback = v
		}
	}
	if opponent == nil {
		opponent = fallback
	}
	return p.participant(self), p.participant(opponent)
}

func (p *Player) participant(v *types.Participant) model.Participant {
	if v == nil {
		return model.Participant{}
	}
	m := model.Participant{
		ID:      model.ParticipantID(v.ID),
		Name:    v.Name,
		HP:      v.HP,
		MaxHP:   v.MaxHP,
		MP:      v.MP,
		MaxMP:   v.MaxMP,
		Agility: v.Agility,
	}
	for _, id := range v.Skills {
		if s, err := p.catalog.Skill(model.SkillID(id)); err == nil {
			m.Skills = append(m.Skills, s)
		}
	}
	return m
}
