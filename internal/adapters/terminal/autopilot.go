package terminal

import (
	"context"
	"sync"

	"github.com/okian/xianxia/internal/adapters/mq/bus"
	"github.com/okian/xianxia/internal/domain/event"
	"github.com/okian/xianxia/internal/domain/model"
	"github.com/okian/xianxia/internal/domain/policy"
	"github.com/okian/xianxia/pkg/logger"
)

// Autopilot plays the player's turns with a decision policy. The opponent
// it plans against is taken from the latest timeline update.
type Autopilot struct {
	client *bus.Client
	player model.ParticipantID
	policy policy.Policy
	turns  <-chan model.Participant
	logger logger.Logger

	mu       sync.Mutex
	timeline []event.TimelineEntry
}

// NewAutopilot drives player on b with p.
func NewAutopilot(b *bus.Bus, player model.ParticipantID, p policy.Policy) *Autopilot {
	a := &Autopilot{
		client: b.NewClient(),
		player: player,
		policy: p,
		logger: logger.Get().Named("autopilot"),
	}
	bus.On(a.client, func(u event.TimelineUpdate) {
		a.mu.Lock()
		a.timeline = u.Entries
		a.mu.Unlock()
	})
	a.turns = watchTurns(a.client, player, a.logger)
	return a
}

// Run answers player turns until ctx ends.
func (a *Autopilot) Run(ctx context.Context) error {
	defer a.client.Destroy()
	for {
		var actor model.Participant
		select {
		case <-ctx.Done():
			return ctx.Err()
		case actor = <-a.turns:
		}

		skill, err := a.policy.SelectSkill(ctx, policy.Context{Self: actor, Opponent: a.opponent()})
		if err != nil {
			return err
		}
		a.logger.Debug(ctx, "autopilot chose",
			logger.String("skill", string(skill.ID)),
		)
		a.client.Publish(event.UserSelectSkill{Skill: skill})
	}
}

// opponent is the first living participant other than the player, or the
// first other one when all have fallen.
func (a *Autopilot) opponent() model.Participant {
	a.mu.Lock()
	defer a.mu.Unlock()
	var fallback *model.Participant
	for i := range a.timeline {
		p := &a.timeline[i].Participant
		if p.ID == a.player {
			continue
		}
		if !p.Defeated() {
			return p.Clone()
		}
		if fallback == nil {
			fallback = p
		}
	}
	if fallback != nil {
		return fallback.Clone()
	}
	return model.Participant{}
}
