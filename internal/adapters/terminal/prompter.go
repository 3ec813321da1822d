package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/okian/xianxia/internal/adapters/mq/bus"
	"github.com/okian/xianxia/internal/domain/event"
	"github.com/okian/xianxia/internal/domain/model"
	"github.com/okian/xianxia/internal/domain/narration"
	"github.com/okian/xianxia/pkg/logger"
)

// ErrInputClosed is returned by Prompter.Run when input ends mid-battle.
var ErrInputClosed = errors.New("player input closed")

// turnBacklog is how many player turns may wait for their choice. The
// scheduler blocks on each choice, so more than one is never outstanding.
const turnBacklog = 4

// watchTurns forwards every NEXT_CHARACTER_TO_ACT naming player. The
// handler runs on the dispatching goroutine and never blocks.
func watchTurns(c *bus.Client, player model.ParticipantID, log logger.Logger) <-chan model.Participant {
	turns := make(chan model.Participant, turnBacklog)
	bus.On(c, func(e event.NextActor) {
		if e.Actor == nil || e.Actor.ID != player {
			return
		}
		select {
		case turns <- e.Actor.Clone():
		default:
			log.Warn(context.Background(), "player turn dropped, backlog full")
		}
	})
	return turns
}

// Prompter asks the player for a skill on every player turn and publishes
// the answer as USER_SELECT_SKILL.
type Prompter struct {
	client *bus.Client
	player model.ParticipantID
	turns  <-chan model.Participant
	in     io.Reader
	out    io.Writer
	logger logger.Logger
}

// NewPrompter reads choices for player from in and writes menus to out.
func NewPrompter(b *bus.Bus, player model.ParticipantID, in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{
		client: b.NewClient(),
		player: player,
		in:     in,
		out:    out,
		logger: logger.Get().Named("prompter"),
	}
	p.turns = watchTurns(p.client, player, p.logger)
	return p
}

// Run answers player turns until ctx ends or input closes.
func (p *Prompter) Run(ctx context.Context) error {
	defer p.client.Destroy()
	lines := readLines(p.in)
	for {
		var actor model.Participant
		select {
		case <-ctx.Done():
			return ctx.Err()
		case actor = <-p.turns:
		}

		skill, err := p.ask(ctx, actor, lines)
		if err != nil {
			return err
		}
		p.client.Publish(event.UserSelectSkill{Skill: skill})
	}
}

func (p *Prompter) ask(ctx context.Context, actor model.Participant, lines <-chan string) (model.Skill, error) {
	skills := actor.Skills
	if len(skills) == 0 {
		skills = []model.Skill{model.PassSkill}
	}
	p.menu(actor, skills)
	for {
		select {
		case <-ctx.Done():
			return model.Skill{}, ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return model.Skill{}, ErrInputClosed
			}
			if s, found := Choose(skills, line); found {
				return s, nil
			}
			fmt.Fprintf(p.out, "No such skill %q. Pick 1-%d: ", strings.TrimSpace(line), len(skills))
		}
	}
}

func (p *Prompter) menu(actor model.Participant, skills []model.Skill) {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s  HP %d/%d  MP %d/%d\n",
		narration.DisplayName(actor), actor.HP, actor.MaxHP, actor.MP, actor.MaxMP)
	for i, s := range skills {
		mark := ""
		if !s.Affordable(actor.MP) {
			mark = "  (not enough MP)"
		}
		fmt.Fprintf(&b, "  %d. %-28s cost %-3d damage %-3d%s\n", i+1, s.Name, s.Cost, s.Damage, mark)
	}
	b.WriteString("Choose a skill: ")
	_, _ = io.WriteString(p.out, b.String())
}

// Choose resolves a menu answer: a 1-based position, a skill id or a skill
// name, ignoring case.
func Choose(skills []model.Skill, answer string) (model.Skill, bool) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return model.Skill{}, false
	}
	if n, err := strconv.Atoi(answer); err == nil {
		if n >= 1 && n <= len(skills) {
			return skills[n-1], true
		}
		return model.Skill{}, false
	}
	for _, s := range skills {
		if strings.EqualFold(string(s.ID), answer) || strings.EqualFold(s.Name, answer) {
			return s, true
		}
	}
	return model.Skill{}, false
}

// readLines feeds lines of r into a channel that closes at EOF. The reading
// goroutine lives until r ends.
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()
	return lines
}
