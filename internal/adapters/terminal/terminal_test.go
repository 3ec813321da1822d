package terminal_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/okian/xianxia/internal/adapters/mq/bus"
	"github.com/okian/xianxia/internal/adapters/terminal"
	"github.com/okian/xianxia/internal/domain/event"
	"github.com/okian/xianxia/internal/domain/model"
	"github.com/okian/xianxia/internal/domain/policy"
	"github.com/okian/xianxia/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

var (
	fist  = model.Skill{ID: "quan", Name: "Fist", Damage: 5}
	sword = model.Skill{ID: "yu_jian_shu", Name: "Sword Flight", Cost: 15, Damage: 25}
	hero  = model.Participant{ID: "player", Name: "Wanderer", HP: 200, MaxHP: 200, MP: 10, MaxMP: 200,
		Skills: []model.Skill{fist, sword}}
	foe = model.Participant{ID: "tie_quan", Name: "Iron Mountain Disciple", HP: 30, MaxHP: 30}
)

func typed(text string, flags event.LogEntry) []event.LogEntry {
	var out []event.LogEntry
	for i, r := range text {
		e := event.LogEntry{Type: event.LogNormal, Content: string(r)}
		if i == 0 {
			e.NewParagraph = flags.NewParagraph
		}
		out = append(out, e)
	}
	return out
}

func TestBattleLogRules(t *testing.T) {
	Convey("Given a plain battle log", t, func() {
		b := bus.New(bus.WithLogger(logger.Nop()))
		var out bytes.Buffer
		l := terminal.NewBattleLog(b, &out)

		Convey("When a skill line, its join operator and a damage line arrive", func() {
			for _, e := range typed("Han draws his sword", event.LogEntry{}) {
				b.Publish(event.AppendBattleLog{Entry: e})
			}
			b.Publish(event.AppendBattleLog{Entry: event.LogEntry{Type: event.LogNormal}})
			b.Publish(event.AppendBattleLog{Entry: event.LogEntry{Type: event.LogNormal, JoinOperator: ". "}})
			for _, e := range typed("it cuts deep", event.LogEntry{}) {
				b.Publish(event.AppendBattleLog{Entry: e})
			}

			Convey("Then they read as one paragraph", func() {
				So(l.Paragraphs(), ShouldResemble, []string{"Han draws his sword. it cuts deep"})
				So(out.String(), ShouldBeEmpty)
			})

			Convey("When a buffered break is followed by new text", func() {
				l.Append(event.LogEntry{Type: event.LogNormal, NewParagraph: true, Buffer: true})
				l.Append(event.LogEntry{Type: event.LogNormal, Content: "Victory"})

				Convey("Then the buffer becomes its own paragraph", func() {
					So(l.Paragraphs(), ShouldResemble, []string{"Han draws his sword. it cuts deep", "", "Victory"})
					So(out.String(), ShouldEqual, "Han draws his sword. it cuts deep\n\n")
				})

				Convey("Then Close writes the rest", func() {
					l.Close()
					So(out.String(), ShouldEqual, "Han draws his sword. it cuts deep\n\nVictory\n")
					b.Publish(event.AppendBattleLog{Entry: event.LogEntry{Content: "late"}})
					So(len(l.Paragraphs()), ShouldEqual, 3)
				})
			})
		})

		Convey("When buffered entries arrive before anything else", func() {
			l.Append(event.LogEntry{Buffer: true, NewParagraph: true})
			l.Append(event.LogEntry{Content: "first"})

			Convey("Then they are dropped", func() {
				So(l.Paragraphs(), ShouldResemble, []string{"first"})
			})
		})

		Convey("When a gap entry arrives", func() {
			l.Append(event.LogEntry{Content: "one"})
			l.Append(event.LogEntry{Type: event.LogGap, NewParagraph: true})
			l.Append(event.LogEntry{Content: "two", NewParagraph: true})

			Convey("Then it is an empty paragraph", func() {
				So(l.Paragraphs(), ShouldResemble, []string{"one", "", "two"})
			})
		})
	})

	Convey("Given markup in the log", t, func() {
		b := bus.New(bus.WithLogger(logger.Nop()))
		line := "(bisqueHan Li) deals (red7 points)"

		Convey("When color is off", func() {
			var out bytes.Buffer
			l := terminal.NewBattleLog(b, &out)
			l.Append(event.LogEntry{Content: line})
			l.Flush()
			So(out.String(), ShouldEqual, "Han Li deals 7 points\n")
		})

		Convey("When color is on", func() {
			var out bytes.Buffer
			l := terminal.NewBattleLog(b, &out, terminal.WithColor(true))
			l.Append(event.LogEntry{Content: line})
			l.Flush()
			So(out.String(), ShouldEqual, "\x1b[38;5;223mHan Li\x1b[0m deals \x1b[31m7 points\x1b[0m\n")
		})

		Convey("When the log is live", func() {
			var out bytes.Buffer
			l := terminal.NewBattleLog(b, &out, terminal.WithLive(true))
			l.Append(event.LogEntry{Content: "Han"})
			l.Append(event.LogEntry{Content: " Li"})
			l.Append(event.LogEntry{Content: "next", NewParagraph: true})
			l.Flush()
			So(out.String(), ShouldEqual, "Han\r\x1b[KHan Li\nnext\n")
		})
	})
}

func TestChoose(t *testing.T) {
	skills := []model.Skill{fist, sword}
	tests := []struct {
		answer string
		want   model.SkillID
		ok     bool
	}{
		{"1", "quan", true},
		{" 2 ", "yu_jian_shu", true},
		{"3", "", false},
		{"0", "", false},
		{"YU_JIAN_SHU", "yu_jian_shu", true},
		{"sword flight", "yu_jian_shu", true},
		{"", "", false},
		{"kick", "", false},
	}
	for _, tt := range tests {
		got, ok := terminal.Choose(skills, tt.answer)
		if ok != tt.ok || got.ID != tt.want {
			t.Errorf("Choose(%q) = %s, %v; want %s, %v", tt.answer, got.ID, ok, tt.want, tt.ok)
		}
	}
}

func TestPrompter(t *testing.T) {
	Convey("Given a prompter reading a bad answer then a good one", t, func() {
		b := bus.New(bus.WithLogger(logger.Nop()))
		var out bytes.Buffer
		p := terminal.NewPrompter(b, hero.ID, strings.NewReader("kick\n2\n"), &out)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		done := make(chan error, 1)
		go func() { done <- p.Run(ctx) }()

		client := b.NewClient()
		defer client.Destroy()

		Convey("When it is the enemy's turn and then the player's", func() {
			choice := bus.Once[event.UserSelectSkill](client)
			b.Publish(event.NextActor{Actor: &foe})
			b.Publish(event.NextActor{Actor: &hero})
			got, err := choice.Wait(ctx)

			Convey("Then only the player is asked and the valid answer is published", func() {
				So(err, ShouldBeNil)
				So(got.Skill.ID, ShouldEqual, sword.ID)
				So(out.String(), ShouldContainSubstring, "Wanderer  HP 200/200  MP 10/200")
				So(out.String(), ShouldContainSubstring, "(not enough MP)")
				So(out.String(), ShouldContainSubstring, `No such skill "kick"`)
			})

			Convey("Then a further turn with no input left ends the run", func() {
				b.Publish(event.NextActor{Actor: &hero})
				So(errors.Is(<-done, terminal.ErrInputClosed), ShouldBeTrue)
			})
		})
	})
}

type fixedPolicy struct{ seen chan policy.Context }

func (f fixedPolicy) SelectSkill(_ context.Context, c policy.Context) (model.Skill, error) {
	f.seen <- c
	return c.Self.Skills[0], nil
}

func TestAutopilot(t *testing.T) {
	Convey("Given an autopilot that has seen the timeline", t, func() {
		b := bus.New(bus.WithLogger(logger.Nop()))
		pol := fixedPolicy{seen: make(chan policy.Context, 1)}
		a := terminal.NewAutopilot(b, hero.ID, pol)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		go func() { _ = a.Run(ctx) }()

		fallen := foe
		fallen.ID, fallen.HP = "fallen", 0
		b.Publish(event.TimelineUpdate{Entries: []event.TimelineEntry{
			{Participant: hero}, {Participant: fallen}, {Participant: foe},
		}})

		client := b.NewClient()
		defer client.Destroy()

		Convey("When the player is up", func() {
			choice := bus.Once[event.UserSelectSkill](client)
			b.Publish(event.NextActor{Actor: &hero})
			got, err := choice.Wait(ctx)

			Convey("Then the policy plans against the living enemy", func() {
				So(err, ShouldBeNil)
				So(got.Skill.ID, ShouldEqual, fist.ID)
				c := <-pol.seen
				So(c.Self.ID, ShouldEqual, hero.ID)
				So(c.Opponent.ID, ShouldEqual, foe.ID)
			})
		})
	})
}
