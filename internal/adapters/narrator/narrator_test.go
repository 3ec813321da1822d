package narrator_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okian/xianxia/internal/adapters/mq/bus"
	"github.com/okian/xianxia/internal/adapters/narrator"
	"github.com/okian/xianxia/internal/domain/event"
	"github.com/okian/xianxia/internal/domain/model"
	"github.com/okian/xianxia/internal/domain/narration"
	"github.com/okian/xianxia/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type transcript struct {
	mu      sync.Mutex
	entries []event.LogEntry
	acks    []int // number of log entries seen when each ack arrived
}

func (tr *transcript) attach(b *bus.Bus) {
	b.Subscribe(func(e event.Event) {
		tr.mu.Lock()
		defer tr.mu.Unlock()
		switch v := e.(type) {
		case event.AppendBattleLog:
			tr.entries = append(tr.entries, v.Entry)
		default:
			tr.acks = append(tr.acks, len(tr.entries))
		}
	}, event.KindAppendBattleLog, event.KindSkillUseDescEnd, event.KindDamageDealtDescEnd, event.KindBattleEndDescEnd)
}

func (tr *transcript) text() string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	var b strings.Builder
	for _, e := range tr.entries {
		b.WriteString(e.Content)
	}
	return b.String()
}

func (tr *transcript) snapshot() ([]event.LogEntry, []int) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]event.LogEntry(nil), tr.entries...), append([]int(nil), tr.acks...)
}

var (
	hero  = model.Participant{ID: "player", Name: "Han Li", HP: 200, MaxHP: 200, MP: 200, MaxMP: 200}
	enemy = model.Participant{ID: "tie_quan", Name: "Iron Mountain Disciple", HP: 6, MaxHP: 30}
	sword = model.Skill{ID: "yu_jian_shu", Name: "Sword Flight", Cost: 15, Damage: 25}
)

func wait[T any](f *bus.Future[T]) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := f.Wait(ctx)
	return err
}

func TestNarrator(t *testing.T) {
	Convey("Given a running narrator without delays", t, func() {
		b := bus.New(bus.WithLogger(logger.Nop()))
		tr := &transcript{}
		tr.attach(b)
		n := narrator.New(b,
			narrator.WithGenerator(narration.New(narration.WithSeed(3))),
			narrator.WithTypingSpeed(0),
			narrator.WithEndSettle(0),
			narrator.WithLookupTimeout(0),
			narrator.WithLogger(logger.Nop()),
		)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() { _ = n.Run(ctx) }()
		client := b.NewClient()
		defer client.Destroy()

		Convey("When a skill use is announced", func() {
			done := bus.Once[event.SkillUseDescEnd](client)
			b.Publish(event.SkillUse{From: hero, To: enemy, Skill: sword, Success: true})
			So(wait(done), ShouldBeNil)

			Convey("Then the typed text is the generated line followed by the join operator", func() {
				expect := narration.New(narration.WithSeed(3)).SkillUse(hero, sword, true)
				So(tr.text(), ShouldEqual, expect)

				entries, acks := tr.snapshot()
				last := entries[len(entries)-1]
				So(last.JoinOperator, ShouldEqual, narrator.JoinOperator)
				So(last.Content, ShouldBeEmpty)
				So(acks, ShouldResemble, []int{len(entries)})
			})

			Convey("Then letter runs were typed as single units", func() {
				entries, _ := tr.snapshot()
				for _, e := range entries {
					So(e.Type, ShouldEqual, event.LogNormal)
					So(len(narration.Units(e.Content)), ShouldBeLessThanOrEqualTo, 1)
				}
			})
		})

		Convey("When damage is announced", func() {
			done := bus.Once[event.DamageDealtDescEnd](client)
			b.Publish(event.DamageDealt{From: hero, To: enemy, Skill: sword, Damage: 24})
			So(wait(done), ShouldBeNil)

			Convey("Then the line ends with a buffered paragraph break", func() {
				So(tr.text(), ShouldContainSubstring, "(red24 points)")
				entries, _ := tr.snapshot()
				last := entries[len(entries)-1]
				So(last.NewParagraph, ShouldBeTrue)
				So(last.Buffer, ShouldBeTrue)
			})
		})

		Convey("When several announcements arrive back to back", func() {
			first := bus.Once[event.SkillUseDescEnd](client)
			second := bus.Once[event.BattleEndDescEnd](client)
			b.Publish(event.SkillUse{From: hero, To: enemy, Skill: sword, Success: false})
			b.Publish(event.BattleEnd{Enemies: []model.Participant{enemy}, Winner: &hero})
			So(wait(first), ShouldBeNil)
			So(wait(second), ShouldBeNil)

			Convey("Then they are typed one after the other", func() {
				_, acks := tr.snapshot()
				So(len(acks), ShouldEqual, 2)
				So(acks[0], ShouldBeLessThan, acks[1])

				g := narration.New(narration.WithSeed(3))
				So(tr.text(), ShouldEqual, g.SkillUse(hero, sword, false)+g.BattleEnd(&hero))
			})
		})

		Convey("When the battle starts", func() {
			b.Publish(event.BattleStart{Player: hero, Enemies: []model.Participant{enemy}})

			Convey("Then the scene is typed without an acknowledgement", func() {
				So(func() bool {
					deadline := time.Now().Add(2 * time.Second)
					for time.Now().Before(deadline) {
						entries, _ := tr.snapshot()
						if len(entries) > 0 && entries[len(entries)-1].NewParagraph {
							return true
						}
						time.Sleep(time.Millisecond)
					}
					return false
				}(), ShouldBeTrue)
				_, acks := tr.snapshot()
				So(acks, ShouldBeEmpty)
			})
		})
	})
}

func TestNarratorLookup(t *testing.T) {
	Convey("Given a narrator that looks characters up", t, func() {
		b := bus.New(bus.WithLogger(logger.Nop()))
		tr := &transcript{}
		tr.attach(b)

		renamed := hero
		renamed.Name = "Elder Han"
		b.Subscribe(func(e event.Event) {
			if req := e.(event.RequestCharacterState); req.ID == hero.ID {
				b.Publish(event.ResponseCharacterState{Participant: renamed})
			}
		}, event.KindRequestCharacterState)

		n := narrator.New(b,
			narrator.WithTypingSpeed(0),
			narrator.WithLookupTimeout(100*time.Millisecond),
			narrator.WithLogger(logger.Nop()),
		)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() { _ = n.Run(ctx) }()
		client := b.NewClient()
		defer client.Destroy()

		Convey("When the announced actor is known to its owner", func() {
			done := bus.Once[event.SkillUseDescEnd](client)
			b.Publish(event.SkillUse{From: hero, To: enemy, Skill: sword, Success: true})
			So(wait(done), ShouldBeNil)

			Convey("Then the current state is narrated", func() {
				So(tr.text(), ShouldContainSubstring, "(bisqueElder Han)")
			})
		})

		Convey("When nobody owns the target", func() {
			done := bus.Once[event.DamageDealtDescEnd](client)
			b.Publish(event.DamageDealt{From: hero, To: enemy, Skill: sword, Damage: 3})
			So(wait(done), ShouldBeNil)

			Convey("Then the announced copy is used after the lookup times out", func() {
				So(tr.text(), ShouldContainSubstring, "(bisqueIron Mountain Disciple)")
			})
		})
	})
}

func TestNarratorBackpressure(t *testing.T) {
	Convey("Given a narrator whose worker is not running and a queue of one", t, func() {
		b := bus.New(bus.WithLogger(logger.Nop()))
		narrator.New(b, narrator.WithQueueCapacity(1), narrator.WithLogger(logger.Nop()))
		client := b.NewClient()
		defer client.Destroy()

		Convey("When a second announcement cannot be queued", func() {
			b.Publish(event.BattleStart{Player: hero})
			done := bus.Once[event.SkillUseDescEnd](client)
			b.Publish(event.SkillUse{From: hero, To: enemy, Skill: sword, Success: true})

			Convey("Then it is acknowledged at once", func() {
				_, ok := done.Value()
				So(ok, ShouldBeTrue)
			})
		})
	})
}

func TestNarratorClose(t *testing.T) {
	Convey("Given a running narrator", t, func() {
		b := bus.New(bus.WithLogger(logger.Nop()))
		n := narrator.New(b, narrator.WithLogger(logger.Nop()))
		go func() { _ = n.Run(context.Background()) }()

		Convey("When it is closed", func() {
			err := n.Close(context.Background())

			Convey("Then it stops and leaves the bus", func() {
				So(err, ShouldBeNil)
				So(b.Len(), ShouldEqual, 0)
			})
		})
	})
}
