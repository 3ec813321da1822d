package event_test

import (
	"testing"

	"github.com/okian/xianxia/internal/domain/event"
	. "github.com/smartystreets/goconvey/convey"
)

func TestKinds(t *testing.T) {
	Convey("Given every payload type", t, func() {
		all := []event.Event{
			event.UserSetName{}, event.UserSelectSkill{}, event.AppendBattleLog{}, event.StageSwitch{},
			event.BattleStart{}, event.SkillUse{}, event.SkillUseDescEnd{}, event.DamageDealt{},
			event.DamageDealtDescEnd{}, event.BattleEnd{}, event.BattleEndDescEnd{}, event.BattleEndResult{},
			event.NextActor{}, event.TimelineUpdate{},
			event.RequestCharacterState{}, event.ResponseCharacterState{},
			event.RequestCurrentBattle{}, event.ResponseCurrentBattle{},
		}

		Convey("Then each maps to exactly one kind in declaration order", func() {
			kinds := event.Kinds()
			So(len(all), ShouldEqual, len(kinds))
			seen := map[event.Kind]bool{}
			for i, e := range all {
				So(e.Kind(), ShouldEqual, kinds[i])
				So(seen[e.Kind()], ShouldBeFalse)
				seen[e.Kind()] = true
			}
		})
	})
}

func TestTypeSwitch(t *testing.T) {
	describe := func(e event.Event) string {
		switch ev := e.(type) {
		case event.SkillUse:
			if !ev.Success {
				return "failed"
			}
			return "cast"
		case event.SkillUseDescEnd:
			return "echo"
		default:
			return string(e.Kind())
		}
	}

	if got := describe(event.SkillUse{Success: false}); got != "failed" {
		t.Fatalf("got %q", got)
	}
	if got := describe(event.SkillUseDescEnd{}); got != "echo" {
		t.Fatalf("got %q", got)
	}
	if got := describe(event.StageSwitch{Path: "/battle"}); got != "STAGE_SWITCH" {
		t.Fatalf("got %q", got)
	}
}
