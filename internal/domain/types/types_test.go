package types_test

import (
	"testing"

	"github.com/okian/xianxia/internal/domain/event"
	"github.com/okian/xianxia/internal/domain/model"
	"github.com/okian/xianxia/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFromTimeline(t *testing.T) {
	Convey("Given a paused timeline with one caster", t, func() {
		hero := model.Participant{ID: "player", Name: "Wanderer", HP: 150, MaxHP: 200,
			Skills: []model.Skill{{ID: "quan"}, {ID: "yu_jian_shu"}}}
		foe := model.Participant{ID: "tie_quan", HP: 30, MaxHP: 30}
		u := event.TimelineUpdate{
			Entries: []event.TimelineEntry{
				{Participant: hero, CurrentTime: 1500, CastingTime: 250, CastingTotal: 1000},
				{Participant: foe, CurrentTime: 400},
			},
			Control: event.TimeControl{Paused: true, Reason: event.PauseSelecting, Acting: &foe},
		}

		Convey("When it is converted", func() {
			v := types.FromTimeline(u, 1000)

			Convey("Then control state is flattened", func() {
				So(v.Paused, ShouldBeTrue)
				So(v.Reason, ShouldEqual, "selecting")
				So(v.Acting, ShouldEqual, "tie_quan")
			})

			Convey("Then progress is clamped and casting is a completed share", func() {
				So(v.Entries[0].Progress, ShouldEqual, 1)
				So(v.Entries[0].Casting, ShouldEqual, 0.75)
				So(v.Entries[1].Progress, ShouldEqual, 0.4)
				So(v.Entries[1].Casting, ShouldEqual, 0)
			})

			Convey("Then participants list their skill ids", func() {
				So(v.Entries[0].Participant.Skills, ShouldResemble, []string{"quan", "yu_jian_shu"})
				So(v.Entries[1].Participant.Skills, ShouldBeNil)
			})
		})

		Convey("When the threshold is unknown", func() {
			v := types.FromTimeline(u, 0)
			So(v.Entries[1].Progress, ShouldEqual, 0)
		})
	})

	Convey("Given an empty running timeline", t, func() {
		v := types.FromTimeline(event.TimelineUpdate{}, 1000)
		So(v.Paused, ShouldBeFalse)
		So(v.Acting, ShouldBeEmpty)
		So(v.Entries, ShouldNotBeNil)
		So(v.Entries, ShouldBeEmpty)
	})
}
