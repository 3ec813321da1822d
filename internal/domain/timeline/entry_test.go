package timeline

import (
	"testing"

	"github.com/okian/xianxia/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEntry(t *testing.T) {
	Convey("Given two entries with different agility", t, func() {
		fast := &Entry{Participant: &model.Participant{ID: "f", HP: 1, Agility: 20}}
		slow := &Entry{Participant: &model.Participant{ID: "s", HP: 1, Agility: 0}}
		normalizeAgility([]*Entry{fast, slow})

		Convey("Then agility is normalized to the fastest with a floor of one", func() {
			So(fast.NormalizedAgility, ShouldEqual, 1)
			So(slow.NormalizedAgility, ShouldEqual, 0.05)
		})

		Convey("When idle entries advance", func() {
			prev := fast.CurrentTime
			for i := 0; i < 10; i++ {
				fast.advance(30)
				So(fast.CurrentTime, ShouldBeGreaterThanOrEqualTo, prev)
				prev = fast.CurrentTime
			}

			Convey("Then they become ready at the threshold", func() {
				So(fast.ready(300), ShouldBeTrue)
				So(fast.ready(301), ShouldBeFalse)
			})
		})

		Convey("When an entry is acting but has not chosen", func() {
			fast.CurrentTime = 500
			fast.IsActing = true
			fast.advance(30)

			Convey("Then its time is frozen and it is not ready", func() {
				So(fast.CurrentTime, ShouldEqual, 500)
				So(fast.ready(100), ShouldBeFalse)
			})
		})

		Convey("When an entry is casting", func() {
			fast.IsActing = true
			fast.CurrentTime = 1030
			fast.beginCast(model.Skill{ID: "x"}, 1000, 50)
			So(fast.CurrentTime, ShouldEqual, 1000)
			fast.advance(30)
			So(fast.castComplete(), ShouldBeFalse)
			fast.advance(30)

			Convey("Then the cast completes and the entry resets cleanly", func() {
				So(fast.castComplete(), ShouldBeTrue)
				So(fast.CastingTotal, ShouldEqual, 50)
				fast.reset()
				So(fast.CurrentTime, ShouldEqual, 0)
				So(fast.SelectedSkill, ShouldBeNil)
				So(fast.IsActing, ShouldBeFalse)
			})
		})

		Convey("When a participant falls while casting", func() {
			slow.beginCast(model.Skill{ID: "x"}, 1000, 50)
			slow.Participant.HP = 0
			slow.advance(30)
			slow.advance(30)

			Convey("Then the cast is frozen and reported broken, not complete", func() {
				So(slow.CastingTime, ShouldEqual, 50)
				So(slow.CurrentTime, ShouldEqual, 1000)
				So(slow.castComplete(), ShouldBeFalse)
				So(slow.castBroken(), ShouldBeTrue)
				So(fast.castBroken(), ShouldBeFalse)
			})
		})

		Convey("When a participant is defeated", func() {
			slow.Participant.HP = 0
			slow.CurrentTime = 2000
			slow.advance(30)

			Convey("Then it neither advances nor becomes ready", func() {
				So(slow.CurrentTime, ShouldEqual, 2000)
				So(slow.ready(1000), ShouldBeFalse)
			})
		})
	})
}
