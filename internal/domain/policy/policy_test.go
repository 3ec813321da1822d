package policy_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/okian/xianxia/internal/domain/model"
	"github.com/okian/xianxia/internal/domain/policy"
	. "github.com/smartystreets/goconvey/convey"
)

var (
	quan    = model.Skill{ID: "quan", Cost: 0, Damage: 10}
	sword   = model.Skill{ID: "yu_jian_shu", Cost: 15, Damage: 25}
	shield  = model.Skill{ID: "jin_gang_hu_ti", Cost: 20, Effect: model.EffectCounter}
	thunder = model.Skill{ID: "wu_lei_zheng_fa", Cost: 35, Damage: 50, Cooldown: 2}
	heal    = model.Skill{ID: "tai_yi_gui_yuan", Cost: 25, HPRecover: 30}
)

func self(hp, mp int, skills ...model.Skill) model.Participant {
	return model.Participant{ID: "self", HP: hp, MaxHP: 100, MP: mp, MaxMP: 200, Skills: skills}
}

func opponent(hp int) model.Participant {
	return model.Participant{ID: "opp", HP: hp, MaxHP: 100}
}

func TestScore(t *testing.T) {
	Convey("Given a weighted policy with default weights", t, func() {
		p := policy.NewWeighted(policy.WithThinkDelay(0))

		Convey("When the skill is unaffordable", func() {
			So(p.Score(policy.Context{Self: self(100, 10), Opponent: opponent(100)}, sword), ShouldEqual, policy.Unusable)
		})

		Convey("When the skill deals damage", func() {
			// 25/15*1.5 + (1-15/200)*1.0
			got := p.Score(policy.Context{Self: self(100, 200), Opponent: opponent(100)}, sword)
			So(got, ShouldAlmostEqual, 2.5+0.925, 1e-9)
		})

		Convey("When a free skill deals damage", func() {
			got := p.Score(policy.Context{Self: self(100, 0), Opponent: opponent(100)}, quan)
			So(math.IsInf(got, 1), ShouldBeTrue)
		})

		Convey("When self is low and the skill counters", func() {
			// (1-20/200)*1.0 + 0.8*1.5
			got := p.Score(policy.Context{Self: self(20, 200), Opponent: opponent(100)}, shield)
			So(got, ShouldAlmostEqual, 0.9+1.2, 1e-9)
		})

		Convey("When the opponent is nearly finished", func() {
			// 50/35*1.5 + (1-35/200) + 1.5*1.2
			got := p.Score(policy.Context{Self: self(100, 200), Opponent: opponent(10)}, thunder)
			So(got, ShouldAlmostEqual, 50.0/35.0*1.5+0.825+1.8, 1e-9)
		})

		Convey("When custom weights are set", func() {
			p = policy.NewWeighted(policy.WithThinkDelay(0), policy.WithWeights(policy.Weights{Efficiency: 2}))
			got := p.Score(policy.Context{Self: self(100, 200), Opponent: opponent(100)}, heal)
			So(got, ShouldAlmostEqual, (1-25.0/200)*2, 1e-9)
		})
	})
}

func TestRank(t *testing.T) {
	Convey("Given mixed skills", t, func() {
		p := policy.NewWeighted(policy.WithThinkDelay(0))
		c := policy.Context{Self: self(100, 30, thunder, sword, shield, heal), Opponent: opponent(100)}

		ranked := p.Rank(c)

		Convey("Then unusable skills are dropped and the rest sorted best first", func() {
			So(len(ranked), ShouldEqual, 3)
			So(ranked[0].Skill.ID, ShouldEqual, sword.ID)
			for i := 1; i < len(ranked); i++ {
				So(ranked[i-1].Score, ShouldBeGreaterThanOrEqualTo, ranked[i].Score)
			}
		})
	})
}

func TestSelectSkill(t *testing.T) {
	Convey("Given a seeded policy without think delay", t, func() {
		p := policy.NewWeighted(policy.WithThinkDelay(0), policy.WithSeed(7), policy.WithTopN(2))
		ctx := context.Background()

		Convey("When several skills are usable", func() {
			c := policy.Context{Self: self(100, 200, heal, thunder, sword, shield), Opponent: opponent(100)}
			ranked := p.Rank(c)
			top := map[model.SkillID]bool{ranked[0].Skill.ID: true, ranked[1].Skill.ID: true}

			Convey("Then every pick comes from the top N", func() {
				for i := 0; i < 100; i++ {
					s, err := p.SelectSkill(ctx, c)
					So(err, ShouldBeNil)
					So(top[s.ID], ShouldBeTrue)
				}
			})
		})

		Convey("When nothing is affordable and no skill is free", func() {
			c := policy.Context{Self: self(100, 0, sword, shield, thunder), Opponent: opponent(100)}
			s, err := p.SelectSkill(ctx, c)

			Convey("Then the pass action is returned instead of failing", func() {
				So(err, ShouldBeNil)
				So(s.ID, ShouldEqual, model.PassSkill.ID)
				So(s.Cost, ShouldEqual, 0)
			})
		})

		Convey("When the participant has no skills at all", func() {
			s, err := p.SelectSkill(ctx, policy.Context{Self: self(100, 100), Opponent: opponent(100)})
			So(err, ShouldBeNil)
			So(s.ID, ShouldEqual, model.PassSkill.ID)
		})

		Convey("When only the free strike is affordable", func() {
			c := policy.Context{Self: self(100, 0, sword, quan), Opponent: opponent(100)}
			s, err := p.SelectSkill(ctx, c)
			So(err, ShouldBeNil)
			So(s.ID, ShouldEqual, quan.ID)
		})
	})

	Convey("Given a policy that thinks", t, func() {
		p := policy.NewWeighted(policy.WithThinkDelay(time.Hour))

		Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := p.SelectSkill(ctx, policy.Context{Self: self(100, 100, quan)})

			Convey("Then the cancellation is returned", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}

func TestFallback(t *testing.T) {
	if got := policy.Fallback([]model.Skill{sword, quan}); got.ID != quan.ID {
		t.Fatalf("expected free skill, got %s", got.ID)
	}
	if got := policy.Fallback([]model.Skill{sword}); got.ID != model.PassSkill.ID {
		t.Fatalf("expected pass, got %s", got.ID)
	}
}
