package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("combat"),
				WithHistogramBuckets([]float64{1, 10}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then metrics are registered under the namespace", func() {
				So(m, ShouldNotBeNil)
				m.ticks.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_combat_ticks_total")
			})
		})
	})
}

func TestInit(t *testing.T) {
	Convey("Given the global manager rebuilt with a namespace", t, func() {
		Init(WithNamespace("arena"), WithHistogramBuckets([]float64{5, 50}))
		Reset(func() { Init() })

		Convey("When a battle is recorded", func() {
			RecordBattle("victory")
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			names := make([]string, 0, len(families))
			for _, f := range families {
				names = append(names, f.GetName())
			}

			Convey("Then the exported names carry the namespace", func() {
				So(names, ShouldContain, "arena_battle_battles_total")
				So(names, ShouldNotContain, "xianxia_battle_battles_total")
			})
		})
	})
}

func TestRecordFunctions(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording battle metrics", func() {
			before := testutil.ToFloat64(globalManager.skillUses.WithLabelValues("quan", "success"))
			RecordSkillUse("quan", "success")
			RecordTick()
			RecordTurn("ai")
			RecordDamage(12)
			RecordRendezvousWait("SKILL_USE_DESC_END", 40)
			RecordBattle("victory")
			AddActiveBattles(1)
			AddActiveBattles(-1)
			RecordDecisionLatency(3)
			RecordDecisionFallback()
			RecordBusPublish("SKILL_USE")
			AddBusSubscribers(2)
			AddBusSubscribers(-2)
			UpdateQueueCapacity(8)
			UpdateQueueSize(1)
			RecordQueueEnqueueError("full")
			RecordNarrationJob("SKILL_USE", "ok")
			RecordNarrationLatency(120)
			RecordHTTPRequest("skill", "POST", "202")
			RecordHTTPRequestDuration("skill", "POST", "202", 1)
			RecordDuplicateChoice()

			Convey("Then counters move", func() {
				after := testutil.ToFloat64(globalManager.skillUses.WithLabelValues("quan", "success"))
				So(after-before, ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 1)
			})
		})

		Convey("Then the custom registry is exposed", func() {
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
