package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/xianxia/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.ActionThreshold, convey.ShouldEqual, 1000)
				convey.So(cfg.TickStep, convey.ShouldEqual, 30)
				convey.So(cfg.AITopN, convey.ShouldEqual, 3)
				convey.So(cfg.PlayerID, convey.ShouldEqual, "player")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("XIAN_ADDR", ":8080")
			_ = os.Setenv("XIAN_TICK_STEP", "45")
			_ = os.Setenv("XIAN_AI_THINK_DELAY_MS", "0")
			_ = os.Setenv("XIAN_AI_DAMAGE_WEIGHT", "2.5")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.TickStep, convey.ShouldEqual, 45)
				convey.So(cfg.AIThinkDelayMS, convey.ShouldEqual, 0)
				convey.So(cfg.AIDamageWeight, convey.ShouldEqual, 2.5)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(t, `
addr: ":9090"
action_threshold: 500
typing_speed_ms: 5
catalog_path: "skills.yaml"
`)
			_ = os.Setenv("XIAN_CONFIG", tmpFile)
			_ = os.Setenv("XIAN_ADDR", ":7070")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.ActionThreshold, convey.ShouldEqual, 500)
				convey.So(cfg.TypingSpeedMS, convey.ShouldEqual, 5)
				convey.So(cfg.CatalogPath, convey.ShouldEqual, "skills.yaml")
				convey.So(cfg.ExecutePauseMS, convey.ShouldEqual, 500)
			})
		})

		convey.Convey("When the file tunes the metrics", func() {
			tmpFile := createTempConfigFile(t, `
metrics_namespace: arena
metrics_subsystem: duel
metrics_latency_buckets_ms: [5, 50, 500]
`)
			cfg, err := config.LoadFile(ctx, tmpFile)

			convey.Convey("Then the namespace and buckets are read", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "arena")
				convey.So(cfg.MetricsSubsystem, convey.ShouldEqual, "duel")
				convey.So(cfg.MetricsLatencyBucketsMS, convey.ShouldResemble, []float64{5, 50, 500})
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(t, `invalid: yaml: content: [`)

			cfg, err := config.LoadFile(ctx, tmpFile)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			cfg, err := config.LoadFile(ctx, "/non/existent/file.yaml")

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with a zero tick step", func() {
			_ = os.Setenv("XIAN_TICK_STEP", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "tick_step")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, config.EnvPrefix) {
			_ = os.Unsetenv(name)
		}
	}
}
