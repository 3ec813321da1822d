package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

const fastConfig = `
log_level: error
tick_interval_ms: 0
execute_pause_ms: 0
ai_think_delay_ms: 0
typing_speed_ms: 0
end_settle_ms: 0
ai_seed: 3
`

func execute(args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(bytes.NewReader(nil))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "xianxia.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCommands(t *testing.T) {
	path := writeConfig(t, fastConfig)

	convey.Convey("Given the xianxia command", t, func() {
		convey.Convey("When asked for its version", func() {
			out, _, err := execute("version")
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldEqual, "dev\n")
		})

		convey.Convey("When listing skills", func() {
			out, _, err := execute("skills", "--config", path)
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "wu_lei_zheng_fa")
			convey.So(out, convey.ShouldContainSubstring, "hp+30 mp+20")
		})

		convey.Convey("When an automatic battle is fought", func() {
			out, _, err := execute("battle", "--auto", "--config", path, "--name", "Han Li")
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "Han Li")
			convey.So(out, convey.ShouldContainSubstring, "Result: victory")
		})

		convey.Convey("When a manual battle gets no input", func() {
			_, _, err := execute("battle", "--config", path)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "player input closed")
		})

		convey.Convey("When the enemy is unknown", func() {
			_, _, err := execute("battle", "--auto", "--config", path, "--enemy", "nobody")
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When the config file is missing", func() {
			_, _, err := execute("skills", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestConfigFromEnv(t *testing.T) {
	convey.Convey("Given an invalid value in the environment", t, func() {
		t.Setenv("XIAN_TICK_STEP", "0")

		convey.Convey("Then every command refuses to start", func() {
			_, _, err := execute("skills")
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "tick_step")
		})
	})
}
