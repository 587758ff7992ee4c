package config_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/okian/facepunch/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			// Clear any existing environment variables
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.Tolerance, convey.ShouldEqual, 0.5)
				convey.So(cfg.RequiredStreak, convey.ShouldEqual, 3)
				convey.So(cfg.LookbackWindow, convey.ShouldEqual, 60*time.Second)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("FACEPUNCH_ADDR", ":8080")
			_ = os.Setenv("FACEPUNCH_TOLERANCE", "0.42")
			_ = os.Setenv("FACEPUNCH_REQUIRED_STREAK", "5")
			_ = os.Setenv("FACEPUNCH_LOOKBACK_WINDOW", "2m")
			_ = os.Setenv("FACEPUNCH_DATA_DIR", "/var/lib/facepunch")
			_ = os.Setenv("FACEPUNCH_FRAME_STRIDE", "2")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.Tolerance, convey.ShouldEqual, 0.42)
				convey.So(cfg.RequiredStreak, convey.ShouldEqual, 5)
				convey.So(cfg.LookbackWindow, convey.ShouldEqual, 2*time.Minute)
				convey.So(cfg.DataDir, convey.ShouldEqual, "/var/lib/facepunch")
				convey.So(cfg.FrameStride, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
embedding_dim: 64
tolerance: 0.6
required_streak: 4
lookback_window: 90s
session_timeout: 10s
history_scan_limit: 10
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("FACEPUNCH_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.EmbeddingDim, convey.ShouldEqual, 64)
				convey.So(cfg.Tolerance, convey.ShouldEqual, 0.6)
				convey.So(cfg.RequiredStreak, convey.ShouldEqual, 4)
				convey.So(cfg.LookbackWindow, convey.ShouldEqual, 90*time.Second)
				convey.So(cfg.SessionTimeout, convey.ShouldEqual, 10*time.Second)
				convey.So(cfg.HistoryScanLimit, convey.ShouldEqual, 10)
			})
		})

		convey.Convey("When env overrides the YAML file", func() {
			tmpFile := createTempConfigFile("addr: \":9090\"\nrequired_streak: 4\n")
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("FACEPUNCH_CONFIG", tmpFile)
			_ = os.Setenv("FACEPUNCH_REQUIRED_STREAK", "6")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then env should take precedence", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.RequiredStreak, convey.ShouldEqual, 6)
			})
		})
	})
}

func TestConfigLoaderEdgeCases(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When the config file does not exist", func() {
			_ = os.Setenv("FACEPUNCH_CONFIG", "/nonexistent/facepunch.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the YAML is malformed", func() {
			tmpFile := createTempConfigFile("addr: [unterminated\n")
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("FACEPUNCH_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When env sets an invalid tolerance", func() {
			_ = os.Setenv("FACEPUNCH_TOLERANCE", "-1")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then validation should fail", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "tolerance")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When env sets a zero required streak", func() {
			_ = os.Setenv("FACEPUNCH_REQUIRED_STREAK", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then validation should fail", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "required_streak")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"FACEPUNCH_CONFIG",
		"FACEPUNCH_ADDR",
		"FACEPUNCH_DATA_DIR",
		"FACEPUNCH_TOLERANCE",
		"FACEPUNCH_REQUIRED_STREAK",
		"FACEPUNCH_LOOKBACK_WINDOW",
		"FACEPUNCH_FRAME_STRIDE",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "facepunch-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
