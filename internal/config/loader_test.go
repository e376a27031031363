package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/battle64/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		// Point the .env lookup at a file that does not exist.
		_ = os.Setenv("BATTLE64_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 100_000)
				convey.So(cfg.RefreshInterval, convey.ShouldEqual, 5*time.Second)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("BATTLE64_ADDR", ":8080")
			_ = os.Setenv("BATTLE64_QUEUE_SIZE", "1000")
			_ = os.Setenv("BATTLE64_WORKER_COUNT", "16")
			_ = os.Setenv("BATTLE64_REFRESH_INTERVAL", "750ms")
			_ = os.Setenv("BATTLE64_TIE_BREAK", "submission_date")
			_ = os.Setenv("BATTLE64_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 1000)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.RefreshInterval, convey.ShouldEqual, 750*time.Millisecond)
				convey.So(cfg.TieBreak, convey.ShouldEqual, "submission_date")
				convey.So(cfg.CORSAllowedOrigins, convey.ShouldResemble,
					[]string{"https://a.example", "https://b.example"})
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(t, `
addr: ":9090"
queue_size: 300000
worker_count: 24
max_username_length: 20
`)
			_ = os.Setenv("BATTLE64_CONFIG", tmpFile)
			_ = os.Setenv("BATTLE64_WORKER_COUNT", "32")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")          // From file
				convey.So(cfg.QueueSize, convey.ShouldEqual, 300000)      // From file
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 32)        // Overridden by env
				convey.So(cfg.MaxUsernameLength, convey.ShouldEqual, 20)  // From file
				convey.So(cfg.DedupeSize, convey.ShouldEqual, 500_000)    // From defaults
			})
		})

		convey.Convey("When a .env file is present", func() {
			dir := t.TempDir()
			envFile := filepath.Join(dir, "test.env")
			convey.So(os.WriteFile(envFile, []byte("BATTLE64_MAX_LEADERBOARD_LIMIT=25\n"), 0o600), convey.ShouldBeNil)
			_ = os.Setenv("BATTLE64_ENV_FILE", envFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then its values are applied", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.MaxLeaderboardLimit, convey.ShouldEqual, 25)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(t, `invalid: yaml: content: [`)
			_ = os.Setenv("BATTLE64_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("BATTLE64_CONFIG", "/non/existent/battle64.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("BATTLE64_ADDR", "")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("BATTLE64_QUEUE_SIZE", "invalid")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When postgres is selected through the environment", func() {
			_ = os.Setenv("BATTLE64_STORE", "postgres")

			_, err := config.Load(ctx)

			convey.Convey("Then the missing DSN is reported", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"BATTLE64_CONFIG",
		"BATTLE64_ENV_FILE",
		"BATTLE64_ADDR",
		"BATTLE64_QUEUE_SIZE",
		"BATTLE64_WORKER_COUNT",
		"BATTLE64_REFRESH_INTERVAL",
		"BATTLE64_TIE_BREAK",
		"BATTLE64_CORS_ALLOWED_ORIGINS",
		"BATTLE64_MAX_LEADERBOARD_LIMIT",
		"BATTLE64_STORE",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "battle64-config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
