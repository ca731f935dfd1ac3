package config_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/okian/diarycal/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.ProfileStore, convey.ShouldEqual, config.BackendFile)
				convey.So(cfg.LabelStore, convey.ShouldEqual, config.BackendJSONL)
				convey.So(cfg.MinSamples, convey.ShouldEqual, 20)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("DIARYCAL_PLATT_ITERATIONS", "500")
			_ = os.Setenv("DIARYCAL_PLATT_LEARNING_RATE", "0.05")
			_ = os.Setenv("DIARYCAL_MIN_SAMPLES", "30")
			_ = os.Setenv("DIARYCAL_PROFILE_STORE", "memory")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.PlattIterations, convey.ShouldEqual, 500)
				convey.So(cfg.PlattLearningRate, convey.ShouldEqual, 0.05)
				convey.So(cfg.MinSamples, convey.ShouldEqual, 30)
				convey.So(cfg.ProfileStore, convey.ShouldEqual, config.BackendMemory)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
isotonic_bins: 20
ece_bins: 15
label_store: postgres
pg_dsn: "postgres://localhost/diary?sslmode=disable"
redis_addr: "localhost:6379"
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("DIARYCAL_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.IsotonicBins, convey.ShouldEqual, 20)
				convey.So(cfg.ECEBins, convey.ShouldEqual, 15)
				convey.So(cfg.LabelStore, convey.ShouldEqual, config.BackendPostgres)
				convey.So(cfg.RedisAddr, convey.ShouldEqual, "localhost:6379")
				convey.So(cfg.PlattIterations, convey.ShouldEqual, 2000)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
isotonic_bins: 20
min_samples: 40
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("DIARYCAL_CONFIG", tmpFile)
			_ = os.Setenv("DIARYCAL_MIN_SAMPLES", "25")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.IsotonicBins, convey.ShouldEqual, 20)
				convey.So(cfg.MinSamples, convey.ShouldEqual, 25)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("DIARYCAL_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("DIARYCAL_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the result fails validation", func() {
			_ = os.Setenv("DIARYCAL_PLATT_LEARNING_RATE", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return ErrInvalidConfig", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "platt_learning_rate")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "diarycal-config-*.yaml")
	if err != nil {
		panic(err)
	}
	defer func() { _ = tmpFile.Close() }()

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, config.EnvPrefix) {
			_ = os.Unsetenv(name)
		}
	}
}
