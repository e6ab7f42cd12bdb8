package app

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"

	"github.com/yungbote/neurobridge-curriculum/internal/observability"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/logger"
	"github.com/yungbote/neurobridge-curriculum/internal/utils"
)

type Config struct {
	DBDriver    string
	SQLitePath  string
	AutoMigrate bool

	// NodePropertiesConfig points at a YAML override of the required
	// node properties table; empty uses the embedded default.
	NodePropertiesConfig string
	ExportConcurrency    int

	Otel observability.OtelConfig
}

// LoadDotEnv seeds the process environment from path (".env" when empty).
// A missing file is not an error; variables already set are kept.
func LoadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		DBDriver:             strings.ToLower(strings.TrimSpace(utils.GetEnv("DB_DRIVER", "postgres", log))),
		SQLitePath:           utils.GetEnv("SQLITE_PATH", "curriculum.db", log),
		AutoMigrate:          utils.GetEnvAsBool("AUTO_MIGRATE", true, log),
		NodePropertiesConfig: utils.GetEnv("NODE_PROPERTIES_CONFIG", "", log),
		ExportConcurrency:    utils.GetEnvAsInt("EXPORT_CONCURRENCY", 4, log),
		Otel: observability.OtelConfig{
			Enabled:     utils.GetEnvAsBool("OTEL_ENABLED", false, log),
			ServiceName: utils.GetEnv("OTEL_SERVICE_NAME", "curriculum", log),
			Environment: utils.GetEnv("APP_ENV", "development", log),
			Version:     utils.GetEnv("APP_VERSION", "", log),
			Endpoint:    utils.GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "", log),
			Headers:     utils.GetEnv("OTEL_EXPORTER_OTLP_HEADERS", "", log),
			Insecure:    utils.GetEnvAsBool("OTEL_EXPORTER_OTLP_INSECURE", false, log),
			SampleRatio: utils.GetEnvAsFloat("OTEL_SAMPLER_RATIO", 0.1, log),
		},
	}
}
