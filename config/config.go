package config

import (
	"log/slog"
	"os"
	"strconv"
)

const (
	EnvDevelopment = "DEV"
	EnvProduction  = "PROD"
)

type AppConfig struct {
	KeycloakClientID     string
	KeycloakClientSecret string
	KeycloakRealm        string
	KeycloakURL          string
	PostgresURL          string
	RedisURL             string
	SearchIndexPath      string
	SMTPHost             string
	SMTPPort             string
	SMTPFrom             string
	SMTPPassword         string
	AppBaseURL           string
	AdminAPIKey          string
	WorkerConcurrency    int
	ScanMatchLimit       int
	AppEnv               string // EnvDevelopment or EnvProduction
	LogLevel             slog.Level
}

var Config AppConfig

func LoadConfig() {
	cfg := AppConfig{}

	cfg.AppEnv = os.Getenv("APP_ENV")
	cfg.KeycloakClientID = loadRequired("KEYCLOAK_CLIENT_ID")
	cfg.KeycloakClientSecret = loadRequired("KEYCLOAK_CLIENT_SECRET")
	cfg.KeycloakRealm = loadRequired("KEYCLOAK_REALM")
	cfg.KeycloakURL = loadRequired("KEYCLOAK_URL")
	cfg.PostgresURL = loadRequired("POSTGRES_URL")
	cfg.RedisURL = loadRequired("REDIS_URL")
	cfg.SearchIndexPath = loadOptional("SEARCH_INDEX_PATH", "jobs.bleve")
	cfg.SMTPHost = loadRequired("SMTP_HOST")
	cfg.SMTPPort = loadRequired("SMTP_PORT")
	cfg.SMTPFrom = loadRequired("SMTP_FROM")
	cfg.SMTPPassword = loadRequired("SMTP_PASSWORD")
	cfg.AppBaseURL = loadOptional("APP_BASE_URL", "")
	cfg.AdminAPIKey = loadRequired("ADMIN_API_KEY")
	cfg.WorkerConcurrency = loadOptionalInt("WORKER_CONCURRENCY", 5)
	cfg.ScanMatchLimit = loadOptionalInt("SCAN_MATCH_LIMIT", 50)

	lvlString := loadOptional("LOG_LEVEL", "INFO")
	var err error
	cfg.LogLevel, err = parseLogLevel(lvlString)
	if err != nil {
		slog.Error("Invalid LOG_LEVEL", "error", err)
		cfg.LogLevel = slog.LevelInfo
	}

	Config = cfg
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	var err = level.UnmarshalText([]byte(s))
	return level, err
}

func loadRequired(key string) string {
	value := os.Getenv(key)
	if value == "" {
		slog.Error("Required env var not set", "key", key)
		os.Exit(1)
	}
	return value
}

func loadOptional(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func loadOptionalInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		slog.Error("Invalid integer env var, using default", "key", key, "value", value)
		return defaultValue
	}
	return n
}

func (c AppConfig) IsProduction() bool {
	return Config.AppEnv == EnvProduction
}
