// Package config provides application configuration loaded from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	App       AppConfig
	Redis     RedisConfig
	Storage   StorageConfig
	Render    RenderConfig
	Telemetry TelemetryConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  int // seconds
	WriteTimeout int // seconds
	IdleTimeout  int // seconds
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver   string // postgres | sqlite
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	// SQLitePath is only used when Driver is sqlite.
	SQLitePath string
	Debug      bool
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Dev bool
	// Migrations selects the schema strategy: "auto" (gorm AutoMigrate), "sql" (golang-migrate) or "off".
	Migrations    string
	MigrationsDir string
	LogMode       string
	// Timezone used to compute "today" for reminder due dates.
	Timezone string
}

// RedisConfig configures the activity notification channel. Empty URL disables publishing.
type RedisConfig struct {
	URL     string
	Channel string
}

// StorageConfig selects where layout assets (overlay backgrounds) are read from.
type StorageConfig struct {
	Backend        string // local | minio
	AssetsDir      string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

// RenderConfig holds renderer settings.
type RenderConfig struct {
	RasterDPI float64
	// OverlayTable optionally points to a YAML file replacing the embedded overlay coordinate table.
	OverlayTable string
	// FontPath optionally points to a TTF used by the raster engine; Go Regular is used otherwise.
	FontPath string
}

// TelemetryConfig holds tracing settings.
type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	OTLPEndpoint string
	SampleRatio  float64
}

// DSN returns the PostgreSQL connection string in key=value format.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// URL returns the PostgreSQL connection string in URL format.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Load reads configuration from environment variables.
// It uses sensible defaults for local development.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvInt("SERVER_WRITE_TIMEOUT", 30),
			IdleTimeout:  getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Driver:     strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnvInt("DB_PORT", 5432),
			User:       getEnv("DB_USER", "docflow"),
			Password:   getEnv("DB_PASSWORD", "docflow123"),
			DBName:     getEnv("DB_NAME", "docflow"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			SQLitePath: getEnv("DB_SQLITE_PATH", "docflow.db"),
			Debug:      getEnvBool("DB_DEBUG", false),
		},
		App: AppConfig{
			Dev:           getEnvBool("DEV", true),
			Migrations:    strings.ToLower(getEnv("MIGRATIONS", "auto")),
			MigrationsDir: getEnv("MIGRATIONS_DIR", "migrations"),
			LogMode:       getEnv("LOG_MODE", "development"),
			Timezone:      getEnv("APP_TIMEZONE", "Europe/Paris"),
		},
		Redis: RedisConfig{
			URL:     getEnv("REDIS_URL", ""),
			Channel: getEnv("REDIS_ACTIVITY_CHANNEL", "docflow:activity"),
		},
		Storage: StorageConfig{
			Backend:        strings.ToLower(getEnv("ASSETS_BACKEND", "local")),
			AssetsDir:      getEnv("ASSETS_DIR", "assets"),
			MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
			MinioBucket:    getEnv("MINIO_BUCKET", "layout-assets"),
			MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Render: RenderConfig{
			RasterDPI:    getEnvFloat("RENDER_RASTER_DPI", 150),
			OverlayTable: getEnv("RENDER_OVERLAY_TABLE", ""),
			FontPath:     getEnv("RENDER_FONT_PATH", ""),
		},
		Telemetry: TelemetryConfig{
			Enabled:      getEnvBool("OTEL_ENABLED", false),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "docflow"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			SampleRatio:  getEnvFloat("OTEL_SAMPLER_RATIO", 0.1),
		},
	}
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvBool returns the boolean value of an environment variable or a default.
// Accepts "1", "true", "yes" as true; everything else is false.
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "1" || value == "true" || value == "yes"
}
