package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config aggregates runtime configuration for the ingestion API.
type Config struct {
	Server   ServerConfig
	MinIO    MinIOConfig
	Postgres PostgresConfig
	Staging  StagingConfig
	Presign  PresignConfig
	Metrics  MetricsConfig
}

// ServerConfig parameterizes the HTTP server.
type ServerConfig struct {
	Host               string
	Port               int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	MaxMultipartMemory int64
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MinIOConfig carries connection and bucket information for the durable store.
type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
}

// PostgresConfig contains connection details for the optional object ledger.
type PostgresConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN returns the PostgreSQL DSN string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// StagingConfig controls local chunk staging.
type StagingConfig struct {
	Dir           string
	SessionTTL    time.Duration
	SweepInterval time.Duration
}

// PresignConfig controls presigned download links.
type PresignConfig struct {
	DefaultTTL time.Duration
	MaxTTL     time.Duration
}

// MetricsConfig groups observability settings.
type MetricsConfig struct {
	PrometheusPath string
}

// Load reads configuration values from environment variables, applying defaults.
// AWS_* variables are honoured as fallbacks for the store credentials, bucket and region.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host:               getString("INGEST_API_HOST", "0.0.0.0"),
			Port:               getInt("INGEST_API_PORT", 8000),
			ReadTimeout:        getDuration("INGEST_API_READ_TIMEOUT", 5*time.Minute),
			WriteTimeout:       getDuration("INGEST_API_WRITE_TIMEOUT", 5*time.Minute),
			IdleTimeout:        getDuration("INGEST_API_IDLE_TIMEOUT", 60*time.Second),
			MaxMultipartMemory: getInt64("INGEST_API_MAX_MULTIPART_MEMORY", 32<<20),
		},
		MinIO: MinIOConfig{
			Endpoint:        getString("MINIO_ENDPOINT", "s3.amazonaws.com"),
			AccessKeyID:     getString("MINIO_ROOT_USER", getString("AWS_ACCESS_KEY_ID", "")),
			SecretAccessKey: getString("MINIO_ROOT_PASSWORD", getString("AWS_SECRET_ACCESS_KEY", "")),
			Bucket:          getString("MINIO_BUCKET", getString("AWS_BUCKET", "")),
			UseSSL:          getBool("MINIO_USE_SSL", true),
			Region:          getString("MINIO_REGION", getString("AWS_REGION", "")),
		},
		Postgres: PostgresConfig{
			Enabled:  getBool("POSTGRES_ENABLED", false),
			Host:     getString("POSTGRES_HOST", "localhost"),
			Port:     getInt("POSTGRES_PORT", 5432),
			User:     getString("POSTGRES_USER", "ingest_app"),
			Password: getString("POSTGRES_PASSWORD", "change-me"),
			Database: getString("POSTGRES_DB", "ingest"),
			SSLMode:  strings.ToLower(getString("POSTGRES_SSL_MODE", "disable")),
		},
		Staging: StagingConfig{
			Dir:           getString("INGEST_STAGING_DIR", filepath.Join(os.TempDir(), "ingest-chunks")),
			SessionTTL:    getDuration("INGEST_STAGING_SESSION_TTL", 24*time.Hour),
			SweepInterval: getDuration("INGEST_STAGING_SWEEP_INTERVAL", 15*time.Minute),
		},
		Presign: PresignConfig{
			DefaultTTL: getDuration("INGEST_PRESIGN_TTL", 15*time.Minute),
			MaxTTL:     getDuration("INGEST_PRESIGN_MAX_TTL", 7*24*time.Hour),
		},
		Metrics: MetricsConfig{
			PrometheusPath: getString("INGEST_METRICS_PATH", "/metrics"),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.MinIO.Bucket) == "" {
		return fmt.Errorf("bucket is required (MINIO_BUCKET or AWS_BUCKET)")
	}
	if strings.TrimSpace(c.Staging.Dir) == "" {
		return fmt.Errorf("INGEST_STAGING_DIR must not be empty")
	}
	if c.Presign.DefaultTTL <= 0 || c.Presign.DefaultTTL > c.Presign.MaxTTL {
		return fmt.Errorf("INGEST_PRESIGN_TTL must be within (0, %s]", c.Presign.MaxTTL)
	}
	return nil
}

func getString(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getInt64(key string, fallback int64) int64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.ToLower(strings.TrimSpace(val))
		switch val {
		case "1", "true", "t", "yes", "y":
			return true
		case "0", "false", "f", "no", "n":
			return false
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}
