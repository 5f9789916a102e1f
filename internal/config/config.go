// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"zenstay/internal/blob"
	"zenstay/internal/core"
)

// Config is the server and CLI configuration.
type Config struct {
	HTTP     HTTPConfig
	Log      LogConfig
	Storage  core.StorageConfig
	Blob     blob.Config
	NATS     NATSConfig
	Schedule ScheduleConfig
	// Strict selects the strict occupancy policy; false selects lenient.
	Strict bool
}

// HTTPConfig configures the HTTP adapter.
type HTTPConfig struct {
	Addr            string
	RateLimit       float64 // mutating requests per second, 0 disables
	RateBurst       int
	CORSOrigins     []string
	ShutdownTimeout time.Duration
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string
	Format string
}

// NATSConfig configures notification publishing. An empty URL disables it.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
}

// ScheduleConfig holds the cron specs of the background jobs. An empty spec
// disables the job.
type ScheduleConfig struct {
	ArchiveCron  string
	ArchiveKeep  int
	OvertimeCron string
}

// Load reads the optional .env file (or ZENSTAY_ENV_FILE) and then the
// process environment. Variables already set in the environment win.
func Load() (*Config, error) {
	envFile := getEnv("ZENSTAY_ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	p := parser{}
	cfg := &Config{
		HTTP: HTTPConfig{
			Addr:            getEnv("ZENSTAY_HTTP_ADDR", ":8080"),
			RateLimit:       p.getFloat("ZENSTAY_RATE_LIMIT", 20),
			RateBurst:       p.getInt("ZENSTAY_RATE_BURST", 40),
			CORSOrigins:     splitList(getEnv("ZENSTAY_CORS_ORIGINS", "*")),
			ShutdownTimeout: p.getDuration("ZENSTAY_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("ZENSTAY_LOG_LEVEL", "info"),
			Format: getEnv("ZENSTAY_LOG_FORMAT", "json"),
		},
		Storage: core.StorageConfig{
			Driver:        core.StorageDriver(getEnv("ZENSTAY_STORAGE_DRIVER", string(core.StorageSQLite))),
			SQLitePath:    getEnv("ZENSTAY_SQLITE_PATH", "zenstay.db"),
			PostgresDSN:   getEnv("ZENSTAY_POSTGRES_DSN", ""),
			RedisAddr:     getEnv("ZENSTAY_REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("ZENSTAY_REDIS_PASSWORD", ""),
			RedisDB:       p.getInt("ZENSTAY_REDIS_DB", 0),
			RedisPrefix:   getEnv("ZENSTAY_REDIS_PREFIX", "zenstay:"),
		},
		Blob: blob.Config{
			Driver: blob.Driver(getEnv("ZENSTAY_BLOB_DRIVER", string(blob.DriverFilesystem))),
			FSRoot: getEnv("ZENSTAY_BLOB_FS_ROOT", "./blobdata"),
			S3: blob.S3Config{
				Region:          getEnv("ZENSTAY_BLOB_S3_REGION", "us-east-1"),
				Bucket:          getEnv("ZENSTAY_BLOB_S3_BUCKET", ""),
				Endpoint:        getEnv("ZENSTAY_BLOB_S3_ENDPOINT", ""),
				AccessKeyID:     getEnv("ZENSTAY_BLOB_S3_ACCESS_KEY_ID", ""),
				SecretAccessKey: getEnv("ZENSTAY_BLOB_S3_SECRET_ACCESS_KEY", ""),
				SessionToken:    getEnv("ZENSTAY_BLOB_S3_SESSION_TOKEN", ""),
				PathStyle:       p.getBool("ZENSTAY_BLOB_S3_PATH_STYLE", false),
				Prefix:          getEnv("ZENSTAY_BLOB_S3_PREFIX", ""),
			},
		},
		NATS: NATSConfig{
			URL:           getEnv("ZENSTAY_NATS_URL", ""),
			SubjectPrefix: getEnv("ZENSTAY_NATS_SUBJECT_PREFIX", "zenstay.notify"),
		},
		Schedule: ScheduleConfig{
			ArchiveCron:  getEnv("ZENSTAY_ARCHIVE_CRON", "0 3 * * *"),
			ArchiveKeep:  p.getInt("ZENSTAY_ARCHIVE_KEEP", 30),
			OvertimeCron: getEnv("ZENSTAY_OVERTIME_CRON", "*/5 * * * *"),
		},
		Strict: p.getBool("ZENSTAY_STRICT", true),
	}
	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the combinations Load cannot express per key.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case core.StorageMemory, core.StorageSQLite, core.StorageRedis:
	case core.StoragePostgres:
		if c.Storage.PostgresDSN == "" {
			return errors.New("ZENSTAY_POSTGRES_DSN is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Blob.Driver {
	case blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.Blob.S3.Bucket == "" {
			return errors.New("ZENSTAY_BLOB_S3_BUCKET is required for the s3 blob driver")
		}
	default:
		return fmt.Errorf("unknown blob driver %q", c.Blob.Driver)
	}
	if c.HTTP.RateLimit < 0 {
		return errors.New("ZENSTAY_RATE_LIMIT must not be negative")
	}
	if c.Schedule.ArchiveKeep < 0 {
		return errors.New("ZENSTAY_ARCHIVE_KEEP must not be negative")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// parser collects conversion errors so Load reports every bad key at once.
type parser struct {
	errs []error
}

func (p *parser) getInt(key string, def int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (p *parser) getFloat(key string, def float64) float64 {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (p *parser) getBool(key string, def bool) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (p *parser) getDuration(key string, def time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
