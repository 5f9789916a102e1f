package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"zenstay/internal/blob"
	"zenstay/internal/core"
)

func noEnvFile(t *testing.T) {
	t.Helper()
	t.Setenv("ZENSTAY_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoadDefaults(t *testing.T) {
	noEnvFile(t)
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTP.Addr)
	require.Equal(t, core.StorageSQLite, cfg.Storage.Driver)
	require.Equal(t, blob.DriverFilesystem, cfg.Blob.Driver)
	require.Equal(t, []string{"*"}, cfg.HTTP.CORSOrigins)
	require.Equal(t, 10*time.Second, cfg.HTTP.ShutdownTimeout)
	require.True(t, cfg.Strict)
	require.Empty(t, cfg.NATS.URL)
	require.Equal(t, "zenstay.notify", cfg.NATS.SubjectPrefix)
}

func TestLoadOverrides(t *testing.T) {
	noEnvFile(t)
	t.Setenv("ZENSTAY_HTTP_ADDR", ":9090")
	t.Setenv("ZENSTAY_STORAGE_DRIVER", "redis")
	t.Setenv("ZENSTAY_REDIS_DB", "3")
	t.Setenv("ZENSTAY_STRICT", "false")
	t.Setenv("ZENSTAY_RATE_LIMIT", "2.5")
	t.Setenv("ZENSTAY_CORS_ORIGINS", "https://desk.example, http://localhost:5173 ,")
	t.Setenv("ZENSTAY_BLOB_DRIVER", "s3")
	t.Setenv("ZENSTAY_BLOB_S3_BUCKET", "archives")
	t.Setenv("ZENSTAY_BLOB_S3_PATH_STYLE", "true")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTP.Addr)
	require.Equal(t, core.StorageRedis, cfg.Storage.Driver)
	require.Equal(t, 3, cfg.Storage.RedisDB)
	require.False(t, cfg.Strict)
	require.InDelta(t, 2.5, cfg.HTTP.RateLimit, 1e-9)
	require.Equal(t, []string{"https://desk.example", "http://localhost:5173"}, cfg.HTTP.CORSOrigins)
	require.Equal(t, "archives", cfg.Blob.S3.Bucket)
	require.True(t, cfg.Blob.S3.PathStyle)
}

func TestLoadReportsEveryBadKey(t *testing.T) {
	noEnvFile(t)
	t.Setenv("ZENSTAY_REDIS_DB", "zero")
	t.Setenv("ZENSTAY_STRICT", "maybe")
	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "ZENSTAY_REDIS_DB")
	require.Contains(t, err.Error(), "ZENSTAY_STRICT")
}

func TestLoadValidatesDrivers(t *testing.T) {
	noEnvFile(t)
	t.Setenv("ZENSTAY_STORAGE_DRIVER", "postgres")
	_, err := Load()
	require.ErrorContains(t, err, "ZENSTAY_POSTGRES_DSN")

	t.Setenv("ZENSTAY_STORAGE_DRIVER", "mongo")
	_, err = Load()
	require.ErrorContains(t, err, "unknown storage driver")

	t.Setenv("ZENSTAY_STORAGE_DRIVER", "memory")
	t.Setenv("ZENSTAY_BLOB_DRIVER", "s3")
	_, err = Load()
	require.ErrorContains(t, err, "ZENSTAY_BLOB_S3_BUCKET")
}

func TestLoadReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zenstay.env")
	require.NoError(t, os.WriteFile(path, []byte("ZENSTAY_LOG_LEVEL=debug\nZENSTAY_ARCHIVE_KEEP=7\n"), 0o600))
	t.Setenv("ZENSTAY_ENV_FILE", path)
	// godotenv does not override variables that are already set, so clear
	// them through t.Setenv to restore afterwards.
	t.Setenv("ZENSTAY_LOG_LEVEL", "")
	t.Setenv("ZENSTAY_ARCHIVE_KEEP", "")
	require.NoError(t, os.Unsetenv("ZENSTAY_LOG_LEVEL"))
	require.NoError(t, os.Unsetenv("ZENSTAY_ARCHIVE_KEEP"))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, 7, cfg.Schedule.ArchiveKeep)
}
