package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostelcore/internal/blob"
	"hostelcore/internal/core"
	"hostelcore/internal/provisioning"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"HOSTELCORE_HTTP_ADDR", "HOSTELCORE_HTTP_BASE_URL", "HOSTELCORE_ADMIN_TOKEN",
		"HOSTELCORE_STORAGE_DRIVER", "HOSTELCORE_SQLITE_PATH", "HOSTELCORE_POSTGRES_DSN",
		"HOSTELCORE_BLOB_DRIVER", "HOSTELCORE_BLOB_FS_ROOT", "HOSTELCORE_BLOB_S3_BUCKET",
		"HOSTELCORE_BLOB_S3_REGION", "HOSTELCORE_BLOB_S3_ENDPOINT", "HOSTELCORE_BLOB_S3_PATH_STYLE",
		"HOSTELCORE_REDIS_ADDR", "HOSTELCORE_REDIS_PASSWORD", "HOSTELCORE_REDIS_DB",
		"HOSTELCORE_STUDENT_COUNT", "HOSTELCORE_DEFAULT_PASSWORD", "HOSTELCORE_LOG_LEVEL",
		"HOSTELCORE_LOG_FORMAT", "HOSTELCORE_METRICS_EXPORTER", "HOSTELCORE_TRACE_JSON_PATH",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, provisioning.DefaultStudentCount, cfg.Provisioning.StudentCount)
	assert.Equal(t, core.StorageConfig{Driver: core.StorageSQLite, SQLitePath: "./hostelcore.db"}, cfg.StorageConfig())
	assert.Equal(t, blob.DriverFilesystem, cfg.BlobConfig().Driver)
	assert.Equal(t, MetricsPrometheus, cfg.Metrics.Exporter)
	assert.Empty(t, cfg.Trace.JSONPath)
}

func TestLoadFileAndEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "hostelcore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  addr: ":9090"
admin:
  token: from-file
storage:
  driver: memory
blob:
  driver: s3
  s3:
    bucket: rosters
    region: eu-west-1
provisioning:
  student_count: 50
log:
  level: debug
  format: console
metrics:
  exporter: expvar
`), 0o600))

	t.Setenv("HOSTELCORE_ADMIN_TOKEN", "from-env")
	t.Setenv("HOSTELCORE_BLOB_S3_PATH_STYLE", "true")
	t.Setenv("HOSTELCORE_REDIS_DB", "2")
	t.Setenv("HOSTELCORE_TRACE_JSON_PATH", "/var/log/hostelcore/spans.jsonl")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "from-env", cfg.Admin.Token)
	assert.Equal(t, core.StorageMemory, cfg.StorageConfig().Driver)
	assert.Equal(t, 50, cfg.Provisioning.StudentCount)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, MetricsExpvar, cfg.Metrics.Exporter)
	assert.Equal(t, "/var/log/hostelcore/spans.jsonl", cfg.Trace.JSONPath)

	bc := cfg.BlobConfig()
	assert.Equal(t, blob.DriverS3, bc.Driver)
	assert.Equal(t, "rosters", bc.S3.Bucket)
	assert.True(t, bc.S3.PathStyle)
}

func TestLoadCollectsErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOSTELCORE_STORAGE_DRIVER", "postgres")
	t.Setenv("HOSTELCORE_BLOB_DRIVER", "ftp")
	t.Setenv("HOSTELCORE_LOG_LEVEL", "loud")
	t.Setenv("HOSTELCORE_METRICS_EXPORTER", "statsd")
	t.Setenv("HOSTELCORE_STUDENT_COUNT", "1000000")

	_, err := Load("")
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "storage.postgres_dsn")
	assert.Contains(t, msg, "blob.driver")
	assert.Contains(t, msg, "log.level")
	assert.Contains(t, msg, "metrics.exporter")
	assert.Contains(t, msg, "provisioning.student_count")
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOSTELCORE_STUDENT_COUNT", "many")
	t.Setenv("HOSTELCORE_BLOB_S3_PATH_STYLE", "perhaps")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HOSTELCORE_STUDENT_COUNT")
	assert.Contains(t, err.Error(), "HOSTELCORE_BLOB_S3_PATH_STYLE")
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	cfg := Default()
	cfg.Admin.Token = "abc"
	cfg.Redis.Addr = "localhost:6379"
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestEnvOverridesUseLookup(t *testing.T) {
	env := map[string]string{"HOSTELCORE_HTTP_ADDR": ":7000", "HOSTELCORE_SQLITE_PATH": "/tmp/x.db"}
	cfg := Default()
	require.NoError(t, cfg.applyEnvOverrides(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}))
	assert.Equal(t, ":7000", cfg.HTTP.Addr)
	assert.Equal(t, "/tmp/x.db", cfg.Storage.SQLitePath)
}
