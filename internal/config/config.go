// Package config loads hostelcore settings from an optional YAML file and
// HOSTELCORE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"hostelcore/internal/blob"
	"hostelcore/internal/core"
	"hostelcore/internal/provisioning"
)

// Config holds every runtime setting of hostelctl.
type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	Admin        AdminConfig        `yaml:"admin"`
	Storage      StorageConfig      `yaml:"storage"`
	Blob         BlobConfig         `yaml:"blob"`
	Redis        RedisConfig        `yaml:"redis"`
	Provisioning ProvisioningConfig `yaml:"provisioning"`
	Log          LogConfig          `yaml:"log"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Trace        TraceConfig        `yaml:"trace"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
	// BaseURL is the externally visible server URL, used for filesystem
	// artifact links.
	BaseURL string `yaml:"base_url"`
}

// AdminConfig holds the bearer token guarding admin routes.
type AdminConfig struct {
	Token string `yaml:"token"`
}

// StorageConfig selects the registry backend.
type StorageConfig struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// BlobConfig selects where roster exports are written.
type BlobConfig struct {
	Driver string       `yaml:"driver"`
	FSRoot string       `yaml:"fs_root"`
	S3     BlobS3Config `yaml:"s3"`
}

// BlobS3Config parameterises the s3 blob driver.
type BlobS3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// RedisConfig enables the distributed locker when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ProvisioningConfig tunes synthetic data generation.
type ProvisioningConfig struct {
	StudentCount    int    `yaml:"student_count"`
	DefaultPassword string `yaml:"default_password"`
}

// LogConfig selects the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig picks the operation metrics backend served on /metrics.
type MetricsConfig struct {
	Exporter string `yaml:"exporter"`
}

// Metrics exporters.
const (
	MetricsPrometheus = "prometheus"
	MetricsExpvar     = "expvar"
)

// TraceConfig enables per-operation spans written as JSON lines to JSONPath.
type TraceConfig struct {
	JSONPath string `yaml:"json_path"`
}

var (
	storageDrivers = []string{string(core.StorageMemory), string(core.StorageSQLite), string(core.StoragePostgres)}
	blobDrivers    = []string{string(blob.DriverFilesystem), string(blob.DriverMemory), string(blob.DriverS3)}
	logLevels      = []string{"debug", "info", "warn", "error"}
	logFormats     = []string{"json", "console"}
	exporters      = []string{MetricsPrometheus, MetricsExpvar}
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTP:    HTTPConfig{Addr: ":8080"},
		Storage: StorageConfig{Driver: string(core.StorageSQLite), SQLitePath: "./hostelcore.db"},
		Blob:    BlobConfig{Driver: string(blob.DriverFilesystem), FSRoot: "./blobdata"},
		Provisioning: ProvisioningConfig{
			StudentCount:    provisioning.DefaultStudentCount,
			DefaultPassword: core.DefaultPassword,
		},
		Log:     LogConfig{Level: "info", Format: "json"},
		Metrics: MetricsConfig{Exporter: MetricsPrometheus},
	}
}

// Load reads path (skipped when empty), applies environment overrides and
// validates the result. A named file that does not exist is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if err := cfg.applyEnvOverrides(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides copies set HOSTELCORE_* variables over file values.
// Malformed numbers and booleans are collected into one error.
func (c *Config) applyEnvOverrides(lookup func(string) (string, bool)) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not an integer", key, v))
			return
		}
		*dst = n
	}
	flag := func(key string, dst *bool) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not a boolean", key, v))
			return
		}
		*dst = b
	}

	str("HOSTELCORE_HTTP_ADDR", &c.HTTP.Addr)
	str("HOSTELCORE_HTTP_BASE_URL", &c.HTTP.BaseURL)
	str("HOSTELCORE_ADMIN_TOKEN", &c.Admin.Token)
	str("HOSTELCORE_STORAGE_DRIVER", &c.Storage.Driver)
	str("HOSTELCORE_SQLITE_PATH", &c.Storage.SQLitePath)
	str("HOSTELCORE_POSTGRES_DSN", &c.Storage.PostgresDSN)
	str("HOSTELCORE_BLOB_DRIVER", &c.Blob.Driver)
	str("HOSTELCORE_BLOB_FS_ROOT", &c.Blob.FSRoot)
	str("HOSTELCORE_BLOB_S3_BUCKET", &c.Blob.S3.Bucket)
	str("HOSTELCORE_BLOB_S3_REGION", &c.Blob.S3.Region)
	str("HOSTELCORE_BLOB_S3_ENDPOINT", &c.Blob.S3.Endpoint)
	flag("HOSTELCORE_BLOB_S3_PATH_STYLE", &c.Blob.S3.PathStyle)
	str("HOSTELCORE_REDIS_ADDR", &c.Redis.Addr)
	str("HOSTELCORE_REDIS_PASSWORD", &c.Redis.Password)
	num("HOSTELCORE_REDIS_DB", &c.Redis.DB)
	num("HOSTELCORE_STUDENT_COUNT", &c.Provisioning.StudentCount)
	str("HOSTELCORE_DEFAULT_PASSWORD", &c.Provisioning.DefaultPassword)
	str("HOSTELCORE_LOG_LEVEL", &c.Log.Level)
	str("HOSTELCORE_LOG_FORMAT", &c.Log.Format)
	str("HOSTELCORE_METRICS_EXPORTER", &c.Metrics.Exporter)
	str("HOSTELCORE_TRACE_JSON_PATH", &c.Trace.JSONPath)

	return errors.Join(errs...)
}

// Validate reports every invalid or missing setting at once.
func (c *Config) Validate() error {
	var errs []error
	oneOf := func(key, value string, allowed []string) {
		if !slices.Contains(allowed, strings.ToLower(value)) {
			errs = append(errs, fmt.Errorf("%s: %q is not one of %s", key, value, strings.Join(allowed, ", ")))
		}
	}
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		errs = append(errs, errors.New("http.addr: is required"))
	}
	oneOf("storage.driver", c.Storage.Driver, storageDrivers)
	if strings.EqualFold(c.Storage.Driver, string(core.StoragePostgres)) && c.Storage.PostgresDSN == "" {
		errs = append(errs, errors.New("storage.postgres_dsn: is required for the postgres driver"))
	}
	oneOf("blob.driver", c.Blob.Driver, blobDrivers)
	if strings.EqualFold(c.Blob.Driver, string(blob.DriverS3)) && c.Blob.S3.Bucket == "" {
		errs = append(errs, errors.New("blob.s3.bucket: is required for the s3 driver"))
	}
	if c.Provisioning.StudentCount <= 0 || c.Provisioning.StudentCount > provisioning.MaxStudentCount {
		errs = append(errs, fmt.Errorf("provisioning.student_count: must be between 1 and %d", provisioning.MaxStudentCount))
	}
	oneOf("log.level", c.Log.Level, logLevels)
	oneOf("log.format", c.Log.Format, logFormats)
	oneOf("metrics.exporter", c.Metrics.Exporter, exporters)
	return errors.Join(errs...)
}

// StorageConfig converts the storage section for core.OpenStorage.
func (c *Config) StorageConfig() core.StorageConfig {
	return core.StorageConfig{
		Driver:      core.StorageDriver(strings.ToLower(c.Storage.Driver)),
		SQLitePath:  c.Storage.SQLitePath,
		PostgresDSN: c.Storage.PostgresDSN,
	}
}

// BlobConfig converts the blob section for blob.Open.
func (c *Config) BlobConfig() blob.Config {
	return blob.Config{
		Driver: blob.Driver(strings.ToLower(c.Blob.Driver)),
		FSRoot: c.Blob.FSRoot,
		S3: blob.S3Config{
			Bucket:    c.Blob.S3.Bucket,
			Region:    c.Blob.S3.Region,
			Endpoint:  c.Blob.S3.Endpoint,
			PathStyle: c.Blob.S3.PathStyle,
		},
	}
}
