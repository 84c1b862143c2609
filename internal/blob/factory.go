package blob

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Config selects and parameterises a blob driver.
type Config struct {
	Driver Driver
	FSRoot string
	S3     S3Config
}

// ConfigFromEnv reads the blob selection from the environment.
//
//	HOSTELCORE_BLOB_DRIVER: fs|s3|memory (default fs)
//	HOSTELCORE_BLOB_FS_ROOT: directory root when driver=fs (default ./blobdata)
//	HOSTELCORE_BLOB_S3_BUCKET, HOSTELCORE_BLOB_S3_REGION,
//	HOSTELCORE_BLOB_S3_ENDPOINT, HOSTELCORE_BLOB_S3_PATH_STYLE=true|false
//	AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY / AWS_SESSION_TOKEN (optional)
func ConfigFromEnv() Config {
	return Config{
		Driver: Driver(os.Getenv("HOSTELCORE_BLOB_DRIVER")),
		FSRoot: os.Getenv("HOSTELCORE_BLOB_FS_ROOT"),
		S3: S3Config{
			Bucket:    os.Getenv("HOSTELCORE_BLOB_S3_BUCKET"),
			Region:    os.Getenv("HOSTELCORE_BLOB_S3_REGION"),
			Endpoint:  os.Getenv("HOSTELCORE_BLOB_S3_ENDPOINT"),
			PathStyle: strings.EqualFold(os.Getenv("HOSTELCORE_BLOB_S3_PATH_STYLE"), "true"),
		},
	}
}

// Open builds the store described by cfg. An empty driver means fs.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		return NewFilesystem(cfg.FSRoot)
	case DriverS3:
		if cfg.S3.Bucket == "" {
			return nil, fmt.Errorf("HOSTELCORE_BLOB_S3_BUCKET required for s3 driver")
		}
		return NewS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}
