// Package blob is the entry point for artifact storage. It re-exports the
// core contract and opens the configured driver; other packages depend on
// blob.Store and never import the infra drivers directly.
package blob

import (
	"context"
	"fmt"
	"os"
	"strings"

	"orthoset/internal/blob/core"
	fsstore "orthoset/internal/infra/blob/fs"
	memstore "orthoset/internal/infra/blob/memory"
	s3store "orthoset/internal/infra/blob/s3"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// SignedURLOptions configures URL signing.
	SignedURLOptions = core.SignedURLOptions
	// Info describes stored artifact metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
	// S3Config holds bucket coordinates for the s3 driver.
	S3Config = s3store.Config
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	ErrUnsupported = core.ErrUnsupported
	ErrExists      = core.ErrExists
	ErrNotFound    = core.ErrNotFound
)

// Config selects and parameterises a driver.
type Config struct {
	Driver Driver   `yaml:"driver"`
	Root   string   `yaml:"root"`
	S3     S3Config `yaml:"s3"`
}

// FromEnv overlays environment variables on cfg:
//
//	ORTHOSET_BLOB_DRIVER        fs|s3|memory
//	ORTHOSET_BLOB_FS_ROOT       root directory for fs
//	ORTHOSET_BLOB_S3_BUCKET     bucket for s3
//	ORTHOSET_BLOB_S3_REGION     region (default us-east-1)
//	ORTHOSET_BLOB_S3_ENDPOINT   custom endpoint, e.g. MinIO
//	ORTHOSET_BLOB_S3_PATH_STYLE true|false
//	ORTHOSET_BLOB_S3_ACCESS_KEY_ID / ORTHOSET_BLOB_S3_SECRET_ACCESS_KEY
func FromEnv(cfg Config, getenv func(string) string) Config {
	if getenv == nil {
		getenv = os.Getenv
	}
	set := func(dst *string, name string) {
		if v := getenv(name); v != "" {
			*dst = v
		}
	}
	if v := getenv("ORTHOSET_BLOB_DRIVER"); v != "" {
		cfg.Driver = Driver(strings.ToLower(v))
	}
	set(&cfg.Root, "ORTHOSET_BLOB_FS_ROOT")
	set(&cfg.S3.Bucket, "ORTHOSET_BLOB_S3_BUCKET")
	set(&cfg.S3.Region, "ORTHOSET_BLOB_S3_REGION")
	set(&cfg.S3.Endpoint, "ORTHOSET_BLOB_S3_ENDPOINT")
	set(&cfg.S3.AccessKeyID, "ORTHOSET_BLOB_S3_ACCESS_KEY_ID")
	set(&cfg.S3.SecretAccessKey, "ORTHOSET_BLOB_S3_SECRET_ACCESS_KEY")
	if v := getenv("ORTHOSET_BLOB_S3_PATH_STYLE"); v != "" {
		cfg.S3.PathStyle = strings.EqualFold(v, "true")
	}
	return cfg
}

// Open constructs the store named by cfg.Driver (default fs).
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		return fsstore.New(cfg.Root)
	case DriverS3:
		return s3store.New(ctx, cfg.S3)
	case DriverMemory:
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}
