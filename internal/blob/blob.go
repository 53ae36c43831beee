// Package blob stores finished export artifacts by key.
package blob

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var ErrNotFound = errors.New("blob not found")

type Driver string

const (
	DriverLocal Driver = "local"
	DriverS3    Driver = "s3"
)

// Object is a stored artifact with the headers needed to serve it.
type Object struct {
	Key         string
	ContentType string
	Filename    string
	Data        []byte
}

// Store keeps whole artifacts. Put overwrites; Get returns ErrNotFound for missing keys.
type Store interface {
	Put(ctx context.Context, obj Object) error
	Get(ctx context.Context, key string) (Object, error)
}

// Config selects and configures a driver.
type Config struct {
	Driver      Driver
	Dir         string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3PathStyle bool
}

// Open builds the store for cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverLocal, "":
		return NewLocal(cfg.Dir)
	case DriverS3:
		return NewS3(ctx, S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
		})
	default:
		return nil, fmt.Errorf("unsupported blob driver: %s", cfg.Driver)
	}
}

// ExportKey is the key under which a job's artifact is stored.
func ExportKey(jobID string) string {
	return "exports/" + jobID
}

// sanitizeKey rejects empty, absolute and traversing keys.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key contains '..'")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid absolute key")
	}
	return filepath.ToSlash(filepath.Clean(key)), nil
}
