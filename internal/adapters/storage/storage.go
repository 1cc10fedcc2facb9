// Package storage provides object storage adapters serving result documents.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/jobrunner/atlas/internal/ports/output"
)

// objectSuffixes are the object types the adapters expose: GeoJSON result
// documents and GeoPackages.
var objectSuffixes = []string{".geojson", ".json", ".gpkg"}

// IsResultObject reports whether key names an object the adapters list.
func IsResultObject(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range objectSuffixes {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return false
}

// Config selects and configures a storage backend.
type Config struct {
	Type      output.StorageType
	LocalPath string
	S3        S3Config
	Azure     AzureConfig
	HTTP      HTTPConfig
}

// New creates the storage adapter selected by cfg.Type.
func New(ctx context.Context, cfg Config) (output.ObjectStorage, error) {
	switch cfg.Type {
	case output.StorageTypeLocal, "":
		return NewLocalStorage(cfg.LocalPath), nil
	case output.StorageTypeS3:
		return NewS3Storage(ctx, cfg.S3)
	case output.StorageTypeAzure:
		return NewAzureStorage(cfg.Azure)
	case output.StorageTypeHTTP:
		return NewHTTPStorage(cfg.HTTP), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// relativeKey strips the configured prefix from an object key.
func relativeKey(key, prefix string) string {
	return strings.TrimPrefix(strings.TrimPrefix(key, prefix), "/")
}

// prefixedKey joins the configured prefix and a relative key.
func prefixedKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return path.Join(prefix, key)
}

func unixTime(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.Unix()
}

// writeFile streams r into dest through a temporary file in the same
// directory, so readers never observe a partially written object.
func writeFile(dest string, r io.Reader) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
