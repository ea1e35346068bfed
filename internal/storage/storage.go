package storage

import (
	"context"
	stdErrors "errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/frahmantamala/inspection-workflow/internal"
)

var ErrObjectNotFound = stdErrors.New("object not found")

// FileStorage keeps report PDFs and message attachments. Keys are slash
// separated and relative; the returned ref is what gets persisted.
type FileStorage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	Delete(ctx context.Context, ref string) error
}

// New picks the backend named in the config.
func New(ctx context.Context, cfg internal.StorageConfig) (FileStorage, error) {
	switch cfg.Driver {
	case internal.StorageLocal:
		return NewLocalStorage(cfg.LocalDir), nil
	case internal.StorageMinio:
		return NewMinioStorage(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

// CleanKey rejects absolute paths and parent traversal.
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	if key == "" {
		return "", fmt.Errorf("empty storage key")
	}
	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(key, "/") || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return cleaned, nil
}
