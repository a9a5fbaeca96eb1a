package watcher

import (
	"context"
	"path/filepath"

	"github.com/hyperjump/mulefind/internal/filehash"
	"github.com/hyperjump/mulefind/internal/metrics"
	"github.com/hyperjump/mulefind/internal/models"
	"github.com/hyperjump/mulefind/internal/storage"
	"go.uber.org/zap"
)

// NetworkLibrary names hits for files in the local shared directories.
const NetworkLibrary = "library"

// LibraryStore is the part of the known store the library writes to.
type LibraryStore interface {
	Track(ctx context.Context, hits []*models.Hit) error
	RemovePath(ctx context.Context, path string) (int64, error)
}

// Library hashes shared files and records them in the known store.
type Library struct {
	store  LibraryStore
	hash   func(path string) (string, int64, error)
	logger *zap.Logger
}

// NewLibrary creates a Handler that tracks files in store.
func NewLibrary(store LibraryStore, logger *zap.Logger) *Library {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Library{store: store, hash: filehash.File, logger: logger}
}

// Index hashes path and tracks it under its base name, replacing what was recorded for the
// path before.
func (l *Library) Index(ctx context.Context, path string) {
	hash, size, err := l.hash(path)
	if err != nil {
		metrics.LibraryFilesHashed.WithLabelValues("error").Inc()
		l.logger.Warn("failed to hash shared file", zap.String("path", path), zap.Error(err))
		return
	}
	metrics.LibraryFilesHashed.WithLabelValues("ok").Inc()
	hit := &models.Hit{
		Hash:    hash,
		Size:    size,
		Name:    filepath.Base(path),
		Sources: 1,
		Network: NetworkLibrary,
		Extra:   map[string]interface{}{storage.PathKey: path},
	}
	if _, err := l.store.RemovePath(ctx, path); err != nil {
		l.logger.Warn("failed to drop stale shared file entry", zap.String("path", path), zap.Error(err))
	}
	if err := l.store.Track(ctx, []*models.Hit{hit}); err != nil {
		l.logger.Warn("failed to track shared file", zap.String("path", path), zap.Error(err))
		return
	}
	l.logger.Debug("shared file indexed", zap.String("path", path), zap.String("hash", hash), zap.Int64("size", size))
}

// Remove forgets every entry recorded for path.
func (l *Library) Remove(ctx context.Context, path string) {
	n, err := l.store.RemovePath(ctx, path)
	if err != nil {
		l.logger.Warn("failed to remove shared file", zap.String("path", path), zap.Error(err))
		return
	}
	l.logger.Debug("shared file removed", zap.String("path", path), zap.Int64("entries", n))
}
