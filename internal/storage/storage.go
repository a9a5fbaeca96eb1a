// Package storage defines the persistence interface for known files: hits seen in earlier
// searches and files found in shared directories.
package storage

import (
	"context"

	"github.com/hyperjump/mulefind/internal/models"
	"github.com/hyperjump/mulefind/internal/query"
)

// KnownStore records hits and searches them again later.
type KnownStore interface {
	// Track upserts hits keyed by (hash, size, name).
	Track(ctx context.Context, hits []*models.Hit) error
	// Search returns up to limit known hits whose name matches q, most recently seen first.
	// limit <= 0 means no limit.
	Search(ctx context.Context, q *query.Query, limit int) ([]*models.Hit, error)
	List(ctx context.Context, offset, limit int) ([]*models.Hit, error)
	Count(ctx context.Context) (int64, error)
	// RemovePath drops entries recorded for a local file path.
	RemovePath(ctx context.Context, path string) (int64, error)

	Close() error
}

// PathKey is the Extra key holding the local file path of a library hit.
const PathKey = "path"

// Browse pages through store. An empty q lists everything, newest first; otherwise every
// match is fetched and the page is cut from it. total counts all entries before paging.
func Browse(ctx context.Context, store KnownStore, q string, offset, limit int) (hits []*models.Hit, total int64, err error) {
	if offset < 0 {
		offset = 0
	}
	if q == "" {
		if total, err = store.Count(ctx); err != nil {
			return nil, 0, err
		}
		hits, err = store.List(ctx, offset, limit)
		return hits, total, err
	}
	all, err := store.Search(ctx, query.Compile(q), 0)
	if err != nil {
		return nil, 0, err
	}
	if offset > len(all) {
		offset = len(all)
	}
	end := len(all)
	if limit >= 0 && limit < len(all)-offset {
		end = offset + limit
	}
	return all[offset:end], int64(len(all)), nil
}
