// Package provider defines the sources a search fans out to: the search daemon's networks,
// the local known-files store, and fixed in-memory hit lists.
package provider

import (
	"context"

	"github.com/hyperjump/mulefind/internal/models"
)

// Provider returns raw hits for a query.
type Provider interface {
	// Name identifies the provider in responses, logs and metrics.
	Name() string
	// Available reports whether the provider can serve a search right now. An error means
	// availability could not be determined and fails the search.
	Available(ctx context.Context) (bool, error)
	Search(ctx context.Context, query, ext string) ([]*models.Hit, error)
}

// Tracked marks providers whose hits should be remembered in the known store.
type Tracked interface {
	Tracked() bool
}

// IsTracked reports whether hits from p are recorded after a search.
func IsTracked(p Provider) bool {
	t, ok := p.(Tracked)
	return ok && t.Tracked()
}

// Static serves a fixed list of hits regardless of the query.
type Static struct {
	name string
	hits []*models.Hit
}

// NewStatic returns a provider that always answers with copies of hits.
func NewStatic(name string, hits []*models.Hit) *Static {
	return &Static{name: name, hits: hits}
}

func (s *Static) Name() string                   { return s.name }
func (s *Static) Available(context.Context) (bool, error) { return true, nil }

// Search returns fresh copies so callers may mutate them.
func (s *Static) Search(_ context.Context, _, _ string) ([]*models.Hit, error) {
	out := make([]*models.Hit, len(s.hits))
	for i, h := range s.hits {
		out[i] = h.Clone()
	}
	return out, nil
}
