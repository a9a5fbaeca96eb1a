package provider

import (
	"context"

	"github.com/hyperjump/mulefind/internal/models"
	"github.com/hyperjump/mulefind/internal/query"
	"github.com/hyperjump/mulefind/internal/storage"
)

// NetworkKnown names hits served from the known store.
const NetworkKnown = "known"

// OriginKey is the Extra key holding the network a known hit was first found on.
const OriginKey = "origin"

// KnownProvider searches previously tracked hits with the query language.
type KnownProvider struct {
	store storage.KnownStore
	limit int
}

// NewKnownProvider wraps store. limit caps the hits returned per search (0 = no cap).
func NewKnownProvider(store storage.KnownStore, limit int) *KnownProvider {
	return &KnownProvider{store: store, limit: limit}
}

func (p *KnownProvider) Name() string                   { return NetworkKnown }
func (p *KnownProvider) Available(context.Context) (bool, error) { return true, nil }

// Search ignores ext: the store keeps names, and extensions are part of the name.
func (p *KnownProvider) Search(ctx context.Context, q, _ string) ([]*models.Hit, error) {
	hits, err := p.store.Search(ctx, query.Compile(q), p.limit)
	if err != nil {
		return nil, err
	}
	for _, h := range hits {
		if h.Network != "" && h.Network != NetworkKnown {
			if h.Extra == nil {
				h.Extra = make(map[string]interface{})
			}
			h.Extra[OriginKey] = h.Network
		}
		h.Network = NetworkKnown
	}
	return hits, nil
}
