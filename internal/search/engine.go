// Package search runs a query against every provider and merges what comes back.
package search

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/mulefind/internal/config"
	"github.com/hyperjump/mulefind/internal/metrics"
	"github.com/hyperjump/mulefind/internal/models"
	"github.com/hyperjump/mulefind/internal/provider"
	"github.com/hyperjump/mulefind/internal/query"
	"github.com/hyperjump/mulefind/internal/sanitize"
	"go.uber.org/zap"
)

// Tracker records hits so later searches can find them offline.
type Tracker interface {
	Track(ctx context.Context, hits []*models.Hit) error
}

// Engine fans a search out to providers and aggregates the results.
type Engine struct {
	providers []provider.Provider
	tracker   Tracker
	sanitizer *sanitize.Sanitizer
	config    *config.SearchConfig
	logger    *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithTracker records hits from tracked providers after each search.
func WithTracker(t Tracker) Option {
	return func(e *Engine) { e.tracker = t }
}

// WithSanitizer replaces the default (empty table) name sanitizer.
func WithSanitizer(s *sanitize.Sanitizer) Option {
	return func(e *Engine) { e.sanitizer = s }
}

// NewEngine creates a search engine over providers. Their order is the order hits are merged in.
func NewEngine(cfg *config.SearchConfig, providers []provider.Provider, opts ...Option) *Engine {
	e := &Engine{
		providers: providers,
		sanitizer: sanitize.New(nil),
		config:    cfg,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Providers returns the configured providers.
func (e *Engine) Providers() []provider.Provider {
	return e.providers
}

// providerResult is what one provider contributed to a search.
type providerResult struct {
	ran  bool
	hits []*models.Hit
}

// Search queries every available provider concurrently, waits for all of them, and returns
// the aggregated hits. A failing provider fails the whole search.
func (e *Engine) Search(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error) {
	startTime := time.Now()
	req.Validate(e.config.DefaultLimit, e.config.MaxLimit)

	response := &models.SearchResponse{
		ID:        uuid.NewString(),
		Query:     req.Query,
		Results:   []*models.Hit{},
		Providers: make(map[string]int),
	}
	if req.Query == "" {
		metrics.ObserveSearch("empty", time.Since(startTime), 0)
		return response, nil
	}

	var (
		results = make([]providerResult, len(e.providers))
		errChan = make(chan error, len(e.providers))
		wg      sync.WaitGroup
	)
	for i, p := range e.providers {
		wg.Add(1)
		go func(i int, p provider.Provider) {
			defer wg.Done()
			ok, err := p.Available(ctx)
			if err != nil {
				metrics.ProviderErrorsTotal.WithLabelValues(p.Name()).Inc()
				errChan <- fmt.Errorf("%s availability check failed: %w", p.Name(), err)
				return
			}
			if !ok {
				metrics.ProviderSkippedTotal.WithLabelValues(p.Name()).Inc()
				e.logger.Debug("provider unavailable", zap.String("provider", p.Name()))
				return
			}
			hits, err := p.Search(ctx, req.Query, req.Ext)
			if err != nil {
				metrics.ProviderErrorsTotal.WithLabelValues(p.Name()).Inc()
				errChan <- fmt.Errorf("%s search failed: %w", p.Name(), err)
				return
			}
			metrics.ProviderHitsTotal.WithLabelValues(p.Name()).Add(float64(len(hits)))
			results[i] = providerResult{ran: true, hits: e.prepare(p, hits)}
		}(i, p)
	}

	wg.Wait()
	close(errChan)
	for err := range errChan {
		if err != nil {
			metrics.ObserveSearch("error", time.Since(startTime), 0)
			e.logger.Warn("search failed", zap.String("query", req.Query), zap.Error(err))
			return nil, err
		}
	}

	var all, tracked []*models.Hit
	for i, r := range results {
		if !r.ran {
			continue
		}
		p := e.providers[i]
		response.Providers[p.Name()] = len(r.hits)
		all = append(all, r.hits...)
		if e.tracker != nil && e.config.TrackKnownOrDefault() && provider.IsTracked(p) {
			for _, h := range r.hits {
				tracked = append(tracked, h.Clone())
			}
		}
	}

	merged := Aggregate(all)
	if req.Filter != "" {
		merged = FilterHits(merged, query.Compile(req.Filter).Match)
	}

	if len(tracked) > 0 {
		if err := e.tracker.Track(ctx, tracked); err != nil {
			e.logger.Warn("failed to track hits", zap.Int("hits", len(tracked)), zap.Error(err))
		}
	}

	response.Total = len(merged)
	response.Results = page(merged, req.Offset, req.Limit)
	elapsed := time.Since(startTime)
	response.QueryTime = elapsed.Milliseconds()

	metrics.ObserveSearch("ok", elapsed, len(merged))
	e.logger.Info("search finished",
		zap.String("id", response.ID),
		zap.String("query", req.Query),
		zap.Int("results", len(merged)),
		zap.Duration("duration", elapsed),
	)
	return response, nil
}

// prepare drops nil hits, sanitizes names and stamps the provider's network where missing.
func (e *Engine) prepare(p provider.Provider, hits []*models.Hit) []*models.Hit {
	out := make([]*models.Hit, 0, len(hits))
	for _, h := range hits {
		if h == nil {
			continue
		}
		if e.config.SanitizeNamesOrDefault() {
			h.Name = e.sanitizer.Filename(h.Name)
		}
		if h.Network == "" {
			h.Network = p.Name()
		}
		out = append(out, h)
	}
	return out
}

// page cuts the window [offset, offset+limit) out of hits without overflowing.
func page(hits []*models.Hit, offset, limit int) []*models.Hit {
	start := offset
	if start < 0 {
		start = 0
	}
	if start > len(hits) {
		start = len(hits)
	}
	end := len(hits)
	if limit >= 0 && limit < len(hits)-start {
		end = start + limit
	}
	return hits[start:end]
}
