package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hyperjump/mulefind/internal/models"
	"go.uber.org/zap"
)

// Daemon network names.
const (
	NetworkGlobal = "global"
	NetworkKad    = "kad"
)

// DaemonStats is the connection state reported by the daemon gateway.
type DaemonStats struct {
	// ServerAddr is the connected server address; empty when not connected.
	ServerAddr   string `json:"serv_addr"`
	KadConnected bool   `json:"kad_connected"`
}

// DefaultStatsTTL is how long fetched daemon stats are reused. It lets the providers of
// one search share a single stats round trip.
const DefaultStatsTTL = 2 * time.Second

// DaemonClient talks to the HTTP/JSON gateway in front of the search daemon.
type DaemonClient struct {
	baseURL  string
	http     *http.Client
	logger   *zap.Logger
	statsTTL time.Duration
	now      func() time.Time

	statsMu   sync.Mutex
	stats     *DaemonStats
	statsTime time.Time
}

// DaemonOption configures a DaemonClient.
type DaemonOption func(*DaemonClient)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) DaemonOption {
	return func(d *DaemonClient) { d.http = c }
}

// WithStatsTTL sets how long stats are cached. Zero disables the cache.
func WithStatsTTL(ttl time.Duration) DaemonOption {
	return func(d *DaemonClient) { d.statsTTL = ttl }
}

// WithLogger sets a logger for request failures.
func WithLogger(l *zap.Logger) DaemonOption {
	return func(d *DaemonClient) { d.logger = l }
}

// NewDaemonClient creates a client for the gateway at baseURL. timeout bounds each request.
func NewDaemonClient(baseURL string, timeout time.Duration, opts ...DaemonOption) *DaemonClient {
	d := &DaemonClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: timeout},
		logger:   zap.NewNop(),
		statsTTL: DefaultStatsTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Stats returns the daemon connection state, reusing a fetch younger than the stats TTL.
// Failed fetches are not cached.
func (d *DaemonClient) Stats(ctx context.Context) (*DaemonStats, error) {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	if d.stats != nil && d.now().Sub(d.statsTime) < d.statsTTL {
		s := *d.stats
		return &s, nil
	}
	stats, err := d.fetchStats(ctx)
	if err != nil {
		return nil, err
	}
	d.stats, d.statsTime = stats, d.now()
	s := *stats
	return &s, nil
}

func (d *DaemonClient) fetchStats(ctx context.Context) (*DaemonStats, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/api/stats", nil)
	if err != nil {
		return nil, err
	}
	var stats DaemonStats
	if err := d.do(req, &stats); err != nil {
		return nil, fmt.Errorf("daemon stats: %w", err)
	}
	return &stats, nil
}

type daemonSearchRequest struct {
	Query   string `json:"query"`
	Ext     string `json:"ext,omitempty"`
	Network string `json:"network"`
}

// Search runs a search on one daemon network and waits for its results.
func (d *DaemonClient) Search(ctx context.Context, query, ext, network string) ([]*models.Hit, error) {
	body, err := json.Marshal(daemonSearchRequest{Query: query, Ext: ext, Network: network})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/api/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	var hits []*models.Hit
	if err := d.do(req, &hits); err != nil {
		return nil, fmt.Errorf("daemon %s search: %w", network, err)
	}
	return hits, nil
}

func (d *DaemonClient) do(req *http.Request, out interface{}) error {
	resp, err := d.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// DaemonProvider searches one daemon network.
type DaemonProvider struct {
	client  *DaemonClient
	network string
}

// NewDaemonProvider returns a provider for network (NetworkGlobal or NetworkKad).
func NewDaemonProvider(client *DaemonClient, network string) *DaemonProvider {
	return &DaemonProvider{client: client, network: network}
}

func (p *DaemonProvider) Name() string  { return p.network }
func (p *DaemonProvider) Tracked() bool { return true }

// Available asks the daemon whether this network is connected. The global network needs
// a server address, kad needs a Kad connection. Unknown networks are always tried.
// A daemon that cannot report its stats is an error, not an unavailable network.
func (p *DaemonProvider) Available(ctx context.Context) (bool, error) {
	stats, err := p.client.Stats(ctx)
	if err != nil {
		p.client.logger.Warn("daemon stats failed", zap.String("network", p.network), zap.Error(err))
		return false, err
	}
	switch p.network {
	case NetworkGlobal:
		return stats.ServerAddr != "", nil
	case NetworkKad:
		return stats.KadConnected, nil
	}
	return true, nil
}

func (p *DaemonProvider) Search(ctx context.Context, query, ext string) ([]*models.Hit, error) {
	hits, err := p.client.Search(ctx, query, ext, p.network)
	if err != nil {
		return nil, err
	}
	for _, h := range hits {
		if h != nil && h.Network == "" {
			h.Network = p.network
		}
	}
	return hits, nil
}
