package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/mulefind/internal/models"
	"github.com/hyperjump/mulefind/internal/storage"
)

type fakeGateway struct {
	mu         sync.Mutex
	stats      DaemonStats
	hits       map[string]string // network -> JSON array
	lastReq    daemonSearchRequest
	failWith   int
	statsCalls int
}

func (g *fakeGateway) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		g.statsCalls++
		g.mu.Unlock()
		if g.failWith != 0 {
			http.Error(w, "down", g.failWith)
			return
		}
		_ = json.NewEncoder(w).Encode(g.stats)
	})
	mux.HandleFunc("/api/search", func(w http.ResponseWriter, r *http.Request) {
		if g.failWith != 0 {
			http.Error(w, "down", g.failWith)
			return
		}
		var req daemonSearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		g.mu.Lock()
		g.lastReq = req
		g.mu.Unlock()
		_, _ = w.Write([]byte(g.hits[req.Network]))
	})
	return mux
}

func newGateway(t *testing.T, g *fakeGateway, opts ...DaemonOption) *DaemonClient {
	t.Helper()
	srv := httptest.NewServer(g.handler())
	t.Cleanup(srv.Close)
	return NewDaemonClient(srv.URL+"/", 5*time.Second, opts...)
}

func TestDaemonProvider_Available(t *testing.T) {
	tests := []struct {
		name    string
		stats   DaemonStats
		network string
		want    bool
	}{
		{"global with server", DaemonStats{ServerAddr: "1.2.3.4:4661"}, NetworkGlobal, true},
		{"global without server", DaemonStats{KadConnected: true}, NetworkGlobal, false},
		{"kad connected", DaemonStats{KadConnected: true}, NetworkKad, true},
		{"kad disconnected", DaemonStats{ServerAddr: "1.2.3.4:4661"}, NetworkKad, false},
		{"unknown network", DaemonStats{}, "local", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newGateway(t, &fakeGateway{stats: tt.stats})
			p := NewDaemonProvider(client, tt.network)
			got, err := p.Available(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Available() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDaemonProvider_AvailableOnGatewayError(t *testing.T) {
	client := newGateway(t, &fakeGateway{failWith: http.StatusServiceUnavailable})
	ok, err := NewDaemonProvider(client, NetworkKad).Available(context.Background())
	if err == nil {
		t.Error("a failing stats call should be an error")
	}
	if ok {
		t.Error("provider should not report available when stats fail")
	}
}

func TestDaemonClient_StatsCached(t *testing.T) {
	g := &fakeGateway{stats: DaemonStats{ServerAddr: "1.2.3.4:4661", KadConnected: true}}
	client := newGateway(t, g)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	client.now = func() time.Time { return now }
	ctx := context.Background()

	for _, network := range []string{NetworkGlobal, NetworkKad} {
		ok, err := NewDaemonProvider(client, network).Available(ctx)
		if err != nil || !ok {
			t.Fatalf("%s: ok=%v err=%v", network, ok, err)
		}
	}
	g.mu.Lock()
	calls := g.statsCalls
	g.mu.Unlock()
	if calls != 1 {
		t.Errorf("stats calls within the TTL: got %d, want 1", calls)
	}

	now = now.Add(DefaultStatsTTL)
	if _, err := client.Stats(ctx); err != nil {
		t.Fatal(err)
	}
	g.mu.Lock()
	calls = g.statsCalls
	g.mu.Unlock()
	if calls != 2 {
		t.Errorf("stats calls after the TTL: got %d, want 2", calls)
	}

	uncached := newGateway(t, g, WithStatsTTL(0))
	_, _ = uncached.Stats(ctx)
	_, _ = uncached.Stats(ctx)
	g.mu.Lock()
	calls = g.statsCalls
	g.mu.Unlock()
	if calls != 4 {
		t.Errorf("stats calls without a cache: got %d, want 4", calls)
	}
}

func TestDaemonProvider_Search(t *testing.T) {
	g := &fakeGateway{hits: map[string]string{
		NetworkKad: `[{"hash":"aa","size":10,"name":"ubuntu.iso","sources":3,"complete_sources":1},
		              {"hash":"bb","size":11,"name":"other.iso","sources":1,"network":"relay"}]`,
	}}
	p := NewDaemonProvider(newGateway(t, g), NetworkKad)
	if p.Name() != NetworkKad || !IsTracked(p) {
		t.Errorf("name %q tracked %v", p.Name(), IsTracked(p))
	}

	hits, err := p.Search(context.Background(), "ubuntu", "iso")
	if err != nil {
		t.Fatal(err)
	}
	g.mu.Lock()
	last := g.lastReq
	g.mu.Unlock()
	if last.Query != "ubuntu" || last.Ext != "iso" || last.Network != NetworkKad {
		t.Errorf("gateway request: %+v", last)
	}
	if len(hits) != 2 {
		t.Fatalf("hits: got %d", len(hits))
	}
	if hits[0].Network != NetworkKad || hits[0].Extra["complete_sources"] != float64(1) {
		t.Errorf("first hit: %+v", hits[0])
	}
	if hits[1].Network != "relay" {
		t.Errorf("network from gateway should be kept, got %q", hits[1].Network)
	}
}

func TestDaemonProvider_SearchError(t *testing.T) {
	p := NewDaemonProvider(newGateway(t, &fakeGateway{failWith: http.StatusBadGateway}), NetworkGlobal)
	if _, err := p.Search(context.Background(), "x", ""); err == nil {
		t.Error("expected error")
	}
}

func TestKnownProvider(t *testing.T) {
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "known.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()
	if err := store.Track(ctx, []*models.Hit{
		{Hash: "1", Size: 1, Name: "ubuntu.iso", Network: NetworkKad},
		{Hash: "2", Size: 1, Name: "ubuntu.txt"},
		{Hash: "3", Size: 1, Name: "fedora.iso", Network: NetworkGlobal},
	}); err != nil {
		t.Fatal(err)
	}

	p := NewKnownProvider(store, 0)
	if ok, err := p.Available(ctx); IsTracked(p) || !ok || err != nil {
		t.Error("known provider must be available and untracked")
	}
	hits, err := p.Search(ctx, "ubuntu", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("hits: got %d", len(hits))
	}
	for _, h := range hits {
		if h.Network != NetworkKnown {
			t.Errorf("network: %q", h.Network)
		}
		if h.Name == "ubuntu.iso" && h.Extra[OriginKey] != NetworkKad {
			t.Errorf("origin: %v", h.Extra)
		}
	}

	limited, err := NewKnownProvider(store, 1).Search(ctx, "iso", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Errorf("limit: got %d", len(limited))
	}
}

func TestStatic(t *testing.T) {
	src := []*models.Hit{{Hash: "h", Name: "a", Sources: 1}}
	p := NewStatic("fixture", src)
	hits, _ := p.Search(context.Background(), "", "")
	hits[0].Sources = 10
	if src[0].Sources != 1 {
		t.Error("static provider must return copies")
	}
	if p.Name() != "fixture" || IsTracked(p) {
		t.Error("unexpected name or tracking")
	}
}
