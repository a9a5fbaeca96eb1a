package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_RecordsDurationAndCount(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/api/v1/known", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/api/v1/known", http.NoBody))
	if rr.Code != 200 {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	if v := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/v1/known", "200")); v < 1 {
		t.Errorf("expected http_requests_total >= 1, got %f", v)
	}
	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("expected http_request_duration_seconds to have observations")
	}
}

func TestMiddleware_StatusCodes(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Post("/bad", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	r.Post("/fail", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.WriteHeader(http.StatusOK) // ignored
	})

	tests := []struct {
		path string
		want string
	}{
		{"/bad", "400"},
		{"/fail", "500"},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", tc.path, http.NoBody))
			if v := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", tc.path, tc.want)); v < 1 {
				t.Errorf("requests_total for %s with status %s: got %f", tc.path, tc.want, v)
			}
		})
	}
}

func TestMiddleware_WithoutChi(t *testing.T) {
	h := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/raw", http.NoBody))
	if v := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "unknown", "200")); v < 1 {
		t.Errorf("unrouted requests should be labelled unknown, got %f", v)
	}
}

func TestObserveSearch(t *testing.T) {
	before := testutil.ToFloat64(SearchesTotal.WithLabelValues("ok"))
	ObserveSearch("ok", 20*time.Millisecond, 3)
	if got := testutil.ToFloat64(SearchesTotal.WithLabelValues("ok")); got != before+1 {
		t.Errorf("searches_total{ok}: got %f, want %f", got, before+1)
	}
	ObserveSearch("error", time.Millisecond, 0)
	if testutil.ToFloat64(SearchesTotal.WithLabelValues("error")) < 1 {
		t.Error("error searches not counted")
	}
	if testutil.CollectAndCount(AggregatedHits) != 1 {
		t.Error("aggregated hits histogram not registered")
	}
}
