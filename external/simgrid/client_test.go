package simgrid

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/antonahmetgaliev/skf/internal/platform/logging"
	"github.com/antonahmetgaliev/skf/internal/platform/resilience"
)

func newTestClient(baseURL string, maxRetries int) *Client {
	return NewClient(ClientConfig{
		BaseURL:    baseURL,
		Timeout:    2 * time.Second,
		MaxRetries: maxRetries,
		Logger:     logging.NewNop(),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled: false,
		},
	})
}

func TestClient_ListChampionships(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/championships" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("limit") != "25" {
			t.Errorf("unexpected limit: %s", r.URL.Query().Get("limit"))
		}
		fmt.Fprint(w, `[{"id": 4087, "name": "SKF Endurance Cup"}, {"id": 5120, "name": "GT3 Sprint"}]`)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 0)
	championships, err := client.ListChampionships(context.Background(), 25)
	if err != nil {
		t.Fatalf("list championships: %v", err)
	}
	if len(championships) != 2 {
		t.Fatalf("expected 2 championships, got %d", len(championships))
	}
	if championships[0].ID != 4087 || championships[0].Name != "SKF Endurance Cup" {
		t.Fatalf("unexpected first championship: %+v", championships[0])
	}
}

func TestClient_RateLimitSurfacesUnretried(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error": "rate limited"}`)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 3)
	_, err := client.GetStandings(context.Background(), 4087)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("429 must not be retried, got %d calls", got)
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `[{"id": 4087, "name": "SKF Endurance Cup"}]`)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 1)
	championships, err := client.ListChampionships(context.Background(), 10)
	if err != nil {
		t.Fatalf("expected retry to succeed: %v", err)
	}
	if len(championships) != 1 {
		t.Fatalf("unexpected championships: %+v", championships)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}
}

func TestClient_ClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 3)
	if _, err := client.GetChampionship(context.Background(), 99); err == nil {
		t.Fatalf("expected error for 404")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("4xx must not be retried, got %d calls", got)
	}
}

func TestClient_GetStandings_HTMLFallbackMerge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/championships/4087/standings":
			// Races exist but no per-race positions came back.
			fmt.Fprint(w, `[
				[{"id": 11, "display_name": "José Ruíz", "position_cache": 1, "championship_score": 50, "partial_standings": []}],
				[{"id": 901, "display_name": "Round 1"}]
			]`)
		case "/championships/4087/standings":
			fmt.Fprint(w, standingsPageFixture)
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 0)
	data, err := client.GetStandings(context.Background(), 4087)
	if err != nil {
		t.Fatalf("get standings: %v", err)
	}

	if len(data.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(data.Entries))
	}
	results := data.Entries[0].RaceResults
	if len(results) == 0 {
		t.Fatalf("expected scraped race results")
	}
	if results[0].Position == nil || *results[0].Position != 1 {
		t.Fatalf("unexpected merged position: %+v", results[0])
	}
	// The page revealed a second race column.
	if len(data.Races) != 2 {
		t.Fatalf("expected 2 races after merge, got %d", len(data.Races))
	}
}

func TestClient_GetStandings_FallbackDisabled(t *testing.T) {
	var pageHits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/championships/4087/standings":
			fmt.Fprint(w, `[
				[{"id": 11, "display_name": "José Ruíz", "partial_standings": []}],
				[{"id": 901, "display_name": "Round 1"}]
			]`)
		default:
			pageHits.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		BaseURL:             srv.URL,
		Timeout:             2 * time.Second,
		Logger:              logging.NewNop(),
		DisableHTMLFallback: true,
	})

	data, err := client.GetStandings(context.Background(), 4087)
	if err != nil {
		t.Fatalf("get standings: %v", err)
	}
	if pageHits.Load() != 0 {
		t.Fatalf("standings page must not be fetched when fallback is disabled")
	}
	if len(data.Entries) != 1 || len(data.Entries[0].RaceResults) != 0 {
		t.Fatalf("unexpected api-only standings: %+v", data.Entries)
	}
}

func TestClient_GetStandings_PageFailureServesAPIOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/championships/4087/standings":
			fmt.Fprint(w, `[
				[{"id": 11, "display_name": "José Ruíz", "partial_standings": []}],
				[{"id": 901, "display_name": "Round 1"}]
			]`)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 0)
	data, err := client.GetStandings(context.Background(), 4087)
	if err != nil {
		t.Fatalf("html failure must not fail the call: %v", err)
	}
	if len(data.Entries) != 1 {
		t.Fatalf("expected api-only entries, got %d", len(data.Entries))
	}
}

func TestClient_CircuitBreakerOpensAfterFailures(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		BaseURL:    srv.URL,
		Timeout:    2 * time.Second,
		MaxRetries: 0,
		Logger:     logging.NewNop(),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 2,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := client.ListChampionships(ctx, 10); err == nil {
			t.Fatalf("expected upstream failure")
		}
	}

	before := calls.Load()
	if _, err := client.ListChampionships(ctx, 10); !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected circuit open error, got %v", err)
	}
	if calls.Load() != before {
		t.Fatalf("open circuit must not reach upstream")
	}
}

func TestClient_GetChampionship_RejectsInvalidID(t *testing.T) {
	t.Parallel()

	client := newTestClient("http://localhost:0", 0)
	if _, err := client.GetChampionship(context.Background(), 0); err == nil {
		t.Fatalf("expected error for zero championship id")
	}
	if _, err := client.GetStandings(context.Background(), -4); err == nil {
		t.Fatalf("expected error for negative championship id")
	}
}
