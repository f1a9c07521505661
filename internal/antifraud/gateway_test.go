package antifraud

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/RandomProgramm3r/Promo-Code-API/internal/cache"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestGateway(t *testing.T, handler http.HandlerFunc, maxRetries int) (*Gateway, *fakeClock) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	clk := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	verdictCache := cache.NewTTLCache[string, Verdict](clk)
	gw := New(srv.Client(), zap.NewNop(), verdictCache, clk, srv.URL, maxRetries)
	return gw, clk
}

func TestPositiveVerdictCachedUntilExpiry(t *testing.T) {
	var calls atomic.Int32
	clkStart := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	gw, clk := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		until := clkStart.Add(time.Hour).Format("2006-01-02T15:04:05")
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "cache_until": until})
	}, 2)

	ctx := context.Background()
	if v := gw.GetVerdict(ctx, "alice@example.com", "1"); !v.Ok {
		t.Fatal("expected positive verdict")
	}
	if v := gw.GetVerdict(ctx, "alice@example.com", "1"); !v.Ok {
		t.Fatal("expected positive verdict from cache")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected exactly 1 transport call within TTL, got %d", got)
	}

	clk.Advance(2 * time.Hour)
	if v := gw.GetVerdict(ctx, "alice@example.com", "1"); !v.Ok {
		t.Fatal("expected positive verdict after expiry")
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected a second transport call after TTL expiry, got %d", got)
	}
}

func TestNegativeVerdictNeverCached(t *testing.T) {
	var calls atomic.Int32
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(map[string]any{"ok": false})
	}, 2)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if v := gw.GetVerdict(ctx, "bob@example.com", "1"); v.Ok {
			t.Fatal("expected negative verdict")
		}
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("blocked user must be re-checked every attempt, got %d calls", got)
	}
}

func TestPositiveVerdictWithoutCacheUntilNotCached(t *testing.T) {
	var calls atomic.Int32
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}, 2)

	ctx := context.Background()
	gw.GetVerdict(ctx, "carol@example.com", "1")
	gw.GetVerdict(ctx, "carol@example.com", "1")
	if got := calls.Load(); got != 2 {
		t.Fatalf("verdict without cache_until must not be cached, got %d calls", got)
	}
}

func TestFailClosedAfterRetries(t *testing.T) {
	var calls atomic.Int32
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, 3)

	if v := gw.GetVerdict(context.Background(), "dave@example.com", "1"); v.Ok {
		t.Fatal("expected fail-closed negative verdict")
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected %d attempts, got %d", 3, got)
	}
}

func TestMalformedBodyRetriesThenFailsClosed(t *testing.T) {
	var calls atomic.Int32
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte("not-json"))
	}, 2)

	if v := gw.GetVerdict(context.Background(), "erin@example.com", "1"); v.Ok {
		t.Fatal("expected fail-closed negative verdict on malformed body")
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected %d attempts, got %d", 2, got)
	}
}

func TestRequestPayloadShape(t *testing.T) {
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			UserEmail string `json:"user_email"`
			PromoID   string `json:"promo_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.UserEmail != "frank@example.com" || body.PromoID != "42" {
			t.Errorf("unexpected payload: %+v", body)
		}
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}, 1)

	gw.GetVerdict(context.Background(), "frank@example.com", "42")
}

func TestCancelledContextFailsClosed(t *testing.T) {
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if v := gw.GetVerdict(ctx, "gina@example.com", "1"); v.Ok {
		t.Fatal("expected negative verdict for cancelled context")
	}
}
