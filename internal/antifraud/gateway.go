package antifraud

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/RandomProgramm3r/Promo-Code-API/internal/cache"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/clock"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/config"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/observability/tracing"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Verdict is the anti-fraud decision for one redeemer. Ok=false denies
// activation; CacheUntil bounds how long a positive verdict may be reused.
type Verdict struct {
	Ok         bool       `json:"ok"`
	CacheUntil *time.Time `json:"cache_until,omitempty"`
}

// VerdictCache stores verdicts keyed by redeemer email.
type VerdictCache = cache.Cache[string, Verdict]

// Gateway queries the external anti-fraud verdict service. It fails closed:
// any transport or decoding failure that survives the retry budget yields a
// negative verdict rather than an error.
type Gateway struct {
	client     *http.Client
	log        *zap.Logger
	cache      VerdictCache
	clk        clock.Clock
	url        string
	maxRetries int
}

type Params struct {
	fx.In

	Cfg   config.Config
	Log   *zap.Logger
	Cache VerdictCache
	Clock clock.Clock
}

func NewGateway(p Params) *Gateway {
	client := tracing.WrapHTTPClient(&http.Client{Timeout: p.Cfg.AntiFraud.Timeout})
	return New(client, p.Log, p.Cache, p.Clock, p.Cfg.AntiFraud.ValidateURL, p.Cfg.AntiFraud.MaxRetries)
}

// New constructs a Gateway with explicit collaborators, used directly by
// tests that fake the transport and clock.
func New(client *http.Client, log *zap.Logger, verdictCache VerdictCache, clk clock.Clock, url string, maxRetries int) *Gateway {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Gateway{
		client:     client,
		log:        log.Named("antifraud.gateway"),
		cache:      verdictCache,
		clk:        clk,
		url:        url,
		maxRetries: maxRetries,
	}
}

type verdictRequest struct {
	UserEmail string `json:"user_email"`
	PromoID   string `json:"promo_id"`
}

// GetVerdict resolves a verdict for the redeemer. The cache is keyed by
// email alone: a verdict is a property of the redeemer at a point in time,
// not of the promo being activated.
func (g *Gateway) GetVerdict(ctx context.Context, userEmail, promoID string) Verdict {
	if verdict, ok := g.cache.Get(userEmail); ok {
		return verdict
	}

	verdict, ok := g.fetch(ctx, userEmail, promoID)
	if !ok {
		return Verdict{Ok: false}
	}

	// Only positive, time-boxed verdicts are cached. A blocked user is
	// re-checked on every attempt so an unblock takes effect immediately.
	if verdict.Ok && verdict.CacheUntil != nil {
		if ttl := verdict.CacheUntil.Sub(g.clk.Now()); ttl > 0 {
			g.cache.Set(userEmail, verdict, ttl)
		}
	}
	return verdict
}

func (g *Gateway) fetch(ctx context.Context, userEmail, promoID string) (Verdict, bool) {
	payload, err := json.Marshal(verdictRequest{UserEmail: userEmail, PromoID: promoID})
	if err != nil {
		return Verdict{}, false
	}

	for attempt := 0; attempt < g.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return Verdict{}, false
		}
		verdict, err := g.doRequest(ctx, payload)
		if err != nil {
			g.log.Warn("anti-fraud request failed",
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			continue
		}
		return verdict, true
	}
	return Verdict{}, false
}

func (g *Gateway) doRequest(ctx context.Context, payload []byte) (Verdict, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(payload))
	if err != nil {
		return Verdict{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return Verdict{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		io.Copy(io.Discard, resp.Body)
		return Verdict{}, &statusError{code: resp.StatusCode}
	}

	var body struct {
		Ok         bool    `json:"ok"`
		CacheUntil *string `json:"cache_until"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Verdict{}, err
	}

	verdict := Verdict{Ok: body.Ok}
	if body.CacheUntil != nil {
		// A malformed cache_until only disables caching, never the verdict.
		if until, err := parseCacheUntil(*body.CacheUntil); err == nil {
			verdict.CacheUntil = &until
		}
	}
	return verdict, nil
}

func parseCacheUntil(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	// The verdict service emits naive ISO-8601 timestamps, treated as UTC.
	t, err := time.ParseInLocation("2006-01-02T15:04:05", raw, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return "anti-fraud service returned status " + http.StatusText(e.code)
}
