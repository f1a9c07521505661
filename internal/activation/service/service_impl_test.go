package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/RandomProgramm3r/Promo-Code-API/internal/activation/domain"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/activation/ledger"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/antifraud"
	promodomain "github.com/RandomProgramm3r/Promo-Code-API/internal/promo/domain"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/promo/repository"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/targeting"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeVerdicts struct {
	mu     sync.Mutex
	ok     bool
	calls  int
	onCall func()
}

func (f *fakeVerdicts) GetVerdict(ctx context.Context, userEmail, promoID string) antifraud.Verdict {
	f.mu.Lock()
	f.calls++
	hook := f.onCall
	ok := f.ok
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return antifraud.Verdict{Ok: ok}
}

type testEnv struct {
	svc      domain.Service
	db       *gorm.DB
	node     *snowflake.Node
	clk      *fakeClock
	verdicts *fakeVerdicts
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := conn.AutoMigrate(
		&promodomain.Promo{},
		&promodomain.PromoCode{},
		&domain.ActivationRecord{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	clk := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	verdicts := &fakeVerdicts{ok: true}

	svc := NewService(Params{
		DB:        conn,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clk,
		PromoRepo: repository.Provide(),
		Ledger:    ledger.New(),
		Verdicts:  verdicts,
	})

	return &testEnv{svc: svc, db: conn, node: node, clk: clk, verdicts: verdicts}
}

func (e *testEnv) createCommonPromo(t *testing.T, maxCount int, mutate func(*promodomain.Promo)) *promodomain.Promo {
	t.Helper()
	code := "SUMMER2025"
	promo := &promodomain.Promo{
		ID:          e.node.Generate(),
		CompanyID:   e.node.Generate(),
		Description: "ten percent off",
		Mode:        promodomain.PromoModeCommon,
		Target:      []byte(`{}`),
		MaxCount:    maxCount,
		CommonCode:  &code,
		Active:      true,
		CreatedAt:   e.clk.Now(),
		UpdatedAt:   e.clk.Now(),
	}
	if mutate != nil {
		mutate(promo)
	}
	if err := e.db.Create(promo).Error; err != nil {
		t.Fatalf("create promo: %v", err)
	}
	return promo
}

func (e *testEnv) createUniquePromo(t *testing.T, codes ...string) *promodomain.Promo {
	t.Helper()
	promo := &promodomain.Promo{
		ID:          e.node.Generate(),
		CompanyID:   e.node.Generate(),
		Description: "one-off voucher",
		Mode:        promodomain.PromoModeUnique,
		Target:      []byte(`{}`),
		MaxCount:    1,
		Active:      true,
		CreatedAt:   e.clk.Now(),
		UpdatedAt:   e.clk.Now(),
	}
	if err := e.db.Create(promo).Error; err != nil {
		t.Fatalf("create promo: %v", err)
	}
	for _, c := range codes {
		row := &promodomain.PromoCode{
			ID:        e.node.Generate(),
			PromoID:   promo.ID,
			Code:      c,
			CreatedAt: e.clk.Now(),
		}
		if err := e.db.Create(row).Error; err != nil {
			t.Fatalf("create code: %v", err)
		}
	}
	return promo
}

func (e *testEnv) redeemer() domain.Redeemer {
	return domain.Redeemer{
		ID:    e.node.Generate(),
		Email: "user@example.com",
	}
}

func (e *testEnv) activationCount(t *testing.T, promoID snowflake.ID) int64 {
	t.Helper()
	var n int64
	if err := e.db.Model(&domain.ActivationRecord{}).Where("promo_id = ?", promoID).Count(&n).Error; err != nil {
		t.Fatalf("count activations: %v", err)
	}
	return n
}

func TestActivateCommonReturnsSharedCode(t *testing.T) {
	env := newTestEnv(t)
	promo := env.createCommonPromo(t, 3, nil)

	resp, err := env.svc.Activate(context.Background(), env.redeemer(), promo.ID.String())
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if resp.Code != "SUMMER2025" {
		t.Fatalf("expected shared code, got %q", resp.Code)
	}

	var reloaded promodomain.Promo
	if err := env.db.First(&reloaded, "id = ?", promo.ID).Error; err != nil {
		t.Fatalf("reload promo: %v", err)
	}
	if reloaded.UsedCount != 1 {
		t.Fatalf("expected used_count 1, got %d", reloaded.UsedCount)
	}
	if got := env.activationCount(t, promo.ID); got != 1 {
		t.Fatalf("expected 1 activation record, got %d", got)
	}
}

func TestActivateCommonStopsAtMaxCount(t *testing.T) {
	env := newTestEnv(t)
	promo := env.createCommonPromo(t, 2, nil)

	for i := 0; i < 2; i++ {
		if _, err := env.svc.Activate(context.Background(), env.redeemer(), promo.ID.String()); err != nil {
			t.Fatalf("activation %d: %v", i+1, err)
		}
	}

	_, err := env.svc.Activate(context.Background(), env.redeemer(), promo.ID.String())
	if !errors.Is(err, domain.ErrPromoUnavailable) {
		t.Fatalf("expected ErrPromoUnavailable, got %v", err)
	}
	if got := env.activationCount(t, promo.ID); got != 2 {
		t.Fatalf("expected 2 activation records, got %d", got)
	}
}

func TestActivateUniqueHandsOutDistinctCodes(t *testing.T) {
	env := newTestEnv(t)
	promo := env.createUniquePromo(t, "AAA-111", "BBB-222")

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		resp, err := env.svc.Activate(context.Background(), env.redeemer(), promo.ID.String())
		if err != nil {
			t.Fatalf("activation %d: %v", i+1, err)
		}
		if seen[resp.Code] {
			t.Fatalf("code %q issued twice", resp.Code)
		}
		seen[resp.Code] = true
	}

	_, err := env.svc.Activate(context.Background(), env.redeemer(), promo.ID.String())
	if !errors.Is(err, domain.ErrPromoUnavailable) {
		t.Fatalf("expected ErrPromoUnavailable after pool drained, got %v", err)
	}

	var used int64
	if err := env.db.Model(&promodomain.PromoCode{}).
		Where("promo_id = ? AND is_used = ?", promo.ID, true).
		Count(&used).Error; err != nil {
		t.Fatalf("count used: %v", err)
	}
	if used != 2 {
		t.Fatalf("expected 2 used codes, got %d", used)
	}
}

func TestActivateTargetingMismatch(t *testing.T) {
	env := newTestEnv(t)
	promo := env.createCommonPromo(t, 3, func(p *promodomain.Promo) {
		p.Target = []byte(`{"country":"fr","age_from":18}`)
	})

	age := 25
	country := "de"
	redeemer := env.redeemer()
	redeemer.Profile = targeting.Profile{Age: &age, Country: &country}

	_, err := env.svc.Activate(context.Background(), redeemer, promo.ID.String())
	if !errors.Is(err, domain.ErrTargetingMismatch) {
		t.Fatalf("expected ErrTargetingMismatch, got %v", err)
	}
	if env.verdicts.calls != 0 {
		t.Fatalf("anti-fraud must not be consulted on targeting failure, got %d calls", env.verdicts.calls)
	}
}

func TestActivateDisabledPromo(t *testing.T) {
	env := newTestEnv(t)
	promo := env.createCommonPromo(t, 3, func(p *promodomain.Promo) {
		p.Active = false
	})

	_, err := env.svc.Activate(context.Background(), env.redeemer(), promo.ID.String())
	if !errors.Is(err, domain.ErrPromoInactive) {
		t.Fatalf("expected ErrPromoInactive, got %v", err)
	}
}

func TestActivateOutsideDateWindow(t *testing.T) {
	env := newTestEnv(t)
	until := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	promo := env.createCommonPromo(t, 3, func(p *promodomain.Promo) {
		p.ActiveUntil = &until
	})

	_, err := env.svc.Activate(context.Background(), env.redeemer(), promo.ID.String())
	if !errors.Is(err, domain.ErrPromoInactive) {
		t.Fatalf("expected ErrPromoInactive, got %v", err)
	}
}

func TestActivateWindowBoundsInclusive(t *testing.T) {
	env := newTestEnv(t)
	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	promo := env.createCommonPromo(t, 3, func(p *promodomain.Promo) {
		p.ActiveFrom = &from
		p.ActiveUntil = &until
	})

	// Clock sits at 2025-06-01 12:00 UTC; both bounds cover that date.
	if _, err := env.svc.Activate(context.Background(), env.redeemer(), promo.ID.String()); err != nil {
		t.Fatalf("expected activation on boundary date: %v", err)
	}
}

func TestActivateBlockedByAntiFraud(t *testing.T) {
	env := newTestEnv(t)
	env.verdicts.ok = false
	promo := env.createCommonPromo(t, 3, nil)

	_, err := env.svc.Activate(context.Background(), env.redeemer(), promo.ID.String())
	if !errors.Is(err, domain.ErrAntiFraudBlocked) {
		t.Fatalf("expected ErrAntiFraudBlocked, got %v", err)
	}
	if env.verdicts.calls != 1 {
		t.Fatalf("expected 1 verdict call, got %d", env.verdicts.calls)
	}
	if got := env.activationCount(t, promo.ID); got != 0 {
		t.Fatalf("expected no activation records, got %d", got)
	}
}

func TestActivateUnknownPromo(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Activate(context.Background(), env.redeemer(), "999999999")
	if !errors.Is(err, promodomain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	_, err = env.svc.Activate(context.Background(), env.redeemer(), "not-a-number")
	if !errors.Is(err, promodomain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for malformed id, got %v", err)
	}
}

func TestActivateCancelledDuringVerdict(t *testing.T) {
	env := newTestEnv(t)
	promo := env.createCommonPromo(t, 3, nil)

	ctx, cancel := context.WithCancel(context.Background())
	env.verdicts.onCall = cancel

	_, err := env.svc.Activate(ctx, env.redeemer(), promo.ID.String())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	var reloaded promodomain.Promo
	if err := env.db.First(&reloaded, "id = ?", promo.ID).Error; err != nil {
		t.Fatalf("reload promo: %v", err)
	}
	if reloaded.UsedCount != 0 {
		t.Fatalf("expected used_count untouched, got %d", reloaded.UsedCount)
	}
	if got := env.activationCount(t, promo.ID); got != 0 {
		t.Fatalf("expected no activation records, got %d", got)
	}
}

func TestActivatePromoDeletedDuringVerdict(t *testing.T) {
	env := newTestEnv(t)
	promo := env.createCommonPromo(t, 3, nil)
	env.verdicts.onCall = func() {
		if err := env.db.Delete(&promodomain.Promo{}, "id = ?", promo.ID).Error; err != nil {
			t.Errorf("delete promo: %v", err)
		}
	}

	_, err := env.svc.Activate(context.Background(), env.redeemer(), promo.ID.String())
	if !errors.Is(err, domain.ErrActivationFailed) {
		t.Fatalf("expected ErrActivationFailed, got %v", err)
	}
	if got := env.activationCount(t, promo.ID); got != 0 {
		t.Fatalf("expected no activation records, got %d", got)
	}
}

func TestConcurrentCommonActivationsNeverOverIssue(t *testing.T) {
	env := newTestEnv(t)
	const maxCount = 5
	const attempts = 20
	promo := env.createCommonPromo(t, maxCount, nil)

	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Activate(context.Background(), env.redeemer(), promo.ID.String())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, unavailable int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrPromoUnavailable):
			unavailable++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != maxCount {
		t.Fatalf("expected exactly %d successes, got %d", maxCount, ok)
	}
	if unavailable != attempts-maxCount {
		t.Fatalf("expected %d unavailable, got %d", attempts-maxCount, unavailable)
	}

	var reloaded promodomain.Promo
	if err := env.db.First(&reloaded, "id = ?", promo.ID).Error; err != nil {
		t.Fatalf("reload promo: %v", err)
	}
	if reloaded.UsedCount != maxCount {
		t.Fatalf("expected used_count %d, got %d", maxCount, reloaded.UsedCount)
	}
	if got := env.activationCount(t, promo.ID); got != maxCount {
		t.Fatalf("expected %d activation records, got %d", maxCount, got)
	}
}

func TestConcurrentUniqueActivationsNoDoubleIssue(t *testing.T) {
	env := newTestEnv(t)
	codes := make([]string, 4)
	for i := range codes {
		codes[i] = fmt.Sprintf("CODE-%03d", i)
	}
	promo := env.createUniquePromo(t, codes...)

	const attempts = 12
	var wg sync.WaitGroup
	issued := make(chan string, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := env.svc.Activate(context.Background(), env.redeemer(), promo.ID.String())
			if err == nil {
				issued <- resp.Code
			}
		}()
	}
	wg.Wait()
	close(issued)

	seen := map[string]bool{}
	for code := range issued {
		if seen[code] {
			t.Fatalf("code %q issued more than once", code)
		}
		seen[code] = true
	}
	if len(seen) != len(codes) {
		t.Fatalf("expected %d codes issued, got %d", len(codes), len(seen))
	}
}

func TestHistoryNewestFirstWithTotal(t *testing.T) {
	env := newTestEnv(t)
	redeemer := env.redeemer()

	first := env.createCommonPromo(t, 3, func(p *promodomain.Promo) {
		p.Description = "first promo"
	})
	second := env.createCommonPromo(t, 3, func(p *promodomain.Promo) {
		p.Description = "second promo"
	})

	if _, err := env.svc.Activate(context.Background(), redeemer, first.ID.String()); err != nil {
		t.Fatalf("activate first: %v", err)
	}
	env.clk.Advance(time.Hour)
	if _, err := env.svc.Activate(context.Background(), redeemer, second.ID.String()); err != nil {
		t.Fatalf("activate second: %v", err)
	}

	resp, err := env.svc.History(context.Background(), redeemer.ID, domain.HistoryRequest{})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if resp.Total != 2 {
		t.Fatalf("expected total 2, got %d", resp.Total)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(resp.Items))
	}
	if resp.Items[0].Description != "second promo" {
		t.Fatalf("expected newest first, got %q", resp.Items[0].Description)
	}
	if resp.Items[1].PromoID != first.ID.String() {
		t.Fatalf("expected first promo second, got %q", resp.Items[1].PromoID)
	}
}

func TestHistoryPagination(t *testing.T) {
	env := newTestEnv(t)
	redeemer := env.redeemer()
	promo := env.createCommonPromo(t, 10, nil)

	for i := 0; i < 3; i++ {
		if _, err := env.svc.Activate(context.Background(), redeemer, promo.ID.String()); err != nil {
			t.Fatalf("activate %d: %v", i+1, err)
		}
		env.clk.Advance(time.Minute)
	}

	resp, err := env.svc.History(context.Background(), redeemer.ID, domain.HistoryRequest{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if resp.Total != 3 {
		t.Fatalf("expected total 3, got %d", resp.Total)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("expected 1 item on last page, got %d", len(resp.Items))
	}

	other, err := env.svc.History(context.Background(), env.node.Generate(), domain.HistoryRequest{})
	if err != nil {
		t.Fatalf("history for stranger: %v", err)
	}
	if other.Total != 0 || len(other.Items) != 0 {
		t.Fatalf("expected empty history, got total %d with %d items", other.Total, len(other.Items))
	}
}
