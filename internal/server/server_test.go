package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/RandomProgramm3r/Promo-Code-API/internal/account/domain"
	accountservice "github.com/RandomProgramm3r/Promo-Code-API/internal/account/service"
	activationdomain "github.com/RandomProgramm3r/Promo-Code-API/internal/activation/domain"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/activation/ledger"
	activationservice "github.com/RandomProgramm3r/Promo-Code-API/internal/activation/service"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/antifraud"
	auditdomain "github.com/RandomProgramm3r/Promo-Code-API/internal/audit/domain"
	auditrepository "github.com/RandomProgramm3r/Promo-Code-API/internal/audit/repository"
	auditservice "github.com/RandomProgramm3r/Promo-Code-API/internal/audit/service"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/cache"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/clock"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/config"
	engagementdomain "github.com/RandomProgramm3r/Promo-Code-API/internal/engagement/domain"
	engagementservice "github.com/RandomProgramm3r/Promo-Code-API/internal/engagement/service"
	promodomain "github.com/RandomProgramm3r/Promo-Code-API/internal/promo/domain"
	promorepository "github.com/RandomProgramm3r/Promo-Code-API/internal/promo/repository"
	promoservice "github.com/RandomProgramm3r/Promo-Code-API/internal/promo/service"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type apiEnv struct {
	engine *gin.Engine
	db     *gorm.DB
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

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
		&domain.User{},
		&domain.Company{},
		&domain.Session{},
		&promodomain.Promo{},
		&promodomain.PromoCode{},
		&activationdomain.ActivationRecord{},
		&engagementdomain.PromoLike{},
		&engagementdomain.PromoComment{},
		&auditdomain.AuditLog{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	verdictSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"ok": true}`)
	}))
	t.Cleanup(verdictSrv.Close)

	node, err := snowflake.NewNode(6)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	clk := clock.SystemClock{}
	log := zap.NewNop()

	cfg := config.Config{Environment: "test", HTTPAddr: ":0"}
	cfg.Session.TTL = time.Hour
	cfg.Session.SigninLimit = 100
	cfg.Session.SigninWindow = time.Minute

	accountSvc := accountservice.NewService(accountservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Cfg: cfg,
	})
	promoRepo := promorepository.Provide()
	promoSvc := promoservice.NewService(promoservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: promoRepo,
	})
	gateway := antifraud.New(
		verdictSrv.Client(), log,
		cache.NewTTLCache[string, antifraud.Verdict](clk),
		clk, verdictSrv.URL, 2,
	)
	activationSvc := activationservice.NewService(activationservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk,
		PromoRepo: promoRepo, Ledger: ledger.New(), Verdicts: gateway,
	})
	engagementSvc := engagementservice.NewService(engagementservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk,
	})
	auditSvc := auditservice.NewService(auditservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: auditrepository.Provide(),
	})

	srv := NewServer(Params{
		Config:        cfg,
		Log:           log,
		DB:            conn,
		Clock:         clk,
		AccountSvc:    accountSvc,
		PromoSvc:      promoSvc,
		ActivationSvc: activationSvc,
		EngagementSvc: engagementSvc,
		AuditSvc:      auditSvc,
	})
	return &apiEnv{engine: NewEngine(srv), db: conn}
}

func (e *apiEnv) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func (e *apiEnv) signUpCompany(t *testing.T) string {
	t.Helper()
	rec := e.request(t, http.MethodPost, "/api/business/auth/sign-up", "", map[string]any{
		"email":    "corp@example.com",
		"name":     "Acme",
		"password": "Password1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("company sign-up: status %d body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	decodeBody(t, rec, &resp)
	return resp.Token
}

func (e *apiEnv) signUpUser(t *testing.T, email string) string {
	t.Helper()
	rec := e.request(t, http.MethodPost, "/api/user/auth/sign-up", "", map[string]any{
		"email":    email,
		"name":     "Alice",
		"surname":  "Smith",
		"password": "Password1",
		"age":      30,
		"country":  "fr",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("user sign-up: status %d body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	decodeBody(t, rec, &resp)
	return resp.Token
}

func (e *apiEnv) createPromo(t *testing.T, companyToken string, maxCount int) string {
	t.Helper()
	rec := e.request(t, http.MethodPost, "/api/business/promo", companyToken, map[string]any{
		"description":  "ten percent off",
		"mode":         "COMMON",
		"max_count":    maxCount,
		"promo_common": "SALE10",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create promo: status %d body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &resp)
	return resp.ID
}

func TestActivationFlow(t *testing.T) {
	env := newAPIEnv(t)
	companyToken := env.signUpCompany(t)
	promoID := env.createPromo(t, companyToken, 1)
	userToken := env.signUpUser(t, "alice@example.com")

	feed := env.request(t, http.MethodGet, "/api/user/feed", userToken, nil)
	if feed.Code != http.StatusOK {
		t.Fatalf("feed: status %d body %s", feed.Code, feed.Body.String())
	}
	var feedResp struct {
		Total  int64 `json:"total"`
		Promos []struct {
			ID     string `json:"id"`
			Active bool   `json:"active"`
		} `json:"promos"`
	}
	decodeBody(t, feed, &feedResp)
	if feedResp.Total != 1 || feedResp.Promos[0].ID != promoID || !feedResp.Promos[0].Active {
		t.Fatalf("unexpected feed: %s", feed.Body.String())
	}

	activate := env.request(t, http.MethodPost, "/api/user/promo/"+promoID+"/activate", userToken, nil)
	if activate.Code != http.StatusOK {
		t.Fatalf("activate: status %d body %s", activate.Code, activate.Body.String())
	}
	var activateResp struct {
		Code string `json:"code"`
	}
	decodeBody(t, activate, &activateResp)
	if activateResp.Code != "SALE10" {
		t.Fatalf("expected shared code, got %q", activateResp.Code)
	}

	// Capacity of one: the next attempt is denied.
	again := env.request(t, http.MethodPost, "/api/user/promo/"+promoID+"/activate", userToken, nil)
	if again.Code != http.StatusForbidden {
		t.Fatalf("second activate: status %d body %s", again.Code, again.Body.String())
	}

	history := env.request(t, http.MethodGet, "/api/user/promo/history", userToken, nil)
	if history.Code != http.StatusOK {
		t.Fatalf("history: status %d body %s", history.Code, history.Body.String())
	}
	var historyResp struct {
		Total int64 `json:"total"`
	}
	decodeBody(t, history, &historyResp)
	if historyResp.Total != 1 {
		t.Fatalf("expected 1 history entry, got %d", historyResp.Total)
	}

	var auditCount int64
	if err := env.db.Model(&auditdomain.AuditLog{}).Where("action = ?", "promo.activate").Count(&auditCount).Error; err != nil {
		t.Fatalf("count audit: %v", err)
	}
	if auditCount != 1 {
		t.Fatalf("expected 1 activation audit entry, got %d", auditCount)
	}
}

func TestAuthRequired(t *testing.T) {
	env := newAPIEnv(t)

	feed := env.request(t, http.MethodGet, "/api/user/feed", "", nil)
	if feed.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", feed.Code)
	}

	stale := env.request(t, http.MethodGet, "/api/user/feed", "not-a-session", nil)
	if stale.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bogus token, got %d", stale.Code)
	}

	companyToken := env.signUpCompany(t)
	crossSurface := env.request(t, http.MethodGet, "/api/user/feed", companyToken, nil)
	if crossSurface.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for company token on user surface, got %d", crossSurface.Code)
	}
}

func TestBusinessOwnershipOverHTTP(t *testing.T) {
	env := newAPIEnv(t)
	ownerToken := env.signUpCompany(t)
	promoID := env.createPromo(t, ownerToken, 10)

	rec := env.request(t, http.MethodPost, "/api/business/auth/sign-up", "", map[string]any{
		"email":    "rival@example.com",
		"name":     "Rival",
		"password": "Password1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("rival sign-up: status %d", rec.Code)
	}
	var rival struct {
		Token string `json:"token"`
	}
	decodeBody(t, rec, &rival)

	get := env.request(t, http.MethodGet, "/api/business/promo/"+promoID, rival.Token, nil)
	if get.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for rival company, got %d body %s", get.Code, get.Body.String())
	}
}

func TestLikeAndCommentOverHTTP(t *testing.T) {
	env := newAPIEnv(t)
	companyToken := env.signUpCompany(t)
	promoID := env.createPromo(t, companyToken, 10)
	userToken := env.signUpUser(t, "alice@example.com")

	like := env.request(t, http.MethodPost, "/api/user/promo/"+promoID+"/like", userToken, nil)
	if like.Code != http.StatusOK {
		t.Fatalf("like: status %d body %s", like.Code, like.Body.String())
	}

	comment := env.request(t, http.MethodPost, "/api/user/promo/"+promoID+"/comments", userToken, map[string]any{
		"text": "great deal",
	})
	if comment.Code != http.StatusCreated {
		t.Fatalf("comment: status %d body %s", comment.Code, comment.Body.String())
	}

	item := env.request(t, http.MethodGet, "/api/user/promo/"+promoID, userToken, nil)
	if item.Code != http.StatusOK {
		t.Fatalf("feed item: status %d body %s", item.Code, item.Body.String())
	}
	var itemResp struct {
		Liked        bool `json:"liked"`
		LikeCount    int  `json:"like_count"`
		CommentCount int  `json:"comment_count"`
	}
	decodeBody(t, item, &itemResp)
	if !itemResp.Liked || itemResp.LikeCount != 1 || itemResp.CommentCount != 1 {
		t.Fatalf("unexpected item flags: %s", item.Body.String())
	}
}

func TestValidationErrorsOverHTTP(t *testing.T) {
	env := newAPIEnv(t)
	companyToken := env.signUpCompany(t)

	rec := env.request(t, http.MethodPost, "/api/business/promo", companyToken, map[string]any{
		"description": "broken",
		"mode":        "COMMON",
		"max_count":   0,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body %s", rec.Code, rec.Body.String())
	}

	missing := env.request(t, http.MethodGet, "/api/business/promo/999999", companyToken, nil)
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body %s", missing.Code, missing.Body.String())
	}
}
