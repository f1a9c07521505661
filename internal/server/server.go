package server

import (
	"context"
	"errors"
	"net/http"

	accountdomain "github.com/RandomProgramm3r/Promo-Code-API/internal/account/domain"
	activationdomain "github.com/RandomProgramm3r/Promo-Code-API/internal/activation/domain"
	auditdomain "github.com/RandomProgramm3r/Promo-Code-API/internal/audit/domain"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/clock"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/config"
	engagementdomain "github.com/RandomProgramm3r/Promo-Code-API/internal/engagement/domain"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/observability/metrics"
	promodomain "github.com/RandomProgramm3r/Promo-Code-API/internal/promo/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Config        config.Config
	Log           *zap.Logger
	DB            *gorm.DB
	Clock         clock.Clock
	AccountSvc    accountdomain.Service
	PromoSvc      promodomain.Service
	ActivationSvc activationdomain.Service
	EngagementSvc engagementdomain.Service
	AuditSvc      auditdomain.Service
	Metrics       *metrics.HTTPMetrics `optional:"true"`
}

// Server holds the HTTP handler dependencies.
type Server struct {
	cfg           config.Config
	log           *zap.Logger
	db            *gorm.DB
	accountSvc    accountdomain.Service
	promoSvc      promodomain.Service
	activationSvc activationdomain.Service
	engagementSvc engagementdomain.Service
	auditSvc      auditdomain.Service
	metrics       *metrics.HTTPMetrics
	signinLimiter *rateLimiter
}

func NewServer(p Params) *Server {
	return &Server{
		cfg:           p.Config,
		log:           p.Log.Named("server"),
		db:            p.DB,
		accountSvc:    p.AccountSvc,
		promoSvc:      p.PromoSvc,
		activationSvc: p.ActivationSvc,
		engagementSvc: p.EngagementSvc,
		auditSvc:      p.AuditSvc,
		metrics:       p.Metrics,
		signinLimiter: newRateLimiter(p.Config.Session.SigninLimit, p.Config.Session.SigninWindow, p.Clock),
	}
}

// NewEngine builds the gin engine with middleware and all routes registered.
func NewEngine(s *Server) *gin.Engine {
	if s.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(metrics.GinMiddleware(s.metrics))
	engine.Use(s.requestContext())
	engine.Use(s.requestLogger())

	s.registerRoutes(engine)
	return engine
}

// RunHTTP starts the HTTP listener and ties it to the fx lifecycle.
func RunHTTP(lc fx.Lifecycle, s *Server, engine *gin.Engine) {
	srv := &http.Server{
		Addr:    s.cfg.HTTPAddr,
		Handler: engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				s.log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

var Module = fx.Module("server",
	fx.Provide(NewServer),
	fx.Provide(NewEngine),
	fx.Invoke(RunHTTP),
)
