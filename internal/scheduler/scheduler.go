package scheduler

import (
	"context"

	accountdomain "github.com/RandomProgramm3r/Promo-Code-API/internal/account/domain"
	auditdomain "github.com/RandomProgramm3r/Promo-Code-API/internal/audit/domain"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/config"
	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Log       *zap.Logger
	Accounts  accountdomain.Service
	Audit     auditdomain.Service
}

// Scheduler runs periodic maintenance jobs. Currently the only job is the
// expired-session sweep.
type Scheduler struct {
	cron     *cron.Cron
	log      *zap.Logger
	accounts accountdomain.Service
	audit    auditdomain.Service
}

func New(p Params) (*Scheduler, error) {
	s := &Scheduler{
		cron:     cron.New(),
		log:      p.Log.Named("scheduler"),
		accounts: p.Accounts,
		audit:    p.Audit,
	}

	if _, err := s.cron.AddFunc(p.Config.Session.CleanupSpec, s.sweepSessions); err != nil {
		return nil, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.cron.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopped := s.cron.Stop()
			select {
			case <-stopped.Done():
			case <-ctx.Done():
			}
			return nil
		},
	})
	return s, nil
}

func (s *Scheduler) sweepSessions() {
	ctx := context.Background()
	deleted, err := s.accounts.DeleteExpiredSessions(ctx)
	if err != nil {
		s.log.Error("session sweep failed", zap.Error(err))
		return
	}
	if deleted == 0 {
		return
	}
	s.log.Info("swept expired sessions", zap.Int64("deleted", deleted))
	_ = s.audit.AuditLog(ctx, "", nil, "session.sweep", "session", nil, map[string]any{
		"deleted": deleted,
	})
}

var Module = fx.Module("scheduler",
	fx.Provide(New),
	fx.Invoke(func(*Scheduler) {}),
)
