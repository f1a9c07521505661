package main

import (
	"github.com/RandomProgramm3r/Promo-Code-API/internal/account"
	accountdomain "github.com/RandomProgramm3r/Promo-Code-API/internal/account/domain"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/activation"
	activationdomain "github.com/RandomProgramm3r/Promo-Code-API/internal/activation/domain"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/antifraud"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/audit"
	auditdomain "github.com/RandomProgramm3r/Promo-Code-API/internal/audit/domain"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/clock"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/config"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/engagement"
	engagementdomain "github.com/RandomProgramm3r/Promo-Code-API/internal/engagement/domain"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/logger"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/observability/metrics"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/observability/tracing"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/promo"
	promodomain "github.com/RandomProgramm3r/Promo-Code-API/internal/promo/domain"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/scheduler"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/server"
	"github.com/RandomProgramm3r/Promo-Code-API/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var version = "dev"

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		tracing.Module,
		metrics.Module,
		clock.Module,
		fx.Provide(func() *snowflake.Node {
			node, err := snowflake.NewNode(1)
			if err != nil {
				panic(err)
			}
			return node
		}),
		db.Module,
		fx.Invoke(func(conn *gorm.DB) error {
			return conn.AutoMigrate(
				&accountdomain.User{},
				&accountdomain.Company{},
				&accountdomain.Session{},
				&promodomain.Promo{},
				&promodomain.PromoCode{},
				&activationdomain.ActivationRecord{},
				&engagementdomain.PromoLike{},
				&engagementdomain.PromoComment{},
				&auditdomain.AuditLog{},
			)
		}),
		antifraud.Module,
		account.Module,
		promo.Module,
		activation.Module,
		engagement.Module,
		audit.Module,
		scheduler.Module,
		server.Module,
	)
	app.Run()
}
