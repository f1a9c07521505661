package db

import (
	"context"
	"strings"

	"github.com/RandomProgramm3r/Promo-Code-API/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to the configured database. Postgres is used when
// DATABASE_URL is set; an on-disk sqlite file otherwise, which keeps local
// development dependency-free.
func Open(cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}

	dsn := strings.TrimSpace(cfg.DatabaseURL)
	if dsn == "" {
		log.Warn("DATABASE_URL not set, falling back to local sqlite file")
		return gorm.Open(sqlite.Open("promocode.db"), gormCfg)
	}
	return gorm.Open(postgres.Open(dsn), gormCfg)
}

// IsPostgres reports whether conn speaks the postgres dialect. Row-level
// locking clauses are only emitted for postgres.
func IsPostgres(conn *gorm.DB) bool {
	return conn != nil && conn.Dialector.Name() == "postgres"
}

var Module = fx.Module("db",
	fx.Provide(Open),
	fx.Invoke(func(lc fx.Lifecycle, conn *gorm.DB) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				sqlDB, err := conn.DB()
				if err != nil {
					return err
				}
				return sqlDB.Close()
			},
		})
	}),
)
