package audit

import (
	"github.com/RandomProgramm3r/Promo-Code-API/internal/audit/repository"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
