package promo

import (
	"github.com/RandomProgramm3r/Promo-Code-API/internal/promo/repository"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/promo/service"
	"go.uber.org/fx"
)

var Module = fx.Module("promo.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
