package engagement

import (
	"github.com/RandomProgramm3r/Promo-Code-API/internal/engagement/service"
	"go.uber.org/fx"
)

var Module = fx.Module("engagement.service",
	fx.Provide(service.NewService),
)
