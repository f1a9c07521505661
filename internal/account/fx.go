package account

import (
	"github.com/RandomProgramm3r/Promo-Code-API/internal/account/service"
	"go.uber.org/fx"
)

var Module = fx.Module("account.service",
	fx.Provide(service.NewService),
)
