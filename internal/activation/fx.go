package activation

import (
	"github.com/RandomProgramm3r/Promo-Code-API/internal/activation/ledger"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/activation/service"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/antifraud"
	"go.uber.org/fx"
)

var Module = fx.Module("activation.service",
	fx.Provide(ledger.New),
	fx.Provide(func(gw *antifraud.Gateway) service.VerdictSource { return gw }),
	fx.Provide(service.NewService),
)
