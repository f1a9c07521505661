package antifraud

import (
	"github.com/RandomProgramm3r/Promo-Code-API/internal/cache"
	"github.com/RandomProgramm3r/Promo-Code-API/internal/clock"
	"go.uber.org/fx"
)

var Module = fx.Module("antifraud.gateway",
	fx.Provide(func(clk clock.Clock) VerdictCache {
		return cache.NewTTLCache[string, Verdict](clk)
	}),
	fx.Provide(NewGateway),
)
