package auth

import (
	"go.uber.org/fx"

	"github.com/opendigger/pointgate/internal/config"
)

// Module provides authentication primitives via fx.
var Module = fx.Provide(newTokenStrategy)

type strategyParams struct {
	fx.In

	Config *config.Config
}

func newTokenStrategy(p strategyParams) Strategy {
	return NewHMACStrategy(p.Config.ServiceTokenSecret, Options{})
}
