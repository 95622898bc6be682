package config

import "go.uber.org/fx"

// Module loads service configuration into fx graphs.
var Module = fx.Provide(Load)
