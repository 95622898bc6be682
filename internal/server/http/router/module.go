package router

import "go.uber.org/fx"

// Module provides the assembled gin engine for fx runtime.
var Module = fx.Provide(Setup)
