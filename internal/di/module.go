package di

import (
	"github.com/opendigger/pointgate/internal/adapter/fasign"
	"github.com/opendigger/pointgate/internal/adapter/payout"
	"github.com/opendigger/pointgate/internal/app"
	"github.com/opendigger/pointgate/internal/config"
	"github.com/opendigger/pointgate/internal/logger"
	"github.com/opendigger/pointgate/internal/pkg/auth"
	"github.com/opendigger/pointgate/internal/pkg/crypt"
	"github.com/opendigger/pointgate/internal/server/http/handlers"
	"github.com/opendigger/pointgate/internal/server/http/router"
	"github.com/opendigger/pointgate/internal/storage/postgres"
	"github.com/opendigger/pointgate/internal/usecase"
	"go.uber.org/fx"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		auth.Module,
		crypt.Module,
		postgres.Module,
		fasign.Module,
		payout.Module,
		usecase.Module,
		fx.Provide(func(f *app.PointsFacade) handlers.PointsFacade { return f }),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
