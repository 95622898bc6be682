package fasign

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/opendigger/pointgate/internal/config"
)

// Module exposes the signing provider client and callback verifier to the fx graph.
var Module = fx.Options(
	fx.Provide(newClient),
	fx.Provide(newVerifier),
)

type clientParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newClient(p clientParams) (Client, error) {
	return NewHTTPClient(Config{
		APIHost:    p.Config.ProviderAPIHost,
		AppID:      p.Config.ProviderAppID,
		AppSecret:  p.Config.ProviderAppSecret,
		TemplateID: p.Config.ProviderTemplateID,
		Timeout:    p.Config.ProviderTimeout,
		TokenTTL:   p.Config.TokenTTL,
		TokenGrace: p.Config.TokenGrace,
	}, p.Logger)
}

func newVerifier(p clientParams) *CallbackVerifier {
	return NewCallbackVerifier(p.Config.ProviderAppSecret)
}
