package shopify

import (
	"github.com/smallbiznis/orderhook/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("shopify",
	fx.Provide(provideVerifier),
)

func provideVerifier(cfg config.Config) (*Verifier, error) {
	return NewVerifier(cfg.WebhookSecret)
}
