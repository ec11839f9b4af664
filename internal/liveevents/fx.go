package liveevents

import (
	"context"

	"github.com/smallbiznis/orderhook/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("liveevents",
	fx.Provide(NewHub),
	fx.Provide(provideBridge),
)

func provideBridge(lc fx.Lifecycle, cfg config.Config, hub *Hub, log *zap.Logger) *Bridge {
	bridge := NewBridge(cfg.RedisAddr, cfg.RedisChannel, hub, log)
	if bridge == nil {
		return nil
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			bridge.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			bridge.Stop()
			return nil
		},
	})

	return bridge
}
