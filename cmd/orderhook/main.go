package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orderhook/internal/clock"
	"github.com/smallbiznis/orderhook/internal/config"
	"github.com/smallbiznis/orderhook/internal/liveevents"
	"github.com/smallbiznis/orderhook/internal/migration"
	"github.com/smallbiznis/orderhook/internal/observability"
	"github.com/smallbiznis/orderhook/internal/order"
	"github.com/smallbiznis/orderhook/internal/server"
	"github.com/smallbiznis/orderhook/internal/shopify"
	"github.com/smallbiznis/orderhook/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		shopify.Module,
		liveevents.Module,
		order.Module,

		fx.Provide(server.NewEngine),
		fx.Provide(server.NewServer),
		fx.Invoke(func(s *server.Server) {
			s.RegisterRoutes()
			s.RegisterUIRoutes()
		}),
		fx.Invoke(server.RunHTTP),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
