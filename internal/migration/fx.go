package migration

import (
	"github.com/smallbiznis/orderhook/internal/order/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Module ensures the schema exists on startup so the service is usable out
// of the box against a fresh sqlite file or an empty database.
var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB) error {
		return conn.AutoMigrate(
			&domain.Order{},
			&domain.WebhookDelivery{},
		)
	}),
)
