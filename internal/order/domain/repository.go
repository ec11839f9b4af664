package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// Upsert inserts the order or, when the id already exists, replaces every
	// field except created_at in a single statement.
	Upsert(ctx context.Context, db *gorm.DB, order *Order) error
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Order, error)
	ListRecent(ctx context.Context, db *gorm.DB, limit int) ([]*Order, error)

	InsertDelivery(ctx context.Context, db *gorm.DB, delivery *WebhookDelivery) error
	ListDeliveries(ctx context.Context, db *gorm.DB, orderID string, limit int) ([]*WebhookDelivery, error)
}
