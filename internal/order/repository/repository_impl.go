package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/orderhook/internal/order/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// upsertColumns are the fields replaced on re-delivery of a known order id.
// created_at is deliberately absent so the first-seen time survives replaces.
var upsertColumns = []string{
	"order_number",
	"customer_name",
	"email",
	"phone",
	"address",
	"products",
	"raw_payload",
	"updated_at",
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(upsertColumns),
	}).Create(order).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*domain.Order, error) {
	var order domain.Order
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Take(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repo) ListRecent(ctx context.Context, db *gorm.DB, limit int) ([]*domain.Order, error) {
	var orders []*domain.Order
	err := db.WithContext(ctx).
		Model(&domain.Order{}).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) InsertDelivery(ctx context.Context, db *gorm.DB, delivery *domain.WebhookDelivery) error {
	return db.WithContext(ctx).Create(delivery).Error
}

func (r *repo) ListDeliveries(ctx context.Context, db *gorm.DB, orderID string, limit int) ([]*domain.WebhookDelivery, error) {
	var deliveries []*domain.WebhookDelivery
	err := db.WithContext(ctx).
		Model(&domain.WebhookDelivery{}).
		Where("order_id = ?", orderID).
		Order("received_at desc, id desc").
		Limit(limit).
		Find(&deliveries).Error
	if err != nil {
		return nil, err
	}
	return deliveries, nil
}
