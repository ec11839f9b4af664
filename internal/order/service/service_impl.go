package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orderhook/internal/clock"
	"github.com/smallbiznis/orderhook/internal/liveevents"
	"github.com/smallbiznis/orderhook/internal/order/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Repo   domain.Repository
	Hub    *liveevents.Hub
	Bridge *liveevents.Bridge `optional:"true"`
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	repo   domain.Repository
	hub    *liveevents.Hub
	bridge *liveevents.Bridge
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("order.service"),
		genID:  p.GenID,
		clock:  p.Clock,
		repo:   p.Repo,
		hub:    p.Hub,
		bridge: p.Bridge,
	}
}

func (s *Service) Ingest(ctx context.Context, req domain.IngestRequest) (domain.Order, error) {
	order, err := normalize(req.Payload)
	if err != nil {
		return domain.Order{}, err
	}

	now := s.clock.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now

	if err := s.repo.Upsert(ctx, s.db, order); err != nil {
		return domain.Order{}, err
	}

	// Re-read so the returned record carries the stored created_at when the
	// upsert replaced an existing row.
	if stored, err := s.repo.FindByID(ctx, s.db, order.ID); err == nil && stored != nil {
		order = stored
	}

	s.recordDelivery(ctx, order.ID, req, now)
	s.notify(order, now)

	return *order, nil
}

// recordDelivery appends the audit row. Failure is logged, never fatal: the
// order itself is already durable.
func (s *Service) recordDelivery(ctx context.Context, orderID string, req domain.IngestRequest, now time.Time) {
	delivery := &domain.WebhookDelivery{
		ID:         s.genID.Generate(),
		OrderID:    orderID,
		Topic:      strings.TrimSpace(req.Topic),
		ShopDomain: strings.TrimSpace(req.ShopDomain),
		ReceivedAt: now,
	}
	if err := s.repo.InsertDelivery(ctx, s.db, delivery); err != nil {
		s.log.Warn("delivery audit insert failed",
			zap.String("order_id", orderID),
			zap.Error(err))
	}
}

// notify is fire-and-forget: the webhook response does not depend on it.
func (s *Service) notify(order *domain.Order, now time.Time) {
	event := liveevents.OrderEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		ReceivedAt:  now.Format(time.RFC3339),
	}
	s.hub.Publish(event)
	s.bridge.Broadcast(event)
}

func (s *Service) ListRecent(ctx context.Context, req domain.ListOrdersRequest) ([]domain.Order, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = domain.DefaultListLimit
	}
	if limit > domain.MaxListLimit {
		limit = domain.MaxListLimit
	}

	items, err := s.repo.ListRecent(ctx, s.db, limit)
	if err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		orders = append(orders, *item)
	}
	return orders, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Order{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Order{}, err
	}
	if item == nil {
		return domain.Order{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) ListDeliveries(ctx context.Context, orderID string) ([]domain.WebhookDelivery, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, domain.ErrInvalidID
	}

	if _, err := s.GetByID(ctx, orderID); err != nil {
		return nil, err
	}

	items, err := s.repo.ListDeliveries(ctx, s.db, orderID, domain.MaxListLimit)
	if err != nil {
		return nil, err
	}

	deliveries := make([]domain.WebhookDelivery, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		deliveries = append(deliveries, *item)
	}
	return deliveries, nil
}
