package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/orderhook/internal/clock"
	"github.com/smallbiznis/orderhook/internal/liveevents"
	"github.com/smallbiznis/orderhook/internal/order/domain"
	"github.com/smallbiznis/orderhook/internal/order/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc   domain.Service
	db    *gorm.DB
	clock *clock.FakeClock
	hub   *liveevents.Hub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Order{}, &domain.WebhookDelivery{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	hub := liveevents.NewHub()

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  repository.Provide(),
		Hub:   hub,
	})

	return &fixture{svc: svc, db: db, clock: fake, hub: hub}
}

const janeDoePayload = `{
	"id": "5001",
	"order_number": "#1001",
	"email": "jane@example.com",
	"shipping_address": {
		"first_name": "Jane",
		"last_name": "Doe",
		"address1": "1 Main St",
		"city": "Springfield"
	},
	"line_items": [{"title": "Widget"}, {"title": "Gadget"}]
}`

func TestIngest_NormalizesAndStores(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.svc.Ingest(ctx, domain.IngestRequest{
		Payload:    []byte(janeDoePayload),
		Topic:      "orders/create",
		ShopDomain: "example.myshopify.com",
	})
	require.NoError(t, err)

	assert.Equal(t, "5001", order.ID)
	assert.Equal(t, "#1001", order.OrderNumber)
	assert.Equal(t, "Jane Doe", order.CustomerName)
	assert.Equal(t, "1 Main St, Springfield", order.Address)
	assert.Equal(t, "Widget, Gadget", order.Products)
	assert.Equal(t, "jane@example.com", order.Email)
	assert.JSONEq(t, janeDoePayload, string(order.RawPayload))

	stored, err := f.svc.GetByID(ctx, "5001")
	require.NoError(t, err)
	assert.Equal(t, order.ID, stored.ID)
	assert.Equal(t, order.CustomerName, stored.CustomerName)
	assert.Equal(t, order.Products, stored.Products)
}

func TestIngest_PayloadValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		payload  string
		expected error
	}{
		{
			name:     "not json",
			payload:  `{"id": `,
			expected: domain.ErrInvalidPayload,
		},
		{
			name:     "missing id",
			payload:  `{"order_number": "#1001"}`,
			expected: domain.ErrMissingOrderID,
		},
		{
			name:     "null id",
			payload:  `{"id": null}`,
			expected: domain.ErrMissingOrderID,
		},
		{
			name:     "blank id",
			payload:  `{"id": "   "}`,
			expected: domain.ErrMissingOrderID,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Ingest(ctx, domain.IngestRequest{Payload: []byte(tc.payload)})
			assert.ErrorIs(t, err, tc.expected)
		})
	}

	orders, err := f.svc.ListRecent(ctx, domain.ListOrdersRequest{})
	require.NoError(t, err)
	assert.Empty(t, orders, "rejected payloads must not be stored")
}

func TestIngest_MissingShippingAddress(t *testing.T) {
	f := newFixture(t)

	order, err := f.svc.Ingest(context.Background(), domain.IngestRequest{
		Payload: []byte(`{"id": 6001, "email": "a@b.example"}`),
	})
	require.NoError(t, err)

	assert.Equal(t, "6001", order.ID)
	assert.Equal(t, "", order.CustomerName)
	assert.Equal(t, "", order.Address)
	assert.Equal(t, "", order.Products)
}

func TestIngest_NumericScalars(t *testing.T) {
	f := newFixture(t)

	order, err := f.svc.Ingest(context.Background(), domain.IngestRequest{
		Payload: []byte(`{"id": 820982911946154508, "order_number": 1234}`),
	})
	require.NoError(t, err)

	assert.Equal(t, "820982911946154508", order.ID)
	assert.Equal(t, "1234", order.OrderNumber)
}

func TestIngest_CustomerContactFallback(t *testing.T) {
	f := newFixture(t)

	order, err := f.svc.Ingest(context.Background(), domain.IngestRequest{
		Payload: []byte(`{"id": "7001", "customer": {"email": "nested@example.com", "phone": "+15550001111"}}`),
	})
	require.NoError(t, err)

	assert.Equal(t, "nested@example.com", order.Email)
	assert.Equal(t, "+15550001111", order.Phone)
}

func TestIngest_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Ingest(ctx, domain.IngestRequest{
		Payload: []byte(`{"id": "5001", "order_number": "#1001"}`),
	})
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)

	second, err := f.svc.Ingest(ctx, domain.IngestRequest{
		Payload: []byte(`{"id": "5001", "order_number": "#1002"}`),
	})
	require.NoError(t, err)
	assert.True(t, second.CreatedAt.Equal(first.CreatedAt),
		"the returned record reflects the stored first-seen time")

	var count int64
	require.NoError(t, f.db.Model(&domain.Order{}).Count(&count).Error)
	assert.EqualValues(t, 1, count, "re-ingestion must not create a second row")

	stored, err := f.svc.GetByID(ctx, "5001")
	require.NoError(t, err)
	assert.Equal(t, "#1002", stored.OrderNumber, "last writer wins")
	assert.True(t, stored.CreatedAt.Equal(first.CreatedAt), "created_at keeps the first-seen time")
	assert.True(t, stored.UpdatedAt.After(first.UpdatedAt))
}

func TestIngest_PublishesChangeEvent(t *testing.T) {
	f := newFixture(t)

	sub, backlog, err := f.hub.Subscribe()
	require.NoError(t, err)
	defer sub.Close()
	assert.Empty(t, backlog)

	_, err = f.svc.Ingest(context.Background(), domain.IngestRequest{
		Payload: []byte(`{"id": "5001", "order_number": "#1001"}`),
	})
	require.NoError(t, err)

	select {
	case event := <-sub.Events():
		assert.Equal(t, "5001", event.OrderID)
		assert.Equal(t, "#1001", event.OrderNumber)
	case <-time.After(time.Second):
		t.Fatal("expected a change event")
	}
}

func TestListRecent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		payload := `{"id": "` + string(rune('a'+i)) + `"}`
		_, err := f.svc.Ingest(ctx, domain.IngestRequest{Payload: []byte(payload)})
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}

	orders, err := f.svc.ListRecent(ctx, domain.ListOrdersRequest{Limit: 3})
	require.NoError(t, err)
	require.Len(t, orders, 3)

	assert.Equal(t, "e", orders[0].ID, "newest first")
	for i := 1; i < len(orders); i++ {
		assert.False(t, orders[i].CreatedAt.After(orders[i-1].CreatedAt),
			"created_at must be non-increasing")
	}

	// Default limit applies when the request leaves it unset.
	orders, err = f.svc.ListRecent(ctx, domain.ListOrdersRequest{})
	require.NoError(t, err)
	assert.Len(t, orders, 5)
}

func TestGetByID_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.GetByID(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestListDeliveries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Ingest(ctx, domain.IngestRequest{
		Payload:    []byte(`{"id": "5001"}`),
		Topic:      "orders/create",
		ShopDomain: "example.myshopify.com",
	})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	_, err = f.svc.Ingest(ctx, domain.IngestRequest{
		Payload: []byte(`{"id": "5001"}`),
		Topic:   "orders/updated",
	})
	require.NoError(t, err)

	deliveries, err := f.svc.ListDeliveries(ctx, "5001")
	require.NoError(t, err)
	require.Len(t, deliveries, 2)
	assert.Equal(t, "orders/updated", deliveries[0].Topic, "newest first")
	assert.Equal(t, "example.myshopify.com", deliveries[1].ShopDomain)

	_, err = f.svc.ListDeliveries(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
