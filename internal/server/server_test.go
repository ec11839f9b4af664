package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/orderhook/internal/clock"
	"github.com/smallbiznis/orderhook/internal/config"
	"github.com/smallbiznis/orderhook/internal/liveevents"
	"github.com/smallbiznis/orderhook/internal/order/domain"
	"github.com/smallbiznis/orderhook/internal/order/repository"
	orderservice "github.com/smallbiznis/orderhook/internal/order/service"
	"github.com/smallbiznis/orderhook/internal/shopify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testSecret = "shpss_test_secret"

func newTestServer(t *testing.T) (*Server, *gin.Engine, *liveevents.Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Order{}, &domain.WebhookDelivery{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	hub := liveevents.NewHub()
	svc := orderservice.New(orderservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
		Hub:   hub,
	})

	verifier, err := shopify.NewVerifier(testSecret)
	require.NoError(t, err)

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	srv := NewServer(ServerParams{
		Gin:      engine,
		Cfg:      config.Config{WebhookSecret: testSecret},
		Log:      zap.NewNop(),
		OrderSvc: svc,
		Verifier: verifier,
		Hub:      hub,
	})
	srv.RegisterRoutes()

	return srv, engine, hub
}

func postWebhook(engine *gin.Engine, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set(shopify.SignatureHeader, signature)
	}
	req.Header.Set(shopify.TopicHeader, "orders/create")
	req.Header.Set(shopify.ShopDomainHeader, "example.myshopify.com")

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestHandleWebhook_VerifiedAndStored(t *testing.T) {
	_, engine, _ := newTestServer(t)

	body := []byte(`{
		"id": "5001",
		"order_number": "#1001",
		"email": "jane@example.com",
		"shipping_address": {"first_name": "Jane", "last_name": "Doe", "address1": "1 Main St", "city": "Springfield"},
		"line_items": [{"title": "Widget"}, {"title": "Gadget"}]
	}`)

	w := postWebhook(engine, body, shopify.Sign(testSecret, body))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/api/orders/5001", nil)
	get := httptest.NewRecorder()
	engine.ServeHTTP(get, req)
	require.Equal(t, http.StatusOK, get.Code)

	var order domain.Order
	require.NoError(t, json.Unmarshal(get.Body.Bytes(), &order))
	assert.Equal(t, "Jane Doe", order.CustomerName)
	assert.Equal(t, "1 Main St, Springfield", order.Address)
	assert.Equal(t, "Widget, Gadget", order.Products)
}

func TestHandleWebhook_InvalidSignature(t *testing.T) {
	_, engine, _ := newTestServer(t)

	body := []byte(`{"id": "5001"}`)

	tests := []struct {
		name      string
		signature string
	}{
		{name: "wrong secret", signature: shopify.Sign("another_secret", body)},
		{name: "missing header", signature: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := postWebhook(engine, body, tc.signature)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}

	// Nothing was stored.
	req := httptest.NewRequest(http.MethodGet, "/api/orders/5001", nil)
	get := httptest.NewRecorder()
	engine.ServeHTTP(get, req)
	assert.Equal(t, http.StatusNotFound, get.Code)
}

func TestHandleWebhook_MalformedPayload(t *testing.T) {
	_, engine, _ := newTestServer(t)

	tests := []struct {
		name string
		body []byte
	}{
		{name: "not json", body: []byte(`{"id":`)},
		{name: "missing id", body: []byte(`{"order_number": "#1001"}`)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := postWebhook(engine, tc.body, shopify.Sign(testSecret, tc.body))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestHandleWebhook_MissingShippingAddress(t *testing.T) {
	_, engine, _ := newTestServer(t)

	body := []byte(`{"id": "6001"}`)
	w := postWebhook(engine, body, shopify.Sign(testSecret, body))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListOrders(t *testing.T) {
	_, engine, _ := newTestServer(t)

	for _, id := range []string{"1", "2", "3"} {
		body := []byte(`{"id": "` + id + `"}`)
		w := postWebhook(engine, body, shopify.Sign(testSecret, body))
		require.Equal(t, http.StatusOK, w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/orders?limit=2", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Orders []domain.Order `json:"orders"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Orders, 2)

	req = httptest.NewRequest(http.MethodGet, "/api/orders?limit=bogus", nil)
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListOrderDeliveries(t *testing.T) {
	_, engine, _ := newTestServer(t)

	body := []byte(`{"id": "5001"}`)
	w := postWebhook(engine, body, shopify.Sign(testSecret, body))
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/orders/5001/deliveries", nil)
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Deliveries []domain.WebhookDelivery `json:"deliveries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Deliveries, 1)
	assert.Equal(t, "orders/create", resp.Deliveries[0].Topic)
	assert.Equal(t, "example.myshopify.com", resp.Deliveries[0].ShopDomain)
}

func TestStreamOrderEvents_NoHub(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	srv := &Server{engine: engine, log: zap.NewNop()}
	engine.GET("/events", srv.StreamOrderEvents)

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	// The failure path must produce a clean error response, never a
	// half-committed event stream.
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "retry:")
	assert.NotEqual(t, "text/event-stream", w.Header().Get("Content-Type"))
}

func TestStreamOrderEvents_ReplaysBacklog(t *testing.T) {
	_, engine, hub := newTestServer(t)

	hub.Publish(liveevents.OrderEvent{OrderID: "5001", ReceivedAt: "2024-05-01T12:00:00Z"})
	hub.Publish(liveevents.OrderEvent{OrderID: "5002", ReceivedAt: "2024-05-01T12:01:00Z"})

	// A pre-canceled context lets the handler flush the backlog and return
	// instead of holding the stream open.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	out := w.Body.String()
	assert.Contains(t, out, "retry: 2000")
	assert.Contains(t, out, "event: update")
	assert.Contains(t, out, `"order_id":"5001"`)
	assert.Contains(t, out, `"order_id":"5002"`)
}
