package domain

import (
	"context"
	"errors"
)

const (
	// DefaultListLimit matches the UI's implicit page size.
	DefaultListLimit = 20
	MaxListLimit     = 100
)

type IngestRequest struct {
	// Payload is the raw, already-verified webhook body.
	Payload []byte
	// Topic and ShopDomain come from the delivery headers and are recorded
	// for audit only.
	Topic      string
	ShopDomain string
}

type ListOrdersRequest struct {
	Limit int
}

type Service interface {
	// Ingest normalizes and upserts a verified webhook payload, then emits a
	// best-effort change notification.
	Ingest(ctx context.Context, req IngestRequest) (Order, error)
	ListRecent(ctx context.Context, req ListOrdersRequest) ([]Order, error)
	GetByID(ctx context.Context, id string) (Order, error)
	ListDeliveries(ctx context.Context, orderID string) ([]WebhookDelivery, error)
}

var (
	ErrInvalidPayload = errors.New("invalid_payload")
	ErrMissingOrderID = errors.New("missing_order_id")
	ErrInvalidID      = errors.New("invalid_id")
	ErrNotFound       = errors.New("not_found")
)
