package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Order is the canonical persisted record for one Shopify order. The id is
// externally assigned and immutable; every re-delivery of the same id
// replaces the derived fields and raw payload in place.
type Order struct {
	ID           string         `gorm:"primaryKey" json:"id"`
	OrderNumber  string         `json:"order_number,omitempty"`
	CustomerName string         `json:"customer_name,omitempty"`
	Email        string         `json:"email,omitempty"`
	Phone        string         `json:"phone,omitempty"`
	Address      string         `json:"address,omitempty"`
	Products     string         `json:"products,omitempty"`
	RawPayload   datatypes.JSON `gorm:"type:jsonb" json:"raw_payload,omitempty"`
	CreatedAt    time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null" json:"updated_at"`
}

// WebhookDelivery is an audit row appended for every accepted webhook.
// It records where a stored order came from; nothing replays it.
type WebhookDelivery struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	OrderID    string       `gorm:"not null;index" json:"order_id"`
	Topic      string       `json:"topic,omitempty"`
	ShopDomain string       `json:"shop_domain,omitempty"`
	ReceivedAt time.Time    `gorm:"not null" json:"received_at"`
}
