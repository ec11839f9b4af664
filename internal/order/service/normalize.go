package service

import (
	"encoding/json"
	"strings"

	"github.com/smallbiznis/orderhook/internal/order/domain"
	"gorm.io/datatypes"
)

// scalar accepts a JSON string or number and yields its string form.
// Shopify sends numeric ids and order numbers; older payloads and fixtures
// send strings.
type scalar string

func (s *scalar) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*s = ""
		return nil
	}
	if trimmed[0] == '"' {
		var value string
		if err := json.Unmarshal(data, &value); err != nil {
			return err
		}
		*s = scalar(value)
		return nil
	}
	var value json.Number
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	*s = scalar(value.String())
	return nil
}

type shippingAddress struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address1  string `json:"address1"`
	City      string `json:"city"`
}

type customerInfo struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type lineItem struct {
	Title string `json:"title"`
}

type orderPayload struct {
	ID              scalar           `json:"id"`
	OrderNumber     scalar           `json:"order_number"`
	Email           string           `json:"email"`
	Phone           string           `json:"phone"`
	Customer        *customerInfo    `json:"customer"`
	ShippingAddress *shippingAddress `json:"shipping_address"`
	LineItems       []lineItem       `json:"line_items"`
}

// normalize maps a verified webhook body onto the canonical order record.
// Missing nested objects degrade to empty fields; only a body that is not
// JSON or carries no usable id fails.
func normalize(payload []byte) (*domain.Order, error) {
	var p orderPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, domain.ErrInvalidPayload
	}

	id := strings.TrimSpace(string(p.ID))
	if id == "" {
		return nil, domain.ErrMissingOrderID
	}

	order := &domain.Order{
		ID:          id,
		OrderNumber: strings.TrimSpace(string(p.OrderNumber)),
		Email:       strings.TrimSpace(p.Email),
		Phone:       strings.TrimSpace(p.Phone),
		RawPayload:  datatypes.JSON(append([]byte(nil), payload...)),
	}

	if order.Email == "" && p.Customer != nil {
		order.Email = strings.TrimSpace(p.Customer.Email)
	}
	if order.Phone == "" && p.Customer != nil {
		order.Phone = strings.TrimSpace(p.Customer.Phone)
	}

	if addr := p.ShippingAddress; addr != nil {
		order.CustomerName = joinNonEmpty(" ", addr.FirstName, addr.LastName)
		order.Address = joinNonEmpty(", ", addr.Address1, addr.City)
	}

	titles := make([]string, 0, len(p.LineItems))
	for _, item := range p.LineItems {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		titles = append(titles, title)
	}
	order.Products = strings.Join(titles, ", ")

	return order, nil
}

func joinNonEmpty(sep string, parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return strings.Join(out, sep)
}
