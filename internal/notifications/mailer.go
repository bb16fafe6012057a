package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/angelmondragon/storefront/pkg/types"
)

// EventOrderConfirmation is the event_type attribute of confirmation messages.
const EventOrderConfirmation = "order_confirmation"

// Mailer triggers shopper emails. Rendering and delivery happen downstream.
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, msg OrderConfirmation) error
}

// OrderConfirmation carries what the confirmation email needs.
type OrderConfirmation struct {
	OrderID       uuid.UUID             `json:"order_id"`
	UserID        uuid.UUID             `json:"user_id"`
	Email         string                `json:"email"`
	Name          string                `json:"name"`
	TotalAmount   decimal.Decimal       `json:"total_amount"`
	PaymentMethod enums.PaymentMethod   `json:"payment_method"`
	Items         []types.OrderLineItem `json:"items"`
	Shipping      types.ShippingAddress `json:"shipping"`
	PlacedAt      time.Time             `json:"placed_at"`
}
