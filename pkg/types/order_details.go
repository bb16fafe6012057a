package types

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/pkg/enums"
)

// OrderDetails is the immutable snapshot stored with an order (jsonb).
type OrderDetails struct {
	Items         []OrderLineItem     `json:"items"`
	Shipping      ShippingAddress     `json:"shipping"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
}

// OrderLineItem freezes the product name and price at the moment of purchase.
type OrderLineItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// LineTotal returns UnitPrice × Quantity.
func (i OrderLineItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ShippingAddress is where and to whom an order ships.
type ShippingAddress struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}

// Total sums every line total.
func (d OrderDetails) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range d.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}
