package orders

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/pkg/db/models"
	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/angelmondragon/storefront/pkg/types"
)

// PlaceOrderRequest is everything the backend needs to record an order.
type PlaceOrderRequest struct {
	UserID         uuid.UUID
	TotalAmount    decimal.Decimal
	Details        types.OrderDetails
	Stock          []StockLine
	IdempotencyKey string
}

// Fingerprint identifies what the request orders: user, stock lines in
// product order, total, payment method and shipping. Two requests with the
// same fingerprint place the same order.
func (r PlaceOrderRequest) Fingerprint() string {
	lines := append([]StockLine(nil), r.Stock...)
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].ProductID != lines[j].ProductID {
			return lines[i].ProductID.String() < lines[j].ProductID.String()
		}
		return lines[i].Quantity < lines[j].Quantity
	})

	ship := r.Details.Shipping
	parts := []string{
		r.UserID.String(),
		r.TotalAmount.StringFixed(2),
		r.Details.PaymentMethod.String(),
		ship.Name, ship.Email, ship.Phone, ship.Address, ship.City, ship.PostalCode,
	}
	for _, line := range lines {
		parts = append(parts, line.ProductID.String()+"x"+strconv.Itoa(line.Quantity))
	}

	h := sha256.New()
	for _, part := range parts {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// StockLine is one product quantity to take from stock.
type StockLine struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// StockFromItems flattens line items into stock lines.
func StockFromItems(items []types.OrderLineItem) []StockLine {
	out := make([]StockLine, 0, len(items))
	for _, item := range items {
		out = append(out, StockLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return out
}

// OrderSummary is one row of the order history list.
type OrderSummary struct {
	ID            uuid.UUID           `json:"id"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	TotalItems    int                 `json:"total_items"`
	CreatedAt     time.Time           `json:"created_at"`
}

// OrderDTO is the order confirmation payload.
type OrderDTO struct {
	ID            uuid.UUID             `json:"id"`
	Status        enums.OrderStatus     `json:"status"`
	PaymentMethod enums.PaymentMethod   `json:"payment_method"`
	TotalAmount   decimal.Decimal       `json:"total_amount"`
	Items         []types.OrderLineItem `json:"items"`
	Shipping      types.ShippingAddress `json:"shipping"`
	StatusHistory []StatusEventDTO      `json:"status_history"`
	CreatedAt     time.Time             `json:"created_at"`
}

type StatusEventDTO struct {
	Status    enums.OrderStatus `json:"status"`
	Note      *string           `json:"note,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

func NewOrderSummary(order *models.Order) OrderSummary {
	items := 0
	for _, item := range order.Details.Items {
		items += item.Quantity
	}
	return OrderSummary{
		ID:            order.ID,
		Status:        order.Status,
		PaymentMethod: order.PaymentMethod,
		TotalAmount:   order.TotalAmount,
		TotalItems:    items,
		CreatedAt:     order.CreatedAt,
	}
}

func NewOrderDTO(order *models.Order) *OrderDTO {
	dto := &OrderDTO{
		ID:            order.ID,
		Status:        order.Status,
		PaymentMethod: order.PaymentMethod,
		TotalAmount:   order.TotalAmount,
		Items:         append([]types.OrderLineItem{}, order.Details.Items...),
		Shipping:      order.Details.Shipping,
		StatusHistory: make([]StatusEventDTO, 0, len(order.StatusHistory)),
		CreatedAt:     order.CreatedAt,
	}
	for _, event := range order.StatusHistory {
		dto.StatusHistory = append(dto.StatusHistory, StatusEventDTO{
			Status:    event.Status,
			Note:      event.Note,
			CreatedAt: event.CreatedAt,
		})
	}
	return dto
}
