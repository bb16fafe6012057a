package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront/pkg/db/models"
	"github.com/angelmondragon/storefront/pkg/pagination"
)

// Gateway places orders. Implementations must be idempotent on
// PlaceOrderRequest.IdempotencyKey and report insufficient stock with an error
// that IsStockConflict recognises.
type Gateway interface {
	PlaceOrder(ctx context.Context, req PlaceOrderRequest) (uuid.UUID, error)
}

// Repository defines persistence operations for orders and their stock effects.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) (bool, error)
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByIDForUser(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Order, error)
}
