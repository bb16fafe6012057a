package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront/pkg/db"
	"github.com/angelmondragon/storefront/pkg/db/models"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Backend is the in-process order backend. One transaction covers the
// idempotency lookup, every stock decrement, the order row and its first
// status entry, so a stock conflict leaves nothing behind.
type Backend struct {
	tx   txRunner
	repo Repository
	logg *logger.Logger
}

var _ Gateway = (*Backend)(nil)

// NewBackend builds the order backend.
func NewBackend(tx txRunner, repo Repository, logg *logger.Logger) (*Backend, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Backend{tx: tx, repo: repo, logg: logg}, nil
}

// PlaceOrder records the order and takes its stock. A request whose
// idempotency key was already used returns the existing order id.
func (b *Backend) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (uuid.UUID, error) {
	if err := validateRequest(req); err != nil {
		return uuid.Nil, err
	}

	fingerprint := req.Fingerprint()
	var orderID uuid.UUID
	err := b.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := b.repo.WithTx(tx)

		existing, err := repo.FindByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup order by idempotency key")
		}
		if existing != nil {
			if err := matchReplay(existing, fingerprint); err != nil {
				return err
			}
			orderID = existing.ID
			return nil
		}

		names := make(map[uuid.UUID]string, len(req.Details.Items))
		for _, item := range req.Details.Items {
			names[item.ProductID] = item.Name
		}
		for _, line := range req.Stock {
			ok, err := repo.DecrementStock(ctx, line.ProductID, line.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
			}
			if !ok {
				return stockConflict(line, names[line.ProductID])
			}
		}

		order := &models.Order{
			UserID:         req.UserID,
			IdempotencyKey: req.IdempotencyKey,
			RequestHash:    fingerprint,
			Status:         enums.OrderStatusPending,
			PaymentMethod:  req.Details.PaymentMethod,
			TotalAmount:    req.TotalAmount,
			Details:        req.Details,
			StatusHistory: []models.OrderStatusEvent{
				{Status: enums.OrderStatusPending},
			},
		}
		created, err := repo.CreateOrder(ctx, order)
		if err != nil {
			return err
		}
		orderID = created.ID
		return nil
	})
	if err == nil {
		return orderID, nil
	}

	// A concurrent request with the same key won the insert; the key is the
	// only unique column an insert can collide on.
	if db.IsUniqueViolation(err, "") {
		existing, lookupErr := b.repo.FindByIdempotencyKey(ctx, req.IdempotencyKey)
		if lookupErr == nil && existing != nil {
			if err := matchReplay(existing, fingerprint); err != nil {
				return uuid.Nil, err
			}
			b.logg.Info(b.logg.WithOrderID(ctx, existing.ID.String()), "order replayed after concurrent insert")
			return existing.ID, nil
		}
	}
	if pkgerrors.As(err) == nil {
		err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	return uuid.Nil, err
}

// matchReplay allows replaying existing only for the same order contents.
// Rows written before request hashes were recorded carry an empty hash and
// replay as before.
func matchReplay(existing *models.Order, fingerprint string) error {
	if existing.RequestHash == "" || existing.RequestHash == fingerprint {
		return nil
	}
	return pkgerrors.New(
		pkgerrors.CodeIdempotency,
		"this checkout already placed an order with different contents",
	).WithDetails(map[string]any{"order_id": existing.ID})
}

func validateRequest(req PlaceOrderRequest) error {
	switch {
	case req.UserID == uuid.Nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	case strings.TrimSpace(req.IdempotencyKey) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "idempotency key is required")
	case len(req.Stock) == 0 || len(req.Details.Items) == 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "order has no items")
	case !req.Details.PaymentMethod.IsValid():
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	case req.TotalAmount.IsNegative():
		return pkgerrors.New(pkgerrors.CodeValidation, "total amount must not be negative")
	case !req.TotalAmount.Equal(req.Details.Total()):
		return pkgerrors.New(pkgerrors.CodeValidation, "total amount does not match items")
	}
	for _, line := range req.Stock {
		if line.ProductID == uuid.Nil || line.Quantity < 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, "stock lines need a product and a positive quantity")
		}
	}
	return nil
}

func stockConflict(line StockLine, name string) error {
	if name == "" {
		name = line.ProductID.String()
	}
	return pkgerrors.New(
		pkgerrors.CodeStockConflict,
		fmt.Sprintf("Insufficient stock for %s", name),
	).WithDetails(map[string]any{
		"product_id": line.ProductID,
		"requested":  line.Quantity,
	})
}
