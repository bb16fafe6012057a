package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/angelmondragon/storefront/pkg/types"
)

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type sessionStore interface {
	With(ctx context.Context, sessionID string, notifier Notifier, fn func(*Store) error) error
}

// Service exposes the cart operations behind the HTTP API.
type Service interface {
	Get(ctx context.Context, sessionID string) (*View, error)
	Add(ctx context.Context, sessionID string, productID uuid.UUID, quantity int) (*View, error)
	UpdateQuantity(ctx context.Context, sessionID string, productID uuid.UUID, quantity int) (*View, error)
	Remove(ctx context.Context, sessionID string, productID uuid.UUID) (*View, error)
	Clear(ctx context.Context, sessionID string) (*View, error)
}

// View is the cart as returned to clients, with derived totals.
type View struct {
	Lines         []LineView           `json:"lines"`
	TotalItems    int                  `json:"total_items"`
	TotalPrice    decimal.Decimal      `json:"total_price"`
	Notifications []types.Notification `json:"-"`
}

// LineView is a cart line with its computed total.
type LineView struct {
	Product   Product         `json:"product"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// NewView renders the current state of store.
func NewView(store *Store) *View {
	lines := store.Lines()
	view := &View{
		Lines:      make([]LineView, 0, len(lines)),
		TotalItems: store.TotalItems(),
		TotalPrice: store.TotalPrice(),
	}
	for _, line := range lines {
		view.Lines = append(view.Lines, LineView{
			Product:   line.Product,
			Quantity:  line.Quantity,
			LineTotal: line.Total(),
		})
	}
	return view
}

type service struct {
	sessions sessionStore
	products productLoader
	metrics  *metrics.Storefront
}

// NewService builds a cart service backed by the provided stack.
func NewService(sessions sessionStore, products productLoader, m *metrics.Storefront) (Service, error) {
	if sessions == nil {
		return nil, fmt.Errorf("cart sessions required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{sessions: sessions, products: products, metrics: m}, nil
}

func (s *service) Get(ctx context.Context, sessionID string) (*View, error) {
	var view *View
	err := s.sessions.With(ctx, sessionID, Discard, func(store *Store) error {
		view = NewView(store)
		return nil
	})
	return view, err
}

func (s *service) Add(ctx context.Context, sessionID string, productID uuid.UUID, quantity int) (*View, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, sessionID, "add", func(ctx context.Context, store *Store) error {
		return store.AddToCart(ctx, product, quantity)
	})
}

func (s *service) UpdateQuantity(ctx context.Context, sessionID string, productID uuid.UUID, quantity int) (*View, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	return s.mutate(ctx, sessionID, "update_quantity", func(ctx context.Context, store *Store) error {
		return store.UpdateQuantity(ctx, productID, quantity)
	})
}

func (s *service) Remove(ctx context.Context, sessionID string, productID uuid.UUID) (*View, error) {
	return s.mutate(ctx, sessionID, "remove", func(ctx context.Context, store *Store) error {
		return store.RemoveFromCart(ctx, productID)
	})
}

func (s *service) Clear(ctx context.Context, sessionID string) (*View, error) {
	return s.mutate(ctx, sessionID, "clear", func(ctx context.Context, store *Store) error {
		return store.ClearCart(ctx)
	})
}

func (s *service) mutate(ctx context.Context, sessionID, op string, fn func(context.Context, *Store) error) (*View, error) {
	collector := NewCollector()
	var view *View
	err := s.sessions.With(ctx, sessionID, collector, func(store *Store) error {
		if err := fn(ctx, store); err != nil {
			return err
		}
		view = NewView(store)
		return nil
	})
	if err != nil {
		s.metrics.IncCartMutation(op, mutationResult(err))
		return nil, err
	}
	s.metrics.IncCartMutation(op, "applied")
	view.Notifications = collector.Drain()
	return view, nil
}

func (s *service) loadProduct(ctx context.Context, productID uuid.UUID) (Product, error) {
	row, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Product{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return Product{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !row.Published {
		return Product{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return ProductFromModel(row), nil
}

func mutationResult(err error) string {
	switch pkgerrors.As(err).Code() {
	case pkgerrors.CodeInsufficientStock, pkgerrors.CodeStockLimitExceeded, pkgerrors.CodeNotFound, pkgerrors.CodeValidation:
		return "rejected"
	default:
		return "failed"
	}
}
