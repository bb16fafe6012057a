package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/optimistic"
)

// Store is the cart of one browsing session. Every successful mutation is
// written through to the snapshot store before it returns; a mutation that
// cannot be persisted is rolled back. Store is not safe for concurrent use,
// Sessions serializes access per session.
type Store struct {
	sessionID string
	lines     []Line
	snapshots SnapshotStore
	notifier  Notifier
}

func newStore(sessionID string, lines []Line, snapshots SnapshotStore, notifier Notifier) *Store {
	if notifier == nil {
		notifier = Discard
	}
	return &Store{
		sessionID: sessionID,
		lines:     lines,
		snapshots: snapshots,
		notifier:  notifier,
	}
}

// SessionID returns the browsing session owning the cart.
func (s *Store) SessionID() string {
	return s.sessionID
}

// Lines returns a copy of the cart lines in insertion order.
func (s *Store) Lines() []Line {
	return cloneLines(s.lines)
}

// IsEmpty reports whether the cart has no lines.
func (s *Store) IsEmpty() bool {
	return len(s.lines) == 0
}

// TotalItems is the sum of all line quantities.
func (s *Store) TotalItems() int {
	total := 0
	for _, line := range s.lines {
		total += line.Quantity
	}
	return total
}

// TotalPrice is the sum of price × quantity over all lines.
func (s *Store) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, line := range s.lines {
		total = total.Add(line.Total())
	}
	return total
}

// Line returns the line for productID, if present.
func (s *Store) Line(productID uuid.UUID) (Line, bool) {
	if i := s.indexOf(productID); i >= 0 {
		return s.lines[i], true
	}
	return Line{}, false
}

// AddToCart adds quantity of product. A new line may not exceed the product's
// stock; an existing line is increased only if the combined quantity still fits.
func (s *Store) AddToCart(ctx context.Context, product Product, quantity int) error {
	if product.ID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	var message string
	err := s.apply(ctx, func(lines *[]Line) error {
		i := indexOf(*lines, product.ID)
		if i < 0 {
			if quantity > product.Stock {
				return insufficientStock(product, quantity)
			}
			*lines = append(*lines, Line{Product: product, Quantity: quantity})
			message = fmt.Sprintf("%s added to cart", product.Name)
			return nil
		}

		newQuantity := (*lines)[i].Quantity + quantity
		if newQuantity > product.Stock {
			return stockLimitExceeded(product, newQuantity)
		}
		(*lines)[i] = Line{Product: product, Quantity: newQuantity}
		message = fmt.Sprintf("%s quantity updated to %d", product.Name, newQuantity)
		return nil
	})
	if err != nil {
		return err
	}
	s.notifier.Notify(enums.NotificationSuccess, message)
	return nil
}

// UpdateQuantity sets the quantity of an existing line. Zero or less removes
// the line. A quantity above the line's known stock is rejected and the line
// keeps its previous quantity.
func (s *Store) UpdateQuantity(ctx context.Context, productID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return s.RemoveFromCart(ctx, productID)
	}

	return s.apply(ctx, func(lines *[]Line) error {
		i := indexOf(*lines, productID)
		if i < 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
		}
		line := (*lines)[i]
		if quantity > line.Product.Stock {
			return stockLimitExceeded(line.Product, quantity)
		}
		if line.Quantity == quantity {
			return optimistic.ErrNoChange
		}
		(*lines)[i].Quantity = quantity
		return nil
	})
}

// RemoveFromCart deletes the line for productID; an absent product is a no-op.
func (s *Store) RemoveFromCart(ctx context.Context, productID uuid.UUID) error {
	var removed string
	err := s.apply(ctx, func(lines *[]Line) error {
		i := indexOf(*lines, productID)
		if i < 0 {
			return optimistic.ErrNoChange
		}
		removed = (*lines)[i].Product.Name
		*lines = append((*lines)[:i:i], (*lines)[i+1:]...)
		return nil
	})
	if err != nil {
		return err
	}
	if removed != "" {
		s.notifier.Notify(enums.NotificationInfo, fmt.Sprintf("%s removed from cart", removed))
	}
	return nil
}

// ClearCart empties the cart unconditionally and drops its snapshot.
func (s *Store) ClearCart(ctx context.Context) error {
	return s.apply(ctx, func(lines *[]Line) error {
		*lines = nil
		return nil
	})
}

// apply runs mutate against the lines and persists the result, restoring the
// previous lines when either step fails. Rejections and persistence failures
// are reported to the notifier.
func (s *Store) apply(ctx context.Context, mutate func(*[]Line) error) error {
	persisted := false
	err := optimistic.Apply(&s.lines, cloneLines, mutate, func(lines []Line) error {
		persisted = true
		return s.persist(ctx, lines)
	})
	if err == nil {
		return nil
	}
	if persisted {
		err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cart could not be saved")
	}
	if typed := pkgerrors.As(err); typed != nil {
		s.notifier.Notify(enums.NotificationError, typed.Message())
	}
	return err
}

func (s *Store) persist(ctx context.Context, lines []Line) error {
	if len(lines) == 0 {
		return s.snapshots.Delete(ctx, s.sessionID)
	}
	data, err := encodeLines(lines)
	if err != nil {
		return err
	}
	return s.snapshots.Save(ctx, s.sessionID, data)
}

func (s *Store) indexOf(productID uuid.UUID) int {
	return indexOf(s.lines, productID)
}

func indexOf(lines []Line, productID uuid.UUID) int {
	for i, line := range lines {
		if line.Product.ID == productID {
			return i
		}
	}
	return -1
}

func insufficientStock(product Product, requested int) error {
	return pkgerrors.New(
		pkgerrors.CodeInsufficientStock,
		fmt.Sprintf("only %d of %s in stock", product.Stock, product.Name),
	).WithDetails(stockDetails(product, requested))
}

func stockLimitExceeded(product Product, requested int) error {
	return pkgerrors.New(
		pkgerrors.CodeStockLimitExceeded,
		fmt.Sprintf("cannot have %d of %s in your cart, only %d in stock", requested, product.Name, product.Stock),
	).WithDetails(stockDetails(product, requested))
}

func stockDetails(product Product, requested int) map[string]any {
	return map[string]any{
		"product_id": product.ID,
		"requested":  requested,
		"available":  product.Stock,
	}
}
