package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/notifications"
	"github.com/angelmondragon/storefront/internal/orders"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/angelmondragon/storefront/pkg/types"
)

const (
	outcomeSuccess       = "success"
	outcomeStockConflict = "stock_conflict"
	outcomeHardFailure   = "hard_failure"
	outcomeGuest         = "guest"
	outcomeKeySpent      = "key_spent"
)

// submitLocker is satisfied by *redis.Client.
type submitLocker interface {
	AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
	SubmitLockKey(sessionID string) string
}

// SubmitResult is returned after a successful submission.
type SubmitResult struct {
	OrderID  *uuid.UUID `json:"order_id,omitempty"`
	Redirect string     `json:"redirect"`
	Guest    bool       `json:"guest,omitempty"`
}

// SubmitterDeps groups what a Submitter needs.
type SubmitterDeps struct {
	Carts    cartSessions
	Attempts AttemptStore
	Orders   orders.Gateway
	Mailer   notifications.Mailer
	Locker   submitLocker
	Runner   taskRunner
	Metrics  *metrics.Storefront
	Logger   *logger.Logger
	Config   config.CheckoutConfig
	// AllowGuest lets sessions without a user finish checkout without an order.
	AllowGuest bool
}

// Submitter places the order for a checkout attempt.
type Submitter struct {
	carts      cartSessions
	attempts   AttemptStore
	orders     orders.Gateway
	mailer     notifications.Mailer
	locker     submitLocker
	runner     taskRunner
	metrics    *metrics.Storefront
	logg       *logger.Logger
	cfg        config.CheckoutConfig
	allowGuest bool
	now        func() time.Time
}

func NewSubmitter(deps SubmitterDeps) (*Submitter, error) {
	switch {
	case deps.Carts == nil:
		return nil, errors.New("cart sessions required")
	case deps.Attempts == nil:
		return nil, errors.New("attempt store required")
	case deps.Orders == nil:
		return nil, errors.New("order gateway required")
	case deps.Mailer == nil:
		return nil, errors.New("mailer required")
	case deps.Locker == nil:
		return nil, errors.New("submit locker required")
	case deps.Runner == nil:
		return nil, errors.New("task runner required")
	case deps.Logger == nil:
		return nil, errors.New("logger required")
	}
	cfg := deps.Config
	if cfg.SubmitLockTTL <= 0 {
		cfg.SubmitLockTTL = 30 * time.Second
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = 20 * time.Second
	}
	return &Submitter{
		carts:      deps.Carts,
		attempts:   deps.Attempts,
		orders:     deps.Orders,
		mailer:     deps.Mailer,
		locker:     deps.Locker,
		runner:     deps.Runner,
		metrics:    deps.Metrics,
		logg:       deps.Logger,
		cfg:        cfg,
		allowGuest: deps.AllowGuest,
		now:        time.Now,
	}, nil
}

// Submit validates the payment method and places the order. The session's
// cart stays locked for the whole submission, and a redis lock rejects a
// second submission for the same session from another tab or instance.
func (s *Submitter) Submit(ctx context.Context, sessionID string, userID *uuid.UUID, payment PaymentInput) (*SubmitResult, error) {
	if err := payment.Validate(); err != nil {
		return nil, err
	}
	if userID == nil && !s.allowGuest {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to place your order")
	}

	ctx = s.logg.WithSessionID(ctx, sessionID)
	lockKey := s.locker.SubmitLockKey(sessionID)
	token := uuid.NewString()
	acquired, err := s.locker.AcquireLock(ctx, lockKey, token, s.cfg.SubmitLockTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "order submission could not be started")
	}
	if !acquired {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order submission already in progress")
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.locker.ReleaseLock(releaseCtx, lockKey, token); err != nil {
			s.logg.Error(releaseCtx, "failed to release submit lock", err)
		}
	}()

	var result *SubmitResult
	err = s.carts.With(ctx, sessionID, cart.Discard, func(store *cart.Store) error {
		var err error
		result, err = s.submitLocked(ctx, store, userID, payment)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Submitter) submitLocked(ctx context.Context, store *cart.Store, userID *uuid.UUID, payment PaymentInput) (*SubmitResult, error) {
	sessionID := store.SessionID()
	if store.IsEmpty() {
		return nil, cartEmpty()
	}
	attempt, err := s.attempts.Load(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checkout could not be loaded")
	}
	if attempt == nil || attempt.Shipping == nil {
		return nil, pkgerrors.New(pkgerrors.CodeShippingRequired, "enter shipping details first").WithRedirect(redirectCheckout)
	}

	attempt.recoverStale()
	if err := attempt.transition(enums.CheckoutStateSubmitting, s.now()); err != nil {
		return nil, err
	}
	attempt.PaymentMethod = payment.Method
	if err := s.attempts.Save(ctx, attempt); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checkout could not be saved")
	}

	if userID == nil {
		return s.completeGuest(ctx, store, attempt)
	}

	ctx = s.logg.WithUserID(ctx, userID.String())
	req := buildOrderRequest(*userID, store.Lines(), attempt)

	// The order is placed on a context detached from the request so a client
	// disconnect cannot leave the outcome unrecorded.
	placeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.SubmitTimeout)
	defer cancel()
	started := s.now()
	orderID, placeErr := s.orders.PlaceOrder(placeCtx, req)
	elapsed := time.Since(started)

	// Bookkeeping after the call also ignores request cancellation.
	ctx = context.WithoutCancel(ctx)
	if placedID, ok := orders.PlacedOrderID(placeErr); ok {
		return nil, s.keySpent(ctx, attempt, placedID, elapsed)
	}
	switch {
	case placeErr == nil:
		return s.completeOrder(ctx, store, attempt, req, orderID, elapsed)
	case orders.IsStockConflict(placeErr):
		s.metrics.ObserveSubmission(outcomeStockConflict, elapsed)
		if err := s.attempts.Delete(ctx, sessionID); err != nil {
			s.logg.Error(ctx, "failed to discard checkout attempt", err)
		}
		s.logg.Warn(s.logg.WithField(ctx, "reason", placeErr.Error()), "order rejected for insufficient stock")
		return nil, stockConflict(placeErr)
	default:
		s.metrics.ObserveSubmission(outcomeHardFailure, elapsed)
		attempt.LastError = placeErr.Error()
		if err := attempt.transition(enums.CheckoutStateHardFailure, s.now()); err == nil {
			if err := s.attempts.Save(ctx, attempt); err != nil {
				s.logg.Error(ctx, "failed to record failed checkout attempt", err)
			}
		}
		s.logg.Error(ctx, "order submission failed", placeErr)
		return nil, pkgerrors.Wrap(pkgerrors.CodeOrderSubmission, placeErr, "order could not be placed")
	}
}

func (s *Submitter) completeOrder(ctx context.Context, store *cart.Store, attempt *Attempt, req orders.PlaceOrderRequest, orderID uuid.UUID, elapsed time.Duration) (*SubmitResult, error) {
	ctx = s.logg.WithOrderID(ctx, orderID.String())
	s.metrics.ObserveSubmission(outcomeSuccess, elapsed)

	msg := notifications.OrderConfirmation{
		OrderID:       orderID,
		UserID:        req.UserID,
		Email:         attempt.Shipping.Email,
		Name:          attempt.Shipping.Name,
		TotalAmount:   req.TotalAmount,
		PaymentMethod: req.Details.PaymentMethod,
		Items:         req.Details.Items,
		Shipping:      req.Details.Shipping,
		PlacedAt:      s.now().UTC(),
	}
	s.runner.Go(ctx, "order_confirmation_email", func(ctx context.Context) error {
		return s.mailer.SendOrderConfirmation(ctx, msg)
	})

	s.finish(ctx, store, attempt)
	s.logg.Info(ctx, "order placed")
	return &SubmitResult{
		OrderID:  &orderID,
		Redirect: confirmationRedirect(orderID),
	}, nil
}

// keySpent handles a resubmission whose cart differs from the order an
// earlier submission of the same attempt already placed. The cart is kept and
// the attempt gets a fresh key, so the next submission orders what the cart
// holds then.
func (s *Submitter) keySpent(ctx context.Context, attempt *Attempt, placedID uuid.UUID, elapsed time.Duration) error {
	ctx = s.logg.WithOrderID(ctx, placedID.String())
	s.metrics.ObserveSubmission(outcomeKeySpent, elapsed)

	attempt.SubmissionKey = uuid.NewString()
	attempt.LastError = ""
	if err := attempt.transition(enums.CheckoutStateHardFailure, s.now()); err == nil {
		if err := s.attempts.Save(ctx, attempt); err != nil {
			s.logg.Error(ctx, "failed to renew checkout submission key", err)
		}
	}
	s.logg.Warn(ctx, "cart changed after an earlier submission placed the order")
	return pkgerrors.New(
		pkgerrors.CodeIdempotency,
		"your earlier submission already placed an order and your cart has changed since; review the order before submitting again",
	).WithDetails(map[string]any{
		"order_id": placedID,
		"redirect": confirmationRedirect(placedID),
	})
}

func confirmationRedirect(orderID uuid.UUID) string {
	return fmt.Sprintf("/orders/%s/confirmation", orderID)
}

func (s *Submitter) completeGuest(ctx context.Context, store *cart.Store, attempt *Attempt) (*SubmitResult, error) {
	s.metrics.ObserveSubmission(outcomeGuest, 0)
	s.finish(ctx, store, attempt)
	s.logg.Info(ctx, "guest checkout completed without an order")
	return &SubmitResult{Redirect: redirectProducts, Guest: true}, nil
}

// finish clears the cart and drops the attempt. The order already exists, so
// failures here are logged and not returned.
func (s *Submitter) finish(ctx context.Context, store *cart.Store, attempt *Attempt) {
	if err := attempt.transition(enums.CheckoutStateSuccess, s.now()); err != nil {
		s.logg.Error(ctx, "unexpected checkout state", err)
	}
	if err := store.ClearCart(ctx); err != nil {
		s.logg.Error(ctx, "failed to clear cart after checkout", err)
	}
	if err := s.attempts.Delete(ctx, attempt.SessionID); err != nil {
		s.logg.Error(ctx, "failed to delete checkout attempt", err)
	}
}

func buildOrderRequest(userID uuid.UUID, lines []cart.Line, attempt *Attempt) orders.PlaceOrderRequest {
	items := make([]types.OrderLineItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, types.OrderLineItem{
			ProductID: line.Product.ID,
			Name:      line.Product.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.Product.Price,
		})
	}
	details := types.OrderDetails{
		Items:         items,
		Shipping:      attempt.Shipping.address(),
		PaymentMethod: attempt.PaymentMethod,
	}
	return orders.PlaceOrderRequest{
		UserID:         userID,
		TotalAmount:    details.Total(),
		Details:        details,
		Stock:          orders.StockFromItems(items),
		IdempotencyKey: attempt.SubmissionKey,
	}
}

func stockConflict(cause error) error {
	message := "some items in your cart are no longer available in that quantity"
	if typed := pkgerrors.As(cause); typed != nil && typed.Code() == pkgerrors.CodeStockConflict {
		message = typed.Message()
	}
	return pkgerrors.Wrap(pkgerrors.CodeStockConflict, cause, message).WithRedirect(redirectCart)
}
