package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/users"
	"github.com/angelmondragon/storefront/pkg/background"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/validation"
)

const (
	redirectProducts = "/products"
	redirectCheckout = "/checkout"
	redirectCart     = "/cart"
)

type cartSessions interface {
	With(ctx context.Context, sessionID string, notifier cart.Notifier, fn func(*cart.Store) error) error
}

type profileStore interface {
	FindProfile(ctx context.Context, userID uuid.UUID) (*users.ShippingProfile, error)
	UpsertShippingProfile(ctx context.Context, userID uuid.UUID, profile users.ShippingProfile) error
}

type taskRunner interface {
	Go(ctx context.Context, name string, task background.Task)
}

// StartResult is what the checkout page renders.
type StartResult struct {
	Cart     *cart.View          `json:"cart"`
	State    enums.CheckoutState `json:"state"`
	Shipping *ShippingDetails    `json:"shipping,omitempty"`
}

// Flow drives the shipping step of checkout.
type Flow struct {
	carts    cartSessions
	profiles profileStore
	attempts AttemptStore
	runner   taskRunner
	logg     *logger.Logger
	now      func() time.Time
}

func NewFlow(carts cartSessions, profiles profileStore, attempts AttemptStore, runner taskRunner, logg *logger.Logger) (*Flow, error) {
	if carts == nil {
		return nil, errors.New("cart sessions required")
	}
	if profiles == nil {
		return nil, errors.New("profile store required")
	}
	if attempts == nil {
		return nil, errors.New("attempt store required")
	}
	if runner == nil {
		return nil, errors.New("task runner required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &Flow{
		carts:    carts,
		profiles: profiles,
		attempts: attempts,
		runner:   runner,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// Start opens checkout for the session. Shipping is prefilled from the
// in-progress attempt, or else from the signed-in user's saved profile.
func (f *Flow) Start(ctx context.Context, sessionID string, userID *uuid.UUID) (*StartResult, error) {
	var (
		view    *cart.View
		attempt *Attempt
	)
	err := f.carts.With(ctx, sessionID, cart.Discard, func(store *cart.Store) error {
		if store.IsEmpty() {
			return cartEmpty()
		}
		view = cart.NewView(store)

		var err error
		attempt, err = f.attempts.Load(ctx, sessionID)
		if err != nil {
			f.logg.Error(ctx, "failed to load checkout attempt", err)
		}
		attempt.recoverStale()
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &StartResult{Cart: view, State: enums.CheckoutStateAwaitingShipping}
	if attempt != nil {
		result.State = attempt.State
		result.Shipping = attempt.Shipping
		return result, nil
	}

	if userID != nil {
		profile, err := f.profiles.FindProfile(ctx, *userID)
		if err != nil {
			f.logg.Error(f.logg.WithUserID(ctx, userID.String()), "failed to load shipping profile", err)
		}
		result.Shipping = shippingFromProfile(profile)
	}
	return result, nil
}

// SubmitShipping validates the shipping form and records it on the attempt.
// Invalid input leaves the attempt untouched so the form can be resubmitted.
func (f *Flow) SubmitShipping(ctx context.Context, sessionID string, userID *uuid.UUID, details ShippingDetails) (*Attempt, error) {
	details = details.Normalize()
	if err := validation.Struct(details); err != nil {
		return nil, err
	}

	var attempt *Attempt
	err := f.carts.With(ctx, sessionID, cart.Discard, func(store *cart.Store) error {
		if store.IsEmpty() {
			return cartEmpty()
		}

		current, err := f.attempts.Load(ctx, sessionID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checkout could not be loaded")
		}
		current.recoverStale()
		now := f.now()
		if current == nil || current.State == enums.CheckoutStateStockConflict {
			current = newAttempt(sessionID, now)
		}
		if err := current.transition(enums.CheckoutStateAwaitingPayment, now); err != nil {
			return err
		}
		current.Shipping = &details
		current.LastError = ""
		if err := f.attempts.Save(ctx, current); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checkout could not be saved")
		}
		attempt = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	if details.SaveToProfile && userID != nil {
		f.saveProfile(ctx, *userID, details.profile())
	}
	return attempt, nil
}

func (f *Flow) saveProfile(ctx context.Context, userID uuid.UUID, profile users.ShippingProfile) {
	ctx = f.logg.WithUserID(ctx, userID.String())
	f.runner.Go(ctx, "save_shipping_profile", func(ctx context.Context) error {
		return f.profiles.UpsertShippingProfile(ctx, userID, profile)
	})
}

func cartEmpty() error {
	return pkgerrors.New(pkgerrors.CodeCartEmpty, "your cart is empty").WithRedirect(redirectProducts)
}
