package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/checkout"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// CheckoutFlow is the shipping step of checkout.
type CheckoutFlow interface {
	Start(ctx context.Context, sessionID string, userID *uuid.UUID) (*checkout.StartResult, error)
	SubmitShipping(ctx context.Context, sessionID string, userID *uuid.UUID, details checkout.ShippingDetails) (*checkout.Attempt, error)
}

// OrderSubmitter is the payment step of checkout.
type OrderSubmitter interface {
	Submit(ctx context.Context, sessionID string, userID *uuid.UUID, payment checkout.PaymentInput) (*checkout.SubmitResult, error)
}

type shippingResponse struct {
	State    enums.CheckoutState       `json:"state"`
	Shipping *checkout.ShippingDetails `json:"shipping"`
}

// CheckoutStart opens checkout for the session's cart.
func CheckoutStart(flow CheckoutFlow, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if flow == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable"))
			return
		}
		sessionID, ok := requireSession(w, r, logg)
		if !ok {
			return
		}

		result, err := flow.Start(r.Context(), sessionID, middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// CheckoutShipping records the shipping details and advances to payment.
func CheckoutShipping(flow CheckoutFlow, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if flow == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable"))
			return
		}
		sessionID, ok := requireSession(w, r, logg)
		if !ok {
			return
		}

		var payload checkout.ShippingDetails
		if err := validators.DecodeJSON(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		attempt, err := flow.SubmitShipping(r.Context(), sessionID, middleware.UserIDFromContext(r.Context()), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shippingResponse{State: attempt.State, Shipping: attempt.Shipping})
	}
}

// CheckoutPayment submits the order.
func CheckoutPayment(submitter OrderSubmitter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if submitter == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable"))
			return
		}
		sessionID, ok := requireSession(w, r, logg)
		if !ok {
			return
		}

		var payload checkout.PaymentInput
		if err := validators.DecodeJSON(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := submitter.Submit(r.Context(), sessionID, middleware.UserIDFromContext(r.Context()), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusCreated
		if result.Guest {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}
