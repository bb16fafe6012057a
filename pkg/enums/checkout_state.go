package enums

import "fmt"

// CheckoutState is the phase a checkout attempt is in.
type CheckoutState string

const (
	CheckoutStateAwaitingShipping CheckoutState = "awaiting_shipping_details"
	CheckoutStateAwaitingPayment  CheckoutState = "awaiting_payment_method"
	CheckoutStateSubmitting       CheckoutState = "submitting"
	CheckoutStateSuccess          CheckoutState = "success"
	CheckoutStateStockConflict    CheckoutState = "stock_conflict"
	CheckoutStateHardFailure      CheckoutState = "hard_failure"
)

var checkoutTransitions = map[CheckoutState][]CheckoutState{
	CheckoutStateAwaitingShipping: {CheckoutStateAwaitingPayment},
	CheckoutStateAwaitingPayment:  {CheckoutStateAwaitingPayment, CheckoutStateSubmitting},
	CheckoutStateSubmitting:       {CheckoutStateSuccess, CheckoutStateStockConflict, CheckoutStateHardFailure},
	CheckoutStateHardFailure:      {CheckoutStateAwaitingPayment, CheckoutStateSubmitting},
	CheckoutStateStockConflict:    {CheckoutStateAwaitingPayment},
}

// String implements fmt.Stringer.
func (s CheckoutState) String() string {
	return string(s)
}

// IsValid reports whether the value is a known CheckoutState.
func (s CheckoutState) IsValid() bool {
	if s == CheckoutStateSuccess {
		return true
	}
	_, ok := checkoutTransitions[s]
	return ok
}

// IsTerminal reports whether no further transition leaves the state.
func (s CheckoutState) IsTerminal() bool {
	return s == CheckoutStateSuccess
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s CheckoutState) CanTransitionTo(next CheckoutState) bool {
	for _, candidate := range checkoutTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseCheckoutState converts raw input into a CheckoutState.
func ParseCheckoutState(value string) (CheckoutState, error) {
	state := CheckoutState(value)
	if !state.IsValid() {
		return "", fmt.Errorf("invalid checkout state %q", value)
	}
	return state, nil
}
