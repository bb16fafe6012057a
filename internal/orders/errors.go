package orders

import (
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

const insufficientStockMarker = "insufficient stock"

// IsStockConflict reports whether err means some line could not be taken from
// stock. Typed errors are matched by code; anything else by its message, which
// is how remote backends signal the condition.
func IsStockConflict(err error) bool {
	if err == nil {
		return false
	}
	if pkgerrors.IsCode(err, pkgerrors.CodeStockConflict) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), insufficientStockMarker)
}

// PlacedOrderID returns the order already recorded under the request's
// idempotency key when err reports that the key was reused for different
// order contents.
func PlacedOrderID(err error) (uuid.UUID, bool) {
	if !pkgerrors.IsCode(err, pkgerrors.CodeIdempotency) {
		return uuid.Nil, false
	}
	for typed := pkgerrors.As(err); typed != nil; typed = pkgerrors.As(typed.Unwrap()) {
		details, ok := typed.Details().(map[string]any)
		if !ok {
			continue
		}
		if id, ok := details["order_id"].(uuid.UUID); ok && id != uuid.Nil {
			return id, true
		}
	}
	return uuid.Nil, false
}
