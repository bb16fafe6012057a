package checkout

import (
	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/angelmondragon/storefront/pkg/validation"
)

// PaymentInput is the payment step submission. Only the block matching Method
// is read; the order is recorded the same way for every method.
type PaymentInput struct {
	Method enums.PaymentMethod `json:"method" validate:"required,oneof=card upi cod"`
	Card   *CardDetails        `json:"card,omitempty" validate:"required_if=Method card"`
	UPI    *UPIDetails         `json:"upi,omitempty" validate:"required_if=Method upi"`
}

type CardDetails struct {
	HolderName string `json:"holder_name" validate:"required"`
	Number     string `json:"number" validate:"required,digits,len=16"`
	Expiry     string `json:"expiry" validate:"required,card_expiry"`
	CVV        string `json:"cvv" validate:"required,digits,min=3,max=4"`
}

type UPIDetails struct {
	VPA string `json:"vpa" validate:"required,upi_vpa"`
}

// Validate checks the fields the chosen method needs.
func (p PaymentInput) Validate() error {
	in := p
	// Blocks for other methods are ignored rather than validated.
	switch p.Method {
	case enums.PaymentMethodCard:
		in.UPI = nil
	case enums.PaymentMethodUPI:
		in.Card = nil
	default:
		in.Card, in.UPI = nil, nil
	}
	return validation.Struct(in)
}
