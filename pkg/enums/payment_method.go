package enums

import (
	"fmt"
	"strings"
)

// PaymentMethod is the settlement option picked at the payment step. Every
// method leads to the same order record; none is charged by this service.
type PaymentMethod string

const (
	PaymentMethodCard PaymentMethod = "card"
	PaymentMethodUPI  PaymentMethod = "upi"
	PaymentMethodCOD  PaymentMethod = "cod"
)

func (p PaymentMethod) String() string {
	return string(p)
}

func (p PaymentMethod) IsValid() bool {
	switch p {
	case PaymentMethodCard, PaymentMethodUPI, PaymentMethodCOD:
		return true
	}
	return false
}

// UnmarshalText folds case and surrounding space so "CARD" decodes as card.
// Unknown values are kept as sent and left to validation.
func (p *PaymentMethod) UnmarshalText(text []byte) error {
	*p = PaymentMethod(strings.ToLower(strings.TrimSpace(string(text))))
	return nil
}

// ParsePaymentMethod accepts the method name in any case.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	var pm PaymentMethod
	_ = pm.UnmarshalText([]byte(value))
	if !pm.IsValid() {
		return "", fmt.Errorf("unknown payment method %q", value)
	}
	return pm, nil
}
