package enums

import "fmt"

// PaymentMethod captures how a receipt was settled at the register.
type PaymentMethod string

const (
	PaymentMethodPin      PaymentMethod = "pin"
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodBank     PaymentMethod = "bank"
	PaymentMethodGiftCard PaymentMethod = "giftcard"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodPin,
	PaymentMethodCash,
	PaymentMethodBank,
	PaymentMethodGiftCard,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
