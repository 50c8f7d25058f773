package enums

import "fmt"

// PaymentType identifies the purpose a gateway transaction was raised for.
type PaymentType string

const (
	PaymentTypeOrder           PaymentType = "order"
	PaymentTypeSubscription    PaymentType = "subscription"
	PaymentTypeAfaRegistration PaymentType = "afa_registration"
	PaymentTypeWalletTopup     PaymentType = "wallet_topup"
)

var validPaymentTypes = []PaymentType{
	PaymentTypeOrder,
	PaymentTypeSubscription,
	PaymentTypeAfaRegistration,
	PaymentTypeWalletTopup,
}

func (p PaymentType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentType.
func (p PaymentType) IsValid() bool {
	for _, candidate := range validPaymentTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentType converts raw input into a PaymentType.
func ParsePaymentType(value string) (PaymentType, error) {
	for _, candidate := range validPaymentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment type %q", value)
}

// PaymentStatus tracks a gateway transaction. A payment is verified at most once.
type PaymentStatus string

const (
	PaymentStatusCreated  PaymentStatus = "created"
	PaymentStatusVerified PaymentStatus = "verified"
)

func (p PaymentStatus) String() string {
	return string(p)
}

func (p PaymentStatus) IsValid() bool {
	return p == PaymentStatusCreated || p == PaymentStatusVerified
}
