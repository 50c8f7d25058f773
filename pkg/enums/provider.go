package enums

import "fmt"

// Provider identifies an upstream bundle fulfillment provider.
type Provider string

const (
	ProviderSwiftlink Provider = "swiftlink"
	ProviderDatanet   Provider = "datanet"
)

var validProviders = []Provider{ProviderSwiftlink, ProviderDatanet}

// String implements fmt.Stringer.
func (p Provider) String() string {
	return string(p)
}

// IsValid reports whether the value is a known Provider.
func (p Provider) IsValid() bool {
	for _, candidate := range validProviders {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProvider converts raw input into a Provider.
func ParseProvider(value string) (Provider, error) {
	for _, candidate := range validProviders {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid provider %q", value)
}

// ProviderStatus is the normalized delivery state reported by an upstream.
type ProviderStatus string

const (
	ProviderStatusPending    ProviderStatus = "pending"
	ProviderStatusSubmitted  ProviderStatus = "submitted"
	ProviderStatusProcessing ProviderStatus = "processing"
	ProviderStatusDelivered  ProviderStatus = "delivered"
	ProviderStatusFailed     ProviderStatus = "failed"
	ProviderStatusCanceled   ProviderStatus = "canceled"
)

func (s ProviderStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further status refresh is needed.
func (s ProviderStatus) IsTerminal() bool {
	switch s {
	case ProviderStatusDelivered, ProviderStatusFailed, ProviderStatusCanceled:
		return true
	}
	return false
}

// IsDelivered reports whether the upstream confirmed delivery.
func (s ProviderStatus) IsDelivered() bool {
	return s == ProviderStatusDelivered
}
