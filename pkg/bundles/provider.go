package bundles

import (
	"context"
	"strings"

	"github.com/kwesidadzie/bundlehub-backend/pkg/enums"
)

// PurchaseInput is the provider-agnostic payload for submitting a bundle.
type PurchaseInput struct {
	NetworkKey string
	Recipient  string
	CapacityGb float64
}

// PurchaseResult carries the upstream reference alongside the raw response so
// the dispatcher can persist both.
type PurchaseResult struct {
	Reference string
	Status    string
	Raw       string
}

// Provider is one upstream bundle fulfillment API.
type Provider interface {
	Key() enums.Provider
	Purchase(ctx context.Context, input PurchaseInput) (*PurchaseResult, error)
	QueryStatus(ctx context.Context, reference string) (string, error)
}

// NormalizeStatus maps an upstream status string onto the internal set.
// Unknown values are treated as still processing rather than failed, so a new
// upstream vocabulary never terminates an order prematurely.
func NormalizeStatus(raw string) enums.ProviderStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "delivered", "completed", "complete", "success", "successful":
		return enums.ProviderStatusDelivered
	case "failed", "error", "rejected":
		return enums.ProviderStatusFailed
	case "canceled", "cancelled", "refunded":
		return enums.ProviderStatusCanceled
	case "submitted", "accepted", "queued":
		return enums.ProviderStatusSubmitted
	case "pending", "":
		return enums.ProviderStatusPending
	default:
		return enums.ProviderStatusProcessing
	}
}
