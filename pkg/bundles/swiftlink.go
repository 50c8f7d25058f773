package bundles

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/kwesidadzie/bundlehub-backend/pkg/enums"
	pkgerrors "github.com/kwesidadzie/bundlehub-backend/pkg/errors"
)

// SwiftlinkClient talks to the Swiftlink bundle API.
type SwiftlinkClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewSwiftlinkClient builds a Swiftlink client with a bounded timeout.
func NewSwiftlinkClient(baseURL, apiKey string, httpClient *http.Client) (*SwiftlinkClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("swiftlink base url required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &SwiftlinkClient{baseURL: baseURL, apiKey: apiKey, http: httpClient}, nil
}

// Key identifies the upstream for routing decisions.
func (c *SwiftlinkClient) Key() enums.Provider {
	return enums.ProviderSwiftlink
}

type swiftlinkPurchaseResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		OrderReference string `json:"order_reference"`
		OrderStatus    string `json:"order_status"`
	} `json:"data"`
}

// Purchase submits a bundle order upstream.
func (c *SwiftlinkClient) Purchase(ctx context.Context, input PurchaseInput) (*PurchaseResult, error) {
	body := map[string]any{
		"network":     input.NetworkKey,
		"recipient":   input.Recipient,
		"capacity_gb": input.CapacityGb,
	}
	raw, err := c.post(ctx, "/v1/orders", body)
	if err != nil {
		return nil, err
	}

	var parsed swiftlinkPurchaseResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode swiftlink response")
	}
	if parsed.Status != "success" {
		msg := parsed.Message
		if msg == "" {
			msg = "swiftlink rejected the order"
		}
		return nil, pkgerrors.New(pkgerrors.CodeDependency, msg)
	}
	return &PurchaseResult{
		Reference: parsed.Data.OrderReference,
		Status:    parsed.Data.OrderStatus,
		Raw:       string(raw),
	}, nil
}

type swiftlinkStatusResponse struct {
	Status string `json:"status"`
	Data   struct {
		OrderStatus string `json:"order_status"`
	} `json:"data"`
}

// QueryStatus fetches the delivery state for a previously submitted order.
func (c *SwiftlinkClient) QueryStatus(ctx context.Context, reference string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/orders/"+reference, nil)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build swiftlink status request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query swiftlink status")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read swiftlink status response")
	}
	if resp.StatusCode >= 400 {
		return "", pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("swiftlink status returned %d", resp.StatusCode))
	}

	var parsed swiftlinkStatusResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode swiftlink status response")
	}
	return parsed.Data.OrderStatus, nil
}

func (c *SwiftlinkClient) post(ctx context.Context, path string, body any) ([]byte, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode swiftlink request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build swiftlink request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "call swiftlink")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read swiftlink response")
	}
	if resp.StatusCode >= 400 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("swiftlink returned %d: %s", resp.StatusCode, string(raw)))
	}
	return raw, nil
}
