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

// DatanetClient talks to the Datanet bundle API. Datanet uses an api-key
// header and megabyte capacities where Swiftlink takes gigabytes.
type DatanetClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewDatanetClient builds a Datanet client with a bounded timeout.
func NewDatanetClient(baseURL, apiKey string, httpClient *http.Client) (*DatanetClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("datanet base url required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &DatanetClient{baseURL: baseURL, apiKey: apiKey, http: httpClient}, nil
}

// Key identifies the upstream for routing decisions.
func (c *DatanetClient) Key() enums.Provider {
	return enums.ProviderDatanet
}

type datanetPurchaseResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Order   struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"order"`
}

// Purchase submits a bundle order upstream.
func (c *DatanetClient) Purchase(ctx context.Context, input PurchaseInput) (*PurchaseResult, error) {
	body := map[string]any{
		"network_key": input.NetworkKey,
		"msisdn":      input.Recipient,
		"volume_mb":   int(input.CapacityGb * 1024),
	}
	raw, err := c.call(ctx, http.MethodPost, "/api/purchase", body)
	if err != nil {
		return nil, err
	}

	var parsed datanetPurchaseResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode datanet response")
	}
	if !parsed.Success {
		msg := parsed.Error
		if msg == "" {
			msg = "datanet rejected the order"
		}
		return nil, pkgerrors.New(pkgerrors.CodeDependency, msg)
	}
	return &PurchaseResult{
		Reference: parsed.Order.ID,
		Status:    parsed.Order.Status,
		Raw:       string(raw),
	}, nil
}

type datanetStatusResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Status  string `json:"status"`
}

// QueryStatus fetches the delivery state for a previously submitted order.
func (c *DatanetClient) QueryStatus(ctx context.Context, reference string) (string, error) {
	raw, err := c.call(ctx, http.MethodGet, "/api/orders/"+reference+"/status", nil)
	if err != nil {
		return "", err
	}

	var parsed datanetStatusResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode datanet status response")
	}
	if !parsed.Success {
		msg := parsed.Error
		if msg == "" {
			msg = "datanet status lookup failed"
		}
		return "", pkgerrors.New(pkgerrors.CodeDependency, msg)
	}
	return parsed.Status, nil
}

func (c *DatanetClient) call(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode datanet request")
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build datanet request")
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "call datanet")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read datanet response")
	}
	if resp.StatusCode >= 400 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("datanet returned %d: %s", resp.StatusCode, string(raw)))
	}
	return raw, nil
}
