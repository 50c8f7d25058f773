package paystack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/kwesidadzie/bundlehub-backend/pkg/config"
	pkgerrors "github.com/kwesidadzie/bundlehub-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// SignatureHeader carries the HMAC-SHA512 hex digest of the raw webhook body.
const SignatureHeader = "x-paystack-signature"

// Client talks to the Paystack transaction API.
type Client struct {
	secretKey   string
	baseURL     string
	callbackURL string
	http        *http.Client
}

// New builds a gateway client with a bounded request timeout.
func New(cfg config.PaystackConfig) (*Client, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("paystack secret key required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("paystack base url required")
	}
	return &Client{
		secretKey:   cfg.SecretKey,
		baseURL:     cfg.BaseURL,
		callbackURL: cfg.CallbackURL,
		http:        &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// InitializeInput describes a transaction to open on the gateway.
type InitializeInput struct {
	Email     string
	AmountGhs decimal.Decimal
	Reference string
	Metadata  map[string]any
}

// InitializeResult is the gateway's checkout handle.
type InitializeResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// VerifyResult is the verified transaction state.
type VerifyResult struct {
	Status    string          `json:"status"`
	Reference string          `json:"reference"`
	Amount    int64           `json:"amount"`
	Metadata  json.RawMessage `json:"metadata"`
}

// Success reports whether the gateway confirmed the charge.
func (v VerifyResult) Success() bool {
	return v.Status == "success"
}

type apiEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Initialize opens a transaction and returns the hosted checkout URL.
func (c *Client) Initialize(ctx context.Context, input InitializeInput) (*InitializeResult, error) {
	if input.Email == "" || input.Reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and reference are required")
	}
	body := map[string]any{
		"email": input.Email,
		// Paystack expects minor units (pesewas).
		"amount":    input.AmountGhs.Mul(decimal.NewFromInt(100)).IntPart(),
		"reference": input.Reference,
		"currency":  "GHS",
	}
	if c.callbackURL != "" {
		body["callback_url"] = c.callbackURL
	}
	if len(input.Metadata) > 0 {
		body["metadata"] = input.Metadata
	}

	var result InitializeResult
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Verify fetches the settled state of a transaction by reference.
func (c *Client) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}
	var result VerifyResult
	if err := c.do(ctx, http.MethodGet, "/transaction/verify/"+reference, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ValidSignature checks the webhook HMAC against the shared secret.
func (c *Client) ValidSignature(payload []byte, header string) bool {
	return ValidSignature(c.secretKey, payload, header)
}

// ValidSignature verifies an HMAC-SHA512 hex digest over the raw body.
func ValidSignature(secret string, payload []byte, header string) bool {
	if secret == "" || header == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode gateway request")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build gateway request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "call payment gateway")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read gateway response")
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode gateway response")
	}
	if resp.StatusCode >= 400 || !envelope.Status {
		msg := envelope.Message
		if msg == "" {
			msg = fmt.Sprintf("gateway returned status %d", resp.StatusCode)
		}
		return pkgerrors.New(pkgerrors.CodeDependency, msg)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode gateway data")
		}
	}
	return nil
}
