package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// PaystackGateway talks to the Paystack transaction API.  Only the
// two endpoints the reconciler depends on are implemented: transaction
// initialize and transaction verify.
type PaystackGateway struct {
	BaseURL   string // e.g. "https://api.paystack.co"
	SecretKey string
	Client    *http.Client
}

// NewPaystackGateway constructs a gateway client with a request
// timeout suited to synchronous checkout flows.
func NewPaystackGateway(baseURL, secretKey string) *PaystackGateway {
	if baseURL == "" {
		baseURL = "https://api.paystack.co"
	}
	return &PaystackGateway{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		SecretKey: secretKey,
		Client:    &http.Client{Timeout: 15 * time.Second},
	}
}

// envelope is Paystack's standard response wrapper.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Initialize implements Gateway.  It posts the transaction setup and
// returns the authorization URL the customer is redirected to.
func (g *PaystackGateway) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	body, err := json.Marshal(map[string]interface{}{
		"email":        req.Email,
		"amount":       req.AmountKobo,
		"reference":    req.Reference,
		"callback_url": req.CallbackURL,
	})
	if err != nil {
		return nil, err
	}
	env, err := g.do(ctx, http.MethodPost, "/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	var res InitializeResult
	if err := json.Unmarshal(env.Data, &res); err != nil {
		return nil, fmt.Errorf("paystack: decode initialize data: %w", err)
	}
	return &res, nil
}

// Verify implements Gateway.  It fetches the authoritative state of a
// transaction by reference.
func (g *PaystackGateway) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	env, err := g.do(ctx, http.MethodGet, "/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, err
	}
	var data struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
		Amount    int64  `json:"amount"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("paystack: decode verify data: %w", err)
	}
	return &VerifyResult{Reference: data.Reference, Status: data.Status, AmountKobo: data.Amount}, nil
}

// do performs one authenticated request and decodes the response
// envelope.  A gateway-level "status": false is surfaced as an error
// carrying the gateway's message.
func (g *PaystackGateway) do(ctx context.Context, method, path string, body io.Reader) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, method, g.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.SecretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("paystack: %s %s: http %d: %w", method, path, resp.StatusCode, err)
	}
	if !env.Status {
		return nil, fmt.Errorf("paystack: %s %s: %s", method, path, env.Message)
	}
	return &env, nil
}
