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

	"github.com/ManuelReschke/PayFox/internal/pkg/env"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

const defaultRazorpayAPIBaseURL = "https://api.razorpay.com/v1"

// DefaultCurrency is the currency all provider orders are created in.
const DefaultCurrency = "INR"

// RazorpayClient talks to the Razorpay Orders API. When no key pair is
// configured it returns locally generated mock orders so demo checkouts
// keep working without provider credentials.
type RazorpayClient struct {
	KeyID     string
	KeySecret string

	APIBaseURL string

	HTTPClient *http.Client
}

// ProviderOrder is the provider-side order the checkout flow hands to the
// client-side payment collection step.
type ProviderOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

// NewRazorpayClient creates a client for the given API key pair.
func NewRazorpayClient(keyID, keySecret string) *RazorpayClient {
	return &RazorpayClient{
		KeyID:      strings.TrimSpace(keyID),
		KeySecret:  strings.TrimSpace(keySecret),
		APIBaseURL: strings.TrimSpace(env.GetEnv("RAZORPAY_API_BASE_URL", defaultRazorpayAPIBaseURL)),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// NewRazorpayClientFromEnv creates a client from RAZORPAY_KEY_ID and
// RAZORPAY_KEY_SECRET.
func NewRazorpayClientFromEnv() *RazorpayClient {
	return NewRazorpayClient(
		env.GetEnv("RAZORPAY_KEY_ID", ""),
		env.GetEnv("RAZORPAY_KEY_SECRET", ""),
	)
}

// HasCredentials reports whether a real API key pair is configured.
func (c *RazorpayClient) HasCredentials() bool {
	return c.KeyID != "" && c.KeySecret != ""
}

// CreateOrder creates a provider order for the given amount in minor units.
// The notes map travels to the provider and comes back on webhook payloads.
func (c *RazorpayClient) CreateOrder(ctx context.Context, amountCents int64, receipt string, notes map[string]string) (*ProviderOrder, error) {
	if amountCents <= 0 {
		return nil, fmt.Errorf("order amount must be positive, got %d", amountCents)
	}

	if !c.HasCredentials() {
		// Keep local demos working when keys are missing.
		mockID := fmt.Sprintf("order_local_%s", uuid.New().String()[:13])
		log.Warnf("[Razorpay] API keys missing, returning mock order id %s", mockID)
		return &ProviderOrder{
			ID:       mockID,
			Amount:   amountCents,
			Currency: DefaultCurrency,
			Status:   "created",
		}, nil
	}

	reqBody := map[string]interface{}{
		"amount":          amountCents,
		"currency":        DefaultCurrency,
		"payment_capture": 1,
	}
	if receipt != "" {
		reqBody["receipt"] = receipt
	}
	if len(notes) > 0 {
		reqBody["notes"] = notes
	}

	encoded, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.APIBaseURL, "/")+"/orders", bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.KeyID, c.KeySecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("razorpay order creation failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out ProviderOrder
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.ID) == "" {
		return nil, fmt.Errorf("razorpay order response missing id")
	}
	return &out, nil
}
