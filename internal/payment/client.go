package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Charger submits a charge to the payment gateway. The gateway owns retry and
// timeout policy; its terminal outcome arrives later through the
// payment_confirmed / payment_failed webhooks.
type Charger interface {
	Charge(ctx context.Context, orderID uuid.UUID, amount decimal.Decimal) (*ChargeResult, error)
}

type ChargeResult struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

// Client is the HTTP gateway client used at checkout.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) Charge(ctx context.Context, orderID uuid.UUID, amount decimal.Decimal) (*ChargeResult, error) {
	body, err := json.Marshal(map[string]string{
		"order_id": orderID.String(),
		"amount":   amount.String(),
		"currency": "USD",
	})
	if err != nil {
		return nil, fmt.Errorf("payment: failed to marshal charge request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/charges", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("payment: failed to build charge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment: charge request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("payment: gateway returned status %d", resp.StatusCode)
	}

	var result ChargeResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("payment: failed to decode charge response: %w", err)
	}

	log.Info().Stringer("order_id", orderID).Str("reference", result.Reference).Msg("payment: charge submitted")
	return &result, nil
}
