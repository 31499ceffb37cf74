package tossgw

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/fx"

	cfgpkg "github.com/vibestack/billing/pkg/config"
)

// Client calls the Toss Payments REST API directly; there is no official Go
// SDK. Authentication is HTTP Basic with the secret key as user name.
type Client struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

func New(cfg *cfgpkg.Config) *Client {
	return &Client{
		secretKey:  cfg.Toss.SecretKey,
		baseURL:    cfg.Toss.BaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Payment is the subset of the Toss payment object the checkout flow needs.
type Payment struct {
	PaymentKey  string `json:"paymentKey"`
	OrderID     string `json:"orderId"`
	Status      string `json:"status"`
	TotalAmount int64  `json:"totalAmount"`
	Currency    string `json:"currency"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ConfirmPayment finalizes an approved checkout. Toss rejects a second
// confirm of the same paymentKey, so a replayed request surfaces as an error
// rather than a duplicate purchase.
func (c *Client) ConfirmPayment(ctx context.Context, paymentKey, orderID string, amount int64) (*Payment, error) {
	body, err := json.Marshal(map[string]any{
		"paymentKey": paymentKey,
		"orderId":    orderID,
		"amount":     amount,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/payments/confirm", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(c.secretKey+":")))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("toss confirm request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("toss confirm read: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Code != "" {
			return nil, fmt.Errorf("toss confirm failed: %s (%s)", apiErr.Message, apiErr.Code)
		}
		return nil, fmt.Errorf("toss confirm failed: status %d", resp.StatusCode)
	}

	var p Payment
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("toss confirm decode: %w", err)
	}
	return &p, nil
}

var Module = fx.Options(
	fx.Provide(New),
)
