package paygate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ottshare/party-api/internal/config"
	"github.com/ottshare/party-api/internal/domain"
)

// ChargeResult reports a single charge attempt. Retryable reflects the
// gateway's own judgment of whether the failure can succeed on a later try;
// when the gateway says nothing we leave it nil and the caller falls back to
// the attempt count.
type ChargeResult struct {
	Approved      bool
	Retryable     *bool
	FailureReason string
}

// Gateway charges a stored billing method for a payment.
type Gateway interface {
	Charge(ctx context.Context, paymentID, userID string, amount int64) (*ChargeResult, error)
}

type client struct {
	apiBase string
	apiKey  string
	httpc   *http.Client
}

func NewGateway(cfg *config.Config) Gateway {
	return &client{
		apiBase: cfg.PGAPIBase,
		apiKey:  cfg.PGAPIKey,
		httpc:   &http.Client{Timeout: 20 * time.Second},
	}
}

func (c *client) Charge(ctx context.Context, paymentID, userID string, amount int64) (*ChargeResult, error) {
	body, err := json.Marshal(map[string]any{
		"order_id": paymentID,
		"user_id":  userID,
		"amount":   amount,
		"currency": "KRW",
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/charges", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("charge request: %w", domain.ErrExternalProvider)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("payment gateway returned %d: %w", resp.StatusCode, domain.ErrExternalProvider)
	}

	var out struct {
		Status        string `json:"status"`
		Retryable     *bool  `json:"retryable"`
		FailureReason string `json:"failure_reason"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("charge decode: %w", domain.ErrExternalProvider)
	}
	return &ChargeResult{
		Approved:      out.Status == "approved",
		Retryable:     out.Retryable,
		FailureReason: out.FailureReason,
	}, nil
}
