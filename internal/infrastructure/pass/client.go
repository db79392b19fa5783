package pass

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ottshare/party-api/internal/config"
	"github.com/ottshare/party-api/internal/domain"
	"github.com/ottshare/party-api/internal/pkg/id"
)

// Certifier drives the operator phone certification flow. Start issues a
// transaction the client opens in the certification widget; VerifyReceipt
// exchanges a completed transaction for the attested phone and CI.
type Certifier interface {
	Start(ctx context.Context) (*domain.CertificationDescriptor, error)
	VerifyReceipt(ctx context.Context, transactionID string) (*domain.CertificationReceipt, error)
}

type client struct {
	apiBase    string
	merchantID string
	apiKey     string
	widgetURL  string
	httpc      *http.Client
}

func NewCertifier(cfg *config.Config) Certifier {
	return &client{
		apiBase:    cfg.PassAPIBase,
		merchantID: cfg.PassMerchantID,
		apiKey:     cfg.PassAPIKey,
		widgetURL:  cfg.PassWidgetURL,
		httpc:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *client) Start(ctx context.Context) (*domain.CertificationDescriptor, error) {
	payload := map[string]string{
		"merchant_id":    c.merchantID,
		"transaction_id": id.New(),
	}
	var out struct {
		TransactionID string `json:"transaction_id"`
	}
	if err := c.post(ctx, "/certifications", payload, &out); err != nil {
		return nil, err
	}
	if out.TransactionID == "" {
		out.TransactionID = payload["transaction_id"]
	}
	return &domain.CertificationDescriptor{
		MerchantID:    c.merchantID,
		TransactionID: out.TransactionID,
		WidgetURL:     c.widgetURL,
	}, nil
}

func (c *client) VerifyReceipt(ctx context.Context, transactionID string) (*domain.CertificationReceipt, error) {
	var out struct {
		Status string `json:"status"`
		Phone  string `json:"phone"`
		CI     string `json:"ci"`
	}
	if err := c.post(ctx, "/certifications/"+transactionID+"/receipt", nil, &out); err != nil {
		return nil, err
	}
	if out.Status != "certified" {
		return nil, fmt.Errorf("certification %s not completed: %w", transactionID, domain.ErrVerificationMismatch)
	}
	receipt := &domain.CertificationReceipt{Phone: out.Phone, CI: out.CI}
	if !receipt.Valid() {
		return nil, fmt.Errorf("certification %s receipt incomplete: %w", transactionID, domain.ErrExternalProvider)
	}
	return receipt, nil
}

func (c *client) post(ctx context.Context, path string, payload, out any) error {
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+path, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("certification request: %w", domain.ErrExternalProvider)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("certification api returned %d: %w", resp.StatusCode, domain.ErrExternalProvider)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
