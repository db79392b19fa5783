package bankwire

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

// Wire sends money over the banking rail. IssueMicroDeposit wires a 1 KRW
// deposit carrying a short sender-name reference the holder reads back;
// Transfer pays out a settlement to a verified account.
type Wire interface {
	IssueMicroDeposit(ctx context.Context, bankCode, accountNumber string) (reference string, err error)
	Transfer(ctx context.Context, bankCode, accountNumber string, amount int64, memo string) (transferID string, err error)
}

type client struct {
	apiBase string
	apiKey  string
	httpc   *http.Client
}

func NewWire(cfg *config.Config) Wire {
	return &client{
		apiBase: cfg.BankWireAPIBase,
		apiKey:  cfg.BankWireAPIKey,
		httpc:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *client) IssueMicroDeposit(ctx context.Context, bankCode, accountNumber string) (string, error) {
	var out struct {
		Reference string `json:"reference"`
	}
	err := c.post(ctx, "/micro-deposits", map[string]any{
		"bank_code":      bankCode,
		"account_number": accountNumber,
		"amount":         1,
	}, &out)
	if err != nil {
		return "", err
	}
	if out.Reference == "" {
		return "", fmt.Errorf("micro-deposit response missing reference: %w", domain.ErrExternalProvider)
	}
	return out.Reference, nil
}

func (c *client) Transfer(ctx context.Context, bankCode, accountNumber string, amount int64, memo string) (string, error) {
	var out struct {
		TransferID string `json:"transfer_id"`
	}
	err := c.post(ctx, "/transfers", map[string]any{
		"bank_code":      bankCode,
		"account_number": accountNumber,
		"amount":         amount,
		"memo":           memo,
	}, &out)
	if err != nil {
		return "", err
	}
	if out.TransferID == "" {
		return "", fmt.Errorf("transfer response missing id: %w", domain.ErrExternalProvider)
	}
	return out.TransferID, nil
}

func (c *client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("bank wire request: %w", domain.ErrExternalProvider)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("bank wire api returned %d: %w", resp.StatusCode, domain.ErrExternalProvider)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
