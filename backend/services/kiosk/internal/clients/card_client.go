package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"vendkiosk/backend/services/kiosk/internal/presence"
)

// ErrTransport marks failures where no usable answer came back from the card service.
var ErrTransport = errors.New("card service transport error")

const (
	pathCheckCard = "/api/check_card"
	pathVerifyPIN = "/api/verify_pin"
	pathPurchase  = "/api/acheter_boisson"
)

// TokenSource supplies the bearer token sent with every call.
type TokenSource interface {
	Token() (string, error)
}

// CheckCardResponse is the presence check answer.
type CheckCardResponse struct {
	Success      bool   `json:"success"`
	Disconnected bool   `json:"disconnected,omitempty"`
	Message      string `json:"message,omitempty"`
	Error        string `json:"error,omitempty"`
}

// VerifyPINRequest is sent to authenticate the card holder.
type VerifyPINRequest struct {
	PIN string `json:"pin"`
}

// VerifyPINResponse carries the balance on success.
type VerifyPINResponse struct {
	Success        bool   `json:"success"`
	Balance        int    `json:"solde"`
	BalanceDisplay string `json:"solde_euros"`
	Error          string `json:"error,omitempty"`
	Disconnected   bool   `json:"disconnected,omitempty"`
}

// PurchaseRequest debits one item.
type PurchaseRequest struct {
	ItemID int    `json:"boisson_id"`
	PIN    string `json:"pin"`
}

// PurchaseResponse reports the debit result.
type PurchaseResponse struct {
	Success           bool   `json:"success"`
	Message           string `json:"message,omitempty"`
	ItemName          string `json:"boisson,omitempty"`
	NewBalance        *int   `json:"nouveau_solde,omitempty"`
	NewBalanceDisplay string `json:"nouveau_solde_euros,omitempty"`
	Error             string `json:"error,omitempty"`
	Disconnected      bool   `json:"disconnected,omitempty"`
}

// CardClient talks to the card service that owns presence, PIN, balance and debits.
type CardClient struct {
	base   *BaseClient
	tokens TokenSource
	logger *zap.Logger
}

// NewCardClient returns client instance. tokens may be nil when the service is unauthenticated.
func NewCardClient(baseURL string, httpClient HTTPDoer, tokens TokenSource, logger *zap.Logger) *CardClient {
	return &CardClient{
		base:   NewBaseClient(baseURL, httpClient),
		tokens: tokens,
		logger: logger,
	}
}

// CheckCard asks whether a card is readable.
func (c *CardClient) CheckCard(ctx context.Context) (*CheckCardResponse, error) {
	var resp CheckCardResponse
	if err := c.post(ctx, pathCheckCard, struct{}{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyPIN checks the PIN and returns the balance.
func (c *CardClient) VerifyPIN(ctx context.Context, pin string) (*VerifyPINResponse, error) {
	var resp VerifyPINResponse
	if err := c.post(ctx, pathVerifyPIN, VerifyPINRequest{PIN: pin}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Purchase debits the card for one item.
func (c *CardClient) Purchase(ctx context.Context, req PurchaseRequest) (*PurchaseResponse, error) {
	var resp PurchaseResponse
	if err := c.post(ctx, pathPurchase, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Probe maps a presence check onto a presence signal.
func (c *CardClient) Probe(ctx context.Context) presence.Signal {
	resp, err := c.CheckCard(ctx)
	if err != nil {
		c.logger.Debug("presence probe failed", zap.Error(err))
		return presence.Signal{Outcome: presence.TransportError}
	}
	if resp.Success {
		return presence.Signal{Outcome: presence.Present}
	}
	return presence.Signal{Outcome: presence.Absent, HardDisconnect: resp.Disconnected}
}

func (c *CardClient) post(ctx context.Context, path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	headers := map[string]string{}
	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			return fmt.Errorf("card client: device token: %w", err)
		}
		headers["Authorization"] = "Bearer " + token
	}

	status, respBody, err := c.base.Do(ctx, http.MethodPost, path, data, headers)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrTransport, path, err)
	}
	// Rejections may come with an error status but still carry a decodable answer.
	if err := json.Unmarshal(respBody, out); err != nil {
		c.logger.Warn("card service returned undecodable body", zap.String("path", path), zap.Int("status", status))
		return fmt.Errorf("%w: %s: status %d: %v", ErrTransport, path, status, err)
	}
	if status >= http.StatusInternalServerError {
		c.logger.Warn("card service returned server error", zap.String("path", path), zap.Int("status", status))
	}
	return nil
}
