package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	libhttp "vendkiosk/backend/libs/httpserver"
	"vendkiosk/backend/services/card-demo/internal/card"
	"vendkiosk/backend/services/card-demo/internal/http/middleware"
	"vendkiosk/backend/services/card-demo/internal/service"
)

// Vending is the card service behaviour the handlers expose.
type Vending interface {
	CheckCard() error
	VerifyPIN(pin string) (int, error)
	Purchase(ctx context.Context, itemID int, pin string) (service.PurchaseResult, error)
}

// CardHandlers serves the kiosk-facing card API.
type CardHandlers struct {
	vending Vending
	logger  *zap.Logger
}

// NewCardHandlers constructs handler set.
func NewCardHandlers(vending Vending, logger *zap.Logger) *CardHandlers {
	return &CardHandlers{vending: vending, logger: logger}
}

type failure struct {
	Success      bool   `json:"success"`
	Error        string `json:"error"`
	Disconnected bool   `json:"disconnected,omitempty"`
}

type checkCardResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type verifyPINRequest struct {
	PIN string `json:"pin"`
}

type verifyPINResponse struct {
	Success        bool   `json:"success"`
	Balance        int    `json:"solde"`
	BalanceDisplay string `json:"solde_euros"`
}

type purchaseRequest struct {
	ItemID int    `json:"boisson_id"`
	PIN    string `json:"pin"`
}

type purchaseResponse struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	ItemName          string `json:"boisson"`
	NewBalance        int    `json:"nouveau_solde"`
	NewBalanceDisplay string `json:"nouveau_solde_euros"`
}

// CheckCard handles POST /api/check_card.
func (h *CardHandlers) CheckCard(w http.ResponseWriter, r *http.Request) {
	if err := h.vending.CheckCard(); err != nil {
		h.writeFailure(w, err)
		return
	}
	libhttp.WriteJSON(w, http.StatusOK, checkCardResponse{Success: true, Message: "Card detected"})
}

// VerifyPIN handles POST /api/verify_pin.
func (h *CardHandlers) VerifyPIN(w http.ResponseWriter, r *http.Request) {
	var req verifyPINRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		libhttp.WriteJSON(w, http.StatusBadRequest, failure{Error: "invalid request body"})
		return
	}

	balance, err := h.vending.VerifyPIN(req.PIN)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	libhttp.WriteJSON(w, http.StatusOK, verifyPINResponse{
		Success:        true,
		Balance:        balance,
		BalanceDisplay: formatMinor(balance),
	})
}

// Purchase handles POST /api/acheter_boisson.
func (h *CardHandlers) Purchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		libhttp.WriteJSON(w, http.StatusBadRequest, failure{Error: "invalid request body"})
		return
	}

	kioskID, _ := middleware.KioskIDFromContext(r.Context())
	res, err := h.vending.Purchase(r.Context(), req.ItemID, req.PIN)
	if err != nil {
		h.logger.Info("purchase failed", zap.String("kiosk_id", kioskID), zap.Int("item_id", req.ItemID), zap.Error(err))
		h.writeFailure(w, err)
		return
	}
	libhttp.WriteJSON(w, http.StatusOK, purchaseResponse{
		Success:           true,
		Message:           res.Item.Name + " served!",
		ItemName:          res.Item.Name,
		NewBalance:        res.Receipt.NewBalanceMinor,
		NewBalanceDisplay: formatMinor(res.Receipt.NewBalanceMinor),
	})
}

// writeFailure answers 200 with success=false; the kiosk reads the body, not the status.
func (h *CardHandlers) writeFailure(w http.ResponseWriter, err error) {
	resp := failure{Error: userMessage(err)}
	if errors.Is(err, card.ErrDisconnected) {
		resp.Disconnected = true
	}
	libhttp.WriteJSON(w, http.StatusOK, resp)
}

func userMessage(err error) string {
	var pinErr *card.PINError
	switch {
	case errors.Is(err, card.ErrDisconnected):
		return "Card disconnected"
	case errors.Is(err, card.ErrAbsent):
		return "No card detected"
	case errors.Is(err, card.ErrPINFormat):
		return "Invalid PIN (4 digits required)"
	case errors.As(err, &pinErr):
		return fmt.Sprintf("Incorrect PIN - %d attempt(s) left", pinErr.Remaining)
	case errors.Is(err, card.ErrPINBlocked):
		return "PIN blocked"
	case errors.Is(err, service.ErrUnknownItem):
		return "Invalid item"
	default:
		msg := strings.TrimPrefix(err.Error(), "card: ")
		if msg == "" {
			return "Card error"
		}
		return strings.ToUpper(msg[:1]) + msg[1:]
	}
}

func formatMinor(v int) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}
