package transaction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"vendkiosk/backend/services/kiosk/internal/clients"
	"vendkiosk/backend/services/kiosk/internal/models"
)

var (
	// ErrInsufficientBalance is returned before any backend call when the balance cannot cover the item.
	ErrInsufficientBalance = errors.New("transaction: insufficient balance")
	// ErrAlreadyInProgress is returned when a purchase is already in flight.
	ErrAlreadyInProgress = errors.New("transaction: purchase already in progress")
)

const defaultRejectReason = "purchase refused"

// Purchaser performs the backend debit.
type Purchaser interface {
	Purchase(ctx context.Context, req clients.PurchaseRequest) (*clients.PurchaseResponse, error)
}

// Coordinator serializes purchases and tracks a disconnect captured while one is in flight.
type Coordinator struct {
	purchaser Purchaser
	logger    *zap.Logger

	mu              sync.Mutex
	inFlight        bool
	deferred        bool
	expectedBalance int
}

// NewCoordinator returns an idle coordinator.
func NewCoordinator(purchaser Purchaser, logger *zap.Logger) *Coordinator {
	return &Coordinator{purchaser: purchaser, logger: logger}
}

// CheckFunds enforces the local balance precondition.
func CheckFunds(balanceMinorUnits int, item models.ItemRef) error {
	if balanceMinorUnits < item.PriceMinorUnits {
		return fmt.Errorf("%w: balance %s, price %s", ErrInsufficientBalance,
			models.FormatMinorUnits(balanceMinorUnits), models.FormatMinorUnits(item.PriceMinorUnits))
	}
	return nil
}

// Begin claims the purchase slot. It fails fast without touching the backend.
func (c *Coordinator) Begin(balanceMinorUnits int, item models.ItemRef) error {
	if err := CheckFunds(balanceMinorUnits, item); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return ErrAlreadyInProgress
	}
	c.inFlight = true
	c.deferred = false
	c.expectedBalance = balanceMinorUnits - item.PriceMinorUnits
	return nil
}

// Submit performs the backend call for a claimed purchase and maps the answer to an Outcome.
func (c *Coordinator) Submit(ctx context.Context, item models.ItemRef, pin string) Outcome {
	resp, err := c.purchaser.Purchase(ctx, clients.PurchaseRequest{ItemID: item.ID, PIN: pin})
	if err != nil {
		c.logger.Warn("purchase call failed", zap.Int("item_id", item.ID), zap.Error(err))
		return Outcome{Kind: Rejected, ItemName: item.DisplayName, Reason: "connection error", Transport: true}
	}
	return c.outcomeFromResponse(item, resp)
}

// DeferDisconnect records a removal seen during the in-flight purchase.
// It reports false when nothing is in flight.
func (c *Coordinator) DeferDisconnect() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.inFlight {
		return false
	}
	c.deferred = true
	return true
}

// ClearDeferredDisconnect forgets a captured removal, used when the card is seen again.
func (c *Coordinator) ClearDeferredDisconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deferred = false
}

// Finish releases the slot and resolves the outcome against any captured disconnect.
func (c *Coordinator) Finish(o Outcome) Resolution {
	c.mu.Lock()
	deferred := c.deferred
	c.inFlight = false
	c.deferred = false
	c.mu.Unlock()

	res := Resolve(o, deferred)
	c.logger.Info("purchase resolved",
		zap.Stringer("outcome", o.Kind),
		zap.Bool("disconnect_deferred", deferred),
		zap.Stringer("resolution", res))
	return res
}

// Abort releases the slot without resolving, for a cancelled session.
func (c *Coordinator) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	c.deferred = false
}

// InFlight reports whether a purchase holds the slot.
func (c *Coordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// DisconnectDeferred reports whether a removal was captured during the current purchase.
func (c *Coordinator) DisconnectDeferred() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deferred
}

// Purchase runs a whole purchase synchronously: precondition, call, resolution.
func (c *Coordinator) Purchase(ctx context.Context, balanceMinorUnits int, item models.ItemRef, pin string) (Outcome, Resolution, error) {
	if err := c.Begin(balanceMinorUnits, item); err != nil {
		return Outcome{}, ResolutionRevert, err
	}
	o := c.Submit(ctx, item, pin)
	return o, c.Finish(o), nil
}

func (c *Coordinator) outcomeFromResponse(item models.ItemRef, resp *clients.PurchaseResponse) Outcome {
	if !resp.Success {
		reason := strings.TrimSpace(resp.Error)
		if reason == "" {
			reason = defaultRejectReason
		}
		if resp.Disconnected {
			return Outcome{Kind: RejectedAndDisconnected, ItemName: item.DisplayName, Reason: reason}
		}
		return Outcome{Kind: Rejected, ItemName: item.DisplayName, Reason: reason}
	}

	name := resp.ItemName
	if name == "" {
		name = item.DisplayName
	}
	out := Outcome{Kind: Settled, ItemName: name, BalanceDisplay: resp.NewBalanceDisplay}
	switch {
	case resp.NewBalance != nil:
		out.BalanceMinorUnits = *resp.NewBalance
	case resp.NewBalanceDisplay != "":
		parsed, err := models.ParseMinorUnits(resp.NewBalanceDisplay)
		if err != nil {
			c.logger.Warn("unparseable balance in purchase receipt", zap.String("balance", resp.NewBalanceDisplay))
			parsed = c.expected()
		}
		out.BalanceMinorUnits = parsed
	default:
		out.BalanceMinorUnits = c.expected()
	}
	if out.BalanceDisplay == "" {
		out.BalanceDisplay = models.FormatMinorUnits(out.BalanceMinorUnits)
	}
	return out
}

func (c *Coordinator) expected() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expectedBalance
}
