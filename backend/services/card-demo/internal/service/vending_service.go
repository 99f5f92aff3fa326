package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"vendkiosk/backend/services/card-demo/internal/card"
	"vendkiosk/backend/services/card-demo/internal/models"
)

// ErrUnknownItem is returned for an item id outside the catalog.
var ErrUnknownItem = errors.New("vending: unknown item")

// Ledger records debits outside the card.
type Ledger interface {
	Create(ctx context.Context, d *models.Debit) error
}

// PurchaseResult is a completed sale.
type PurchaseResult struct {
	Item     models.Item
	Receipt  card.Receipt
	Recorded bool
}

// VendingService sells items against the demo card.
type VendingService struct {
	card   *card.Card
	items  map[int]models.Item
	price  int
	ledger Ledger
	log    *card.Log
	logger *zap.Logger
}

// NewVendingService builds the service. ledger may be nil.
func NewVendingService(c *card.Card, items []models.Item, priceMinorUnits int, ledger Ledger, log *card.Log, logger *zap.Logger) (*VendingService, error) {
	if priceMinorUnits <= 0 {
		return nil, fmt.Errorf("vending: invalid price %d", priceMinorUnits)
	}
	byID := make(map[int]models.Item, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	return &VendingService{
		card:   c,
		items:  byID,
		price:  priceMinorUnits,
		ledger: ledger,
		log:    log,
		logger: logger,
	}, nil
}

// CheckCard reports whether the card answers.
func (s *VendingService) CheckCard() error {
	return s.card.Check()
}

// VerifyPIN returns the balance for a correct PIN.
func (s *VendingService) VerifyPIN(pin string) (int, error) {
	return s.card.VerifyPIN(pin)
}

// Purchase debits the card for one item and mirrors the debit in the ledger.
// A ledger failure does not undo the sale since the card was already charged.
func (s *VendingService) Purchase(ctx context.Context, itemID int, pin string) (PurchaseResult, error) {
	item, ok := s.items[itemID]
	if !ok {
		return PurchaseResult{}, fmt.Errorf("%w (id %d)", ErrUnknownItem, itemID)
	}

	receipt, err := s.card.Debit(pin, s.price)
	if err != nil {
		s.logger.Info("purchase refused", zap.Int("item_id", itemID), zap.Error(err))
		return PurchaseResult{}, err
	}

	result := PurchaseResult{Item: item, Receipt: receipt}
	switch {
	case s.ledger == nil:
	case receipt.StudentNumber == "":
		s.log.Add("WARNING: card debited but no student number to record")
	default:
		debit := &models.Debit{
			StudentNumber:    receipt.StudentNumber,
			Kind:             models.DebitKind,
			AmountMinorUnits: receipt.DebitedMinorUnits,
			CardCounter:      int64(receipt.Counter),
			Comment:          "vending: " + item.Name,
		}
		if err := s.ledger.Create(ctx, debit); err != nil {
			s.logger.Error("debit not recorded in ledger", zap.String("student_number", receipt.StudentNumber), zap.Error(err))
			s.log.Add("WARNING: card debited but ledger write failed for %s", receipt.StudentNumber)
		} else {
			result.Recorded = true
		}
	}

	s.log.Add("PURCHASE: %s, counter %d", item.Name, receipt.Counter)
	s.logger.Info("purchase completed",
		zap.Int("item_id", itemID),
		zap.Uint32("counter", receipt.Counter),
		zap.Int("new_balance", receipt.NewBalanceMinor),
		zap.Bool("recorded", result.Recorded))
	return result, nil
}

// Items returns the catalog.
func (s *VendingService) Items() map[int]models.Item {
	out := make(map[int]models.Item, len(s.items))
	for id, item := range s.items {
		out[id] = item
	}
	return out
}

// Logs returns the latest card log lines.
func (s *VendingService) Logs(n int) []string {
	return s.card.Logs(n)
}

// Reset restores the demo card.
func (s *VendingService) Reset() {
	s.card.Reset()
}
