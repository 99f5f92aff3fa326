package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"vendkiosk/backend/services/card-demo/internal/card"
	"vendkiosk/backend/services/card-demo/internal/models"
)

type fakeLedger struct {
	debits []models.Debit
	err    error
}

func (f *fakeLedger) Create(_ context.Context, d *models.Debit) error {
	if f.err != nil {
		return f.err
	}
	d.ID = int64(len(f.debits) + 1)
	f.debits = append(f.debits, *d)
	return nil
}

func newService(t *testing.T, balance int, ledger Ledger) (*VendingService, *card.Card) {
	t.Helper()
	log := card.NewLog(50)
	c, err := card.New(card.Config{
		BalanceMinorUnits: balance,
		PIN:               "1234",
		StudentNumber:     "E0001",
	}, card.NewBcryptHasher(bcrypt.MinCost), log, zap.NewNop())
	require.NoError(t, err)
	c.Insert()

	svc, err := NewVendingService(c, []models.Item{{ID: 1, Name: "Coffee"}}, 20, ledger, log, zap.NewNop())
	require.NoError(t, err)
	return svc, c
}

func TestPurchaseRecordsDebit(t *testing.T) {
	ledger := &fakeLedger{}
	svc, _ := newService(t, 50, ledger)

	res, err := svc.Purchase(context.Background(), 1, "1234")
	require.NoError(t, err)
	assert.True(t, res.Recorded)
	assert.Equal(t, "Coffee", res.Item.Name)
	assert.Equal(t, 30, res.Receipt.NewBalanceMinor)

	require.Len(t, ledger.debits, 1)
	d := ledger.debits[0]
	assert.Equal(t, models.DebitKind, d.Kind)
	assert.Equal(t, "E0001", d.StudentNumber)
	assert.Equal(t, 20, d.AmountMinorUnits)
	assert.Equal(t, int64(1), d.CardCounter)
}

func TestLedgerFailureKeepsSale(t *testing.T) {
	svc, _ := newService(t, 50, &fakeLedger{err: errors.New("db down")})

	res, err := svc.Purchase(context.Background(), 1, "1234")
	require.NoError(t, err)
	assert.False(t, res.Recorded)
	lines := svc.Logs(0)
	require.GreaterOrEqual(t, len(lines), 2)
	assert.Contains(t, lines[len(lines)-2], "ledger write failed")
}

func TestPurchaseWithoutLedger(t *testing.T) {
	svc, _ := newService(t, 50, nil)
	res, err := svc.Purchase(context.Background(), 1, "1234")
	require.NoError(t, err)
	assert.False(t, res.Recorded)
}

func TestPurchaseUnknownItemLeavesCardAlone(t *testing.T) {
	svc, _ := newService(t, 50, nil)

	_, err := svc.Purchase(context.Background(), 9, "1234")
	require.ErrorIs(t, err, ErrUnknownItem)

	balance, err := svc.VerifyPIN("1234")
	require.NoError(t, err)
	assert.Equal(t, 50, balance)
}

func TestPurchaseInsufficientBalance(t *testing.T) {
	svc, _ := newService(t, 10, &fakeLedger{})
	_, err := svc.Purchase(context.Background(), 1, "1234")
	assert.ErrorIs(t, err, card.ErrInsufficientBalance)
}

func TestPurchaseOnUnpoweredCard(t *testing.T) {
	svc, c := newService(t, 50, nil)
	c.Unpower()
	_, err := svc.Purchase(context.Background(), 1, "1234")
	assert.ErrorIs(t, err, card.ErrDisconnected)
}
