package transaction

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vendkiosk/backend/services/kiosk/internal/clients"
	"vendkiosk/backend/services/kiosk/internal/models"
)

type fakePurchaser struct {
	mu    sync.Mutex
	calls []clients.PurchaseRequest
	resp  *clients.PurchaseResponse
	err   error
}

func (f *fakePurchaser) Purchase(ctx context.Context, req clients.PurchaseRequest) (*clients.PurchaseResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	return f.resp, f.err
}

func (f *fakePurchaser) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

var coffee = models.ItemRef{ID: 1, DisplayName: "Coffee", PriceMinorUnits: 20}

func TestResolveTable(t *testing.T) {
	cases := []struct {
		kind     OutcomeKind
		deferred bool
		want     Resolution
	}{
		{Settled, false, ResolutionSettle},
		{Settled, true, ResolutionSettle},
		{Rejected, false, ResolutionRevert},
		{Rejected, true, ResolutionReset},
		{RejectedAndDisconnected, false, ResolutionReset},
		{RejectedAndDisconnected, true, ResolutionReset},
	}
	for _, tc := range cases {
		got := Resolve(Outcome{Kind: tc.kind}, tc.deferred)
		assert.Equal(t, tc.want, got, "%s deferred=%v", tc.kind, tc.deferred)
	}
}

func TestBeginRejectsInsufficientBalanceWithoutCall(t *testing.T) {
	purchaser := &fakePurchaser{}
	coord := NewCoordinator(purchaser, zap.NewNop())

	_, _, err := coord.Purchase(context.Background(), 10, coffee, "1234")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientBalance))
	assert.Equal(t, 0, purchaser.callCount())
	assert.False(t, coord.InFlight())
}

func TestSecondPurchaseFailsFastWhileInFlight(t *testing.T) {
	purchaser := &fakePurchaser{}
	coord := NewCoordinator(purchaser, zap.NewNop())

	require.NoError(t, coord.Begin(50, coffee))
	err := coord.Begin(50, coffee)
	assert.True(t, errors.Is(err, ErrAlreadyInProgress))

	_, _, err = coord.Purchase(context.Background(), 50, coffee, "1234")
	assert.True(t, errors.Is(err, ErrAlreadyInProgress))
	assert.Equal(t, 0, purchaser.callCount())
}

func TestDeferredDisconnectDiscardedOnSuccess(t *testing.T) {
	purchaser := &fakePurchaser{resp: &clients.PurchaseResponse{Success: true, ItemName: "Café", NewBalanceDisplay: "0.30"}}
	coord := NewCoordinator(purchaser, zap.NewNop())

	require.NoError(t, coord.Begin(50, coffee))
	assert.True(t, coord.DeferDisconnect())

	o := coord.Submit(context.Background(), coffee, "1234")
	assert.Equal(t, Settled, o.Kind)
	assert.Equal(t, 30, o.BalanceMinorUnits)
	assert.Equal(t, "0.30", o.BalanceDisplay)
	assert.Equal(t, "Café", o.ItemName)

	assert.Equal(t, ResolutionSettle, coord.Finish(o))
	assert.False(t, coord.InFlight())
	assert.False(t, coord.DisconnectDeferred())
}

func TestDeferredDisconnectResetsOnFailure(t *testing.T) {
	purchaser := &fakePurchaser{resp: &clients.PurchaseResponse{Success: false, Error: "Erreur anti-rejoue"}}
	coord := NewCoordinator(purchaser, zap.NewNop())

	require.NoError(t, coord.Begin(50, coffee))
	coord.DeferDisconnect()
	o := coord.Submit(context.Background(), coffee, "1234")
	assert.Equal(t, Rejected, o.Kind)
	assert.Equal(t, "Erreur anti-rejoue", o.Reason)
	assert.Equal(t, ResolutionReset, coord.Finish(o))
}

func TestBackendDisconnectReportAlwaysResets(t *testing.T) {
	purchaser := &fakePurchaser{resp: &clients.PurchaseResponse{Success: false, Disconnected: true}}
	coord := NewCoordinator(purchaser, zap.NewNop())

	o, res, err := coord.Purchase(context.Background(), 50, coffee, "1234")
	require.NoError(t, err)
	assert.Equal(t, RejectedAndDisconnected, o.Kind)
	assert.Equal(t, defaultRejectReason, o.Reason)
	assert.Equal(t, ResolutionReset, res)
}

func TestTransportFailureRevertsWithoutDeferral(t *testing.T) {
	purchaser := &fakePurchaser{err: clients.ErrTransport}
	coord := NewCoordinator(purchaser, zap.NewNop())

	o, res, err := coord.Purchase(context.Background(), 50, coffee, "1234")
	require.NoError(t, err)
	assert.Equal(t, Rejected, o.Kind)
	assert.True(t, o.Transport)
	assert.Equal(t, ResolutionRevert, res)
	assert.Equal(t, 1, purchaser.callCount())
}

func TestSettledBalanceFallbacks(t *testing.T) {
	newBalance := 12
	purchaser := &fakePurchaser{resp: &clients.PurchaseResponse{Success: true, NewBalance: &newBalance}}
	coord := NewCoordinator(purchaser, zap.NewNop())

	o, _, err := coord.Purchase(context.Background(), 50, coffee, "1234")
	require.NoError(t, err)
	assert.Equal(t, 12, o.BalanceMinorUnits)
	assert.Equal(t, "0.12", o.BalanceDisplay)
	assert.Equal(t, "Coffee", o.ItemName)

	purchaser.resp = &clients.PurchaseResponse{Success: true}
	o, _, err = coord.Purchase(context.Background(), 50, coffee, "1234")
	require.NoError(t, err)
	assert.Equal(t, 30, o.BalanceMinorUnits)
}

func TestDeferDisconnectIgnoredWhenIdle(t *testing.T) {
	coord := NewCoordinator(&fakePurchaser{}, zap.NewNop())
	assert.False(t, coord.DeferDisconnect())
	assert.False(t, coord.DisconnectDeferred())
}
