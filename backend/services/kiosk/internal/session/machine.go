package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"vendkiosk/backend/libs/clock"
	"vendkiosk/backend/services/kiosk/internal/clients"
	"vendkiosk/backend/services/kiosk/internal/effects"
	"vendkiosk/backend/services/kiosk/internal/journal"
	"vendkiosk/backend/services/kiosk/internal/models"
	"vendkiosk/backend/services/kiosk/internal/presence"
	"vendkiosk/backend/services/kiosk/internal/transaction"
)

const pinLength = 4

// ErrInvalidPIN is returned by CheckPIN when the PIN is not exactly four digits.
var ErrInvalidPIN = errors.New("PIN must be 4 digits")

// Config holds the machine timings.
type Config struct {
	Intervals           presence.Intervals
	DisconnectThreshold int
	ProbeTimeout        time.Duration
	CallTimeout         time.Duration
	ConfirmDelay        time.Duration
	SettleDelay         time.Duration
	RemovalNoticeDelay  time.Duration
	ErrorNoticeDelay    time.Duration
	MinBrewDuration     time.Duration
}

// DefaultConfig returns the production timings.
func DefaultConfig() Config {
	return Config{
		Intervals:           presence.Intervals{Detect: 3 * time.Second, Monitor: 5 * time.Second},
		DisconnectThreshold: presence.DefaultThreshold,
		ProbeTimeout:        5 * time.Second,
		CallTimeout:         5 * time.Second,
		ConfirmDelay:        time.Second,
		SettleDelay:         3 * time.Second,
		RemovalNoticeDelay:  2 * time.Second,
		ErrorNoticeDelay:    3 * time.Second,
		MinBrewDuration:     4 * time.Second,
	}
}

// CardService is everything the machine needs from the card backend.
type CardService interface {
	presence.Prober
	transaction.Purchaser
	VerifyPIN(ctx context.Context, pin string) (*clients.VerifyPINResponse, error)
}

// allowed lists the forward transitions. Reset to PhaseWaitingForCard is always allowed.
var allowed = map[models.Phase][]models.Phase{
	models.PhaseWaitingForCard: {models.PhaseAuthenticating},
	models.PhaseAuthenticating: {models.PhaseBrowsing},
	models.PhaseBrowsing:       {models.PhaseConfirming},
	models.PhaseConfirming:     {models.PhasePurchasing},
	models.PhasePurchasing:     {models.PhaseSettled, models.PhaseBrowsing},
}

// Machine is the kiosk session state machine. Every event is handled under a
// single lock, so handlers never interleave.
type Machine struct {
	cfg     Config
	cards   CardService
	catalog *models.Catalog
	effects effects.Emitter
	journal journal.Journal
	clock   clock.Clock
	logger  *zap.Logger

	poller   *presence.Poller
	debounce *presence.Debouncer
	coord    *transaction.Coordinator

	// spawn runs a blocking task off the event loop and dispatches its result.
	spawn func(task func() Event)

	mu            sync.Mutex
	session       models.Session
	sessionCtx    context.Context
	cancelSession context.CancelFunc
	phaseTimer    clock.Timer
	pinPending    bool
	errorNotice   bool
	running       bool
}

// NewMachine wires a machine. It does nothing until Start.
func NewMachine(cfg Config, cards CardService, catalog *models.Catalog, emitter effects.Emitter, j journal.Journal, clk clock.Clock, logger *zap.Logger) *Machine {
	if clk == nil {
		clk = clock.New()
	}
	if j == nil {
		j = journal.NewMemory(0)
	}
	m := &Machine{
		cfg:      cfg,
		cards:    cards,
		catalog:  catalog,
		effects:  emitter,
		journal:  j,
		clock:    clk,
		logger:   logger,
		debounce: presence.NewDebouncer(cfg.DisconnectThreshold),
		coord:    transaction.NewCoordinator(cards, logger),
	}
	m.poller = presence.NewPoller(clk, cfg.Intervals, cards, cfg.ProbeTimeout, func(obs presence.Observation) {
		m.Dispatch(presenceObserved{obs: obs})
	}, logger)
	m.spawn = func(task func() Event) {
		go func() {
			m.Dispatch(task())
		}()
	}
	m.session = models.NewSession()
	m.sessionCtx, m.cancelSession = context.WithCancel(context.Background())
	return m
}

// Start opens a fresh session, shows the idle screen and begins card detection.
func (m *Machine) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	m.reset()
	m.effects.Render(waitingScreen())
	m.poller.Arm(presence.ModeDetecting)
	m.logger.Info("kiosk session machine started")
}

// Stop halts polling and timers and cancels any pending call.
func (m *Machine) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.running = false
	m.poller.Disarm()
	m.stopPhaseTimer()
	m.cancelSession()
	m.logger.Info("kiosk session machine stopped")
}

// Run starts the machine and blocks until ctx is done.
func (m *Machine) Run(ctx context.Context) {
	m.Start()
	<-ctx.Done()
	m.Stop()
}

// SubmitPIN dispatches a PIN entry.
func (m *Machine) SubmitPIN(pin string) {
	m.Dispatch(PINSubmitted{PIN: pin})
}

// SelectItem dispatches an item tap.
func (m *Machine) SelectItem(itemID int) {
	m.Dispatch(ItemSelected{ItemID: itemID})
}

// Cancel dispatches a cancel request.
func (m *Machine) Cancel() {
	m.Dispatch(CancelRequested{})
}

// Snapshot returns a copy of the current session.
func (m *Machine) Snapshot() models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.session.Clone()
	s.ConsecutiveMismatch = m.debounce.Mismatches()
	s.IsTransacting = m.coord.InFlight()
	s.DisconnectDeferred = m.coord.DisconnectDeferred()
	return s
}

// Catalog returns the items on offer.
func (m *Machine) Catalog() []models.ItemRef {
	return m.catalog.Items()
}

// Dispatch handles one event to completion.
func (m *Machine) Dispatch(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		m.logger.Debug("event dropped, machine stopped")
		return
	}

	switch e := ev.(type) {
	case presenceObserved:
		m.onPresence(e.obs)
	case PINSubmitted:
		m.onPINSubmitted(e.PIN)
	case pinVerified:
		m.onPINVerified(e)
	case ItemSelected:
		m.onItemSelected(e.ItemID)
	case confirmElapsed:
		if m.isCurrent(e.sessionID, models.PhaseConfirming) {
			m.beginPurchase()
		}
	case purchaseResolved:
		m.onPurchaseResolved(e)
	case settleElapsed:
		if m.isCurrent(e.sessionID, models.PhaseSettled) {
			m.resetToIdle()
		}
	case noticeElapsed:
		if m.isCurrent(e.sessionID, models.PhaseWaitingForCard) {
			m.effects.Render(waitingScreen())
		}
	case errorNoticeElapsed:
		if m.isCurrent(e.sessionID, models.PhaseBrowsing) && m.errorNotice {
			m.errorNotice = false
			m.phaseTimer = nil
			m.effects.Render(welcomeScreen(m.session.BalanceDisplay))
		}
	case CancelRequested:
		m.onCancel()
	default:
		m.logger.Warn("unknown event ignored")
	}
}

func (m *Machine) onPresence(obs presence.Observation) {
	if !m.poller.IsCurrent(obs) {
		m.logger.Debug("stale presence observation dropped", zap.Stringer("mode", obs.Mode))
		return
	}

	transition := m.debounce.Observe(obs.Signal)
	m.session.ConsecutiveMismatch = m.debounce.Mismatches()

	switch transition {
	case presence.Connected:
		if m.session.Phase == models.PhaseWaitingForCard {
			m.cardConnected()
			return
		}
		m.session.CardPresent = true
		if m.coord.DisconnectDeferred() {
			m.coord.ClearDeferredDisconnect()
			m.session.DisconnectDeferred = false
			m.logger.Info("card seen again, deferred disconnect cleared", m.sessionField())
		}
	case presence.Disconnected:
		m.cardDisconnected()
	}
}

func (m *Machine) cardConnected() {
	m.stopPhaseTimer()
	if !m.enter(models.PhaseAuthenticating) {
		return
	}
	m.session.CardPresent = true
	m.poller.Arm(presence.ModeMonitoring)
	m.effects.Play(effects.SoundCardInsert)
	m.effects.Render(enterPINScreen())
	m.record(journal.KindCardDetected, "card detected")
}

func (m *Machine) cardDisconnected() {
	m.session.CardPresent = false
	if m.coord.DeferDisconnect() {
		m.session.DisconnectDeferred = true
		m.logger.Info("card removed during purchase, disconnect deferred", m.sessionField())
		return
	}
	m.abandon("card removed")
}

// abandon ends the session after the card went away.
func (m *Machine) abandon(reason string) {
	m.record(journal.KindCardRemoved, reason)
	m.effects.Play(effects.SoundError)
	m.effects.Render(cardRemovedScreen())
	m.reset()
	m.poller.Arm(presence.ModeDetecting)

	id := m.session.ID
	if m.cfg.RemovalNoticeDelay <= 0 {
		m.effects.Render(waitingScreen())
		return
	}
	m.phaseTimer = m.clock.AfterFunc(m.cfg.RemovalNoticeDelay, func() {
		m.Dispatch(noticeElapsed{sessionID: id})
	})
}

func (m *Machine) onPINSubmitted(pin string) {
	if m.session.Phase != models.PhaseAuthenticating {
		m.logger.Warn("pin submitted outside authentication, ignored", zap.Stringer("phase", m.session.Phase))
		return
	}
	if m.pinPending {
		m.logger.Debug("pin verification already pending, submission ignored")
		return
	}
	m.effects.Play(effects.SoundButtonClick)

	if err := CheckPIN(pin); err != nil {
		m.session.PIN = ""
		m.effects.Play(effects.SoundError)
		m.effects.Render(pinErrorScreen(err.Error()))
		return
	}

	m.session.PIN = pin
	m.pinPending = true
	m.effects.Render(verifyingScreen())

	id, ctx, timeout := m.session.ID, m.sessionCtx, m.cfg.CallTimeout
	m.spawn(func() Event {
		callCtx, cancel := withTimeout(ctx, timeout)
		defer cancel()
		resp, err := m.cards.VerifyPIN(callCtx, pin)
		return pinVerified{sessionID: id, resp: resp, err: err}
	})
}

func (m *Machine) onPINVerified(e pinVerified) {
	if !m.isCurrent(e.sessionID, models.PhaseAuthenticating) {
		m.logger.Debug("stale pin verification dropped")
		return
	}
	m.pinPending = false

	if e.err != nil {
		m.logger.Warn("pin verification failed", m.sessionField(), zap.Error(e.err))
		m.rejectPIN("connection error")
		return
	}
	if !e.resp.Success {
		if e.resp.Disconnected {
			m.cardDisconnected()
			return
		}
		reason := e.resp.Error
		if reason == "" {
			reason = "invalid PIN"
		}
		m.rejectPIN(reason)
		return
	}

	if !m.enter(models.PhaseBrowsing) {
		return
	}
	m.session.BalanceMinorUnits = e.resp.Balance
	m.session.BalanceDisplay = e.resp.BalanceDisplay
	if m.session.BalanceDisplay == "" {
		m.session.BalanceDisplay = models.FormatMinorUnits(e.resp.Balance)
	}
	m.effects.Play(effects.SoundSuccess)
	m.effects.Render(welcomeScreen(m.session.BalanceDisplay))
	m.record(journal.KindPINAccepted, "balance "+m.session.BalanceDisplay)
}

func (m *Machine) rejectPIN(reason string) {
	m.session.PIN = ""
	m.effects.Play(effects.SoundError)
	m.effects.Render(pinErrorScreen(reason))
	m.record(journal.KindPINRejected, reason)
}

func (m *Machine) onItemSelected(itemID int) {
	if m.session.Phase != models.PhaseBrowsing {
		m.logger.Debug("item selected outside browsing, ignored", zap.Stringer("phase", m.session.Phase))
		return
	}
	if m.errorNotice {
		m.logger.Debug("item selected while purchase error is shown, ignored")
		return
	}
	item, ok := m.catalog.Lookup(itemID)
	if !ok {
		m.logger.Warn("unknown item selected", zap.Int("item_id", itemID))
		return
	}
	m.effects.Play(effects.SoundButtonClick)

	if err := transaction.CheckFunds(m.session.BalanceMinorUnits, item); err != nil {
		m.effects.Play(effects.SoundInsufficientFunds)
		m.effects.Render(insufficientScreen(item, m.session.BalanceMinorUnits))
		m.record(journal.KindInsufficientFunds, item.DisplayName)
		return
	}

	if !m.enter(models.PhaseConfirming) {
		return
	}
	m.session.SelectedItem = &item
	m.effects.Render(confirmingScreen(item))

	if m.cfg.ConfirmDelay <= 0 {
		m.beginPurchase()
		return
	}
	id := m.session.ID
	m.phaseTimer = m.clock.AfterFunc(m.cfg.ConfirmDelay, func() {
		m.Dispatch(confirmElapsed{sessionID: id})
	})
}

func (m *Machine) beginPurchase() {
	m.phaseTimer = nil
	item := *m.session.SelectedItem

	if err := m.coord.Begin(m.session.BalanceMinorUnits, item); err != nil {
		m.logger.Warn("purchase not started", m.sessionField(), zap.Error(err))
		if errors.Is(err, transaction.ErrInsufficientBalance) {
			m.session.Phase = models.PhaseBrowsing
			m.session.SelectedItem = nil
			m.effects.Play(effects.SoundInsufficientFunds)
			m.effects.Render(insufficientScreen(item, m.session.BalanceMinorUnits))
		}
		return
	}
	if !m.enter(models.PhasePurchasing) {
		m.coord.Abort()
		return
	}
	m.session.IsTransacting = true
	m.effects.Play(effects.SoundBrewingSequence)
	m.effects.Render(preparingScreen(item))
	m.record(journal.KindPurchaseStarted, item.DisplayName)

	id, ctx, pin := m.session.ID, m.sessionCtx, m.session.PIN
	timeout, brew := m.cfg.CallTimeout, m.cfg.MinBrewDuration
	started := m.clock.Now()
	m.spawn(func() Event {
		callCtx, cancel := withTimeout(ctx, timeout)
		outcome := m.coord.Submit(callCtx, item, pin)
		cancel()
		m.waitBrew(ctx, brew-m.clock.Now().Sub(started))
		return purchaseResolved{sessionID: id, outcome: outcome}
	})
}

// waitBrew holds the result until the brewing animation had time to play.
func (m *Machine) waitBrew(ctx context.Context, remaining time.Duration) {
	if remaining <= 0 {
		return
	}
	done := make(chan struct{})
	t := m.clock.AfterFunc(remaining, func() { close(done) })
	select {
	case <-done:
	case <-ctx.Done():
		t.Stop()
	}
}

func (m *Machine) onPurchaseResolved(e purchaseResolved) {
	if !m.isCurrent(e.sessionID, models.PhasePurchasing) {
		m.logger.Debug("stale purchase result dropped", zap.Stringer("outcome", e.outcome.Kind))
		return
	}

	resolution := m.coord.Finish(e.outcome)
	m.session.IsTransacting = false
	m.session.DisconnectDeferred = false
	item := *m.session.SelectedItem

	switch resolution {
	case transaction.ResolutionSettle:
		m.enter(models.PhaseSettled)
		m.session.BalanceMinorUnits = e.outcome.BalanceMinorUnits
		m.session.BalanceDisplay = e.outcome.BalanceDisplay
		m.effects.Play(effects.SoundSuccess)
		m.effects.Render(servedScreen(item, e.outcome.ItemName, e.outcome.BalanceDisplay))
		m.record(journal.KindPurchaseSettled, item.DisplayName+", balance "+e.outcome.BalanceDisplay)

		id := m.session.ID
		if m.cfg.SettleDelay <= 0 {
			m.resetToIdle()
			return
		}
		m.phaseTimer = m.clock.AfterFunc(m.cfg.SettleDelay, func() {
			m.Dispatch(settleElapsed{sessionID: id})
		})
	case transaction.ResolutionRevert:
		m.enter(models.PhaseBrowsing)
		m.session.SelectedItem = nil
		m.effects.Play(effects.SoundError)
		m.effects.Render(rejectedScreen(e.outcome.Reason, m.session.BalanceDisplay))
		m.record(journal.KindPurchaseRejected, e.outcome.Reason)
		if e.outcome.Transport && m.cfg.ErrorNoticeDelay > 0 {
			m.errorNotice = true
			id := m.session.ID
			m.phaseTimer = m.clock.AfterFunc(m.cfg.ErrorNoticeDelay, func() {
				m.Dispatch(errorNoticeElapsed{sessionID: id})
			})
		}
	case transaction.ResolutionReset:
		m.record(journal.KindPurchaseRejected, e.outcome.Reason)
		m.abandon("card removed during purchase")
	}
}

func (m *Machine) onCancel() {
	m.effects.Play(effects.SoundButtonClick)
	if m.session.Phase != models.PhaseWaitingForCard {
		m.record(journal.KindCancelled, "cancelled in "+m.session.Phase.String())
	}
	m.resetToIdle()
}

func (m *Machine) resetToIdle() {
	m.reset()
	m.poller.Arm(presence.ModeDetecting)
	m.effects.Render(waitingScreen())
}

// reset discards the session and everything scheduled for it. Polling is left to the caller.
func (m *Machine) reset() {
	from := m.session.Phase
	m.stopPhaseTimer()
	m.cancelSession()
	m.coord.Abort()
	m.debounce.Reset()
	m.pinPending = false
	m.errorNotice = false

	m.session = models.NewSession()
	m.sessionCtx, m.cancelSession = context.WithCancel(context.Background())
	m.logger.Info("session reset", zap.Stringer("from", from), m.sessionField())
}

// enter moves to phase if the transition table allows it.
func (m *Machine) enter(to models.Phase) bool {
	from := m.session.Phase
	for _, p := range allowed[from] {
		if p == to {
			m.session.Phase = to
			m.logger.Info("phase transition",
				zap.Stringer("from", from),
				zap.Stringer("to", to),
				m.sessionField())
			return true
		}
	}
	m.logger.Error("illegal phase transition", zap.Stringer("from", from), zap.Stringer("to", to))
	return false
}

func (m *Machine) isCurrent(id uuid.UUID, phase models.Phase) bool {
	return m.session.ID == id && m.session.Phase == phase
}

func (m *Machine) stopPhaseTimer() {
	if m.phaseTimer != nil {
		m.phaseTimer.Stop()
		m.phaseTimer = nil
	}
}

func (m *Machine) record(kind journal.Kind, msg string) {
	m.journal.Record(journal.Entry{
		SessionID: m.session.ID.String(),
		Kind:      kind,
		Message:   msg,
	})
}

func (m *Machine) sessionField() zap.Field {
	return zap.String("session_id", m.session.ID.String())
}

// CheckPIN validates the PIN format locally.
func CheckPIN(pin string) error {
	if len(pin) != pinLength {
		return ErrInvalidPIN
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return ErrInvalidPIN
		}
	}
	return nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
