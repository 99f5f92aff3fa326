package card

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrAbsent means no card sits in the reader.
	ErrAbsent = errors.New("card: no card in reader")
	// ErrDisconnected means the card lost power mid-session.
	ErrDisconnected = errors.New("card: disconnected")
	// ErrPINFormat rejects anything but four digits.
	ErrPINFormat = errors.New("card: PIN must be 4 digits")
	// ErrPINIncorrect is wrapped with the remaining attempts.
	ErrPINIncorrect = errors.New("card: incorrect PIN")
	// ErrPINBlocked means the attempts are exhausted until the card is reset.
	ErrPINBlocked = errors.New("card: PIN blocked")
	// ErrInsufficientBalance is returned by Debit when the balance cannot cover the amount.
	ErrInsufficientBalance = errors.New("card: insufficient balance")
)

// PINError reports a wrong PIN with the attempts still allowed.
type PINError struct {
	Remaining int
}

func (e *PINError) Error() string {
	return fmt.Sprintf("card: incorrect PIN, %d attempt(s) left", e.Remaining)
}

// Is makes errors.Is(err, ErrPINIncorrect) match.
func (e *PINError) Is(target error) bool {
	return target == ErrPINIncorrect
}

// State is the reader view of the card.
type State int

const (
	StateAbsent State = iota
	StatePresent
	StateUnpowered
)

func (s State) String() string {
	switch s {
	case StatePresent:
		return "present"
	case StateUnpowered:
		return "unpowered"
	default:
		return "absent"
	}
}

// Config is the factory state of the demo card.
type Config struct {
	BalanceMinorUnits int
	PIN               string
	StudentNumber     string
	MaxPINAttempts    int
}

// Receipt describes a completed debit.
type Receipt struct {
	Counter           uint32
	NewBalanceMinor   int
	StudentNumber     string
	DebitedMinorUnits int
}

// Card is an in-memory stand-in for the smart card and its reader.
type Card struct {
	cfg     Config
	hasher  PINHasher
	pinHash string
	log     *Log
	logger  *zap.Logger

	mu           sync.Mutex
	state        State
	balance      int
	counter      uint32
	attemptsLeft int
}

// New hashes the PIN and returns a card in its factory state, outside the reader.
func New(cfg Config, hasher PINHasher, log *Log, logger *zap.Logger) (*Card, error) {
	if !validPIN(cfg.PIN) {
		return nil, ErrPINFormat
	}
	if cfg.BalanceMinorUnits < 0 {
		return nil, errors.New("card: negative balance")
	}
	if cfg.MaxPINAttempts <= 0 {
		cfg.MaxPINAttempts = 3
	}
	hash, err := hasher.Hash(cfg.PIN)
	if err != nil {
		return nil, fmt.Errorf("card: hash pin: %w", err)
	}
	c := &Card{
		cfg:     cfg,
		hasher:  hasher,
		pinHash: hash,
		log:     log,
		logger:  logger,
	}
	c.resetLocked()
	return c, nil
}

// Insert puts the card in the reader.
func (c *Card) Insert() {
	c.setState(StatePresent, "card inserted")
}

// Remove takes the card out of the reader.
func (c *Card) Remove() {
	c.setState(StateAbsent, "card removed")
}

// Unpower simulates a card that stops answering while still seated.
func (c *Card) Unpower() {
	c.setState(StateUnpowered, "card unpowered")
}

// State returns the reader state.
func (c *Card) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Check reports whether the card can be talked to.
func (c *Card) Check() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reachableLocked()
}

// VerifyPIN checks pin and returns the balance.
func (c *Card) VerifyPIN(pin string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.verifyLocked(pin); err != nil {
		return 0, err
	}
	c.log.Add("PIN verified, balance %s", formatMinor(c.balance))
	return c.balance, nil
}

// Debit verifies pin and takes amount off the balance, bumping the anti-replay counter.
func (c *Card) Debit(pin string, amount int) (Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if amount <= 0 {
		return Receipt{}, fmt.Errorf("card: invalid amount %d", amount)
	}
	if err := c.verifyLocked(pin); err != nil {
		return Receipt{}, err
	}
	if c.balance < amount {
		c.log.Add("insufficient balance: %s < %s", formatMinor(c.balance), formatMinor(amount))
		return Receipt{}, fmt.Errorf("%w (%s)", ErrInsufficientBalance, formatMinor(c.balance))
	}

	c.counter++
	c.balance -= amount
	c.log.Add("debit %s, counter %d, new balance %s", formatMinor(amount), c.counter, formatMinor(c.balance))
	return Receipt{
		Counter:           c.counter,
		NewBalanceMinor:   c.balance,
		StudentNumber:     c.cfg.StudentNumber,
		DebitedMinorUnits: amount,
	}, nil
}

// Reset restores the factory balance, counter and PIN attempts and ejects the card.
func (c *Card) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
	c.log.Add("card reset to %s", formatMinor(c.balance))
	c.logger.Info("demo card reset")
}

// Logs returns the last n log lines.
func (c *Card) Logs(n int) []string {
	return c.log.Tail(n)
}

func (c *Card) setState(s State, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == s {
		return
	}
	c.state = s
	c.log.Add("%s", msg)
	c.logger.Info(msg, zap.Stringer("state", s))
}

func (c *Card) reachableLocked() error {
	switch c.state {
	case StatePresent:
		return nil
	case StateUnpowered:
		return ErrDisconnected
	default:
		return ErrAbsent
	}
}

func (c *Card) verifyLocked(pin string) error {
	if !validPIN(pin) {
		return ErrPINFormat
	}
	if err := c.reachableLocked(); err != nil {
		return err
	}
	if c.attemptsLeft == 0 {
		return ErrPINBlocked
	}
	if err := c.hasher.Compare(c.pinHash, pin); err != nil {
		c.attemptsLeft--
		c.log.Add("incorrect PIN, %d attempt(s) left", c.attemptsLeft)
		if c.attemptsLeft == 0 {
			return ErrPINBlocked
		}
		return &PINError{Remaining: c.attemptsLeft}
	}
	c.attemptsLeft = c.cfg.MaxPINAttempts
	return nil
}

func (c *Card) resetLocked() {
	c.state = StateAbsent
	c.balance = c.cfg.BalanceMinorUnits
	c.counter = 0
	c.attemptsLeft = c.cfg.MaxPINAttempts
}

func validPIN(pin string) bool {
	if len(pin) != 4 {
		return false
	}
	return strings.Trim(pin, "0123456789") == ""
}

func formatMinor(v int) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}
