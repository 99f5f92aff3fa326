package effects

import (
	"go.uber.org/zap"

	"vendkiosk/backend/services/kiosk/internal/models"
)

// ScreenKind names a display layout.
type ScreenKind string

const (
	ScreenWaitingForCard    ScreenKind = "waiting_for_card"
	ScreenEnterPIN          ScreenKind = "enter_pin"
	ScreenVerifyingPIN      ScreenKind = "verifying_pin"
	ScreenPINError          ScreenKind = "pin_error"
	ScreenWelcome           ScreenKind = "welcome"
	ScreenInsufficientFunds ScreenKind = "insufficient_funds"
	ScreenConfirming        ScreenKind = "confirming"
	ScreenPreparing         ScreenKind = "preparing"
	ScreenServed            ScreenKind = "served"
	ScreenRejected          ScreenKind = "rejected"
	ScreenCardRemoved       ScreenKind = "card_removed"
)

// Screen is the content the display should show. Layout is up to the display.
type Screen struct {
	Kind      ScreenKind      `json:"kind"`
	Title     string          `json:"title"`
	Message   string          `json:"message,omitempty"`
	Balance   string          `json:"balance,omitempty"`
	Item      *models.ItemRef `json:"item,omitempty"`
	Price     string          `json:"price,omitempty"`
	Shortfall string          `json:"shortfall,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Sound names an audio cue.
type Sound string

const (
	SoundCardInsert        Sound = "cardInsert"
	SoundSuccess           Sound = "success"
	SoundError             Sound = "error"
	SoundInsufficientFunds Sound = "insufficientFunds"
	SoundButtonClick       Sound = "buttonClick"
	SoundBrewingSequence   Sound = "brewingSequence"
)

// Emitter consumes render and sound intents. Implementations must not block
// and must not call back into the session machine.
type Emitter interface {
	Render(Screen)
	Play(Sound)
}

// Fanout forwards intents to every emitter in order.
type Fanout []Emitter

// Render implements Emitter.
func (f Fanout) Render(s Screen) {
	for _, e := range f {
		e.Render(s)
	}
}

// Play implements Emitter.
func (f Fanout) Play(s Sound) {
	for _, e := range f {
		e.Play(s)
	}
}

// LogEmitter records intents in the service log.
type LogEmitter struct {
	Logger *zap.Logger
}

// Render implements Emitter.
func (l LogEmitter) Render(s Screen) {
	l.Logger.Debug("render", zap.String("screen", string(s.Kind)), zap.String("title", s.Title))
}

// Play implements Emitter.
func (l LogEmitter) Play(s Sound) {
	l.Logger.Debug("sound", zap.String("sound", string(s)))
}
