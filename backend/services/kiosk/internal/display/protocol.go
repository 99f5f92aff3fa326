package display

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"vendkiosk/backend/services/kiosk/internal/effects"
	"vendkiosk/backend/services/kiosk/internal/models"
)

// Frame types sent to displays.
const (
	FrameRender  = "render"
	FrameSound   = "sound"
	FrameCatalog = "catalog"
	FrameError   = "error"
)

// Action types received from displays.
const (
	ActionSubmitPIN  = "submit_pin"
	ActionSelectItem = "select_item"
	ActionCancel     = "cancel"
)

// Frame is one outbound message.
type Frame struct {
	Type   string           `json:"type"`
	Screen *effects.Screen  `json:"screen,omitempty"`
	Sound  effects.Sound    `json:"sound,omitempty"`
	Items  []models.ItemRef `json:"items,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// Action is one inbound user input.
type Action struct {
	Type   string `json:"type"`
	PIN    string `json:"pin,omitempty"`
	ItemID int    `json:"item_id,omitempty"`
}

// ActionHandler receives user input from any display.
type ActionHandler interface {
	SubmitPIN(pin string)
	SelectItem(itemID int)
	Cancel()
}

// MessageProcessor handles raw inbound display messages and may return a reply.
type MessageProcessor interface {
	Process(ctx context.Context, displayID string, raw []byte) ([]byte, error)
}

// ActionRouter decodes actions and forwards them to the handler.
type ActionRouter struct {
	handler ActionHandler
	logger  *zap.Logger
}

// NewActionRouter returns a router for handler.
func NewActionRouter(handler ActionHandler, logger *zap.Logger) *ActionRouter {
	return &ActionRouter{handler: handler, logger: logger}
}

// Process implements MessageProcessor. Bad input gets an error frame back.
func (r *ActionRouter) Process(_ context.Context, displayID string, raw []byte) ([]byte, error) {
	var action Action
	if err := json.Unmarshal(raw, &action); err != nil {
		return errorFrame("malformed message"), fmt.Errorf("display %s: decode action: %w", displayID, err)
	}

	switch action.Type {
	case ActionSubmitPIN:
		r.handler.SubmitPIN(strings.TrimSpace(action.PIN))
	case ActionSelectItem:
		if action.ItemID <= 0 {
			return errorFrame("item_id is required"), errors.New("select_item without item_id")
		}
		r.handler.SelectItem(action.ItemID)
	case ActionCancel:
		r.handler.Cancel()
	default:
		return errorFrame("unknown action"), fmt.Errorf("display %s: unknown action %q", displayID, action.Type)
	}

	r.logger.Debug("display action", zap.String("display_id", displayID), zap.String("action", action.Type))
	return nil, nil
}

func errorFrame(msg string) []byte {
	data, _ := json.Marshal(Frame{Type: FrameError, Error: msg})
	return data
}
