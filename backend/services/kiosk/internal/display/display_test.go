package display

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vendkiosk/backend/services/kiosk/internal/effects"
	"vendkiosk/backend/services/kiosk/internal/models"
)

type recordedActions struct {
	mu      sync.Mutex
	pins    []string
	items   []int
	cancels int
}

func (r *recordedActions) SubmitPIN(pin string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pins = append(r.pins, pin)
}

func (r *recordedActions) SelectItem(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, id)
}

func (r *recordedActions) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancels++
}

func (r *recordedActions) snapshot() ([]string, []int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.pins...), append([]int(nil), r.items...), r.cancels
}

func setup(t *testing.T) (*Hub, *recordedActions, string) {
	t.Helper()
	logger := zap.NewNop()
	hub := NewHub([]models.ItemRef{{ID: 1, DisplayName: "Coffee", PriceMinorUnits: 20}}, logger)
	actions := &recordedActions{}
	srv := NewServer(hub, NewActionRouter(actions, logger), time.Second, logger)

	ts := httptest.NewServer(http.HandlerFunc(srv.HandleWS))
	t.Cleanup(ts.Close)
	return hub, actions, "ws" + strings.TrimPrefix(ts.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var f Frame
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

func TestDisplayReceivesCatalogThenBroadcasts(t *testing.T) {
	hub, _, url := setup(t)
	conn := dial(t, url)

	catalog := readFrame(t, conn)
	assert.Equal(t, FrameCatalog, catalog.Type)
	require.Len(t, catalog.Items, 1)
	assert.Equal(t, "Coffee", catalog.Items[0].DisplayName)

	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 10*time.Millisecond)
	hub.Render(effects.Screen{Kind: effects.ScreenEnterPIN, Title: "Card detected"})
	hub.Play(effects.SoundCardInsert)

	render := readFrame(t, conn)
	assert.Equal(t, FrameRender, render.Type)
	require.NotNil(t, render.Screen)
	assert.Equal(t, effects.ScreenEnterPIN, render.Screen.Kind)

	sound := readFrame(t, conn)
	assert.Equal(t, FrameSound, sound.Type)
	assert.Equal(t, effects.SoundCardInsert, sound.Sound)
}

func TestLateDisplayGetsLastScreen(t *testing.T) {
	hub, _, url := setup(t)
	hub.Render(effects.Screen{Kind: effects.ScreenWelcome, Balance: "0.50"})

	conn := dial(t, url)
	assert.Equal(t, FrameCatalog, readFrame(t, conn).Type)
	last := readFrame(t, conn)
	require.NotNil(t, last.Screen)
	assert.Equal(t, effects.ScreenWelcome, last.Screen.Kind)
	assert.Equal(t, "0.50", last.Screen.Balance)
}

func TestDisplayActionsReachHandler(t *testing.T) {
	_, actions, url := setup(t)
	conn := dial(t, url)
	readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(Action{Type: ActionSubmitPIN, PIN: "1234"}))
	require.NoError(t, conn.WriteJSON(Action{Type: ActionSelectItem, ItemID: 1}))
	require.NoError(t, conn.WriteJSON(Action{Type: ActionCancel}))

	require.Eventually(t, func() bool {
		_, _, cancels := actions.snapshot()
		return cancels == 1
	}, 2*time.Second, 10*time.Millisecond)
	pins, items, _ := actions.snapshot()
	assert.Equal(t, []string{"1234"}, pins)
	assert.Equal(t, []int{1}, items)
}

func TestUnknownActionGetsErrorFrame(t *testing.T) {
	_, _, url := setup(t)
	conn := dial(t, url)
	readFrame(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"dance"}`)))
	reply := readFrame(t, conn)
	assert.Equal(t, FrameError, reply.Type)
	assert.Equal(t, "unknown action", reply.Error)
}

func TestHubForgetsClosedDisplay(t *testing.T) {
	hub, _, url := setup(t)
	conn := dial(t, url)
	readFrame(t, conn)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestReconnectingDisplayClosesPreviousSocket(t *testing.T) {
	hub, actions, url := setup(t)
	first := dial(t, url+"?display_id=front")
	readFrame(t, first)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 10*time.Millisecond)

	second := dial(t, url+"?display_id=front")
	readFrame(t, second)

	require.NoError(t, first.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := first.ReadMessage()
	require.Error(t, err)
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		assert.False(t, netErr.Timeout(), "previous socket should be closed, not left idle")
	}
	_ = first.WriteJSON(Action{Type: ActionCancel})

	hub.Render(effects.Screen{Kind: effects.ScreenWelcome})
	assert.Equal(t, FrameRender, readFrame(t, second).Type)
	assert.Equal(t, 1, hub.Count())

	require.NoError(t, second.WriteJSON(Action{Type: ActionSubmitPIN, PIN: "4321"}))
	require.Eventually(t, func() bool {
		pins, _, _ := actions.snapshot()
		return len(pins) == 1
	}, 2*time.Second, 10*time.Millisecond)
	_, _, cancels := actions.snapshot()
	assert.Zero(t, cancels)
}
