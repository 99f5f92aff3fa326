package handlers

import (
	"net/http"

	libhttp "vendkiosk/backend/libs/httpserver"
	"vendkiosk/backend/services/card-demo/internal/card"
)

const logTail = 20

// Reader is the simulated reader controlled by the demo operator.
type Reader interface {
	Insert()
	Remove()
	Unpower()
	State() card.State
	Reset()
	Logs(n int) []string
}

// DemoHandlers serves operator controls for the simulated card.
type DemoHandlers struct {
	reader Reader
}

// NewDemoHandlers constructs handler set.
func NewDemoHandlers(reader Reader) *DemoHandlers {
	return &DemoHandlers{reader: reader}
}

// Insert handles POST /api/card/insert.
func (h *DemoHandlers) Insert(w http.ResponseWriter, r *http.Request) {
	h.reader.Insert()
	h.writeState(w)
}

// Remove handles POST /api/card/remove.
func (h *DemoHandlers) Remove(w http.ResponseWriter, r *http.Request) {
	h.reader.Remove()
	h.writeState(w)
}

// Unpower handles POST /api/card/unpower.
func (h *DemoHandlers) Unpower(w http.ResponseWriter, r *http.Request) {
	h.reader.Unpower()
	h.writeState(w)
}

// Logs handles GET /api/get_logs.
func (h *DemoHandlers) Logs(w http.ResponseWriter, r *http.Request) {
	libhttp.WriteJSON(w, http.StatusOK, map[string]interface{}{"logs": h.reader.Logs(logTail)})
}

// Reset handles POST /api/reset_demo.
func (h *DemoHandlers) Reset(w http.ResponseWriter, r *http.Request) {
	h.reader.Reset()
	libhttp.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Card reset"})
}

// Health handles GET /health.
func (h *DemoHandlers) Health(w http.ResponseWriter, r *http.Request) {
	libhttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "card": h.reader.State().String()})
}

func (h *DemoHandlers) writeState(w http.ResponseWriter) {
	libhttp.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "state": h.reader.State().String()})
}
