package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	libhttp "vendkiosk/backend/libs/httpserver"
	"vendkiosk/backend/services/kiosk/internal/journal"
	"vendkiosk/backend/services/kiosk/internal/models"
)

const defaultActivityLimit = 20

// SessionReader exposes the machine state read-only.
type SessionReader interface {
	Snapshot() models.Session
	Catalog() []models.ItemRef
}

// DisplayCounter reports attached displays.
type DisplayCounter interface {
	Count() int
}

// StatusHandlers serves operator endpoints.
type StatusHandlers struct {
	session  SessionReader
	journal  journal.Journal
	displays DisplayCounter
	logger   *zap.Logger
}

// NewStatusHandlers constructs handler set.
func NewStatusHandlers(session SessionReader, j journal.Journal, displays DisplayCounter, logger *zap.Logger) *StatusHandlers {
	return &StatusHandlers{session: session, journal: j, displays: displays, logger: logger}
}

type healthResponse struct {
	Status   string       `json:"status"`
	Phase    models.Phase `json:"phase"`
	Displays int          `json:"displays"`
}

// Health handles GET /health.
func (h *StatusHandlers) Health(w http.ResponseWriter, r *http.Request) {
	libhttp.WriteJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Phase:    h.session.Snapshot().Phase,
		Displays: h.displays.Count(),
	})
}

// Session handles GET /api/session.
func (h *StatusHandlers) Session(w http.ResponseWriter, r *http.Request) {
	libhttp.WriteJSON(w, http.StatusOK, h.session.Snapshot())
}

// Catalog handles GET /api/catalog.
func (h *StatusHandlers) Catalog(w http.ResponseWriter, r *http.Request) {
	libhttp.WriteJSON(w, http.StatusOK, map[string]interface{}{"items": h.session.Catalog()})
}

// Activity handles GET /activity?limit=n.
func (h *StatusHandlers) Activity(w http.ResponseWriter, r *http.Request) {
	limit := defaultActivityLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			libhttp.WriteError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := h.journal.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to read activity", zap.Error(err))
		libhttp.WriteError(w, http.StatusBadGateway, "activity unavailable")
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	libhttp.WriteJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}
