package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vendkiosk/backend/services/kiosk/internal/http/handlers"
	"vendkiosk/backend/services/kiosk/internal/journal"
	"vendkiosk/backend/services/kiosk/internal/models"
)

type stubSession struct{}

func (stubSession) Snapshot() models.Session {
	s := models.NewSession()
	s.Phase = models.PhaseBrowsing
	s.PIN = "1234"
	s.BalanceMinorUnits = 50
	return s
}

func (stubSession) Catalog() []models.ItemRef {
	return []models.ItemRef{{ID: 1, DisplayName: "Coffee", PriceMinorUnits: 20}}
}

type stubDisplays int

func (d stubDisplays) Count() int { return int(d) }

func newTestRouter(t *testing.T) (http.Handler, *journal.Memory) {
	t.Helper()
	j := journal.NewMemory(20)
	status := handlers.NewStatusHandlers(stubSession{}, j, stubDisplays(2), zap.NewNop())
	return NewRouter(RouterDeps{
		Status:    status,
		DisplayWS: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) },
	}), j
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthReportsPhaseAndDisplays(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := get(t, h, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "browsing", body["phase"])
	assert.EqualValues(t, 2, body["displays"])
}

func TestSessionNeverExposesPIN(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := get(t, h, "/api/session")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "1234")
	assert.Contains(t, rec.Body.String(), `"balance_minor_units":50`)
}

func TestActivityHonorsLimit(t *testing.T) {
	h, j := newTestRouter(t)
	j.Record(journal.Entry{Kind: journal.KindCardDetected, Message: "first"})
	j.Record(journal.Entry{Kind: journal.KindPINAccepted, Message: "second"})

	rec := get(t, h, "/activity?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Entries []journal.Entry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Entries, 1)
	assert.Equal(t, "second", body.Entries[0].Message)

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/activity?limit=zero").Code)
}

func TestActivityEmptyJournalReturnsEmptyList(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := get(t, h, "/activity")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"entries":[]}`, rec.Body.String())
}

func TestRoutesRejectWrongMethod(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/catalog", nil).WithContext(context.Background()))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
