package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vendkiosk/backend/libs/devicetoken"
)

func protected(secret string) (http.Handler, *string) {
	var seen string
	h := DeviceAuthMiddleware(secret, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = KioskIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	return h, &seen
}

func call(h http.Handler, authorization string) int {
	req := httptest.NewRequest(http.MethodPost, "/api/check_card", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestDeviceAuthAcceptsValidToken(t *testing.T) {
	issuer, err := devicetoken.NewIssuer("kiosk-7", "s3cret", time.Minute)
	require.NoError(t, err)
	token, err := issuer.Token()
	require.NoError(t, err)

	h, seen := protected("s3cret")
	assert.Equal(t, http.StatusNoContent, call(h, "Bearer "+token))
	assert.Equal(t, "kiosk-7", *seen)
}

func TestDeviceAuthRejectsMissingOrForeignTokens(t *testing.T) {
	issuer, err := devicetoken.NewIssuer("kiosk-7", "other", time.Minute)
	require.NoError(t, err)
	foreign, err := issuer.Token()
	require.NoError(t, err)

	h, _ := protected("s3cret")
	assert.Equal(t, http.StatusUnauthorized, call(h, ""))
	assert.Equal(t, http.StatusUnauthorized, call(h, "Basic abc"))
	assert.Equal(t, http.StatusUnauthorized, call(h, "Bearer "+foreign))
}

func TestDeviceAuthDisabledWithoutSecret(t *testing.T) {
	h, seen := protected("")
	assert.Equal(t, http.StatusNoContent, call(h, ""))
	assert.Empty(t, *seen)
}
