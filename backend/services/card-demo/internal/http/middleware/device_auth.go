package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"vendkiosk/backend/libs/devicetoken"
)

type contextKey string

const kioskIDKey contextKey = "kioskID"

// DeviceAuthMiddleware validates kiosk device tokens. An empty secret disables the check.
func DeviceAuthMiddleware(secret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				http.Error(w, "invalid authorization header", http.StatusUnauthorized)
				return
			}
			claims, err := devicetoken.Validate(strings.TrimSpace(parts[1]), secret)
			if err != nil {
				logger.Warn("rejected device token", zap.String("path", r.URL.Path), zap.Error(err))
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), kioskIDKey, claims.KioskID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// KioskIDFromContext retrieves the authenticated kiosk id.
func KioskIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(kioskIDKey).(string)
	return id, ok && id != ""
}
