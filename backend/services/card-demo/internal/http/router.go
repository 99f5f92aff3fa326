package httpserver

import (
	"net/http"

	libhttp "vendkiosk/backend/libs/httpserver"
	"vendkiosk/backend/services/card-demo/internal/http/handlers"
)

// RouterDeps collects handler dependencies.
type RouterDeps struct {
	Card *handlers.CardHandlers
	Demo *handlers.DemoHandlers
}

// NewRouter wires HTTP routes. deviceAuth guards the kiosk-facing card API.
func NewRouter(deps RouterDeps, deviceAuth func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/health", libhttp.Method(http.MethodGet, http.HandlerFunc(deps.Demo.Health)))

	authenticated := func(handler http.HandlerFunc) http.Handler {
		return libhttp.Chain(handler, deviceAuth)
	}
	mux.Handle("/api/check_card", libhttp.Method(http.MethodPost, authenticated(deps.Card.CheckCard)))
	mux.Handle("/api/verify_pin", libhttp.Method(http.MethodPost, authenticated(deps.Card.VerifyPIN)))
	mux.Handle("/api/acheter_boisson", libhttp.Method(http.MethodPost, authenticated(deps.Card.Purchase)))

	mux.Handle("/api/card/insert", libhttp.Method(http.MethodPost, http.HandlerFunc(deps.Demo.Insert)))
	mux.Handle("/api/card/remove", libhttp.Method(http.MethodPost, http.HandlerFunc(deps.Demo.Remove)))
	mux.Handle("/api/card/unpower", libhttp.Method(http.MethodPost, http.HandlerFunc(deps.Demo.Unpower)))
	mux.Handle("/api/get_logs", libhttp.Method(http.MethodGet, http.HandlerFunc(deps.Demo.Logs)))
	mux.Handle("/api/reset_demo", libhttp.Method(http.MethodPost, http.HandlerFunc(deps.Demo.Reset)))

	return mux
}
