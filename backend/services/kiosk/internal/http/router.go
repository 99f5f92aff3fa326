package httpserver

import (
	"net/http"

	libhttp "vendkiosk/backend/libs/httpserver"
	"vendkiosk/backend/services/kiosk/internal/http/handlers"
)

// RouterDeps collects handler dependencies.
type RouterDeps struct {
	Status    *handlers.StatusHandlers
	DisplayWS http.HandlerFunc
}

// NewRouter wires HTTP routes.
func NewRouter(deps RouterDeps) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/health", libhttp.Method(http.MethodGet, http.HandlerFunc(deps.Status.Health)))
	mux.Handle("/api/session", libhttp.Method(http.MethodGet, http.HandlerFunc(deps.Status.Session)))
	mux.Handle("/api/catalog", libhttp.Method(http.MethodGet, http.HandlerFunc(deps.Status.Catalog)))
	mux.Handle("/activity", libhttp.Method(http.MethodGet, http.HandlerFunc(deps.Status.Activity)))
	mux.Handle("/display/ws", libhttp.Method(http.MethodGet, deps.DisplayWS))

	return mux
}
