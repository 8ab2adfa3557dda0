// Package transport is the relay's network edge: the websocket connection
// manager and the administrative HTTP endpoints.
package transport

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mattfrayser/whiteboard-relay/internal/config"
	"github.com/mattfrayser/whiteboard-relay/internal/middleware"
)

// NewRouter wires the websocket endpoint and the admin API.
func NewRouter(api *API, manager *Manager, cfg config.Config) http.Handler {
	r := mux.NewRouter()

	// websocket connections live for hours; they are logged by the manager
	r.HandleFunc("/ws", manager.HandleWebSocket).Methods(http.MethodGet)

	admin := r.NewRoute().Subrouter()
	admin.Use(middleware.WithLogging)
	admin.HandleFunc("/health", api.Health).Methods(http.MethodGet)
	admin.HandleFunc("/create", api.CreateBoard).Methods(http.MethodPost)
	admin.HandleFunc("/create-custom", api.CreateCustomBoard).Methods(http.MethodPost)
	admin.HandleFunc("/boards/{id}", api.GetBoard).Methods(http.MethodGet)

	return middleware.WithCORS(cfg.OriginAllowed)(r)
}
