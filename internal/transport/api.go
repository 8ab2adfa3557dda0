package transport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mattfrayser/whiteboard-relay/internal/board"
	"github.com/mattfrayser/whiteboard-relay/internal/protocol"
)

// API is the administrative HTTP surface over the board registry.
type API struct {
	registry *board.Registry
	conns    interface{ Count() int }
}

func NewAPI(registry *board.Registry, conns interface{ Count() int }) *API {
	return &API{
		registry: registry,
		conns:    conns,
	}
}

type boardResponse struct {
	BoardID string `json:"boardId"`
}

type createCustomRequest struct {
	CustomID string `json:"customId" validate:"required"`
}

type boardStats struct {
	BoardID  string `json:"boardId"`
	Sessions int    `json:"sessions"`
	Elements int    `json:"elements"`
}

// CreateBoard: POST /create
func (a *API) CreateBoard(w http.ResponseWriter, r *http.Request) {
	b, err := a.registry.Create("")
	if err != nil {
		slog.Error("create board", "err", err)
		writeError(w, http.StatusInternalServerError, "could not create board")
		return
	}
	writeJSON(w, http.StatusOK, boardResponse{BoardID: b.ID()})
}

// CreateCustomBoard: POST /create-custom {customId}
func (a *API) CreateCustomBoard(w http.ResponseWriter, r *http.Request) {
	var req createCustomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := protocol.Validate(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	b, err := a.registry.Create(req.CustomID)
	switch {
	case errors.Is(err, board.ErrAlreadyExists):
		writeError(w, http.StatusBadRequest, "board id already taken")
		return
	case errors.Is(err, board.ErrInvalidID):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		slog.Error("create custom board", "board", req.CustomID, "err", err)
		writeError(w, http.StatusInternalServerError, "could not create board")
		return
	}
	writeJSON(w, http.StatusOK, boardResponse{BoardID: b.ID()})
}

// GetBoard: GET /boards/{id}
func (a *API) GetBoard(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	b, ok := a.registry.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "board not found")
		return
	}
	writeJSON(w, http.StatusOK, boardStats{
		BoardID:  b.ID(),
		Sessions: b.SessionCount(),
		Elements: b.ElementCount(),
	})
}

// Health: GET /health
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"boards":   a.registry.Count(),
		"sessions": a.conns.Count(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
