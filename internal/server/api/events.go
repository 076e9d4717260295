package api

import (
	"net/http"
	"strconv"

	"github.com/ayusman/mudra/internal/command"
	"github.com/ayusman/mudra/internal/store"
)

type listEventsResponse struct {
	Events []command.Event `json:"events"`
	Total  int             `json:"total"`
}

// EventHandler serves the command event history.
type EventHandler struct {
	store *store.Store
}

// NewEventHandler creates an EventHandler.
func NewEventHandler(s *store.Store) *EventHandler {
	return &EventHandler{store: s}
}

// ServeHTTP handles GET /api/events?limit=&offset= and DELETE /api/events.
func (h *EventHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodDelete:
		h.clear(w)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *EventHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	if limit <= 0 || limit > 500 || offset < 0 {
		writeError(w, http.StatusBadRequest, "Invalid limit or offset")
		return
	}

	events, err := h.store.Events().List(limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}
	total, err := h.store.Events().Count()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count events")
		return
	}

	writeJSON(w, http.StatusOK, listEventsResponse{Events: events, Total: total})
}

func (h *EventHandler) clear(w http.ResponseWriter) {
	if _, err := h.store.Events().Clear(); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to clear events")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}
