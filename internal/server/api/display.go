package api

import (
	"net/http"

	"github.com/ayusman/mudra/internal/feedback"
)

// DisplayHandler serves the response currently on screen.
type DisplayHandler struct {
	display *feedback.Display
}

// NewDisplayHandler creates a DisplayHandler.
func NewDisplayHandler(d *feedback.Display) *DisplayHandler {
	return &DisplayHandler{display: d}
}

// ServeHTTP handles GET /api/display. It returns 204 when nothing is shown.
func (h *DisplayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	e, ok := h.display.Current()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, e)
}
