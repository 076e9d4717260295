package api

import (
	"net/http"

	"github.com/ayusman/mudra/internal/app"
)

type transcriptRequest struct {
	Text    string `json:"text"`
	IsFinal bool   `json:"isFinal"`
}

// TranscriptHandler accepts speech recognizer results over HTTP.
type TranscriptHandler struct {
	engine Engine
}

// NewTranscriptHandler creates a TranscriptHandler.
func NewTranscriptHandler(engine Engine) *TranscriptHandler {
	return &TranscriptHandler{engine: engine}
}

// ServeHTTP handles POST /api/transcripts.
func (h *TranscriptHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.engine.Running(app.ModalityVoice) {
		writeError(w, http.StatusConflict, "Voice recognition is not running")
		return
	}

	var req transcriptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.engine.OnTranscript(req.Text, req.IsFinal)
	writeJSON(w, http.StatusAccepted, h.engine.Snapshot().Voice)
}
