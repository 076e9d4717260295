package api

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/store"
)

// SessionHandler reports engine state and starts or stops modalities.
type SessionHandler struct {
	engine Engine
	store  *store.Store
	logger *zap.Logger
}

// NewSessionHandler creates a SessionHandler. When s is non-nil the enabled
// modalities are persisted as settings.
func NewSessionHandler(engine Engine, s *store.Store, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{engine: engine, store: s, logger: logger}
}

// ServeHTTP routes GET /api/session and POST /api/session/{modality}/{start|stop}.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/session")
	path = strings.Trim(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, h.engine.Snapshot())
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name, verb, ok := strings.Cut(path, "/")
	if !ok {
		writeError(w, http.StatusNotFound, "Expected /api/session/{modality}/{start|stop}")
		return
	}
	m, err := app.ParseModality(name)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	switch verb {
	case "start":
		h.start(w, m)
	case "stop":
		h.stop(w, m)
	default:
		writeError(w, http.StatusNotFound, "Unknown session operation")
	}
}

func (h *SessionHandler) start(w http.ResponseWriter, m app.Modality) {
	if err := h.engine.Start(m); err != nil {
		switch {
		case errors.Is(err, app.ErrModelUnavailable), errors.Is(err, app.ErrSpeechUnsupported):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "Failed to start "+string(m))
		}
		return
	}
	h.persist(m, true)
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

func (h *SessionHandler) stop(w http.ResponseWriter, m app.Modality) {
	if err := h.engine.Stop(m); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to stop "+string(m))
		return
	}
	h.persist(m, false)
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

func (h *SessionHandler) persist(m app.Modality, enabled bool) {
	if h.store == nil {
		return
	}
	if err := h.store.Settings().SetBool(SettingFor(m), enabled); err != nil {
		h.logger.Warn("persist modality setting", zap.String("modality", string(m)), zap.Error(err))
	}
}

// SettingFor returns the settings key that records whether m is enabled.
func SettingFor(m app.Modality) string {
	if m == app.ModalityVoice {
		return store.SettingVoiceEnabled
	}
	return store.SettingGestureEnabled
}
