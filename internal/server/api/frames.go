package api

import (
	"net/http"
	"time"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/detector"
)

// Frame is the wire form of one landmark sample. Landmarks must hold exactly
// 21 points; anything else is treated as no hand.
type Frame struct {
	// Timestamp is in Unix milliseconds; zero means now.
	Timestamp  int64               `json:"timestamp"`
	Landmarks  []detector.Point3D  `json:"landmarks"`
	Handedness detector.Handedness `json:"handedness"`
	Score      float64             `json:"score"`
}

// Sample converts f to a FrameSample.
func (f Frame) Sample() detector.FrameSample {
	ts := time.Now()
	if f.Timestamp > 0 {
		ts = time.UnixMilli(f.Timestamp)
	}
	return detector.FrameSample{
		Timestamp: ts,
		Hand:      detector.NewHandLandmarks(f.Landmarks, f.Handedness, f.Score),
	}
}

// FrameHandler accepts single landmark frames over HTTP.
type FrameHandler struct {
	engine Engine
}

// NewFrameHandler creates a FrameHandler.
func NewFrameHandler(engine Engine) *FrameHandler {
	return &FrameHandler{engine: engine}
}

// ServeHTTP handles POST /api/frames.
func (h *FrameHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.engine.Running(app.ModalityGesture) {
		writeError(w, http.StatusConflict, "Gesture recognition is not running")
		return
	}

	var f Frame
	if err := decodeJSON(w, r, &f); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid frame")
		return
	}

	h.engine.OnFrame(f.Sample())
	writeJSON(w, http.StatusAccepted, h.engine.Snapshot().Gesture)
}
