// Package detector provides hand landmark types and the hand detector integrations
// that feed the recognition engine.
package detector

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// ErrLandmarkCount is returned when decoding a hand whose point list is not
// exactly NumLandmarks long.
var ErrLandmarkCount = errors.New("hand must have 21 landmarks")

// Point3D is a normalized landmark position. X and Y are in [0,1] image space with
// the origin at the top-left corner; Z is the relative depth reported by the model.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Handedness is the anatomical side of a detected hand, independent of camera mirroring.
type Handedness uint8

const (
	// HandUnknown means the model did not report a side.
	HandUnknown Handedness = iota
	// HandLeft is an anatomical left hand.
	HandLeft
	// HandRight is an anatomical right hand.
	HandRight
)

// String returns "Left", "Right" or "Unknown".
func (h Handedness) String() string {
	switch h {
	case HandLeft:
		return "Left"
	case HandRight:
		return "Right"
	default:
		return "Unknown"
	}
}

// ParseHandedness converts a model label into a Handedness.
// Matching is case-insensitive; unrecognized labels return an error.
func ParseHandedness(s string) (Handedness, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left":
		return HandLeft, nil
	case "right":
		return HandRight, nil
	case "", "unknown":
		return HandUnknown, nil
	}
	return HandUnknown, fmt.Errorf("invalid handedness %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (h Handedness) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Handedness) UnmarshalText(text []byte) error {
	parsed, err := ParseHandedness(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness Handedness            `json:"handedness"`
	Score      float64               `json:"score"`
}

// NewHandLandmarks builds a landmark set from a variable-length point list.
// It returns nil unless exactly NumLandmarks points are supplied, so a short
// or over-long model output is always treated as "no hand".
func NewHandLandmarks(points []Point3D, handedness Handedness, score float64) *HandLandmarks {
	if len(points) != NumLandmarks {
		return nil
	}
	h := &HandLandmarks{Handedness: handedness, Score: score}
	copy(h.Points[:], points)
	return h
}

// UnmarshalJSON rejects point lists that are not exactly NumLandmarks long.
// encoding/json would otherwise zero-fill a short array and drop the excess of
// a long one.
func (h *HandLandmarks) UnmarshalJSON(data []byte) error {
	var wire struct {
		Points     []Point3D  `json:"points"`
		Handedness Handedness `json:"handedness"`
		Score      float64    `json:"score"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	lm := NewHandLandmarks(wire.Points, wire.Handedness, wire.Score)
	if lm == nil {
		return fmt.Errorf("%w: got %d points", ErrLandmarkCount, len(wire.Points))
	}
	*h = *lm
	return nil
}

// FrameSample is one video frame's worth of model output. Hand is nil when no
// hand was detected in the frame.
type FrameSample struct {
	Timestamp time.Time      `json:"timestamp"`
	Hand      *HandLandmarks `json:"hand,omitempty"`
}

// HasHand reports whether the sample carries a complete landmark set.
func (s FrameSample) HasHand() bool {
	return s.Hand != nil
}
