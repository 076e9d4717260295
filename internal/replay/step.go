// Package replay drives the recognition engine from a recorded session on a
// virtual clock. Sessions are JSON Lines files with one step per line.
package replay

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/detector"
)

// ErrInvalidStep is returned for lines that do not describe exactly one action.
var ErrInvalidStep = errors.New("invalid replay step")

// Step is one recorded input. At is milliseconds since the session start and
// must not decrease from one step to the next.
type Step struct {
	At         int64       `json:"at"`
	Start      string      `json:"start,omitempty"`
	Stop       string      `json:"stop,omitempty"`
	Frame      *Frame      `json:"frame,omitempty"`
	Transcript *Transcript `json:"transcript,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Frame is a landmark sample. A nil Hand is a frame with no hand in view.
type Frame struct {
	Hand *Hand `json:"hand,omitempty"`
}

// Hand is a recorded model output. Points is kept as a list so a recording
// with the wrong number of landmarks replays as no hand, the same as a short
// frame pushed over HTTP.
type Hand struct {
	Points     []detector.Point3D  `json:"points"`
	Handedness detector.Handedness `json:"handedness"`
	Score      float64             `json:"score"`
}

// Landmarks returns the fixed landmark set, or nil unless exactly
// detector.NumLandmarks points were recorded.
func (h *Hand) Landmarks() *detector.HandLandmarks {
	if h == nil {
		return nil
	}
	return detector.NewHandLandmarks(h.Points, h.Handedness, h.Score)
}

// Transcript is a speech recognizer update.
type Transcript struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

func (s Step) validate() error {
	actions := 0
	if s.Start != "" {
		actions++
		if _, err := app.ParseModality(s.Start); err != nil {
			return err
		}
	}
	if s.Stop != "" {
		actions++
		if _, err := app.ParseModality(s.Stop); err != nil {
			return err
		}
	}
	if s.Frame != nil {
		actions++
	}
	if s.Transcript != nil {
		actions++
	}
	if s.Error != "" {
		actions++
	}
	if actions != 1 {
		return fmt.Errorf("%w: want one action, got %d", ErrInvalidStep, actions)
	}
	if s.At < 0 {
		return fmt.Errorf("%w: negative offset %d", ErrInvalidStep, s.At)
	}
	return nil
}

// Decode reads a session. Blank lines and lines starting with '#' are skipped.
func Decode(r io.Reader) ([]Step, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var steps []Step
	var last int64
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var s Step
		if err := json.Unmarshal([]byte(line), &s); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if err := s.validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if s.At < last {
			return nil, fmt.Errorf("line %d: %w: offset %d before %d", lineNo, ErrInvalidStep, s.At, last)
		}
		last = s.At
		steps = append(steps, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	return steps, nil
}

// Load decodes the session file at path.
func Load(fs afero.Fs, path string) ([]Step, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	defer f.Close()
	return Decode(f)
}
