// Package session holds the cross-sample recognition state and the debounce
// state machine that turns per-frame gesture candidates into single dispatches.
package session

import (
	"fmt"
	"math"
	"time"

	"github.com/ayusman/mudra/internal/gesture"
)

// State is the debouncer state.
type State uint8

const (
	// Idle means no gesture is being held.
	Idle State = iota
	// Candidate means a gesture is held but has not been acted on.
	Candidate
	// Dispatched means the held gesture has fired and repeats are suppressed.
	Dispatched
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Candidate:
		return "candidate"
	case Dispatched:
		return "dispatched"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	for _, st := range []State{Idle, Candidate, Dispatched} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", text)
}

// Thresholds controls the debounce hysteresis.
type Thresholds struct {
	// Detect is the minimum confidence for a candidate to be held.
	Detect float64
	// Dispatch is the minimum confidence for a held candidate to fire.
	Dispatch float64
	// DecayStep is subtracted from the held confidence on every non-matching frame.
	DecayStep float64
	// Release clears the held label once the confidence falls below it.
	Release float64
}

// DefaultThresholds returns the stock thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Detect:    0.70,
		Dispatch:  0.85,
		DecayStep: 0.10,
		Release:   0.30,
	}
}

// Validate checks the thresholds are ordered and in range.
func (t Thresholds) Validate() error {
	for name, v := range map[string]float64{
		"detect": t.Detect, "dispatch": t.Dispatch, "decay step": t.DecayStep, "release": t.Release,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s threshold must be between 0 and 1, got %f", name, v)
		}
	}
	if t.DecayStep == 0 {
		return fmt.Errorf("decay step must be positive")
	}
	if t.Release > t.Detect || t.Detect > t.Dispatch {
		return fmt.Errorf("thresholds must satisfy release <= detect <= dispatch")
	}
	return nil
}

// FireFunc asks the dispatcher to act on a label. It returns the action code
// and whether the dispatch was accepted.
type FireFunc func(label gesture.Label) (action string, accepted bool)

// RecognitionSession is the only state carried across samples for one
// modality. It is not safe for concurrent use; the owner serializes access.
type RecognitionSession struct {
	thresholds Thresholds

	State                State
	Label                gesture.Label
	Confidence           float64
	LastDispatchedAction string
	DispatchInFlight     bool

	// Voice modality only.
	WakeActive    bool
	WakeExpiry    time.Time
	RawTranscript string

	// Presentation only.
	HandPresent bool
	FingerCount int

	generation uint64
}

// New creates a session in its initial state.
func New(t Thresholds) *RecognitionSession {
	return &RecognitionSession{thresholds: t}
}

// Thresholds returns the thresholds the session was created with.
func (s *RecognitionSession) Thresholds() Thresholds {
	return s.thresholds
}

// Generation identifies the current session lifetime. It changes on every Reset.
func (s *RecognitionSession) Generation() uint64 {
	return s.generation
}

// Reset returns the session to Idle/Dormant and starts a new generation, so
// that results of work started before the reset can be recognized as stale.
func (s *RecognitionSession) Reset() {
	gen := s.generation + 1
	*s = RecognitionSession{thresholds: s.thresholds, generation: gen}
}

// ObserveGesture advances the debouncer with one classified frame. fire is
// called at most once, and only when a held candidate reaches the dispatch
// threshold while no dispatch is in flight.
func (s *RecognitionSession) ObserveGesture(c gesture.Candidate, fire FireFunc) {
	s.HandPresent = true

	if c.Label == gesture.None || c.Confidence < s.thresholds.Detect {
		s.decay()
		return
	}

	if s.State == Idle || c.Label != s.Label {
		s.State = Candidate
		s.Label = c.Label
	}
	s.Confidence = c.Confidence

	if s.State != Candidate || s.DispatchInFlight || c.Confidence < s.thresholds.Dispatch {
		return
	}

	action, ok := fire(c.Label)
	if !ok {
		return
	}
	s.State = Dispatched
	s.RecordDispatch(action)
}

// ObserveNoHand clears any held gesture immediately.
func (s *RecognitionSession) ObserveNoHand() {
	s.HandPresent = false
	s.FingerCount = 0
	s.clearLabel()
}

// RecordDispatch marks action as fired and in flight.
func (s *RecognitionSession) RecordDispatch(action string) {
	s.LastDispatchedAction = action
	s.DispatchInFlight = true
}

// CompleteDispatch clears the in-flight flag.
func (s *RecognitionSession) CompleteDispatch() {
	s.DispatchInFlight = false
}

func (s *RecognitionSession) decay() {
	if s.State == Idle {
		return
	}
	next := s.Confidence - s.thresholds.DecayStep
	// Keep repeated subtraction from drifting around the release boundary.
	next = math.Round(next*1e9) / 1e9
	if next < 0 {
		next = 0
	}
	s.Confidence = next
	if s.Confidence < s.thresholds.Release {
		s.clearLabel()
	}
}

func (s *RecognitionSession) clearLabel() {
	s.State = Idle
	s.Label = gesture.None
	s.Confidence = 0
}

// Wake opens (or extends) the awake window until now+window.
func (s *RecognitionSession) Wake(now time.Time, window time.Duration) {
	s.WakeActive = true
	s.WakeExpiry = now.Add(window)
}

// Awake reports whether the awake window is open at now.
func (s *RecognitionSession) Awake(now time.Time) bool {
	return s.WakeActive && now.Before(s.WakeExpiry)
}

// ExpireWake closes the awake window if its deadline has passed and reports
// whether it did.
func (s *RecognitionSession) ExpireWake(now time.Time) bool {
	if !s.WakeActive || now.Before(s.WakeExpiry) {
		return false
	}
	s.WakeActive = false
	s.WakeExpiry = time.Time{}
	return true
}

// Snapshot is a read-only copy of a session for presentation.
type Snapshot struct {
	State                State         `json:"state"`
	Label                gesture.Label `json:"label"`
	Confidence           float64       `json:"confidence"`
	LastDispatchedAction string        `json:"lastDispatchedAction,omitempty"`
	DispatchInFlight     bool          `json:"dispatchInFlight"`
	WakeActive           bool          `json:"wakeActive"`
	WakeExpiry           *time.Time    `json:"wakeExpiry,omitempty"`
	RawTranscript        string        `json:"rawTranscript,omitempty"`
	HandPresent          bool          `json:"handPresent"`
	FingerCount          int           `json:"fingerCount"`
}

// Snapshot copies the presentable fields.
func (s *RecognitionSession) Snapshot() Snapshot {
	snap := Snapshot{
		State:                s.State,
		Label:                s.Label,
		Confidence:           s.Confidence,
		LastDispatchedAction: s.LastDispatchedAction,
		DispatchInFlight:     s.DispatchInFlight,
		WakeActive:           s.WakeActive,
		RawTranscript:        s.RawTranscript,
		HandPresent:          s.HandPresent,
		FingerCount:          s.FingerCount,
	}
	if s.WakeActive {
		expiry := s.WakeExpiry
		snap.WakeExpiry = &expiry
	}
	return snap
}
