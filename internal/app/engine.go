// Package app wires the recognition core: it owns the per-modality sessions,
// feeds samples through extraction, classification and debouncing, and hands
// qualified commands to the dispatcher.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/command"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/session"
	"github.com/ayusman/mudra/internal/voice"
)

var (
	// ErrModelUnavailable is returned by Start when no landmark source exists.
	ErrModelUnavailable = detector.ErrModelUnavailable
	// ErrSpeechUnsupported is returned by Start when no speech source exists.
	ErrSpeechUnsupported = errors.New("speech recognition unsupported")
	// ErrUnknownModality is returned for modality names other than gesture and voice.
	ErrUnknownModality = errors.New("unknown modality")
)

// DefaultTickInterval is how often Run checks the awake window deadline.
const DefaultTickInterval = 250 * time.Millisecond

// Modality is an input channel with its own recognition session.
type Modality string

const (
	ModalityGesture Modality = "gesture"
	ModalityVoice   Modality = "voice"
)

// ParseModality converts a name to a Modality.
func ParseModality(s string) (Modality, error) {
	switch Modality(s) {
	case ModalityGesture, ModalityVoice:
		return Modality(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownModality, s)
}

// EngineConfig configures an Engine. Zero values fall back to defaults.
type EngineConfig struct {
	Table       *command.Table
	Thresholds  session.Thresholds
	Confidences gesture.Confidences
	Mirrored    bool
	WakePhrases []string
	Fillers     []string
	AwakeWindow time.Duration

	Dispatcher *command.Dispatcher

	// ModelReady and SpeechSupported are the capability flags checked by Start.
	ModelReady      bool
	SpeechSupported bool

	Now    func() time.Time
	Logger *zap.Logger
}

// Engine processes gesture frames and speech transcripts. All session state
// is guarded by one mutex, so samples are handled strictly one at a time in
// arrival order.
type Engine struct {
	extractor   gesture.Extractor
	classifier  *gesture.Classifier
	table       *command.Table
	matcher     *voice.Matcher
	dispatcher  *command.Dispatcher
	awakeWindow time.Duration
	now         func() time.Time
	logger      *zap.Logger

	mu              sync.Mutex
	gesture         *session.RecognitionSession
	voice           *session.RecognitionSession
	gestureOn       bool
	voiceOn         bool
	modelReady      bool
	speechSupported bool
}

// NewEngine creates an Engine with both modalities stopped.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Thresholds == (session.Thresholds{}) {
		cfg.Thresholds = session.DefaultThresholds()
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid thresholds: %w", err)
	}
	if cfg.Confidences == (gesture.Confidences{}) {
		cfg.Confidences = gesture.DefaultConfidences()
	}
	if err := cfg.Confidences.Validate(); err != nil {
		return nil, fmt.Errorf("invalid confidences: %w", err)
	}
	if cfg.Table == nil {
		cfg.Table = command.DefaultTable()
	}
	if cfg.WakePhrases == nil {
		cfg.WakePhrases = voice.DefaultWakePhrases()
	}
	if cfg.Fillers == nil {
		cfg.Fillers = voice.DefaultFillers()
	}
	if cfg.AwakeWindow <= 0 {
		cfg.AwakeWindow = 15 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Dispatcher == nil {
		cfg.Dispatcher = command.NewDispatcher(command.DispatcherConfig{Logger: cfg.Logger})
	}

	return &Engine{
		extractor:       gesture.NewExtractor(cfg.Mirrored),
		classifier:      gesture.NewClassifier(cfg.Confidences),
		table:           cfg.Table,
		matcher:         voice.NewMatcher(cfg.Table, cfg.WakePhrases, cfg.Fillers),
		dispatcher:      cfg.Dispatcher,
		awakeWindow:     cfg.AwakeWindow,
		now:             cfg.Now,
		logger:          cfg.Logger,
		gesture:         session.New(cfg.Thresholds),
		voice:           session.New(cfg.Thresholds),
		modelReady:      cfg.ModelReady,
		speechSupported: cfg.SpeechSupported,
	}, nil
}

// Table returns the command table.
func (e *Engine) Table() *command.Table {
	return e.table
}

// Start begins accepting samples for m with a fresh session. Starting a
// running modality is a no-op.
func (e *Engine) Start(m Modality) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch m {
	case ModalityGesture:
		if !e.modelReady {
			return ErrModelUnavailable
		}
		if !e.gestureOn {
			e.gesture.Reset()
			e.gestureOn = true
		}
	case ModalityVoice:
		if !e.speechSupported {
			return ErrSpeechUnsupported
		}
		if !e.voiceOn {
			e.voice.Reset()
			e.voiceOn = true
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownModality, m)
	}

	e.logger.Info("modality started", zap.String("modality", string(m)))
	return nil
}

// Stop halts intake for m and resets its session. Dispatches still settling
// for m are discarded.
func (e *Engine) Stop(m Modality) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch m {
	case ModalityGesture:
		e.gestureOn = false
		e.gesture.Reset()
	case ModalityVoice:
		e.voiceOn = false
		e.voice.Reset()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownModality, m)
	}

	e.logger.Info("modality stopped", zap.String("modality", string(m)))
	return nil
}

// Disable stops m and withdraws its capability, for when the input source
// has failed for good. Later Start calls for m fail the same way they do
// when the capability was never present.
func (e *Engine) Disable(m Modality) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch m {
	case ModalityGesture:
		e.gestureOn = false
		e.modelReady = false
		e.gesture.Reset()
	case ModalityVoice:
		e.voiceOn = false
		e.speechSupported = false
		e.voice.Reset()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownModality, m)
	}

	e.logger.Warn("modality disabled", zap.String("modality", string(m)))
	return nil
}

// Running reports whether m accepts samples.
func (e *Engine) Running(m Modality) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch m {
	case ModalityGesture:
		return e.gestureOn
	case ModalityVoice:
		return e.voiceOn
	}
	return false
}

// Reset clears the session for m without stopping it.
func (e *Engine) Reset(m Modality) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch m {
	case ModalityGesture:
		e.gesture.Reset()
	case ModalityVoice:
		e.voice.Reset()
	}
}

// OnFrame processes one landmark sample. A missing or malformed hand moves
// the gesture session straight back to Idle.
func (e *Engine) OnFrame(sample detector.FrameSample) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.gestureOn {
		return
	}

	fv, ok := e.extractor.Extract(sample.Hand)
	if !ok {
		e.gesture.ObserveNoHand()
		return
	}
	e.gesture.FingerCount = fv.Count

	candidate := e.classifier.Classify(fv, sample.Hand)
	e.gesture.ObserveGesture(candidate, e.fireGesture)
}

// fireGesture runs with e.mu held.
func (e *Engine) fireGesture(label gesture.Label) (string, bool) {
	def, ok := e.table.ForGesture(label)
	if !ok {
		return "", false
	}

	req := command.RequestFor(def, command.SourceGesture, label.String())
	e.guard(&req, e.gesture)
	if !e.dispatcher.Dispatch(req) {
		return "", false
	}

	e.logger.Info("gesture command dispatched",
		zap.String("label", label.String()),
		zap.String("action", def.Action),
	)
	return def.Action, true
}

// guard ties req to the current generation of s: a reset before the settle
// delay elapses discards the event, and completion clears the in-flight flag
// only for the generation that started it.
func (e *Engine) guard(req *command.Request, s *session.RecognitionSession) {
	gen := s.Generation()
	req.Guard = func(deliver func()) bool {
		e.mu.Lock()
		defer e.mu.Unlock()
		if s.Generation() != gen {
			return false
		}
		deliver()
		return true
	}
	req.Done = func(bool) {
		e.mu.Lock()
		defer e.mu.Unlock()
		if s.Generation() == gen {
			s.CompleteDispatch()
		}
	}
}

// OnTranscript processes a speech result. Interim results only update the
// raw transcript; final results go through wake phrase and command matching.
func (e *Engine) OnTranscript(text string, isFinal bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.voiceOn {
		return
	}

	now := e.now()
	s := e.voice
	if s.ExpireWake(now) {
		e.logger.Debug("voice session dormant")
	}
	s.RawTranscript = text
	if !isFinal {
		return
	}

	u := e.matcher.Parse(text)
	if !u.Wake && !s.WakeActive {
		e.logger.Debug("transcript ignored while dormant", zap.String("text", text))
		return
	}
	s.Wake(now, e.awakeWindow)

	var req command.Request
	switch {
	case u.Command == "":
		if !u.Wake {
			return
		}
		req = command.Request{Response: command.ListeningPrompt, Source: command.SourceVoice, Trigger: u.Phrase}
	default:
		if def, ok := e.matcher.Match(u.Command); ok {
			req = command.RequestFor(def, command.SourceVoice, u.Command)
		} else {
			req = command.Request{
				Response: command.NotUnderstood(u.Command),
				Source:   command.SourceVoice,
				Trigger:  u.Command,
			}
		}
	}

	e.guard(&req, s)
	if !e.dispatcher.Dispatch(req) {
		return
	}
	if req.Action != "" {
		s.RecordDispatch(req.Action)
		e.logger.Info("voice command dispatched",
			zap.String("command", u.Command),
			zap.String("action", req.Action),
		)
	}
}

// OnRecognizerError resets the voice session to Dormant. The listener
// restarts the recognizer on its own.
func (e *Engine) OnRecognizerError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.logger.Warn("speech recognizer error", zap.Error(err))
	if e.voiceOn {
		e.voice.Reset()
	}
}

// Tick closes the awake window once its deadline has passed.
func (e *Engine) Tick(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.voice.ExpireWake(now) {
		e.logger.Debug("voice session dormant")
	}
}

// Run calls Tick every interval until ctx is done.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Tick(e.now())
		}
	}
}

// ModalityStatus is the presentable state of one modality.
type ModalityStatus struct {
	Running bool `json:"running"`
	session.Snapshot
}

// Snapshot is the presentable state of the engine.
type Snapshot struct {
	Gesture         ModalityStatus `json:"gesture"`
	Voice           ModalityStatus `json:"voice"`
	ModelReady      bool           `json:"modelReady"`
	SpeechSupported bool           `json:"speechSupported"`
	Busy            bool           `json:"busy"`
}

// Snapshot copies the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Snapshot{
		Gesture:         ModalityStatus{Running: e.gestureOn, Snapshot: e.gesture.Snapshot()},
		Voice:           ModalityStatus{Running: e.voiceOn, Snapshot: e.voice.Snapshot()},
		ModelReady:      e.modelReady,
		SpeechSupported: e.speechSupported,
		Busy:            e.dispatcher.Busy(),
	}
}

// Capabilities reports the capability flags.
func (e *Engine) Capabilities() (modelReady, speechSupported bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.modelReady, e.speechSupported
}
