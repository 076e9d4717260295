package voice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// ErrRetriesExhausted is returned by Listener.Run after too many consecutive
// recognizer failures.
var ErrRetriesExhausted = errors.New("speech recognizer retries exhausted")

// Result is one transcript update from a recognizer.
type Result struct {
	Text  string
	Final bool
	// Err reports a runtime recognizer failure. The stream ends after it.
	Err error
}

// Recognizer is a speech engine. Listen starts a recognition run whose results
// arrive on the returned channel; the channel is closed when the run ends.
// Engines may end a run at any time, including with no results.
type Recognizer interface {
	Listen(ctx context.Context) (<-chan Result, error)
}

// Handler consumes listener output.
type Handler interface {
	OnTranscript(text string, isFinal bool)
	OnRecognizerError(err error)
}

// ListenerState is the state of the listen loop.
type ListenerState uint8

const (
	// Stopped means Run is not active.
	Stopped ListenerState = iota
	// Listening means a recognition run is in progress.
	Listening
	// Restarting means the loop is waiting to start the next run.
	Restarting
	// Failed means the retry budget was exhausted.
	Failed
)

func (s ListenerState) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Listening:
		return "listening"
	case Restarting:
		return "restarting"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("listener_state(%d)", uint8(s))
	}
}

// ListenerConfig controls restart behavior.
type ListenerConfig struct {
	// EndDelay is the pause before restarting after a run ends normally.
	EndDelay time.Duration
	// ErrorDelay is the initial pause after a failed run; it grows
	// exponentially up to MaxErrorDelay.
	ErrorDelay    time.Duration
	MaxErrorDelay time.Duration
	// MaxRetries is the number of consecutive failures tolerated.
	MaxRetries int
	Logger     *zap.Logger
}

// DefaultListenerConfig returns the stock restart policy.
func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		EndDelay:      100 * time.Millisecond,
		ErrorDelay:    time.Second,
		MaxErrorDelay: 30 * time.Second,
		MaxRetries:    5,
	}
}

// Listener keeps a Recognizer running, restarting it after every completed run
// and retrying failures with exponential backoff.
type Listener struct {
	rec     Recognizer
	handler Handler
	config  ListenerConfig
	logger  *zap.Logger

	mu    sync.RWMutex
	state ListenerState
}

// NewListener creates a Listener.
func NewListener(rec Recognizer, handler Handler, config ListenerConfig) *Listener {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Listener{
		rec:     rec,
		handler: handler,
		config:  config,
		logger:  logger,
	}
}

// State returns the current loop state.
func (l *Listener) State() ListenerState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

func (l *Listener) setState(s ListenerState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = s
}

// Run listens until ctx is cancelled, returning nil, or until MaxRetries
// consecutive failures, returning ErrRetriesExhausted.
func (l *Listener) Run(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = l.config.ErrorDelay
	bo.MaxInterval = l.config.MaxErrorDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.Reset()

	failures := 0
	for {
		l.setState(Listening)
		err := l.runOnce(ctx, func() {
			failures = 0
			bo.Reset()
		})

		if ctx.Err() != nil {
			l.setState(Stopped)
			return nil
		}

		delay := l.config.EndDelay
		if err != nil {
			failures++
			l.handler.OnRecognizerError(err)
			if failures > l.config.MaxRetries {
				l.setState(Failed)
				l.logger.Error("speech recognizer failed permanently",
					zap.Int("failures", failures),
					zap.Error(err),
				)
				return fmt.Errorf("%w: %v", ErrRetriesExhausted, err)
			}
			delay = bo.NextBackOff()
			l.logger.Warn("speech recognizer error, restarting",
				zap.Int("failures", failures),
				zap.Duration("delay", delay),
				zap.Error(err),
			)
		}

		l.setState(Restarting)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			l.setState(Stopped)
			return nil
		case <-timer.C:
		}
	}
}

// runOnce drives one recognition run. It returns nil when the run ends on its
// own and the run's error otherwise. ok is called for every final result.
func (l *Listener) runOnce(ctx context.Context, ok func()) error {
	results, err := l.rec.Listen(ctx)
	if err != nil {
		return fmt.Errorf("start recognizer: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case r, open := <-results:
			if !open {
				return nil
			}
			if r.Err != nil {
				return r.Err
			}
			l.handler.OnTranscript(r.Text, r.Final)
			if r.Final {
				ok()
			}
		}
	}
}
