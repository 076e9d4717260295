// Package feedback delivers command events to the user: haptic pulses, spoken
// responses, on-screen display and external subscribers.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/command"
)

// Pattern is a vibration sequence alternating on and off durations.
type Pattern []time.Duration

var (
	// NormalPattern acknowledges an ordinary command.
	NormalPattern = Pattern{100 * time.Millisecond, 50 * time.Millisecond, 100 * time.Millisecond}
	// UrgentPattern marks an urgent command such as an emergency lock.
	UrgentPattern = Pattern{
		200 * time.Millisecond, 100 * time.Millisecond,
		200 * time.Millisecond, 100 * time.Millisecond,
		200 * time.Millisecond,
	}
)

// PatternFor selects the pattern for an event's urgency.
func PatternFor(urgent bool) Pattern {
	if urgent {
		return UrgentPattern
	}
	return NormalPattern
}

// Milliseconds returns the pattern as integer milliseconds.
func (p Pattern) Milliseconds() []int64 {
	out := make([]int64, len(p))
	for i, d := range p {
		out[i] = d.Milliseconds()
	}
	return out
}

// Haptics produces vibration feedback.
type Haptics interface {
	Pulse(ctx context.Context, p Pattern) error
}

// Speaker speaks text aloud.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Notifier surfaces an event outside the process.
type Notifier interface {
	Notify(ctx context.Context, e command.Event) error
}

// RouterConfig wires the collaborators of a Router. Nil collaborators are skipped.
type RouterConfig struct {
	Haptics  Haptics
	Speaker  Speaker
	Display  *Display
	Notifier Notifier
	Logger   *zap.Logger
}

// Router fans one command event out to every feedback collaborator.
type Router struct {
	haptics  Haptics
	speaker  Speaker
	display  *Display
	notifier Notifier
	logger   *zap.Logger
}

// NewRouter creates a Router.
func NewRouter(cfg RouterConfig) *Router {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		haptics:  cfg.Haptics,
		speaker:  cfg.Speaker,
		display:  cfg.Display,
		notifier: cfg.Notifier,
		logger:   logger,
	}
}

// Handle delivers e. Informational events (no action) are displayed and
// spoken but do not pulse. A failing collaborator does not stop the others.
func (r *Router) Handle(ctx context.Context, e command.Event) error {
	var errs []error

	if r.display != nil {
		r.display.Show(e)
	}

	if r.haptics != nil && e.Action != "" {
		if err := r.haptics.Pulse(ctx, PatternFor(e.Urgent)); err != nil {
			errs = append(errs, fmt.Errorf("haptics: %w", err))
		}
	}

	if r.speaker != nil && e.Response != "" {
		if err := r.speaker.Speak(ctx, e.Response); err != nil {
			errs = append(errs, fmt.Errorf("speech: %w", err))
		}
	}

	if r.notifier != nil && e.Action != "" {
		if err := r.notifier.Notify(ctx, e); err != nil {
			errs = append(errs, fmt.Errorf("notify: %w", err))
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		r.logger.Warn("feedback delivery incomplete",
			zap.String("event", e.ID),
			zap.String("action", e.Action),
			zap.Error(err),
		)
	}
	return err
}

// LogHaptics records pulses in the log, for hosts without a vibration motor.
type LogHaptics struct {
	Logger *zap.Logger
}

// Pulse implements Haptics.
func (h LogHaptics) Pulse(_ context.Context, p Pattern) error {
	if h.Logger != nil {
		h.Logger.Info("haptic pulse", zap.Int64s("pattern_ms", p.Milliseconds()))
	}
	return nil
}
