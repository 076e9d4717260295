package app

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/command"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/session"
)

type harness struct {
	engine    *Engine
	scheduler *command.ManualScheduler
	events    []command.Event
	now       time.Time
}

func newHarness(t *testing.T, modify func(*EngineConfig)) *harness {
	t.Helper()

	h := &harness{
		scheduler: command.NewManualScheduler(),
		now:       time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
	}
	dispatcher := command.NewDispatcher(command.DispatcherConfig{
		Scheduler: h.scheduler,
		Sink:      command.SinkFunc(func(e command.Event) { h.events = append(h.events, e) }),
		Now:       func() time.Time { return h.now },
	})

	cfg := EngineConfig{
		Dispatcher:      dispatcher,
		ModelReady:      true,
		SpeechSupported: true,
		Now:             func() time.Time { return h.now },
	}
	if modify != nil {
		modify(&cfg)
	}

	engine, err := NewEngine(cfg)
	require.NoError(t, err)
	h.engine = engine
	return h
}

func (h *harness) frame(hand detector.HandLandmarks) {
	h.engine.OnFrame(detector.FrameSample{Timestamp: h.now, Hand: &hand})
}

func (h *harness) settle() {
	h.scheduler.Advance(command.DefaultSettle)
}

func (h *harness) advance(d time.Duration) {
	h.now = h.now.Add(d)
}

func TestEngine_ScenarioA_OpenPalmShowsBalance(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.engine.Start(ModalityGesture))

	h.frame(detector.OpenPalmLandmarks())

	snap := h.engine.Snapshot()
	assert.Equal(t, session.Dispatched, snap.Gesture.State)
	assert.InDelta(t, 0.9, snap.Gesture.Confidence, 1e-9)
	assert.Equal(t, 5, snap.Gesture.FingerCount)
	assert.Empty(t, h.events, "event is delivered only after the settle delay")

	h.settle()

	require.Len(t, h.events, 1)
	assert.Equal(t, command.ActionBalance, h.events[0].Action)
	assert.Equal(t, "Your current balance is $2,847.32", h.events[0].Response)
	assert.Equal(t, command.SourceGesture, h.events[0].Source)
	assert.False(t, h.events[0].Urgent)
	assert.Equal(t, h.now, h.events[0].TriggeredAt)
	assert.NotEmpty(t, h.events[0].ID)
}

func TestEngine_ScenarioB_HeldFistFiresOnce(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.engine.Start(ModalityGesture))

	for i := 0; i < 3; i++ {
		h.frame(detector.ClosedFistLandmarks())
	}
	h.settle()
	h.frame(detector.ClosedFistLandmarks())
	h.settle()

	require.Len(t, h.events, 1)
	assert.Equal(t, command.ActionEmergency, h.events[0].Action)
	assert.True(t, h.events[0].Urgent)
	assert.Equal(t, 0, h.scheduler.Pending())

	snap := h.engine.Snapshot()
	assert.Equal(t, session.Dispatched, snap.Gesture.State)
	assert.False(t, snap.Gesture.DispatchInFlight)
	assert.Equal(t, command.ActionEmergency, snap.Gesture.LastDispatchedAction)
}

func TestEngine_ScenarioC_WakePhraseWithCommand(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.engine.Start(ModalityVoice))

	h.engine.OnTranscript("Hey bank check balance", true)
	h.settle()

	require.Len(t, h.events, 1)
	assert.Equal(t, command.ActionBalance, h.events[0].Action)
	assert.Equal(t, command.SourceVoice, h.events[0].Source)
	assert.Equal(t, "check balance", h.events[0].Trigger)

	snap := h.engine.Snapshot()
	assert.True(t, snap.Voice.WakeActive)
	require.NotNil(t, snap.Voice.WakeExpiry)
	assert.Equal(t, h.now.Add(15*time.Second), *snap.Voice.WakeExpiry)
}

func TestEngine_ScenarioD_DormantIgnoresCommands(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.engine.Start(ModalityVoice))

	h.engine.OnTranscript("balance", true)
	h.settle()

	assert.Empty(t, h.events)
	assert.Equal(t, 0, h.scheduler.Pending())
	assert.False(t, h.engine.Snapshot().Voice.WakeActive)
}

func TestEngine_WakeWindow(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.engine.Start(ModalityVoice))

	h.engine.OnTranscript("hey bank", true)
	h.settle()
	require.Len(t, h.events, 1)
	assert.Equal(t, command.ListeningPrompt, h.events[0].Response)
	assert.Empty(t, h.events[0].Action)

	h.advance(14 * time.Second)
	h.engine.OnTranscript("show bills", true)
	h.settle()
	require.Len(t, h.events, 2)
	assert.Equal(t, command.ActionBills, h.events[1].Action)

	// The command extended the window to now+15s.
	h.advance(14 * time.Second)
	h.engine.Tick(h.now)
	assert.True(t, h.engine.Snapshot().Voice.WakeActive)

	h.advance(time.Second)
	h.engine.Tick(h.now)
	assert.False(t, h.engine.Snapshot().Voice.WakeActive)

	h.engine.OnTranscript("balance", true)
	h.settle()
	assert.Len(t, h.events, 2)
}

func TestEngine_WakeExpiresOnTranscript(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.engine.Start(ModalityVoice))

	h.engine.OnTranscript("hello bank", true)
	h.settle()

	h.advance(15 * time.Second)
	h.engine.OnTranscript("transfer", true)
	h.settle()

	assert.Len(t, h.events, 1, "window has closed at exactly 15s")
}

func TestEngine_InterimTranscriptOnlyUpdatesRaw(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.engine.Start(ModalityVoice))

	h.engine.OnTranscript("hey bank check bal", false)
	h.settle()

	snap := h.engine.Snapshot()
	assert.Equal(t, "hey bank check bal", snap.Voice.RawTranscript)
	assert.False(t, snap.Voice.WakeActive)
	assert.Empty(t, h.events)
}

func TestEngine_NotUnderstood(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.engine.Start(ModalityVoice))

	h.engine.OnTranscript("hey bank order pizza", true)
	h.settle()

	require.Len(t, h.events, 1)
	assert.Empty(t, h.events[0].Action)
	assert.Equal(t, command.NotUnderstood("order pizza"), h.events[0].Response)
	assert.Empty(t, h.engine.Snapshot().Voice.LastDispatchedAction)
}

func TestEngine_StopDiscardsInFlightEvent(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.engine.Start(ModalityGesture))

	h.frame(detector.OpenPalmLandmarks())
	require.NoError(t, h.engine.Stop(ModalityGesture))
	h.settle()

	assert.Empty(t, h.events)
	assert.False(t, h.engine.Snapshot().Busy)

	snap := h.engine.Snapshot()
	assert.False(t, snap.Gesture.Running)
	assert.Equal(t, session.Idle, snap.Gesture.State)
}

func TestEngine_StoppedModalityIgnoresSamples(t *testing.T) {
	h := newHarness(t, nil)

	h.frame(detector.OpenPalmLandmarks())
	h.engine.OnTranscript("hey bank balance", true)
	h.settle()

	assert.Empty(t, h.events)
}

func TestEngine_BusyDispatcherDropsOtherModality(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.engine.Start(ModalityGesture))
	require.NoError(t, h.engine.Start(ModalityVoice))

	h.frame(detector.OpenPalmLandmarks())
	h.engine.OnTranscript("hey bank help", true)
	h.settle()

	require.Len(t, h.events, 1)
	assert.Equal(t, command.ActionBalance, h.events[0].Action)

	snap := h.engine.Snapshot()
	assert.Empty(t, snap.Voice.LastDispatchedAction)
	assert.True(t, snap.Voice.WakeActive, "the wake phrase still opens the window")
}

func TestEngine_GestureRetriesAfterBusy(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.engine.Start(ModalityGesture))
	require.NoError(t, h.engine.Start(ModalityVoice))

	h.engine.OnTranscript("hey bank help", true)
	h.frame(detector.FingerCountLandmarks(2))
	assert.Equal(t, session.Candidate, h.engine.Snapshot().Gesture.State)

	h.settle()
	h.frame(detector.FingerCountLandmarks(2))
	h.settle()

	require.Len(t, h.events, 2)
	assert.Equal(t, command.ActionHelp, h.events[0].Action)
	assert.Equal(t, command.ActionTransfer, h.events[1].Action)
}

func TestEngine_NoHandReturnsToIdle(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.engine.Start(ModalityGesture))

	h.frame(detector.FingerCountLandmarks(3))
	h.engine.OnFrame(detector.FrameSample{Timestamp: h.now})

	snap := h.engine.Snapshot()
	assert.Equal(t, session.Idle, snap.Gesture.State)
	assert.False(t, snap.Gesture.HandPresent)
	assert.Zero(t, snap.Gesture.FingerCount)
}

func TestEngine_DispatchThresholdOverride(t *testing.T) {
	h := newHarness(t, func(cfg *EngineConfig) {
		cfg.Thresholds = session.Thresholds{Detect: 0.7, Dispatch: 0.95, DecayStep: 0.1, Release: 0.3}
	})
	require.NoError(t, h.engine.Start(ModalityGesture))

	h.frame(detector.ThumbsUpLandmarks())
	h.settle()

	require.Len(t, h.events, 0, "0.92 stays below a 0.95 dispatch threshold")
	assert.Equal(t, session.Candidate, h.engine.Snapshot().Gesture.State)
}

func TestEngine_ThumbsUpConfirms(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.engine.Start(ModalityGesture))

	h.frame(detector.ThumbsUpLandmarks())
	h.settle()

	require.Len(t, h.events, 1)
	assert.Equal(t, command.ActionConfirm, h.events[0].Action)
	assert.Equal(t, "thumbs_up", h.events[0].Trigger)
}

func TestEngine_RecognizerErrorResetsVoice(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.engine.Start(ModalityVoice))

	h.engine.OnTranscript("hey bank balance", true)
	h.engine.OnRecognizerError(errors.New("network"))
	h.settle()

	assert.Empty(t, h.events, "reset discards the settling event")
	snap := h.engine.Snapshot()
	assert.True(t, snap.Voice.Running)
	assert.False(t, snap.Voice.WakeActive)
}

func TestEngine_Capabilities(t *testing.T) {
	h := newHarness(t, func(cfg *EngineConfig) {
		cfg.ModelReady = false
		cfg.SpeechSupported = false
	})

	assert.ErrorIs(t, h.engine.Start(ModalityGesture), ErrModelUnavailable)
	assert.ErrorIs(t, h.engine.Start(ModalityVoice), ErrSpeechUnsupported)
	assert.ErrorIs(t, h.engine.Start("touch"), ErrUnknownModality)
	assert.False(t, h.engine.Running(ModalityGesture))
}

func TestNewEngine_RejectsInvalidThresholds(t *testing.T) {
	_, err := NewEngine(EngineConfig{
		Thresholds: session.Thresholds{Detect: 0.9, Dispatch: 0.8, DecayStep: 0.1, Release: 0.3},
	})
	assert.Error(t, err)
}

func TestParseModality(t *testing.T) {
	m, err := ParseModality("voice")
	require.NoError(t, err)
	assert.Equal(t, ModalityVoice, m)

	_, err = ParseModality("eyes")
	assert.ErrorIs(t, err, ErrUnknownModality)
}

func TestEngine_DeliveryHoldsSessionLock(t *testing.T) {
	var engine *Engine
	var lockHeld []bool
	sched := command.NewManualScheduler()
	dispatcher := command.NewDispatcher(command.DispatcherConfig{
		Scheduler: sched,
		Sink:      command.SinkFunc(func(command.Event) {
			free := engine.mu.TryLock()
			if free {
				engine.mu.Unlock()
			}
			lockHeld = append(lockHeld, !free)
		}),
	})
	engine, err := NewEngine(EngineConfig{Dispatcher: dispatcher, ModelReady: true})
	require.NoError(t, err)
	require.NoError(t, engine.Start(ModalityGesture))

	palm := detector.OpenPalmLandmarks()
	engine.OnFrame(detector.FrameSample{Hand: &palm})
	sched.Advance(command.DefaultSettle)

	// Stop cannot run between the generation check and delivery.
	assert.Equal(t, []bool{true}, lockHeld)
}

func TestEngine_Disable(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.engine.Start(ModalityVoice))
	h.engine.OnTranscript("hey bank", true)

	require.NoError(t, h.engine.Disable(ModalityVoice))

	snap := h.engine.Snapshot()
	assert.False(t, snap.Voice.Running)
	assert.False(t, snap.SpeechSupported)
	assert.True(t, snap.ModelReady)
	assert.False(t, snap.Voice.WakeActive)
	assert.ErrorIs(t, h.engine.Start(ModalityVoice), ErrSpeechUnsupported)

	h.settle()
	for _, e := range h.events {
		assert.NotEqual(t, command.ListeningPrompt, e.Response, "in-flight prompt delivered after disable")
	}

	require.NoError(t, h.engine.Disable(ModalityGesture))
	assert.ErrorIs(t, h.engine.Start(ModalityGesture), ErrModelUnavailable)
	assert.ErrorIs(t, h.engine.Disable("touch"), ErrUnknownModality)
}
