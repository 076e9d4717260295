package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/tray"
	"github.com/ayusman/mudra/internal/voice"
)

func TestSettingsURL(t *testing.T) {
	tests := map[string]string{
		":8080":          "http://localhost:8080/",
		"127.0.0.1:9000": "http://127.0.0.1:9000/",
	}
	for addr, want := range tests {
		if got := settingsURL(addr); got != want {
			t.Errorf("settingsURL(%q) = %q, want %q", addr, got, want)
		}
	}
}

type deadRecognizer struct{}

func (deadRecognizer) Listen(context.Context) (<-chan voice.Result, error) {
	return nil, errors.New("microphone unplugged")
}

func TestRunListener_DisablesVoiceWhenRetriesRunOut(t *testing.T) {
	engine, err := app.NewEngine(app.EngineConfig{SpeechSupported: true})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	if err := engine.Start(app.ModalityVoice); err != nil {
		t.Fatalf("Start(voice) error = %v", err)
	}
	tr := tray.New(false, true)

	cfg := voice.ListenerConfig{
		EndDelay:      time.Millisecond,
		ErrorDelay:    time.Millisecond,
		MaxErrorDelay: time.Millisecond,
		MaxRetries:    1,
	}
	listener := voice.NewListener(deadRecognizer{}, engine, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	runListener(ctx, listener, engine, tr, zap.NewNop())

	snap := engine.Snapshot()
	if snap.Voice.Running {
		t.Error("voice still running after the listener gave up")
	}
	if snap.SpeechSupported {
		t.Error("speechSupported still true after the listener gave up")
	}
	if err := engine.Start(app.ModalityVoice); !errors.Is(err, app.ErrSpeechUnsupported) {
		t.Errorf("Start(voice) error = %v, want ErrSpeechUnsupported", err)
	}
	if tr.IsEnabled(app.ModalityVoice) {
		t.Error("tray still shows voice enabled")
	}
}

func TestRunListener_CanceledKeepsVoice(t *testing.T) {
	engine, err := app.NewEngine(app.EngineConfig{SpeechSupported: true})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	if err := engine.Start(app.ModalityVoice); err != nil {
		t.Fatalf("Start(voice) error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	listener := voice.NewListener(deadRecognizer{}, engine, voice.DefaultListenerConfig())
	runListener(ctx, listener, engine, nil, zap.NewNop())

	if !engine.Running(app.ModalityVoice) {
		t.Error("voice stopped on shutdown")
	}
}
