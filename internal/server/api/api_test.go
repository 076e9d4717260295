package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/command"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/feedback"
	"github.com/ayusman/mudra/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func newTestEngine(t *testing.T, modelReady bool) *app.Engine {
	t.Helper()

	e, err := app.NewEngine(app.EngineConfig{
		Dispatcher: command.NewDispatcher(command.DispatcherConfig{Scheduler: command.NewManualScheduler()}),
		ModelReady: modelReady,
	})
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return e
}

func do(h http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCommandHandler(t *testing.T) {
	handler := NewCommandHandler(command.DefaultTable())

	t.Run("list", func(t *testing.T) {
		rec := do(handler, http.MethodGet, "/api/commands", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		var response listCommandsResponse
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(response.Commands) != len(command.DefaultDefinitions()) {
			t.Errorf("expected %d commands, got %d", len(command.DefaultDefinitions()), len(response.Commands))
		}
		if response.Commands[0].Gesture != "open_palm" {
			t.Errorf("expected balance bound to open_palm, got %q", response.Commands[0].Gesture)
		}
	})

	t.Run("get", func(t *testing.T) {
		rec := do(handler, http.MethodGet, "/api/commands/emergency", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		var response commandResponse
		json.NewDecoder(rec.Body).Decode(&response)
		if !response.Urgent {
			t.Error("emergency should be urgent")
		}
	})

	t.Run("not found", func(t *testing.T) {
		rec := do(handler, http.MethodGet, "/api/commands/launch", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		rec := do(handler, http.MethodPost, "/api/commands", nil)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
		}
	})
}

func TestEventHandler(t *testing.T) {
	s := newTestStore(t)
	handler := NewEventHandler(s)

	for _, id := range []string{"a", "b", "c"} {
		e := command.Event{ID: id, Action: command.ActionHelp, Response: "r", Source: command.SourceVoice, TriggeredAt: time.Now()}
		if err := s.Events().Record(e); err != nil {
			t.Fatalf("failed to record event: %v", err)
		}
	}

	t.Run("list with limit", func(t *testing.T) {
		rec := do(handler, http.MethodGet, "/api/events?limit=2", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		var response listEventsResponse
		json.NewDecoder(rec.Body).Decode(&response)
		if len(response.Events) != 2 || response.Total != 3 {
			t.Errorf("expected 2 of 3 events, got %d of %d", len(response.Events), response.Total)
		}
	})

	t.Run("invalid limit", func(t *testing.T) {
		for _, q := range []string{"limit=abc", "limit=0", "offset=-1", "limit=1000"} {
			rec := do(handler, http.MethodGet, "/api/events?"+q, nil)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("%s: expected status %d, got %d", q, http.StatusBadRequest, rec.Code)
			}
		}
	})

	t.Run("clear", func(t *testing.T) {
		rec := do(handler, http.MethodDelete, "/api/events", nil)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
		}
		if n, _ := s.Events().Count(); n != 0 {
			t.Errorf("expected no events after clear, got %d", n)
		}
	})
}

func TestSessionHandler(t *testing.T) {
	s := newTestStore(t)

	t.Run("snapshot", func(t *testing.T) {
		handler := NewSessionHandler(newTestEngine(t, true), s, nil)
		rec := do(handler, http.MethodGet, "/api/session", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		var snap app.Snapshot
		if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if snap.Gesture.Running || !snap.ModelReady {
			t.Errorf("unexpected snapshot %+v", snap)
		}
	})

	t.Run("start and stop persist", func(t *testing.T) {
		handler := NewSessionHandler(newTestEngine(t, true), s, nil)

		rec := do(handler, http.MethodPost, "/api/session/gesture/start", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if !s.Settings().Bool(store.SettingGestureEnabled, false) {
			t.Error("expected gesture.enabled to be persisted")
		}

		rec = do(handler, http.MethodPost, "/api/session/gesture/stop", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if s.Settings().Bool(store.SettingGestureEnabled, true) {
			t.Error("expected gesture.enabled to be cleared")
		}
	})

	t.Run("model unavailable", func(t *testing.T) {
		handler := NewSessionHandler(newTestEngine(t, false), nil, nil)
		rec := do(handler, http.MethodPost, "/api/session/gesture/start", nil)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
		}
	})

	t.Run("bad paths", func(t *testing.T) {
		handler := NewSessionHandler(newTestEngine(t, true), nil, nil)
		for _, path := range []string{"/api/session/gaze/start", "/api/session/gesture/pause", "/api/session/gesture"} {
			rec := do(handler, http.MethodPost, path, nil)
			if rec.Code != http.StatusNotFound {
				t.Errorf("%s: expected status %d, got %d", path, http.StatusNotFound, rec.Code)
			}
		}
		rec := do(handler, http.MethodGet, "/api/session/gesture/start", nil)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
		}
	})
}

func TestTranscriptHandler_InvalidBody(t *testing.T) {
	engine, err := app.NewEngine(app.EngineConfig{SpeechSupported: true})
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	if err := engine.Start(app.ModalityVoice); err != nil {
		t.Fatalf("failed to start voice: %v", err)
	}
	handler := NewTranscriptHandler(engine)

	rec := do(handler, http.MethodPost, "/api/transcripts", []byte("{not json"))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestFrame_Sample(t *testing.T) {
	f := Frame{Timestamp: 1700000000000, Landmarks: make([]detector.Point3D, 20)}
	sample := f.Sample()
	if sample.HasHand() {
		t.Error("20 landmarks should be treated as no hand")
	}
	if sample.Timestamp.UnixMilli() != 1700000000000 {
		t.Errorf("unexpected timestamp %v", sample.Timestamp)
	}

	f.Landmarks = make([]detector.Point3D, 21)
	if !f.Sample().HasHand() {
		t.Error("21 landmarks should be a hand")
	}
}

func TestDisplayHandler(t *testing.T) {
	d := feedback.NewDisplay(time.Minute)
	handler := NewDisplayHandler(d)

	rec := do(handler, http.MethodGet, "/api/display", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}

	d.Show(command.Event{ID: "x", Response: command.ListeningPrompt})
	rec = do(handler, http.MethodGet, "/api/display", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var e command.Event
	json.NewDecoder(rec.Body).Decode(&e)
	if e.Response != command.ListeningPrompt {
		t.Errorf("unexpected event %+v", e)
	}
}
