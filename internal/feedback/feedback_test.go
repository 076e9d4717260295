package feedback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/command"
	"github.com/ayusman/mudra/internal/plugin"
)

type fakeHaptics struct {
	mu       sync.Mutex
	patterns []Pattern
}

func (f *fakeHaptics) Pulse(_ context.Context, p Pattern) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patterns = append(f.patterns, p)
	return nil
}

type fakeSpeaker struct {
	said []string
	err  error
}

func (f *fakeSpeaker) Speak(_ context.Context, text string) error {
	f.said = append(f.said, text)
	return f.err
}

func emergencyEvent() command.Event {
	return command.Event{
		ID:       "e1",
		Action:   command.ActionEmergency,
		Response: "Emergency lock activated! Your account has been secured immediately.",
		Urgent:   true,
	}
}

func TestPatternFor(t *testing.T) {
	assert.Equal(t, []int64{100, 50, 100}, PatternFor(false).Milliseconds())
	assert.Equal(t, []int64{200, 100, 200, 100, 200}, PatternFor(true).Milliseconds())
}

func TestRouter_Handle(t *testing.T) {
	h := &fakeHaptics{}
	s := &fakeSpeaker{}
	d := NewDisplay(time.Minute)
	r := NewRouter(RouterConfig{Haptics: h, Speaker: s, Display: d})

	require.NoError(t, r.Handle(context.Background(), emergencyEvent()))

	require.Len(t, h.patterns, 1)
	assert.Equal(t, UrgentPattern, h.patterns[0])
	assert.Equal(t, []string{emergencyEvent().Response}, s.said)

	shown, ok := d.Current()
	require.True(t, ok)
	assert.Equal(t, command.ActionEmergency, shown.Action)
}

func TestRouter_InformationalEventDoesNotPulse(t *testing.T) {
	h := &fakeHaptics{}
	s := &fakeSpeaker{}
	r := NewRouter(RouterConfig{Haptics: h, Speaker: s})

	require.NoError(t, r.Handle(context.Background(), command.Event{Response: command.ListeningPrompt}))

	assert.Empty(t, h.patterns)
	assert.Equal(t, []string{command.ListeningPrompt}, s.said)
}

func TestRouter_ContinuesAfterFailure(t *testing.T) {
	h := &fakeHaptics{}
	s := &fakeSpeaker{err: errors.New("no audio")}
	d := NewDisplay(time.Minute)
	r := NewRouter(RouterConfig{Haptics: h, Speaker: s, Display: d})

	err := r.Handle(context.Background(), emergencyEvent())

	assert.ErrorContains(t, err, "no audio")
	assert.Len(t, h.patterns, 1)
	_, ok := d.Current()
	assert.True(t, ok)
}

func TestDisplay_AutoClear(t *testing.T) {
	d := NewDisplay(30 * time.Millisecond)
	d.Show(emergencyEvent())

	_, ok := d.Current()
	require.True(t, ok)

	assert.Eventually(t, func() bool {
		_, ok := d.Current()
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestDisplay_ShowReplacesAndClear(t *testing.T) {
	d := NewDisplay(0)
	d.Show(emergencyEvent())
	d.Show(command.Event{ID: "e2", Action: command.ActionHelp})

	shown, ok := d.Current()
	require.True(t, ok)
	assert.Equal(t, "e2", shown.ID)

	d.Clear()
	_, ok = d.Current()
	assert.False(t, ok)
}

func TestBus_FansOut(t *testing.T) {
	bus := NewBus(nil)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 4)
	for _, name := range []string{"a", "b"} {
		name := name
		require.NoError(t, bus.Subscribe(ctx, name, func(_ context.Context, e command.Event) error {
			got <- name + ":" + e.Action
			return nil
		}))
	}

	bus.OnCommand(command.Event{ID: "1", Action: command.ActionBalance})

	var received []string
	for i := 0; i < 2; i++ {
		select {
		case r := <-got:
			received = append(received, r)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for subscribers")
		}
	}
	assert.ElementsMatch(t, []string{"a:balance", "b:balance"}, received)
}

func TestBus_HandlerErrorDoesNotStall(t *testing.T) {
	bus := NewBus(nil)
	defer bus.Close()

	got := make(chan string, 2)
	require.NoError(t, bus.Subscribe(context.Background(), "flaky", func(_ context.Context, e command.Event) error {
		got <- e.ID
		return errors.New("boom")
	}))

	bus.OnCommand(command.Event{ID: "1"})
	bus.OnCommand(command.Event{ID: "2"})

	var ids []string
	for i := 0; i < 2; i++ {
		select {
		case id := <-got:
			ids = append(ids, id)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out; failing handler stalled the bus")
		}
	}
	assert.ElementsMatch(t, []string{"1", "2"}, ids)
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "mudra.commands.balance", Subject(command.Event{Action: "balance"}))
	assert.Equal(t, "mudra.commands.info", Subject(command.Event{}))
	assert.Equal(t, "mudra.commands.a_b", Subject(command.Event{Action: "a.b"}))
}

type fakeCatalog map[string][]*plugin.Plugin

func (f fakeCatalog) WithCapability(c string) []*plugin.Plugin { return f[c] }

type fakeRunner struct {
	reqs []plugin.Request
	resp *plugin.Response
}

func (f *fakeRunner) Execute(_ context.Context, _ *plugin.Plugin, req *plugin.Request) (*plugin.Response, error) {
	f.reqs = append(f.reqs, *req)
	return f.resp, nil
}

func TestPlugins(t *testing.T) {
	speech := &plugin.Plugin{Manifest: plugin.Manifest{Name: "speech"}}
	catalog := fakeCatalog{plugin.CapabilitySpeak: {speech}}

	t.Run("speak", func(t *testing.T) {
		runner := &fakeRunner{resp: &plugin.Response{Success: true}}
		p := NewPlugins(catalog, runner)

		require.NoError(t, p.Speak(context.Background(), "hello"))
		require.Len(t, runner.reqs, 1)
		assert.Equal(t, plugin.CapabilitySpeak, runner.reqs[0].Capability)
		assert.Equal(t, "hello", runner.reqs[0].Text)
	})

	t.Run("no notify plugins", func(t *testing.T) {
		runner := &fakeRunner{resp: &plugin.Response{Success: true}}
		p := NewPlugins(catalog, runner)

		require.NoError(t, p.Notify(context.Background(), emergencyEvent()))
		assert.Empty(t, runner.reqs)
	})

	t.Run("plugin failure", func(t *testing.T) {
		runner := &fakeRunner{resp: &plugin.Response{Error: "espeak missing"}}
		p := NewPlugins(catalog, runner)

		assert.ErrorContains(t, p.Speak(context.Background(), "hello"), "espeak missing")
	})
}
