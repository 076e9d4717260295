// Package tray provides a system tray menu for the mudra command daemon.
package tray

import (
	"context"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/command"
)

// ToggleFunc starts or stops a modality. A non-nil error keeps the menu in
// its previous state.
type ToggleFunc func(m app.Modality, enabled bool) error

// Tray represents the system tray application.
type Tray struct {
	onToggle   ToggleFunc
	onSettings func()
	onQuit     func()
	enabled    map[app.Modality]bool
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuItems       map[app.Modality]*systray.MenuItem
	menuLastCommand *systray.MenuItem
}

// New creates a new Tray with the given initial modality states.
func New(gestureOn, voiceOn bool) *Tray {
	return &Tray{
		enabled: map[app.Modality]bool{
			app.ModalityGesture: gestureOn,
			app.ModalityVoice:   voiceOn,
		},
		menuItems: make(map[app.Modality]*systray.MenuItem),
	}
}

// OnToggle sets the callback function to be called when a modality is toggled.
func (t *Tray) OnToggle(fn ToggleFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnSettings sets the callback function to be called when the settings menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit closes the tray from outside the menu.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Mudra")
	systray.SetTooltip("Mudra gesture and voice commands")

	t.mu.Lock()
	gestureItem := systray.AddMenuItem(menuTitle(app.ModalityGesture, t.enabled[app.ModalityGesture]), "Toggle gesture recognition")
	voiceItem := systray.AddMenuItem(menuTitle(app.ModalityVoice, t.enabled[app.ModalityVoice]), "Toggle voice commands")
	t.menuItems[app.ModalityGesture] = gestureItem
	t.menuItems[app.ModalityVoice] = voiceItem
	systray.AddSeparator()

	t.menuLastCommand = systray.AddMenuItem("Last: none", "Last command")
	t.menuLastCommand.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Mudra")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-gestureItem.ClickedCh:
				t.toggle(app.ModalityGesture)
			case <-voiceItem.ClickedCh:
				t.toggle(app.ModalityVoice)
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func menuTitle(m app.Modality, enabled bool) string {
	name := "Gestures"
	if m == app.ModalityVoice {
		name = "Voice"
	}
	if enabled {
		return "● " + name
	}
	return "○ " + name
}

// toggle flips m and reports the new state. The callback runs outside the
// lock; if it fails the state is left unchanged.
func (t *Tray) toggle(m app.Modality) bool {
	t.mu.RLock()
	next := !t.enabled[m]
	callback := t.onToggle
	t.mu.RUnlock()

	if callback != nil {
		if err := callback(m, next); err != nil {
			return !next
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled[m] = next
	if item := t.menuItems[m]; item != nil {
		item.SetTitle(menuTitle(m, next))
	}
	return next
}

// SetEnabled shows m as on or off without calling the toggle callback. It
// reflects state changes made elsewhere, e.g. a failed speech source.
func (t *Tray) SetEnabled(m app.Modality, enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled[m] = enabled
	if item := t.menuItems[m]; item != nil {
		item.SetTitle(menuTitle(m, enabled))
	}
}

// handleSettings handles the settings menu item click.
func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// Handle shows the action of e as the last command. It has the feedback bus
// handler signature.
func (t *Tray) Handle(_ context.Context, e command.Event) error {
	if e.Action != "" {
		t.SetLastCommand(e.Action)
	}
	return nil
}

// SetLastCommand updates the last command display in the menu.
func (t *Tray) SetLastCommand(name string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuLastCommand != nil {
		if name == "" {
			t.menuLastCommand.SetTitle("Last: none")
		} else {
			t.menuLastCommand.SetTitle("Last: " + name)
		}
	}
}

// IsEnabled returns whether m is enabled in the menu.
func (t *Tray) IsEnabled(m app.Modality) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled[m]
}
