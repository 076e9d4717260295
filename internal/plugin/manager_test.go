package plugin

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
)

func writeManifest(t *testing.T, fs afero.Fs, dir string, m Manifest) {
	t.Helper()
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}
	if err := afero.WriteFile(fs, filepath.Join(dir, ManifestFile), data, 0o644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
}

func TestManager_Discover(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeManifest(t, fs, "/plugins/speech", Manifest{
		Name:         "speech",
		Version:      "1.0.0",
		Description:  "Speaks responses",
		Executable:   "speech",
		Capabilities: []string{CapabilitySpeak},
	})

	manager := NewManager(fs, "/plugins", nil)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	if len(plugins) != 1 {
		t.Fatalf("expected 1 plugin, got %d", len(plugins))
	}

	p := plugins[0]
	if p.Manifest.Name != "speech" {
		t.Errorf("expected plugin name 'speech', got %q", p.Manifest.Name)
	}
	if p.Path != "/plugins/speech" {
		t.Errorf("expected path /plugins/speech, got %q", p.Path)
	}
	if p.Executable != "/plugins/speech/speech" {
		t.Errorf("expected executable /plugins/speech/speech, got %q", p.Executable)
	}
	if !p.Manifest.Supports(CapabilitySpeak) || p.Manifest.Supports(CapabilityNotify) {
		t.Errorf("unexpected capabilities %v", p.Manifest.Capabilities)
	}
}

func TestManager_Discover_MultiplePlugins(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeManifest(t, fs, "/plugins/speech", Manifest{Name: "speech", Executable: "speech", Capabilities: []string{CapabilitySpeak}})
	writeManifest(t, fs, "/plugins/notify", Manifest{Name: "notify", Executable: "notify", Capabilities: []string{CapabilityNotify}})

	manager := NewManager(fs, "/plugins", nil)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	if len(plugins) != 2 {
		t.Fatalf("expected 2 plugins, got %d", len(plugins))
	}
	if plugins[0].Manifest.Name != "notify" || plugins[1].Manifest.Name != "speech" {
		t.Errorf("expected plugins sorted by name, got %s, %s", plugins[0].Manifest.Name, plugins[1].Manifest.Name)
	}

	speakers := manager.WithCapability(CapabilitySpeak)
	if len(speakers) != 1 || speakers[0].Manifest.Name != "speech" {
		t.Errorf("expected only speech to speak, got %v", speakers)
	}
}

func TestManager_Discover_SkipsBadEntries(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeManifest(t, fs, "/plugins/good", Manifest{Name: "good", Executable: "good"})
	writeManifest(t, fs, "/plugins/nameless", Manifest{Executable: "x"})
	if err := afero.WriteFile(fs, "/plugins/broken/plugin.json", []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := fs.MkdirAll("/plugins/empty", 0o755); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, "/plugins/README", []byte("not a plugin"), 0o644); err != nil {
		t.Fatal(err)
	}

	manager := NewManager(fs, "/plugins", nil)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	if plugins := manager.List(); len(plugins) != 1 || plugins[0].Manifest.Name != "good" {
		t.Errorf("expected only the good plugin, got %d plugins", len(plugins))
	}
}

func TestManager_Discover_MissingDir(t *testing.T) {
	manager := NewManager(afero.NewMemMapFs(), "/does/not/exist", nil)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() should not fail for a missing dir: %v", err)
	}
	if len(manager.List()) != 0 {
		t.Error("expected no plugins")
	}
}

func TestManager_Discover_ClearsRemoved(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeManifest(t, fs, "/plugins/speech", Manifest{Name: "speech", Executable: "speech"})

	manager := NewManager(fs, "/plugins", nil)
	if err := manager.Discover(); err != nil {
		t.Fatal(err)
	}
	if err := fs.RemoveAll("/plugins/speech"); err != nil {
		t.Fatal(err)
	}
	if err := manager.Discover(); err != nil {
		t.Fatal(err)
	}

	if _, err := manager.Get("speech"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("expected ErrPluginNotFound, got %v", err)
	}
}

func TestManager_Get(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeManifest(t, fs, "/plugins/notify", Manifest{Name: "notify", Executable: "notify"})

	manager := NewManager(fs, "/plugins", nil)
	if err := manager.Discover(); err != nil {
		t.Fatal(err)
	}

	p, err := manager.Get("notify")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if p.Manifest.Name != "notify" {
		t.Errorf("expected notify, got %q", p.Manifest.Name)
	}

	if _, err := manager.Get("missing"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("expected ErrPluginNotFound, got %v", err)
	}

	if manager.PluginDir() != "/plugins" {
		t.Errorf("expected /plugins, got %q", manager.PluginDir())
	}
}
