// Package plugin discovers and runs external feedback plugins. A plugin is an
// executable in its own directory with a plugin.json manifest; it receives one
// JSON Request on stdin and answers with one JSON Response on stdout.
package plugin

import "encoding/json"

// Capabilities a plugin may declare.
const (
	CapabilitySpeak  = "speak"
	CapabilityNotify = "notify"
)

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Capabilities []string        `json:"capabilities"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Supports reports whether the manifest declares capability.
func (m Manifest) Supports(capability string) bool {
	for _, c := range m.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// Request is sent to a plugin for one command event.
type Request struct {
	// Capability selects what the plugin should do, e.g. "speak".
	Capability string          `json:"capability"`
	Action     string          `json:"action,omitempty"`
	Text       string          `json:"text"`
	Urgent     bool            `json:"urgent"`
	Config     json.RawMessage `json:"config,omitempty"`
	Params     json.RawMessage `json:"params,omitempty"`
}

// Response is a plugin's answer.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
