// Package main provides a desktop notification plugin.
// It shows command responses via AppleScript on macOS and notify-send on Linux.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Request represents the input from the plugin executor.
type Request struct {
	Capability string          `json:"capability"`
	Action     string          `json:"action"`
	Text       string          `json:"text"`
	Urgent     bool            `json:"urgent"`
	Config     json.RawMessage `json:"config"`
	Params     json.RawMessage `json:"params"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

const appName = "Mudra"

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	if req.Capability != "notify" {
		writeErrorResponse(fmt.Sprintf("unsupported capability: %s", req.Capability))
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeErrorResponse("text is required")
		return
	}

	if err := notify(title(req), req.Text, req.Urgent); err != nil {
		writeErrorResponse(fmt.Sprintf("notify failed: %v", err))
		return
	}

	writeSuccessResponse()
}

// title builds the notification title from the action code.
func title(req Request) string {
	if req.Action == "" {
		return appName
	}
	return appName + ": " + req.Action
}

func notify(title, body string, urgent bool) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf(`display notification %s with title %s`, appleQuote(body), appleQuote(title))
		if urgent {
			script += ` sound name "Sosumi"`
		}
		cmd = exec.Command("osascript", "-e", script)
	default:
		urgency := "normal"
		if urgent {
			urgency = "critical"
		}
		cmd = exec.Command("notify-send", "-u", urgency, "-a", appName, title, body)
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

// appleQuote returns s as an AppleScript string literal.
func appleQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse() {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true})
}
