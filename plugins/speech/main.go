// Package main provides a text-to-speech plugin.
// It speaks response text with `say` on macOS and `espeak` elsewhere.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
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

// SpeechConfig tunes the voice. Rate is relative to the engine default.
type SpeechConfig struct {
	Rate  float64 `json:"rate"`
	Voice string  `json:"voice"`
}

// baseWPM is the words-per-minute both engines treat as normal speed.
const baseWPM = 200

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	if req.Capability != "speak" {
		writeErrorResponse(fmt.Sprintf("unsupported capability: %s", req.Capability))
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeErrorResponse("text is required")
		return
	}

	cfg := SpeechConfig{Rate: 0.9}
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("failed to parse config: %v", err))
			return
		}
	}

	if err := speak(text, cfg); err != nil {
		writeErrorResponse(fmt.Sprintf("speak failed: %v", err))
		return
	}

	writeSuccessResponse()
}

// speak runs the platform speech engine and waits for it to finish.
func speak(text string, cfg SpeechConfig) error {
	wpm := strconv.Itoa(int(baseWPM * cfg.Rate))

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		args := []string{"-r", wpm}
		if cfg.Voice != "" {
			args = append(args, "-v", cfg.Voice)
		}
		cmd = exec.Command("say", append(args, text)...)
	default:
		args := []string{"-s", wpm}
		if cfg.Voice != "" {
			args = append(args, "-v", cfg.Voice)
		}
		cmd = exec.Command("espeak", append(args, text)...)
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse() {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true})
}
