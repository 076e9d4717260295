package api

import (
	"net/http"
	"strings"

	"github.com/ayusman/mudra/internal/command"
	"github.com/ayusman/mudra/internal/gesture"
)

type commandResponse struct {
	Action      string   `json:"action"`
	Gesture     string   `json:"gesture,omitempty"`
	Keywords    []string `json:"keywords"`
	Phrases     []string `json:"phrases"`
	Response    string   `json:"response"`
	Description string   `json:"description,omitempty"`
	Urgent      bool     `json:"urgent"`
}

type listCommandsResponse struct {
	Commands []commandResponse `json:"commands"`
}

func toCommandResponse(d command.Definition) commandResponse {
	resp := commandResponse{
		Action:      d.Action,
		Keywords:    d.Keywords,
		Phrases:     d.Phrases,
		Response:    d.Response,
		Description: d.Description,
		Urgent:      d.Urgent,
	}
	if d.Gesture != gesture.None {
		resp.Gesture = d.Gesture.String()
	}
	if resp.Keywords == nil {
		resp.Keywords = []string{}
	}
	if resp.Phrases == nil {
		resp.Phrases = []string{}
	}
	return resp
}

// CommandHandler serves the command table.
type CommandHandler struct {
	table *command.Table
}

// NewCommandHandler creates a CommandHandler.
func NewCommandHandler(table *command.Table) *CommandHandler {
	return &CommandHandler{table: table}
}

// ServeHTTP handles GET /api/commands and GET /api/commands/{action}.
func (h *CommandHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	action := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/commands"), "/")
	if action == "" {
		defs := h.table.Definitions()
		response := listCommandsResponse{Commands: make([]commandResponse, 0, len(defs))}
		for _, d := range defs {
			response.Commands = append(response.Commands, toCommandResponse(d))
		}
		writeJSON(w, http.StatusOK, response)
		return
	}

	d, ok := h.table.Lookup(action)
	if !ok {
		writeError(w, http.StatusNotFound, "Command not found")
		return
	}
	writeJSON(w, http.StatusOK, toCommandResponse(d))
}
