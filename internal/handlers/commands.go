package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/amromran102/gitlab-registry-explorer/internal/contextutil"
	"github.com/amromran102/gitlab-registry-explorer/internal/service"
)

// CommandHandler handles HTTP requests that invoke host commands.
type CommandHandler struct {
	commands service.CommandService
}

// NewCommandHandler creates a new CommandHandler.
func NewCommandHandler(commands service.CommandService) *CommandHandler {
	return &CommandHandler{commands: commands}
}

// CommandRequest represents the optional HTTP request payload of a command.
type CommandRequest struct {
	Query    string `json:"query"`
	RepoID   int    `json:"repo_id"`
	ImageRef string `json:"image_ref"`
	Token    string `json:"token"`
}

// CommandResponse represents the HTTP response payload of a command.
type CommandResponse struct {
	Message     string   `json:"message,omitempty"`
	Filter      string   `json:"filter,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// ServeHTTP handles POST /api/commands/{name}.
func (h *CommandHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.commands.Execute(ctx, service.Command{
		Name:     chi.URLParam(r, "name"),
		Query:    req.Query,
		RepoID:   req.RepoID,
		ImageRef: req.ImageRef,
		Token:    req.Token,
	})
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to execute command")
		return
	}

	writeJSON(w, ctx, CommandResponse{
		Message:     res.Message,
		Filter:      res.Filter,
		Suggestions: res.Suggestions,
	})
}
