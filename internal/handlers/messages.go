package handlers

import (
	"net/http"

	"github.com/amromran102/gitlab-registry-explorer/internal/host"
)

// MessageSource hands out queued user messages.
type MessageSource interface {
	Drain() []host.Message
}

// MessagesHandler returns and clears the queued user messages.
type MessagesHandler struct {
	source MessageSource
}

// NewMessagesHandler creates a new MessagesHandler.
func NewMessagesHandler(source MessageSource) *MessagesHandler {
	return &MessagesHandler{source: source}
}

// MessagesResponse represents the queued messages, oldest first.
type MessagesResponse struct {
	Messages []host.Message `json:"messages"`
}

// ServeHTTP handles GET /api/messages.
func (h *MessagesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r.Context(), MessagesResponse{Messages: h.source.Drain()})
}
