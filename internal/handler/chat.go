package handler

import (
	"context"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"tanya/internal/conversation"
	"tanya/internal/domain"
	"tanya/internal/httputil"
)

// Converser runs one exchange; implemented by conversation.Service.
type Converser interface {
	Converse(ctx context.Context, prior []domain.Turn, in conversation.Input) (*conversation.Reply, error)
}

// ChatRequest is the web chat payload. History travels with the request;
// the web UI owns persistence between exchanges.
type ChatRequest struct {
	Prompt    string        `json:"prompt"`
	History   []domain.Turn `json:"history"`
	ImageData string        `json:"imageData"` // base64-encoded
	MimeType  string        `json:"mimeType"`
}

// Validate checks structural requirements. The prompt-or-image rule
// itself is enforced by the conversation service.
func (r ChatRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.MimeType,
			validation.When(r.ImageData != "", validation.Required.Error("mimeType is required with imageData")),
		),
	)
}

// ChatResponse carries the final answer plus the full updated history for
// the client to send back on its next request.
type ChatResponse struct {
	Response       string        `json:"response"`
	UpdatedHistory []domain.Turn `json:"updatedHistory"`
}

// ChatHandler handles web chat HTTP requests.
type ChatHandler struct {
	conversations Converser
	logger        *slog.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(conversations Converser, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		conversations: conversations,
		logger:        logger,
	}
}

// Chat runs one exchange for the web UI
// POST /api/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		handleError(w, &domain.ValidationError{Message: err.Error()})
		return
	}

	reply, err := h.conversations.Converse(r.Context(), req.History, conversation.Input{
		Text:      req.Prompt,
		MediaData: req.ImageData,
		MediaMIME: req.MimeType,
	})
	if err != nil {
		h.logger.Warn("web exchange failed", "error", err)
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, ChatResponse{
		Response:       reply.Text,
		UpdatedHistory: reply.History,
	})
}

// HealthCheck reports liveness
// GET /health
func (h *ChatHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
