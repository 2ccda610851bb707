package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"tanya/internal/conversation"
	"tanya/internal/domain"
	"tanya/internal/history"
	"tanya/internal/httputil"
)

const (
	greeting   = "Hello! I'm your AI assistant. Send me a message to start a conversation."
	clearedAck = "Conversation history has been cleared."
)

// Converser runs one exchange; implemented by conversation.Service.
type Converser interface {
	Converse(ctx context.Context, prior []domain.Turn, in conversation.Input) (*conversation.Reply, error)
}

// WebhookHandler maps inbound Telegram updates onto the conversation
// loop. Unlike the web path, history is owned by the relay here, keyed by
// chat id and serialized with a per-conversation lock.
type WebhookHandler struct {
	client        *Client
	conversations Converser
	store         history.Store
	locks         *history.Locker
	logger        *slog.Logger
}

// NewWebhookHandler creates a webhook handler.
func NewWebhookHandler(client *Client, conversations Converser, store history.Store, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		client:        client,
		conversations: conversations,
		store:         store,
		locks:         history.NewLocker(),
		logger:        logger,
	}
}

// HandleUpdate processes one webhook delivery
// POST /telegram/webhook
//
// Telegram redelivers updates that are not acknowledged, so every parsed
// update is answered with 200 even when the exchange itself fails; the
// failure goes back to the user as a chat message instead.
func (h *WebhookHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var update Update
	if err := httputil.ParseJSON(w, r, &update); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid update payload")
		return
	}

	if update.Message == nil || update.Message.Chat == nil || update.Message.Text == "" {
		h.logger.Debug("ignoring non-text update", "update_id", update.UpdateID)
		w.WriteHeader(http.StatusOK)
		return
	}

	h.processMessage(r.Context(), update.Message)
	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) processMessage(ctx context.Context, msg *Message) {
	chatID := msg.Chat.ID
	convID := ConversationID(chatID)

	switch msg.Text {
	case "/start":
		h.send(ctx, chatID, greeting)
		return
	case "/clear":
		if err := h.store.Clear(ctx, convID); err != nil {
			h.logger.Error("clear history failed", "conversation_id", convID, "error", err)
			h.send(ctx, chatID, "Sorry, I could not clear the history. Please try again.")
			return
		}
		h.send(ctx, chatID, clearedAck)
		return
	}

	// Serialize exchanges per chat: without the lock two quick messages
	// would both load the same prior history and the later save would
	// silently drop the earlier exchange's turns.
	unlock := h.locks.Lock(convID)
	defer unlock()

	if err := h.client.SendChatAction(ctx, chatID, "typing"); err != nil {
		h.logger.Debug("send chat action failed", "chat_id", chatID, "error", err)
	}

	prior, err := h.store.Load(ctx, convID)
	if err != nil {
		h.logger.Error("load history failed", "conversation_id", convID, "error", err)
		h.send(ctx, chatID, "Sorry, something went wrong on the server. Please try again.")
		return
	}

	reply, err := h.conversations.Converse(ctx, prior, conversation.Input{Text: msg.Text})
	if err != nil {
		// The turns accumulated before the failure stay in persisted
		// history; the user's message is part of the conversation even
		// when the model declined to answer it.
		if reply != nil && len(reply.History) > len(prior) {
			if saveErr := h.store.Save(ctx, convID, reply.History); saveErr != nil {
				h.logger.Error("save history failed", "conversation_id", convID, "error", saveErr)
			}
		}
		h.logger.Warn("telegram exchange failed", "conversation_id", convID, "error", err)
		h.send(ctx, chatID, userFacingMessage(err))
		return
	}

	if err := h.store.Save(ctx, convID, reply.History); err != nil {
		// The answer is still worth delivering; only continuity is lost.
		h.logger.Error("save history failed", "conversation_id", convID, "error", err)
	}

	h.send(ctx, chatID, reply.Text)
}

func (h *WebhookHandler) send(ctx context.Context, chatID int64, text string) {
	if err := h.client.SendMessage(ctx, chatID, text); err != nil {
		h.logger.Error("send message failed", "chat_id", chatID, "error", err)
	}
}

// ConversationID derives the history key for a chat.
func ConversationID(chatID int64) string {
	return fmt.Sprintf("chat:%d", chatID)
}

// userFacingMessage converts a terminal exchange failure into a short
// message safe to display in the chat.
func userFacingMessage(err error) string {
	var blocked *domain.BlockedError
	if errors.As(err, &blocked) {
		return fmt.Sprintf("Sorry, that request was blocked (%s).", blocked.Reason)
	}

	var provider *domain.ProviderError
	if errors.As(err, &provider) {
		return fmt.Sprintf("Sorry, the model service failed (status %d). Please try again later.", provider.Status)
	}

	var empty *domain.EmptyInputError
	if errors.As(err, &empty) {
		return "Please send some text to start a conversation."
	}

	if errors.Is(err, domain.ErrIterationLimit) {
		return "Sorry, I could not complete that request. Please try rephrasing it."
	}

	return "Sorry, something went wrong on the server. Please try again."
}
