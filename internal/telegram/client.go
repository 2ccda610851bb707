// Package telegram provides a minimal Bot API client and the webhook
// transport adapter in front of the conversation loop.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.telegram.org"

// Client is a hand-rolled Bot API client covering the few methods the
// relay needs: sendMessage, sendChatAction and setWebhook.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
}

// NewClient creates a Bot API client for the given token.
func NewClient(token string) *Client {
	return NewClientWithConfig(token, defaultBaseURL, 60*time.Second)
}

// NewClientWithConfig creates a client with a custom endpoint and timeout.
func NewClientWithConfig(token, baseURL string, timeout time.Duration) *Client {
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
}

// Bot API wire types (subset).

// Update is one inbound webhook event.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

// Message is an inbound chat message.
type Message struct {
	MessageID int64  `json:"message_id"`
	Chat      *Chat  `json:"chat,omitempty"`
	Text      string `json:"text,omitempty"`
}

// Chat identifies the conversation a message belongs to.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type,omitempty"` // private|group|supergroup|channel
}

type sendMessageRequest struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type sendChatActionRequest struct {
	ChatID int64  `json:"chat_id"`
	Action string `json:"action"`
}

type setWebhookRequest struct {
	URL string `json:"url"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// SendMessage delivers text to a chat using Markdown parse mode.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	return c.post(ctx, "sendMessage", sendMessageRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "Markdown",
	})
}

// SendChatAction shows a transient status ("typing") in the chat.
func (c *Client) SendChatAction(ctx context.Context, chatID int64, action string) error {
	return c.post(ctx, "sendChatAction", sendChatActionRequest{
		ChatID: chatID,
		Action: action,
	})
}

// SetWebhook points Telegram's delivery at the given public URL.
func (c *Client) SetWebhook(ctx context.Context, url string) error {
	return c.post(ctx, "setWebhook", setWebhookRequest{URL: url})
}

func (c *Client) post(ctx context.Context, method string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram %s: encode request: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram %s: create request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram %s: http %d: %s", method, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out apiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("telegram %s: parse response: %w", method, err)
	}
	if !out.OK {
		return fmt.Errorf("telegram %s: ok=false: %s", method, out.Description)
	}

	return nil
}
