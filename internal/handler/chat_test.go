package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"tanya/internal/conversation"
	"tanya/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubConverser returns a canned reply or error.
type stubConverser struct {
	reply *conversation.Reply
	err   error
	seen  conversation.Input
}

func (s *stubConverser) Converse(_ context.Context, prior []domain.Turn, in conversation.Input) (*conversation.Reply, error) {
	s.seen = in
	if s.err != nil {
		return nil, s.err
	}
	return s.reply, nil
}

func postChat(t *testing.T, h *ChatHandler, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.Chat(w, req)
	return w
}

func TestChat(t *testing.T) {
	t.Run("successful exchange returns the reply and history", func(t *testing.T) {
		stub := &stubConverser{reply: &conversation.Reply{
			Text: "hi there",
			History: []domain.Turn{
				domain.TextTurn(domain.RoleUser, "hello"),
				domain.TextTurn(domain.RoleModel, "hi there"),
			},
		}}
		h := NewChatHandler(stub, testLogger())

		w := postChat(t, h, ChatRequest{Prompt: "hello"})
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var resp ChatResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal response: %v", err)
		}
		if resp.Response != "hi there" {
			t.Errorf("expected 'hi there', got %q", resp.Response)
		}
		if len(resp.UpdatedHistory) != 2 {
			t.Errorf("expected 2 turns, got %d", len(resp.UpdatedHistory))
		}
	})

	t.Run("image fields are forwarded to the conversation", func(t *testing.T) {
		stub := &stubConverser{reply: &conversation.Reply{Text: "a cat"}}
		h := NewChatHandler(stub, testLogger())

		w := postChat(t, h, ChatRequest{
			Prompt:    "what is this?",
			ImageData: "aGVsbG8=",
			MimeType:  "image/png",
		})
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if stub.seen.MediaData != "aGVsbG8=" || stub.seen.MediaMIME != "image/png" {
			t.Errorf("image not forwarded: %+v", stub.seen)
		}
	})

	t.Run("image without mime type is rejected", func(t *testing.T) {
		h := NewChatHandler(&stubConverser{}, testLogger())
		w := postChat(t, h, ChatRequest{ImageData: "aGVsbG8="})
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
		if !bytes.Contains(w.Body.Bytes(), []byte("mimeType is required")) {
			t.Errorf("expected the validation message in the body, got %s", w.Body.String())
		}
	})

	t.Run("empty input maps to 400", func(t *testing.T) {
		stub := &stubConverser{err: &domain.EmptyInputError{}}
		h := NewChatHandler(stub, testLogger())

		w := postChat(t, h, ChatRequest{})
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})

	t.Run("blocked exchange maps to 400 with the reason", func(t *testing.T) {
		stub := &stubConverser{err: &domain.BlockedError{Reason: "SAFETY"}}
		h := NewChatHandler(stub, testLogger())

		w := postChat(t, h, ChatRequest{Prompt: "bad"})
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
		if !bytes.Contains(w.Body.Bytes(), []byte("SAFETY")) {
			t.Errorf("expected reason in body, got %s", w.Body.String())
		}
	})

	t.Run("provider failure maps to the upstream status", func(t *testing.T) {
		stub := &stubConverser{err: &domain.ProviderError{Status: 503, Detail: "overloaded"}}
		h := NewChatHandler(stub, testLogger())

		w := postChat(t, h, ChatRequest{Prompt: "hi"})
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("expected 503, got %d", w.Code)
		}
	})

	t.Run("iteration limit maps to 500", func(t *testing.T) {
		stub := &stubConverser{err: domain.ErrIterationLimit}
		h := NewChatHandler(stub, testLogger())

		w := postChat(t, h, ChatRequest{Prompt: "hi"})
		if w.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", w.Code)
		}
	})

	t.Run("malformed body is rejected", func(t *testing.T) {
		h := NewChatHandler(&stubConverser{}, testLogger())
		req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader([]byte("not json")))
		w := httptest.NewRecorder()
		h.Chat(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})
}

func TestHealthCheck(t *testing.T) {
	h := NewChatHandler(&stubConverser{}, testLogger())
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.HealthCheck(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("unexpected body: %v", body)
	}
}
