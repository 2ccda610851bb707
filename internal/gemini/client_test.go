package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"tanya/internal/capability"
	"tanya/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewClientWithConfig("test-key", "test-model", server.URL, 5*time.Second, testLogger())
	return client, server
}

func userTurns(text string) []domain.Turn {
	return []domain.Turn{domain.TextTurn(domain.RoleUser, text)}
}

func TestGenerate(t *testing.T) {
	ctx := context.Background()

	t.Run("text candidate becomes a final answer", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"candidates": []map[string]any{{
					"content": map[string]any{
						"role":  "model",
						"parts": []map[string]any{{"text": "Hello!"}},
					},
					"finishReason": "STOP",
				}},
			})
		})

		out, err := client.Generate(ctx, userTurns("hi"), nil)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		answer, ok := out.(FinalAnswer)
		if !ok {
			t.Fatalf("expected FinalAnswer, got %T", out)
		}
		if answer.Text != "Hello!" {
			t.Errorf("expected 'Hello!', got %q", answer.Text)
		}
		if answer.ModelTurn.Role != domain.RoleModel {
			t.Errorf("model turn has role %q", answer.ModelTurn.Role)
		}
	})

	t.Run("function call becomes a capability request", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"candidates": []map[string]any{{
					"content": map[string]any{
						"role": "model",
						"parts": []map[string]any{{
							"functionCall": map[string]any{
								"name": "getCurrentWeather",
								"args": map[string]any{"city": "Oslo"},
							},
						}},
					},
				}},
			})
		})

		out, err := client.Generate(ctx, userTurns("weather?"), nil)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		req, ok := out.(CapabilityRequest)
		if !ok {
			t.Fatalf("expected CapabilityRequest, got %T", out)
		}
		if req.Name != "getCurrentWeather" {
			t.Errorf("expected getCurrentWeather, got %q", req.Name)
		}
		if req.Args["city"] != "Oslo" {
			t.Errorf("unexpected args: %v", req.Args)
		}
		if !req.ModelTurn.CallsCapability() {
			t.Error("model turn should carry the function call verbatim")
		}
	})

	t.Run("declarations are sent in the request body", func(t *testing.T) {
		var captured generateRequest
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&captured)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"candidates": []map[string]any{{
					"content": map[string]any{"role": "model", "parts": []map[string]any{{"text": "ok"}}},
				}},
			})
		})

		decls := []capability.Declaration{{
			Name:        "getCurrentWeather",
			Description: "Look up current weather",
			Parameters: map[string]capability.Parameter{
				"city": {Type: "string", Description: "City name", Required: true},
			},
		}}
		if _, err := client.Generate(ctx, userTurns("hi"), decls); err != nil {
			t.Fatalf("Generate failed: %v", err)
		}

		if len(captured.Tools) != 1 || len(captured.Tools[0].FunctionDeclarations) != 1 {
			t.Fatalf("expected one tool with one declaration, got %+v", captured.Tools)
		}
		fd := captured.Tools[0].FunctionDeclarations[0]
		if fd.Name != "getCurrentWeather" {
			t.Errorf("unexpected declaration name %q", fd.Name)
		}
		if fd.Parameters == nil || len(fd.Parameters.Required) != 1 || fd.Parameters.Required[0] != "city" {
			t.Errorf("unexpected parameter schema: %+v", fd.Parameters)
		}
	})

	t.Run("safety finish reason is a blocked error", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"candidates": []map[string]any{{
					"finishReason": "SAFETY",
				}},
			})
		})

		_, err := client.Generate(ctx, userTurns("bad"), nil)
		var blocked *domain.BlockedError
		if !errors.As(err, &blocked) {
			t.Fatalf("expected BlockedError, got %v", err)
		}
		if blocked.Reason != "SAFETY" {
			t.Errorf("expected reason SAFETY, got %q", blocked.Reason)
		}
	})

	t.Run("prompt feedback block reason is surfaced", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"candidates":     []any{},
				"promptFeedback": map[string]any{"blockReason": "PROHIBITED_CONTENT"},
			})
		})

		_, err := client.Generate(ctx, userTurns("bad"), nil)
		var blocked *domain.BlockedError
		if !errors.As(err, &blocked) {
			t.Fatalf("expected BlockedError, got %v", err)
		}
		if blocked.Reason != "PROHIBITED_CONTENT" {
			t.Errorf("expected PROHIBITED_CONTENT, got %q", blocked.Reason)
		}
	})

	t.Run("no candidates without feedback is still blocked", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{})
		})

		_, err := client.Generate(ctx, userTurns("hi"), nil)
		var blocked *domain.BlockedError
		if !errors.As(err, &blocked) {
			t.Fatalf("expected BlockedError, got %v", err)
		}
		if blocked.Reason != "NO_CANDIDATES" {
			t.Errorf("expected NO_CANDIDATES, got %q", blocked.Reason)
		}
	})

	t.Run("non-200 status is a provider error with a truncated excerpt", func(t *testing.T) {
		longBody := strings.Repeat("x", 500)
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(longBody))
		})

		_, err := client.Generate(ctx, userTurns("hi"), nil)
		var provider *domain.ProviderError
		if !errors.As(err, &provider) {
			t.Fatalf("expected ProviderError, got %v", err)
		}
		if provider.Status != http.StatusServiceUnavailable {
			t.Errorf("expected status 503, got %d", provider.Status)
		}
		if len(provider.Detail) != errorExcerptLen {
			t.Errorf("expected detail truncated to %d chars, got %d", errorExcerptLen, len(provider.Detail))
		}
	})

	t.Run("error excerpt never splits a rune", func(t *testing.T) {
		// 3-byte runes ensure the length cap lands mid-sequence.
		longBody := strings.Repeat("€", 100)
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(longBody))
		})

		_, err := client.Generate(ctx, userTurns("hi"), nil)
		var provider *domain.ProviderError
		if !errors.As(err, &provider) {
			t.Fatalf("expected ProviderError, got %v", err)
		}
		if !utf8.ValidString(provider.Detail) {
			t.Error("detail excerpt is not valid UTF-8")
		}
		if len(provider.Detail) > errorExcerptLen {
			t.Errorf("detail exceeds %d bytes: %d", errorExcerptLen, len(provider.Detail))
		}
	})

	t.Run("candidate without parts is a provider error", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"candidates": []map[string]any{{
					"content": map[string]any{"role": "model", "parts": []any{}},
				}},
			})
		})

		_, err := client.Generate(ctx, userTurns("hi"), nil)
		var provider *domain.ProviderError
		if !errors.As(err, &provider) {
			t.Fatalf("expected ProviderError, got %v", err)
		}
		if provider.Status != http.StatusBadGateway {
			t.Errorf("expected status 502, got %d", provider.Status)
		}
	})

	t.Run("unrecognized part shape is a provider error", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"candidates": []map[string]any{{
					"content": map[string]any{
						"role":  "model",
						"parts": []map[string]any{{"inlineData": map[string]any{"mimeType": "image/png", "data": "aaaa"}}},
					},
				}},
			})
		})

		_, err := client.Generate(ctx, userTurns("hi"), nil)
		var provider *domain.ProviderError
		if !errors.As(err, &provider) {
			t.Fatalf("expected ProviderError, got %v", err)
		}
	})

	t.Run("request targets the configured model", func(t *testing.T) {
		var path, query string
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			path = r.URL.Path
			query = r.URL.RawQuery
			_ = json.NewEncoder(w).Encode(map[string]any{
				"candidates": []map[string]any{{
					"content": map[string]any{"role": "model", "parts": []map[string]any{{"text": "ok"}}},
				}},
			})
		})

		if _, err := client.Generate(ctx, userTurns("hi"), nil); err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if path != "/models/test-model:generateContent" {
			t.Errorf("unexpected path %q", path)
		}
		if !strings.Contains(query, "key=test-key") {
			t.Errorf("api key missing from query %q", query)
		}
	})
}
