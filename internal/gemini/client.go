package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"tanya/internal/capability"
	"tanya/internal/domain"
)

const (
	// DefaultBaseURL is the provider's API root.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	// DefaultTimeout bounds one generateContent round trip.
	DefaultTimeout = 60 * time.Second

	// errorExcerptLen caps how much of a provider error body is surfaced.
	errorExcerptLen = 200
)

// Outcome is the classified result of one generateContent round trip.
// FinalAnswer and CapabilityRequest are the two non-error variants; safety
// blocks and transport failures are reported as *domain.BlockedError and
// *domain.ProviderError respectively.
type Outcome interface {
	outcome()
}

// FinalAnswer means the model returned text with no pending capability call.
type FinalAnswer struct {
	Text      string
	ModelTurn domain.Turn
}

// CapabilityRequest means the model asked for one capability invocation.
// ModelTurn is the verbatim model-authored turn that must be appended to
// history before the result is supplied.
type CapabilityRequest struct {
	Name      string
	Args      map[string]any
	ModelTurn domain.Turn
}

func (FinalAnswer) outcome()       {}
func (CapabilityRequest) outcome() {}

// Client talks to the generateContent endpoint. Each Generate call is
// exactly one network round trip; retries, if any, belong to the caller.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client for the given model with default settings.
func NewClient(apiKey, model string, logger *slog.Logger) *Client {
	return NewClientWithConfig(apiKey, model, DefaultBaseURL, DefaultTimeout, logger)
}

// NewClientWithConfig creates a client with a custom endpoint and timeout.
func NewClientWithConfig(apiKey, model, baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Generate sends the accumulated turns and the full declaration set to the
// provider and classifies the response.
//
// Only the first part of the first candidate is inspected. Responses with
// additional parts or candidates are not merged; that simplification is
// part of this relay's contract, not an oversight.
func (c *Client) Generate(ctx context.Context, turns []domain.Turn, decls []capability.Declaration) (Outcome, error) {
	payload := generateRequest{
		Contents: turns,
		Tools:    declarationsPayload(decls),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &domain.ProviderError{
			Status: http.StatusInternalServerError,
			Detail: fmt.Sprintf("encode request: %v", err),
		}
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &domain.ProviderError{
			Status: http.StatusInternalServerError,
			Detail: fmt.Sprintf("create request: %v", err),
		}
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("querying model", "model", c.model, "turns", len(turns))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.ProviderError{
			Status: http.StatusBadGateway,
			Detail: fmt.Sprintf("request failed: %v", err),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.ProviderError{
			Status: http.StatusBadGateway,
			Detail: fmt.Sprintf("read response: %v", err),
		}
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("model request failed",
			"model", c.model,
			"status", resp.StatusCode,
			"body", excerpt(string(raw)),
		)
		return nil, &domain.ProviderError{
			Status: resp.StatusCode,
			Detail: excerpt(string(raw)),
		}
	}

	var parsed generateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &domain.ProviderError{
			Status: http.StatusBadGateway,
			Detail: fmt.Sprintf("parse response: %v", err),
		}
	}

	return c.classify(&parsed)
}

// classify maps the provider payload onto the Outcome/error variants.
func (c *Client) classify(parsed *generateResponse) (Outcome, error) {
	if len(parsed.Candidates) == 0 {
		reason := "NO_CANDIDATES"
		if parsed.PromptFeedback != nil && parsed.PromptFeedback.BlockReason != "" {
			reason = parsed.PromptFeedback.BlockReason
		}
		c.logger.Warn("model returned no candidates", "reason", reason)
		return nil, &domain.BlockedError{Reason: reason}
	}

	cand := parsed.Candidates[0]
	if cand.FinishReason == "SAFETY" {
		return nil, &domain.BlockedError{Reason: "SAFETY"}
	}
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		return nil, &domain.ProviderError{
			Status: http.StatusBadGateway,
			Detail: "candidate has no content parts",
		}
	}

	part := cand.Content.Parts[0]
	switch {
	case part.FunctionCall != nil:
		c.logger.Info("model requested capability", "name", part.FunctionCall.Name)
		return CapabilityRequest{
			Name:      part.FunctionCall.Name,
			Args:      part.FunctionCall.Args,
			ModelTurn: *cand.Content,
		}, nil
	case part.Text != "":
		return FinalAnswer{
			Text:      part.Text,
			ModelTurn: *cand.Content,
		}, nil
	default:
		return nil, &domain.ProviderError{
			Status: http.StatusBadGateway,
			Detail: "candidate part carries neither text nor a function call",
		}
	}
}

// excerpt truncates a provider body for diagnostics, backing up to a
// rune boundary so the result stays valid UTF-8.
func excerpt(s string) string {
	if len(s) <= errorExcerptLen {
		return s
	}
	cut := errorExcerptLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
