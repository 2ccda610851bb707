// Package conversation implements the tool-calling exchange loop: it
// feeds accumulated turns to the model gateway, executes the capability
// the model asks for, folds the result back into history and re-queries,
// bounded by a fixed number of model calls.
package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"tanya/internal/capability"
	"tanya/internal/domain"
	"tanya/internal/gemini"
)

// MaxModelCalls bounds the number of gateway round trips in one exchange.
// Exceeding it is a distinct terminal failure, not a silent truncation.
const MaxModelCalls = 5

// Gateway performs one model round trip.
type Gateway interface {
	Generate(ctx context.Context, turns []domain.Turn, decls []capability.Declaration) (gemini.Outcome, error)
}

// Registry exposes the capability set to the loop.
type Registry interface {
	Declarations() []capability.Declaration
	Invoke(ctx context.Context, name string, args map[string]any, inv capability.Invocation) capability.Result
}

// Input is one user message: text, inline media, or both.
type Input struct {
	Text      string
	MediaData string // base64-encoded
	MediaMIME string
}

// Reply is the final answer of one exchange together with the full
// updated history the caller should persist.
type Reply struct {
	Text    string
	History []domain.Turn
}

// Service orchestrates exchanges. One Converse call is one exchange;
// callers may run many exchanges concurrently.
type Service struct {
	gateway  Gateway
	registry Registry
	logger   *slog.Logger
}

// NewService creates a conversation service.
func NewService(gateway Gateway, registry Registry, logger *slog.Logger) *Service {
	return &Service{
		gateway:  gateway,
		registry: registry,
		logger:   logger,
	}
}

// Converse runs one exchange starting from the prior history. Steps are
// strictly sequential: each model query depends on the full turn sequence
// so far, so capability execution always happens between two model calls,
// never concurrently with one.
//
// Failure semantics: capability faults are absorbed into the history as
// error payloads and the loop continues; gateway failures (safety block,
// provider error) terminate the exchange without a synthetic model turn.
// A terminal failure still returns the accumulated history alongside the
// error: the turns already exchanged belong to the conversation, and
// callers that own persistence save them before reporting the failure.
func (s *Service) Converse(ctx context.Context, prior []domain.Turn, in Input) (*Reply, error) {
	userParts := buildUserParts(in)
	if len(userParts) == 0 {
		return nil, &domain.EmptyInputError{}
	}

	history := append(slices.Clone(prior), domain.Turn{Role: domain.RoleUser, Parts: userParts})
	decls := s.registry.Declarations()

	// Media is handed to capabilities that need it, but never re-sent to
	// the model beyond the original user turn.
	inv := capability.Invocation{
		MediaData: in.MediaData,
		MediaMIME: in.MediaMIME,
	}

	for call := 1; call <= MaxModelCalls; call++ {
		out, err := s.gateway.Generate(ctx, history, decls)
		if err != nil {
			return &Reply{History: history}, err
		}

		switch o := out.(type) {
		case gemini.FinalAnswer:
			history = append(history, o.ModelTurn)
			s.logger.Debug("exchange complete", "model_calls", call, "turns", len(history))
			return &Reply{Text: o.Text, History: history}, nil

		case gemini.CapabilityRequest:
			// The model's call turn goes into history first; the result
			// must immediately follow it or the provider rejects the
			// next request.
			history = append(history, o.ModelTurn)
			result := s.registry.Invoke(ctx, o.Name, o.Args, inv)
			history = append(history, domain.ResultTurn(o.Name, result))

		default:
			return &Reply{History: history}, &domain.ProviderError{
				Status: http.StatusBadGateway,
				Detail: fmt.Sprintf("unsupported gateway outcome %T", out),
			}
		}
	}

	s.logger.Warn("exchange exceeded model call bound", "max_calls", MaxModelCalls)
	return &Reply{History: history}, domain.ErrIterationLimit
}

func buildUserParts(in Input) []domain.Part {
	var parts []domain.Part
	if in.Text != "" {
		parts = append(parts, domain.Part{Text: in.Text})
	}
	if in.MediaData != "" && in.MediaMIME != "" {
		parts = append(parts, domain.Part{
			InlineData: &domain.InlineData{MIMEType: in.MediaMIME, Data: in.MediaData},
		})
	}
	return parts
}
