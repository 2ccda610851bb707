package capability

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tanya/internal/capability/external"
)

const webSearchMaxResults = 5

// WebSearch implements the performWebSearch capability on top of an
// external SearchClient.
type WebSearch struct {
	client external.SearchClient
}

// NewWebSearch creates the web search capability.
func NewWebSearch(client external.SearchClient) *WebSearch {
	return &WebSearch{client: client}
}

// Invoke implements Invoker.
// Arguments: query (string, required).
func (s *WebSearch) Invoke(ctx context.Context, args map[string]any, _ Invocation) (Result, error) {
	query, ok := args["query"].(string)
	query = strings.TrimSpace(query)
	if !ok || query == "" {
		return nil, errors.New("missing required parameter: query (string)")
	}

	resp, err := s.client.Search(ctx, query, external.SearchOptions{MaxResults: webSearchMaxResults})
	if err != nil {
		return nil, fmt.Errorf("web search failed: %w", err)
	}

	results := make([]map[string]any, len(resp.Results))
	for i, r := range resp.Results {
		results[i] = map[string]any{
			"title":   r.Title,
			"url":     r.URL,
			"snippet": r.Snippet,
		}
	}

	return Result{
		"query":        query,
		"results":      results,
		"result_count": len(results),
	}, nil
}
