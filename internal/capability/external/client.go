package external

import "context"

// SearchClient defines the interface for external web search APIs.
type SearchClient interface {
	Search(ctx context.Context, query string, opts SearchOptions) (*SearchResponse, error)
}

// SearchOptions configures search behavior.
type SearchOptions struct {
	MaxResults int
}

// SearchResponse contains results from the external API.
type SearchResponse struct {
	Results []SearchResult
	Query   string
}

// SearchResult is a single search hit.
type SearchResult struct {
	Title   string
	URL     string
	Snippet string
	Score   float64
}
