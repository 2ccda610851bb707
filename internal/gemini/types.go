package gemini

import (
	"tanya/internal/capability"
	"tanya/internal/domain"
)

// Wire types for the generateContent API. The JSON shape is a versioned
// external contract; it is mirrored here rather than abstracted.

type generateRequest struct {
	Contents []domain.Turn `json:"contents"`
	Tools    []toolsEntry  `json:"tools,omitempty"`
}

type toolsEntry struct {
	FunctionDeclarations []functionDeclaration `json:"functionDeclarations"`
}

type functionDeclaration struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Parameters  *parameterSchema `json:"parameters,omitempty"`
}

type parameterSchema struct {
	Type       string                   `json:"type"`
	Properties map[string]propertyEntry `json:"properties,omitempty"`
	Required   []string                 `json:"required,omitempty"`
}

type propertyEntry struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

type generateResponse struct {
	Candidates     []candidate     `json:"candidates"`
	PromptFeedback *promptFeedback `json:"promptFeedback,omitempty"`
}

type candidate struct {
	Content      *domain.Turn `json:"content,omitempty"`
	FinishReason string       `json:"finishReason,omitempty"`
}

type promptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

// declarationsPayload converts registry declarations into the provider's
// functionDeclarations schema.
func declarationsPayload(decls []capability.Declaration) []toolsEntry {
	if len(decls) == 0 {
		return nil
	}

	fns := make([]functionDeclaration, 0, len(decls))
	for _, d := range decls {
		fn := functionDeclaration{
			Name:        d.Name,
			Description: d.Description,
		}
		if len(d.Parameters) > 0 {
			props := make(map[string]propertyEntry, len(d.Parameters))
			for name, p := range d.Parameters {
				props[name] = propertyEntry{Type: p.Type, Description: p.Description}
			}
			fn.Parameters = &parameterSchema{
				Type:       "object",
				Properties: props,
				Required:   d.RequiredParams(),
			}
		}
		fns = append(fns, fn)
	}

	return []toolsEntry{{FunctionDeclarations: fns}}
}
