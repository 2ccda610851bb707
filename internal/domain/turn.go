package domain

// Role values follow the provider convention. Capability results are sent
// back under the user role, not the model role; the provider rejects
// histories that do it the other way.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Turn is one role-tagged message unit in a conversation history.
type Turn struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// Part is one content fragment within a Turn. Exactly one field is
// non-zero; the JSON shape mirrors the provider wire contract.
type Part struct {
	Text             string            `json:"text,omitempty"`
	InlineData       *InlineData       `json:"inlineData,omitempty"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
}

// InlineData is media attached to a user turn.
type InlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64-encoded bytes
}

// FunctionCall is a capability invocation requested by the model.
type FunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// FunctionResponse is a capability result supplied back to the model.
type FunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

// TextTurn builds a single-part text turn.
func TextTurn(role, text string) Turn {
	return Turn{Role: role, Parts: []Part{{Text: text}}}
}

// ResultTurn wraps a capability result as a user-role turn, which is the
// role the provider expects function responses under.
func ResultTurn(name string, response map[string]any) Turn {
	return Turn{
		Role: RoleUser,
		Parts: []Part{{
			FunctionResponse: &FunctionResponse{Name: name, Response: response},
		}},
	}
}

// CallsCapability reports whether the turn carries a function call in its
// first part. Only the first part is ever consulted; multi-call turns are
// not supported by this relay.
func (t Turn) CallsCapability() bool {
	return len(t.Parts) > 0 && t.Parts[0].FunctionCall != nil
}

// AnswersCapability reports whether the turn carries a function response
// for the named capability in its first part.
func (t Turn) AnswersCapability(name string) bool {
	return len(t.Parts) > 0 &&
		t.Parts[0].FunctionResponse != nil &&
		t.Parts[0].FunctionResponse.Name == name
}
