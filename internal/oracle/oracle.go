// Package oracle abstracts the LLM generation service behind a narrow
// invoke-with-optional-schema interface. The pipeline treats the oracle as an
// untrusted text-to-structure service: no latency or retry contract is
// assumed beyond what each client implements, and every response shape the
// providers have historically used is preserved on RawResponse so the
// extraction layer can try them in order.
package oracle

import "context"

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of an ordered conversation sent to the oracle.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Schema describes the structured output the caller wants. Parameters is a
// JSON Schema object; providers that support constrained output receive it as
// a function/tool declaration.
type Schema struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// StructuredCall is a provider-reported function invocation. Arguments is the
// raw JSON text of the call arguments; it may be malformed and must go
// through the repair chain before parsing is abandoned.
type StructuredCall struct {
	Name      string
	Arguments string
}

// RawResponse is the unnormalized oracle output. Exactly which fields are
// populated depends on the provider and on how well the model followed the
// schema: ToolCalls carries the current structured envelope, FunctionCall the
// legacy single-call envelope, and Content whatever free text came back.
type RawResponse struct {
	ToolCalls    []StructuredCall
	FunctionCall *StructuredCall
	Content      string
}

// Client is the generation oracle. Implementations must honor ctx
// cancellation; all other resilience is the pipeline's responsibility.
type Client interface {
	Invoke(ctx context.Context, messages []Message, schema *Schema) (*RawResponse, error)
}
