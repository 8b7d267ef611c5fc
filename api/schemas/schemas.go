// api/schemas/schemas.go
package schemas

import "context"

// ModelTier selects which class of model a generation request should be
// routed to.
type ModelTier string

const (
	TierFast     ModelTier = "fast"
	TierPowerful ModelTier = "powerful"
)

// GenerationOptions tunes a single generation request.
type GenerationOptions struct {
	Temperature     float32 `json:"temperature"`
	ForceJSONFormat bool    `json:"force_json_format"`
}

// GenerationRequest is a single text-completion request to the external
// completion service.
type GenerationRequest struct {
	SystemPrompt string            `json:"system_prompt"`
	UserPrompt   string            `json:"user_prompt"`
	Tier         ModelTier         `json:"tier"`
	Options      GenerationOptions `json:"options"`
}

// LLMClient is the contract for the external completion service. The
// response is free-form text; callers are responsible for extracting any
// structure from it.
type LLMClient interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}
