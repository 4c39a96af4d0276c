package core

import (
	"context"

	"pkt.systems/redpen/schema"
)

// Completer performs text completions against an LLM service.
type Completer interface {
	// CompleteText runs one proofreading completion. Failures from the
	// completion service should be returned as *schema.APIError so the
	// upstream message reaches the user unchanged; an empty response text
	// with a nil error means the service produced no usable content.
	CompleteText(ctx context.Context, req schema.CompletionRequest) (schema.CompletionResponse, error)
	// ListModels returns the chat-capable model ids available to the key.
	ListModels(ctx context.Context, apiKey string) ([]schema.ModelID, error)
}
