package core

import (
	"context"

	"pkt.systems/redpen/schema"
)

// ConfigSource loads prompts, credentials, and the persisted model
// selection for the service.
type ConfigSource interface {
	// LoadPrompts returns the configured prompt list. A missing prompt
	// file yields an empty list, not an error.
	LoadPrompts(ctx context.Context) (schema.PromptList, error)
	// LoadAPIKey returns the completion API key, or schema.ErrNoAPIKey
	// when no source provides one.
	LoadAPIKey(ctx context.Context) (string, error)
	// LoadModel returns the persisted model selection, or "" when unset.
	LoadModel(ctx context.Context) (schema.ModelID, error)
	// SaveModel persists the model selection.
	SaveModel(ctx context.Context, model schema.ModelID) error
}
