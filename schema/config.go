package schema

import (
	"errors"
	"time"
)

// ServiceConfig defines defaults and labels for the core service.
type ServiceConfig struct {
	DefaultModel      ModelID
	IndicatorDelay    time.Duration
	ActionPrefix      string
	ModelActionPrefix string
	MenuLabel         string
	MenuTooltip       string
	DropdownLabel     string
	DropdownTooltip   string
	PromptIcon        string
	ModelMenuTooltip  string
	// DisableAuditLogging disables audit trail debug logs for activations.
	DisableAuditLogging bool
}

// DefaultIndicatorDelay is the debounce before the progress indicator shows.
const DefaultIndicatorDelay = 800 * time.Millisecond

// DefaultModelID is the completion model used when none is configured.
const DefaultModelID ModelID = "gpt-4o"

// NormalizeServiceConfig applies defaults and validates the config.
func NormalizeServiceConfig(cfg ServiceConfig) (ServiceConfig, error) {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = DefaultModelID
	}
	if cfg.IndicatorDelay < 0 {
		return ServiceConfig{}, errors.New("indicator delay must not be negative")
	}
	if cfg.IndicatorDelay == 0 {
		cfg.IndicatorDelay = DefaultIndicatorDelay
	}
	if cfg.ActionPrefix == "" {
		cfg.ActionPrefix = "ai-proofread-"
	}
	if cfg.ModelActionPrefix == "" {
		cfg.ModelActionPrefix = "ai-model-"
	}
	if cfg.ActionPrefix == cfg.ModelActionPrefix {
		return ServiceConfig{}, errors.New("prompt and model action prefixes must differ")
	}
	if cfg.MenuLabel == "" {
		cfg.MenuLabel = "AI"
	}
	if cfg.MenuTooltip == "" {
		cfg.MenuTooltip = "AI tools"
	}
	if cfg.DropdownLabel == "" {
		cfg.DropdownLabel = "AI _Proofread"
	}
	if cfg.DropdownTooltip == "" {
		cfg.DropdownTooltip = "AI Proofread"
	}
	if cfg.PromptIcon == "" {
		cfg.PromptIcon = "tools-check-spelling"
	}
	if cfg.ModelMenuTooltip == "" {
		cfg.ModelMenuTooltip = "Select AI model"
	}
	return cfg, nil
}
