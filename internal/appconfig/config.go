package appconfig

import (
	"os"
	"path/filepath"
	"time"

	"pkt.systems/redpen/internal/authinfo"
	"pkt.systems/redpen/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int               `mapstructure:"config_version" yaml:"config_version"`
	Prompts       PromptsConfig     `mapstructure:"prompts" yaml:"prompts"`
	Credentials   CredentialsConfig `mapstructure:"credentials" yaml:"credentials"`
	Model         ModelConfig       `mapstructure:"model" yaml:"model"`
	Models        ModelsConfig      `mapstructure:"models" yaml:"models"`
	Indicator     IndicatorConfig   `mapstructure:"indicator" yaml:"indicator"`
	OpenAI        OpenAIConfig      `mapstructure:"openai" yaml:"openai"`
	Logging       LoggingConfig     `mapstructure:"logging" yaml:"logging"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// Credential source selectors.
const (
	CredentialsAuto     = "auto"
	CredentialsAuthinfo = "authinfo"
	CredentialsKeystore = "keystore"
	CredentialsEnv      = "env"
)

// DefaultAPIKeyEnvVar is the environment variable consulted for the API key.
const DefaultAPIKeyEnvVar = "OPENAI_API_KEY"

// PromptsConfig locates the prompt catalog.
type PromptsConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// CredentialsConfig controls where the API key is read from.
type CredentialsConfig struct {
	Source       string `mapstructure:"source" yaml:"source"`
	AuthinfoPath string `mapstructure:"authinfo_path" yaml:"authinfo_path"`
	Machine      string `mapstructure:"machine" yaml:"machine"`
	Login        string `mapstructure:"login" yaml:"login"`
	KeystorePath string `mapstructure:"keystore_path" yaml:"keystore_path"`
	KeyDir       string `mapstructure:"key_dir" yaml:"key_dir"`
	EnvVar       string `mapstructure:"env_var" yaml:"env_var"`
}

// ModelConfig controls the default and persisted completion model.
type ModelConfig struct {
	Default   string `mapstructure:"default" yaml:"default"`
	StatePath string `mapstructure:"state_path" yaml:"state_path"`
}

// ModelsConfig controls the model catalog fetched from the API.
type ModelsConfig struct {
	CacheTTLMinutes int `mapstructure:"cache_ttl_minutes" yaml:"cache_ttl_minutes"`
}

// IndicatorConfig controls the busy indicator debounce.
type IndicatorConfig struct {
	DelayMS int `mapstructure:"delay_ms" yaml:"delay_ms"`
}

// OpenAIConfig configures the completion endpoint.
type OpenAIConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

// LoggingConfig controls log output and audit logging behavior.
type LoggingConfig struct {
	Level              string `mapstructure:"level" yaml:"level"`
	Format             string `mapstructure:"format" yaml:"format"`
	DisableAuditTrails bool   `mapstructure:"disable_audit_trails" yaml:"disable_audit_trails"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Prompts: PromptsConfig{
			Path: filepath.Join(home, ".redpen", "prompts.json"),
		},
		Credentials: CredentialsConfig{
			Source:       CredentialsAuto,
			AuthinfoPath: filepath.Join(home, ".authinfo"),
			Machine:      authinfo.DefaultMachine,
			Login:        authinfo.DefaultLogin,
			KeystorePath: filepath.Join(home, ".redpen", "state", "keys.bundle"),
			KeyDir:       filepath.Join(home, ".redpen", "state", "keys"),
			EnvVar:       DefaultAPIKeyEnvVar,
		},
		Model: ModelConfig{
			Default:   string(schema.DefaultModelID),
			StatePath: filepath.Join(home, ".redpen", "state", "model.json"),
		},
		Models: ModelsConfig{
			CacheTTLMinutes: 5,
		},
		Indicator: IndicatorConfig{
			DelayMS: int(schema.DefaultIndicatorDelay / time.Millisecond),
		},
		OpenAI: OpenAIConfig{
			BaseURL: "",
		},
		Logging: LoggingConfig{
			Level:              "info",
			Format:             "",
			DisableAuditTrails: false,
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".redpen", "config.yaml"), nil
}

// ServiceConfig maps the application config onto the core service config.
func (c Config) ServiceConfig() schema.ServiceConfig {
	return schema.ServiceConfig{
		DefaultModel:        schema.ModelID(c.Model.Default),
		IndicatorDelay:      time.Duration(c.Indicator.DelayMS) * time.Millisecond,
		DisableAuditLogging: c.Logging.DisableAuditTrails,
	}
}

// ModelCacheTTL returns the model catalog cache lifetime.
func (c Config) ModelCacheTTL() time.Duration {
	return time.Duration(c.Models.CacheTTLMinutes) * time.Minute
}
