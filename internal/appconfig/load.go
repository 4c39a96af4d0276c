package appconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from the provided path. If path is empty, uses
// DefaultConfigPath. A missing config file yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("prompts.path", cfg.Prompts.Path)
	v.SetDefault("credentials.source", cfg.Credentials.Source)
	v.SetDefault("credentials.authinfo_path", cfg.Credentials.AuthinfoPath)
	v.SetDefault("credentials.machine", cfg.Credentials.Machine)
	v.SetDefault("credentials.login", cfg.Credentials.Login)
	v.SetDefault("credentials.keystore_path", cfg.Credentials.KeystorePath)
	v.SetDefault("credentials.key_dir", cfg.Credentials.KeyDir)
	v.SetDefault("credentials.env_var", cfg.Credentials.EnvVar)
	v.SetDefault("model.default", cfg.Model.Default)
	v.SetDefault("model.state_path", cfg.Model.StatePath)
	v.SetDefault("models.cache_ttl_minutes", cfg.Models.CacheTTLMinutes)
	v.SetDefault("indicator.delay_ms", cfg.Indicator.DelayMS)
	v.SetDefault("openai.base_url", cfg.OpenAI.BaseURL)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.disable_audit_trails", cfg.Logging.DisableAuditTrails)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
		if v.IsSet("credentials.api_key") {
			return Config{}, fmt.Errorf("credentials.api_key is not supported; use authinfo, the keystore, or the %s environment variable", DefaultAPIKeyEnvVar)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	switch cfg.Credentials.Source {
	case CredentialsAuto, CredentialsAuthinfo, CredentialsKeystore, CredentialsEnv:
	default:
		return fmt.Errorf("unsupported credentials.source %q", cfg.Credentials.Source)
	}
	if cfg.Indicator.DelayMS < 0 {
		return fmt.Errorf("indicator.delay_ms must not be negative")
	}
	if cfg.Models.CacheTTLMinutes < 0 {
		return fmt.Errorf("models.cache_ttl_minutes must not be negative")
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.Prompts.Path = expandEnv(cfg.Prompts.Path)
	cfg.Credentials.AuthinfoPath = expandEnv(cfg.Credentials.AuthinfoPath)
	cfg.Credentials.KeystorePath = expandEnv(cfg.Credentials.KeystorePath)
	cfg.Credentials.KeyDir = expandEnv(cfg.Credentials.KeyDir)
	cfg.Model.StatePath = expandEnv(cfg.Model.StatePath)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
