package appconfig

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/redpen/internal/authinfo"
	"pkt.systems/redpen/internal/credstore"
	"pkt.systems/redpen/internal/modelstate"
	"pkt.systems/redpen/internal/promptfile"
	"pkt.systems/redpen/schema"
)

// Source resolves prompts, credentials, and model state per the application
// config. It satisfies the core service's configuration collaborator.
type Source struct {
	cfg   Config
	log   pslog.Logger
	state *modelstate.Store

	mu    sync.Mutex
	creds *credstore.Store
}

// NewSource constructs a Source over the given config.
func NewSource(cfg Config, logger pslog.Logger) (*Source, error) {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	state, err := modelstate.NewStoreWithLogger(cfg.Model.StatePath, logger)
	if err != nil {
		return nil, err
	}
	return &Source{cfg: cfg, log: logger, state: state}, nil
}

// LoadPrompts reads the prompt catalog. A missing file yields an empty list.
func (s *Source) LoadPrompts(ctx context.Context) (schema.PromptList, error) {
	_ = ctx
	list, found, err := promptfile.Load(s.cfg.Prompts.Path)
	if err != nil {
		return nil, err
	}
	if !found {
		s.log.Debug("prompts file missing", "path", s.cfg.Prompts.Path)
	}
	return list, nil
}

// LoadAPIKey resolves the API key from the configured credential source.
func (s *Source) LoadAPIKey(ctx context.Context) (string, error) {
	_ = ctx
	switch s.cfg.Credentials.Source {
	case CredentialsEnv:
		return s.envKey()
	case CredentialsAuthinfo:
		return s.authinfoKey()
	case CredentialsKeystore:
		return s.keystoreKey()
	default:
		if key, err := s.envKey(); err == nil {
			return key, nil
		} else if !errors.Is(err, schema.ErrNoAPIKey) {
			return "", err
		}
		if key, err := s.authinfoKey(); err == nil {
			return key, nil
		} else if !errors.Is(err, schema.ErrNoAPIKey) {
			return "", err
		}
		return s.keystoreKey()
	}
}

// LoadModel reads the persisted model selection, or "" when unset.
func (s *Source) LoadModel(ctx context.Context) (schema.ModelID, error) {
	_ = ctx
	model, ok, err := s.state.Load()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return model, nil
}

// SaveModel persists the model selection.
func (s *Source) SaveModel(ctx context.Context, model schema.ModelID) error {
	_ = ctx
	return s.state.Save(model)
}

// SetAPIKey stores the API key in the encrypted keystore.
func (s *Source) SetAPIKey(apiKey string) error {
	store, err := s.keystore()
	if err != nil {
		return err
	}
	return store.SetAPIKey(apiKey)
}

// RemoveAPIKey deletes the keystore entry.
func (s *Source) RemoveAPIKey() error {
	store, err := s.keystore()
	if err != nil {
		return err
	}
	return store.Remove()
}

func (s *Source) envKey() (string, error) {
	name := s.cfg.Credentials.EnvVar
	if name == "" {
		name = DefaultAPIKeyEnvVar
	}
	key := strings.TrimSpace(os.Getenv(name))
	if key == "" {
		return "", schema.ErrNoAPIKey
	}
	return key, nil
}

func (s *Source) authinfoKey() (string, error) {
	key, err := authinfo.Lookup(s.cfg.Credentials.AuthinfoPath, s.cfg.Credentials.Machine, s.cfg.Credentials.Login)
	if err != nil {
		if errors.Is(err, authinfo.ErrNoEntry) || errors.Is(err, os.ErrNotExist) {
			return "", schema.ErrNoAPIKey
		}
		return "", fmt.Errorf("authinfo: %w", err)
	}
	return key, nil
}

func (s *Source) keystoreKey() (string, error) {
	store, err := s.keystore()
	if err != nil {
		return "", err
	}
	key, err := store.APIKey()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", schema.ErrNoAPIKey
		}
		return "", fmt.Errorf("keystore: %w", err)
	}
	return key, nil
}

func (s *Source) keystore() (*credstore.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.creds != nil {
		return s.creds, nil
	}
	store, err := credstore.NewStoreWithLogger(s.cfg.Credentials.KeystorePath, s.cfg.Credentials.KeyDir, s.log)
	if err != nil {
		return nil, err
	}
	s.creds = store
	return store, nil
}
