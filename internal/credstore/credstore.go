// Package credstore keeps the OpenAI API key encrypted at rest.
package credstore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"pkt.systems/kryptograf"
	"pkt.systems/kryptograf/keymgmt"
	"pkt.systems/pslog"
)

const (
	keyFile        = "apikey.enc"
	descriptorName = "redpen:openai-apikey"
)

// Store manages the encrypted API key backed by a kryptograf key bundle.
type Store struct {
	storePath string
	keyDir    string
	log       pslog.Logger
}

// NewStore initializes the store and ensures the root key exists.
func NewStore(storePath, keyDir string) (*Store, error) {
	return NewStoreWithLogger(storePath, keyDir, nil)
}

// NewStoreWithLogger initializes the store with logging.
func NewStoreWithLogger(storePath, keyDir string, logger pslog.Logger) (*Store, error) {
	if strings.TrimSpace(storePath) == "" {
		return nil, fmt.Errorf("key store path is required")
	}
	if strings.TrimSpace(keyDir) == "" {
		return nil, fmt.Errorf("key directory is required")
	}
	if err := os.MkdirAll(filepath.Dir(storePath), 0o700); err != nil {
		return nil, err
	}
	bundle, err := keymgmt.LoadProto(storePath)
	if err != nil {
		if logger != nil {
			logger.Warn("key store ensure failed", "err", err)
		}
		return nil, err
	}
	if _, err := bundle.EnsureRootKey(); err != nil {
		if logger != nil {
			logger.Warn("key store ensure failed", "err", err)
		}
		return nil, err
	}
	if err := bundle.Commit(); err != nil {
		if logger != nil {
			logger.Warn("key store ensure failed", "err", err)
		}
		return nil, err
	}
	if err := os.MkdirAll(keyDir, 0o700); err != nil {
		return nil, err
	}
	if logger != nil {
		logger = logger.With("key_store", storePath, "key_dir", keyDir)
	}
	return &Store{storePath: storePath, keyDir: keyDir, log: logger}, nil
}

// SetAPIKey encrypts and stores the API key, minting a fresh data key.
func (s *Store) SetAPIKey(apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return errors.New("api key is required")
	}
	material, root, err := s.material(true)
	if err != nil {
		if s.log != nil {
			s.log.Warn("api key write failed", "err", err)
		}
		return err
	}
	kg := kryptograf.New(root)

	tmp, err := os.CreateTemp(s.keyDir, "apikey-*.enc")
	if err != nil {
		if s.log != nil {
			s.log.Warn("api key write failed", "err", err)
		}
		return err
	}
	tmpPath := tmp.Name()
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		if s.log != nil {
			s.log.Warn("api key write failed", "err", err)
		}
		return err
	}
	writer, err := kg.EncryptWriter(tmp, material)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		if s.log != nil {
			s.log.Warn("api key write failed", "err", err)
		}
		return err
	}
	if _, err := io.Copy(writer, bytes.NewReader([]byte(apiKey))); err != nil {
		_ = writer.Close()
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		if s.log != nil {
			s.log.Warn("api key write failed", "err", err)
		}
		return err
	}
	if err := writer.Close(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		if s.log != nil {
			s.log.Warn("api key write failed", "err", err)
		}
		return err
	}
	_ = tmp.Close()
	if err := os.Rename(tmpPath, s.keyPath()); err != nil {
		_ = os.Remove(tmpPath)
		if s.log != nil {
			s.log.Warn("api key write failed", "err", err)
		}
		return err
	}
	if s.log != nil {
		s.log.Info("api key stored")
	}
	return nil
}

// APIKey decrypts and returns the stored API key. Returns os.ErrNotExist
// when no key has been stored.
func (s *Store) APIKey() (string, error) {
	path := s.keyPath()
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", os.ErrNotExist
		}
		if s.log != nil {
			s.log.Warn("api key load failed", "err", err)
		}
		return "", err
	}
	material, root, err := s.material(false)
	if err != nil {
		if s.log != nil {
			s.log.Warn("api key load failed", "err", err)
		}
		return "", err
	}
	kg := kryptograf.New(root)
	file, err := os.Open(path)
	if err != nil {
		if s.log != nil {
			s.log.Warn("api key load failed", "err", err)
		}
		return "", err
	}
	defer func() { _ = file.Close() }()
	reader, err := kg.DecryptReader(file, material)
	if err != nil {
		if s.log != nil {
			s.log.Warn("api key load failed", "err", err)
		}
		return "", err
	}
	defer func() { _ = reader.Close() }()
	plain, err := io.ReadAll(reader)
	if err != nil {
		if s.log != nil {
			s.log.Warn("api key load failed", "err", err)
		}
		return "", err
	}
	if s.log != nil {
		s.log.Debug("api key load ok")
	}
	return strings.TrimSpace(string(plain)), nil
}

// Remove deletes the stored API key. Missing key material is not an error.
func (s *Store) Remove() error {
	if err := os.Remove(s.keyPath()); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if s.log != nil {
			s.log.Warn("api key remove failed", "err", err)
		}
		return err
	}
	if s.log != nil {
		s.log.Info("api key removed")
	}
	return nil
}

func (s *Store) material(rotate bool) (keymgmt.Material, keymgmt.RootKey, error) {
	bundle, err := keymgmt.LoadProto(s.storePath)
	if err != nil {
		return keymgmt.Material{}, keymgmt.RootKey{}, err
	}
	root, err := bundle.EnsureRootKey()
	if err != nil {
		return keymgmt.Material{}, keymgmt.RootKey{}, err
	}
	contextBytes := []byte(descriptorName)
	var material keymgmt.Material
	if rotate {
		material, err = keymgmt.MintDEK(root, contextBytes)
		if err != nil {
			return keymgmt.Material{}, keymgmt.RootKey{}, err
		}
		if err := bundle.SetDescriptor(descriptorName, material.Descriptor); err != nil {
			return keymgmt.Material{}, keymgmt.RootKey{}, err
		}
	} else {
		material, err = bundle.EnsureDescriptor(descriptorName, root, contextBytes)
		if err != nil {
			return keymgmt.Material{}, keymgmt.RootKey{}, err
		}
	}
	if err := bundle.Commit(); err != nil {
		return keymgmt.Material{}, keymgmt.RootKey{}, err
	}
	return material, root, nil
}

func (s *Store) keyPath() string {
	return filepath.Join(s.keyDir, keyFile)
}
