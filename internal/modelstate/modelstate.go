// Package modelstate persists the selected completion model across sessions.
package modelstate

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"pkt.systems/pslog"
	"pkt.systems/redpen/schema"
)

type state struct {
	Model schema.ModelID `json:"model"`
}

// Store persists the selected model to a single JSON file.
type Store struct {
	path string
	log  pslog.Logger
}

// NewStore constructs a store writing to path.
func NewStore(path string) (*Store, error) {
	return NewStoreWithLogger(path, nil)
}

// NewStoreWithLogger constructs a store with logging.
func NewStoreWithLogger(path string, logger pslog.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("model state path is required")
	}
	if logger != nil {
		logger = logger.With("model_state", path)
	}
	return &Store{path: path, log: logger}, nil
}

// Load reads the persisted model. A missing file yields ("", false, nil).
func (s *Store) Load() (schema.ModelID, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if s.log != nil {
				s.log.Debug("model state load miss")
			}
			return "", false, nil
		}
		if s.log != nil {
			s.log.Warn("model state load failed", "err", err)
		}
		return "", false, err
	}
	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		if s.log != nil {
			s.log.Warn("model state load failed", "err", err)
		}
		return "", false, err
	}
	if s.log != nil {
		s.log.Debug("model state load ok", "model", st.Model)
	}
	return st.Model, st.Model != "", nil
}

// Save writes the selected model atomically.
func (s *Store) Save(model schema.ModelID) error {
	data, err := json.MarshalIndent(state{Model: model}, "", "  ")
	if err != nil {
		if s.log != nil {
			s.log.Warn("model state save failed", "err", err)
		}
		return err
	}
	data = append(data, '\n')
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		if s.log != nil {
			s.log.Warn("model state save failed", "err", err)
		}
		return err
	}
	tmp, err := os.CreateTemp(dir, "model-*.json")
	if err != nil {
		if s.log != nil {
			s.log.Warn("model state save failed", "err", err)
		}
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		if s.log != nil {
			s.log.Warn("model state save failed", "err", err)
		}
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		if s.log != nil {
			s.log.Warn("model state save failed", "err", err)
		}
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		if s.log != nil {
			s.log.Warn("model state save failed", "err", err)
		}
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		if s.log != nil {
			s.log.Warn("model state save failed", "err", err)
		}
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		if s.log != nil {
			s.log.Warn("model state save failed", "err", err)
		}
		return err
	}
	if s.log != nil {
		s.log.Trace("model state save ok", "model", model)
	}
	return nil
}
