// Package promptfile reads and writes the prompts.json prompt catalog.
package promptfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pkt.systems/redpen/schema"
)

// Entry is one prompt record on disk.
type Entry struct {
	Name   string `json:"name"`
	Prompt string `json:"prompt"`
}

// Parse decodes a prompt catalog from raw JSON.
func Parse(data []byte) (schema.PromptList, error) {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	list := make(schema.PromptList, 0, len(entries))
	for _, e := range entries {
		list = append(list, schema.Prompt{Name: e.Name, Text: e.Prompt})
	}
	return list, nil
}

// Load reads the prompt catalog at path. A missing file is not an error; it
// yields an empty list and found=false.
func Load(path string) (schema.PromptList, bool, error) {
	if strings.TrimSpace(path) == "" {
		return nil, false, errors.New("prompts path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read prompts %s: %w", path, err)
	}
	list, err := Parse(data)
	if err != nil {
		return nil, false, fmt.Errorf("parse prompts %s: %w", path, err)
	}
	return list, true, nil
}

// Save writes the prompt catalog to path atomically.
func Save(path string, list schema.PromptList) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("prompts path is required")
	}
	entries := make([]Entry, 0, len(list))
	for _, p := range list {
		entries = append(entries, Entry{Name: p.Name, Prompt: p.Text})
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "prompts-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}
