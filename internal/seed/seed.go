// Package seed carries the starter prompt catalog written on first run.
package seed

import (
	_ "embed"
	"fmt"

	"pkt.systems/redpen/internal/promptfile"
	"pkt.systems/redpen/schema"
)

//go:embed prompts.json
var rawPrompts []byte

// Raw returns the starter catalog as shipped, ready to write to disk.
func Raw() []byte {
	out := make([]byte, len(rawPrompts))
	copy(out, rawPrompts)
	return out
}

// Prompts decodes the starter catalog.
func Prompts() (schema.PromptList, error) {
	list, err := promptfile.Parse(rawPrompts)
	if err != nil {
		return nil, fmt.Errorf("parse embedded prompts: %w", err)
	}
	return list, nil
}
