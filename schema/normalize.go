package schema

import (
	"fmt"
	"strings"
	"unicode"
)

// NormalizeModelID validates and normalizes a model identifier.
// Allowed characters: A-Z, a-z, 0-9, '.', '_', '-'.
func NormalizeModelID(model string) (ModelID, error) {
	trimmed := strings.TrimSpace(model)
	if trimmed == "" {
		return "", ErrInvalidModel
	}
	for _, r := range trimmed {
		if r == '.' || r == '_' || r == '-' {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		return "", ErrInvalidModel
	}
	return ModelID(trimmed), nil
}

// SlugifyPromptName derives a prompt id slug from a display name: lowercase,
// with runs of characters outside [a-z0-9_-] collapsed to single dashes.
// Returns "" when the name yields no usable characters.
func SlugifyPromptName(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// NormalizePromptList assigns ids to prompts that lack one, derived from
// their names, and dedupes collisions with a numeric suffix. Prompts whose
// names yield no slug keep an empty id; the registry builder synthesizes a
// placeholder for them.
func NormalizePromptList(list PromptList) PromptList {
	out := make(PromptList, 0, len(list))
	seen := make(map[PromptID]int, len(list))
	for _, p := range list {
		if p.ID == "" {
			p.ID = PromptID(SlugifyPromptName(p.Name))
		}
		if p.ID != "" {
			if n := seen[p.ID]; n > 0 {
				seen[p.ID] = n + 1
				p.ID = PromptID(fmt.Sprintf("%s-%d", p.ID, n+1))
			}
			seen[p.ID]++
		}
		out = append(out, p)
	}
	return out
}
