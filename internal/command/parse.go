package command

import (
	"strings"
)

// Command is a parsed slash command line.
type Command struct {
	Name      string
	Args      []string
	Raw       string
	Remainder string
}

// Parse interprets input as a slash command. It returns false when the line
// does not start with "/"; such input is ordinary text.
func Parse(input string) (Command, bool) {
	trimmed := strings.TrimLeft(input, " \t")
	if !strings.HasPrefix(trimmed, "/") {
		return Command{}, false
	}
	raw := strings.TrimSpace(trimmed[1:])
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return Command{Raw: raw}, true
	}
	return Command{
		Name:      strings.ToLower(fields[0]),
		Args:      fields[1:],
		Raw:       raw,
		Remainder: remainderAfterTokens(raw, 1),
	}, true
}

// remainderAfterTokens returns raw with its first count whitespace-separated
// tokens stripped, preserving the spacing of what follows.
func remainderAfterTokens(raw string, count int) string {
	i := 0
	remaining := count
	for remaining > 0 && i < len(raw) {
		for i < len(raw) && isSpace(raw[i]) {
			i++
		}
		for i < len(raw) && !isSpace(raw[i]) {
			i++
		}
		remaining--
	}
	if i >= len(raw) {
		return ""
	}
	return strings.TrimSpace(raw[i:])
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
