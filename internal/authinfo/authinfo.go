// Package authinfo extracts API credentials from netrc-style authinfo files.
package authinfo

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// DefaultMachine is the machine entry holding the OpenAI API key.
const DefaultMachine = "api.openai.com"

// DefaultLogin is the login token marking an API key entry.
const DefaultLogin = "apikey"

// ErrNoEntry reports that no line matched the requested machine and login.
var ErrNoEntry = errors.New("authinfo: no matching entry")

// Lookup scans the authinfo file at path for a line naming the given machine
// and login, and returns that line's password token. Tokens may appear in
// any order within a line; an empty login matches any line for the machine.
// Lines starting with '#' are skipped.
func Lookup(path, machine, login string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("authinfo path is required")
	}
	if machine == "" {
		return "", errors.New("authinfo machine is required")
	}
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open authinfo: %w", err)
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if key, ok := matchLine(line, machine, login); ok {
			return key, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read authinfo: %w", err)
	}
	return "", ErrNoEntry
}

// matchLine reads one authinfo line as key/value token pairs and reports the
// password when machine and login match.
func matchLine(line, machine, login string) (string, bool) {
	tokens := strings.Fields(line)
	var lineMachine, lineLogin, password string
	for i := 0; i+1 < len(tokens); i += 2 {
		switch tokens[i] {
		case "machine":
			lineMachine = tokens[i+1]
		case "login":
			lineLogin = tokens[i+1]
		case "password":
			password = tokens[i+1]
		}
	}
	if lineMachine != machine {
		return "", false
	}
	if login != "" && lineLogin != login {
		return "", false
	}
	if password == "" {
		return "", false
	}
	return password, true
}
