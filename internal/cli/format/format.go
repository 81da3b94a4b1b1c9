// Package format renders Okapi response bodies for the terminal.
package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

const (
	maxJSONSize = 10 * 1024 * 1024 // 10MB
	maxTextSize = 50 * 1024 * 1024 // 50MB
)

// ansiEscapeRegex matches ANSI escape sequences for sanitization.
var ansiEscapeRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// sanitizeANSI removes ANSI escape sequences from a string.
func sanitizeANSI(s string) string {
	return ansiEscapeRegex.ReplaceAllString(s, "")
}

// enforceSize checks if content exceeds the maximum size for its format.
func enforceSize(content string, format string, maxSize int) error {
	if len(content) > maxSize {
		return fmt.Errorf("output size (%d bytes) exceeds maximum for %s format (%d bytes)", len(content), format, maxSize)
	}
	return nil
}

// FormatJSON pretty-prints JSON with 2-space indentation.
// Returns formatted JSON if valid, error otherwise.
func FormatJSON(content string) (string, error) {
	if err := enforceSize(content, "json", maxJSONSize); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(content), "", "  "); err != nil {
		return "", fmt.Errorf("invalid JSON: %w", err)
	}
	return buf.String(), nil
}

// FormatBody prepares a response body for display. On a TTY, JSON bodies
// are indented and escape sequences are stripped from anything else so a
// response cannot drive the terminal. Off a TTY the body is returned
// unchanged.
func FormatBody(body, contentType string, isTTY bool) (string, error) {
	if !isTTY || body == "" {
		return body, nil
	}

	if strings.Contains(strings.ToLower(contentType), "json") {
		if formatted, err := FormatJSON(body); err == nil {
			return formatted, nil
		}
	}

	if err := enforceSize(body, "text", maxTextSize); err != nil {
		return "", err
	}
	return sanitizeANSI(body), nil
}
