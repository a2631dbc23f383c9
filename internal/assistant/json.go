package assistant

import (
	"encoding/json"
	"fmt"
	"strings"
)

// cleanModelJSON strips Markdown fences and surrounding prose from a model reply,
// keeping the outermost JSON object or array.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(s, "```json")
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	open := strings.IndexAny(s, "{[")
	if open == -1 {
		return s
	}
	closer := "}"
	if s[open] == '[' {
		closer = "]"
	}
	if end := strings.LastIndex(s, closer); end > open {
		s = s[open : end+1]
	}

	return strings.TrimSpace(s)
}

// decodeModelJSON cleans raw and unmarshals it into v.
func decodeModelJSON(raw string, v interface{}) error {
	clean := cleanModelJSON(raw)
	if err := json.Unmarshal([]byte(clean), v); err != nil {
		return fmt.Errorf("unmarshal model JSON: %w (raw response: %q)", err, raw)
	}
	return nil
}
