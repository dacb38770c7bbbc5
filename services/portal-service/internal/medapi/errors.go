package medapi

import (
	"encoding/json"
	"fmt"
	"strings"
)

// APIError is a failed call to the medical API. Message is safe to show to the user.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("medapi: %s (%d): %v", e.Message, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("medapi: %s (%d)", e.Message, e.StatusCode)
}

func (e *APIError) Unwrap() error { return e.Err }

// errorMessage pulls the first non-empty message out of a remote error payload:
// error, message, data.error, data.message, errors[0]. Falls back to fallback.
func errorMessage(body []byte, fallback string) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		if s := strings.TrimSpace(string(body)); s != "" && len(s) <= 200 && !strings.HasPrefix(s, "<") {
			return s
		}
		return fallback
	}
	if msg := messageFrom(payload); msg != "" {
		return msg
	}
	if data, ok := payload["data"].(map[string]any); ok {
		if msg := messageFrom(data); msg != "" {
			return msg
		}
	}
	if list, ok := payload["errors"].([]any); ok && len(list) > 0 {
		switch first := list[0].(type) {
		case string:
			if first != "" {
				return first
			}
		case map[string]any:
			if msg := messageFrom(first); msg != "" {
				return msg
			}
		}
	}
	return fallback
}

func messageFrom(m map[string]any) string {
	for _, key := range []string{"error", "message"} {
		if s, ok := m[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
