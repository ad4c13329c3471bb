package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingAPIKey   = errors.New("missing API key")
	ErrUnknownProvider = errors.New("unknown LLM provider")
)

// APIError is a non-2xx response from a provider.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, e.Message)
}

// Retryable reports whether the status is worth retrying.
func (e *APIError) Retryable() bool {
	switch e.StatusCode {
	case 429, 500, 502, 503, 504, 529:
		return true
	}
	return false
}

func newAPIError(provider string, status int, body []byte) *APIError {
	return &APIError{Provider: provider, StatusCode: status, Message: parseProviderError(status, body)}
}

// parseProviderError extracts a human-readable error from provider API responses.
func parseProviderError(statusCode int, body []byte) string {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &errResp) == nil {
		msg := errResp.Error.Message
		if msg == "" {
			msg = errResp.Message
		}
		if msg != "" {
			return msg
		}
	}

	switch statusCode {
	case 401:
		return "authentication failed, check your API key"
	case 403:
		return "access denied, your API key may lack the required permissions"
	case 404:
		return "model or endpoint not found"
	case 429:
		return "rate limited, please wait"
	case 500:
		return "internal server error on the provider side"
	case 502, 503:
		return "provider service temporarily unavailable"
	case 529:
		return "provider is overloaded, please try again later"
	}

	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

// FriendlyError converts common network errors to short messages for the terminal.
func FriendlyError(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	msg := err.Error()
	switch {
	case errors.Is(err, ErrMissingAPIKey):
		return msg
	case strings.Contains(msg, "connection refused"):
		return "connection refused (is the service running?)"
	case strings.Contains(msg, "no such host"):
		return "host not found (check the URL)"
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return "connection timed out"
	case strings.Contains(msg, "reset by peer"):
		return "connection reset by server"
	}
	return msg
}
