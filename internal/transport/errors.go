package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrUnauthorized is matched by every *AuthError through errors.Is.
var ErrUnauthorized = errors.New("session expired, please sign in again")

// NetworkError means the backend could not be reached at all.
type NetworkError struct {
	Method   string
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error on %s %s: %v", e.Method, e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AuthError is returned once the access token was rejected and could not be
// refreshed. LoggedOut reports whether the session was torn down.
type AuthError struct {
	Endpoint  string
	Reason    string
	LoggedOut bool
}

func (e *AuthError) Error() string {
	if e.Reason == "" {
		return ErrUnauthorized.Error()
	}
	return fmt.Sprintf("%s (%s)", ErrUnauthorized.Error(), e.Reason)
}

func (e *AuthError) Is(target error) bool { return target == ErrUnauthorized }

// APIError carries a non-success response. Body is the decoded JSON value
// when the payload was structured, otherwise the raw text.
type APIError struct {
	StatusCode int
	Endpoint   string
	Body       any
	Raw        []byte
}

func (e *APIError) Error() string {
	msg := e.Message()
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("request to %s failed with status %d: %s", e.Endpoint, e.StatusCode, msg)
}

// Message extracts a human-readable message from the error body.
func (e *APIError) Message() string {
	switch body := e.Body.(type) {
	case string:
		return strings.TrimSpace(body)
	case map[string]any:
		for _, key := range []string{"detail", "message", "error"} {
			if s, ok := body[key].(string); ok && s != "" {
				return s
			}
		}
		// Field validation errors: {"amount": ["must be positive"]}
		parts := make([]string, 0, len(body))
		for _, k := range sortedKeys(body) {
			parts = append(parts, fmt.Sprintf("%s: %s", k, flatten(body[k])))
		}
		return strings.Join(parts, "; ")
	case nil:
		return ""
	default:
		return flatten(body)
	}
}

func flatten(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, flatten(item))
		}
		return strings.Join(parts, ", ")
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
