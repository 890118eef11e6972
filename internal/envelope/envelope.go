// Package envelope extracts record lists from the backend's list responses,
// which arrive as a bare array or wrapped in a "data" or "results" field.
package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Fields checked for a wrapped list, in precedence order.
var listFields = []string{"data", "results"}

// ParseWarning reports a response that did not match any known list shape.
// It is observable but never fatal.
type ParseWarning struct {
	Source string
	Keys   []string
	Reason string
}

func (w *ParseWarning) Error() string {
	var b strings.Builder
	b.WriteString("unrecognized list response")
	if w.Source != "" {
		fmt.Fprintf(&b, " from %s", w.Source)
	}
	if w.Reason != "" {
		fmt.Fprintf(&b, ": %s", w.Reason)
	}
	if len(w.Keys) > 0 {
		fmt.Fprintf(&b, " (keys: %s)", strings.Join(w.Keys, ", "))
	}
	return b.String()
}

// Records returns the first list found in raw: the value itself when it is
// an array, then its "data" field, then its "results" field. Otherwise it
// returns an empty slice and a warning.
func Records(raw []byte) ([]json.RawMessage, *ParseWarning) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return []json.RawMessage{}, &ParseWarning{Reason: "empty body"}
	}

	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return []json.RawMessage{}, &ParseWarning{Reason: err.Error()}
		}
		return nonNil(items), nil
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return []json.RawMessage{}, &ParseWarning{Reason: err.Error()}
		}
		for _, field := range listFields {
			v, ok := obj[field]
			if !ok {
				continue
			}
			var items []json.RawMessage
			if err := json.Unmarshal(v, &items); err == nil && items != nil {
				return items, nil
			}
		}
		return []json.RawMessage{}, &ParseWarning{Reason: "no list field", Keys: keys(obj)}
	default:
		return []json.RawMessage{}, &ParseWarning{Reason: "not an array or object"}
	}
}

// Decode normalizes raw and unmarshals each record into T. Records that fail
// to decode are skipped and reported through the returned warnings.
func Decode[T any](raw []byte) ([]T, []error) {
	items, warn := Records(raw)
	var warnings []error
	if warn != nil {
		warnings = append(warnings, warn)
	}
	out := make([]T, 0, len(items))
	for i, item := range items {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			warnings = append(warnings, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		out = append(out, v)
	}
	return out, warnings
}

// Count returns the "count" field of a paginated envelope, if present.
func Count(raw []byte) (int, bool) {
	var env struct {
		Count *json.Number `json:"count"`
	}
	if err := json.Unmarshal(bytes.TrimSpace(raw), &env); err != nil || env.Count == nil {
		return 0, false
	}
	n, err := env.Count.Int64()
	if err != nil || n < 0 {
		return 0, false
	}
	return int(n), true
}

func nonNil(items []json.RawMessage) []json.RawMessage {
	if items == nil {
		return []json.RawMessage{}
	}
	return items
}

func keys(obj map[string]json.RawMessage) []string {
	out := make([]string, 0, len(obj))
	for k := range obj {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
