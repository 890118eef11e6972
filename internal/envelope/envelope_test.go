package envelope

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRecordsShapeInvariance(t *testing.T) {
	want := []string{`{"id":1,"amount":500}`, `{"id":2,"amount":"1000.00"}`}
	list := `[{"id":1,"amount":500},{"id":2,"amount":"1000.00"}]`

	shapes := map[string]string{
		"bare array": list,
		"data":       `{"data":` + list + `}`,
		"results":    `{"count":2,"next":null,"results":` + list + `}`,
	}

	for name, body := range shapes {
		t.Run(name, func(t *testing.T) {
			got, warn := Records([]byte(body))
			if warn != nil {
				t.Fatalf("unexpected warning: %v", warn)
			}
			if diff := cmp.Diff(want, asStrings(got)); diff != "" {
				t.Fatalf("records mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRecordsPrecedence(t *testing.T) {
	got, warn := Records([]byte(`{"results":[{"id":"r"}],"data":[{"id":"d"}]}`))
	if warn != nil {
		t.Fatalf("unexpected warning: %v", warn)
	}
	if diff := cmp.Diff([]string{`{"id":"d"}`}, asStrings(got)); diff != "" {
		t.Fatalf("data must win over results (-want +got):\n%s", diff)
	}

	// A non-list data field falls through to results.
	got, warn = Records([]byte(`{"data":{"id":"x"},"results":[{"id":"r"}]}`))
	if warn != nil {
		t.Fatalf("unexpected warning: %v", warn)
	}
	if diff := cmp.Diff([]string{`{"id":"r"}`}, asStrings(got)); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordsUnrecognized(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantKeys []string
	}{
		{"empty body", "", nil},
		{"null", "null", nil},
		{"object without list", `{"detail":"ok","items":[1]}`, []string{"detail", "items"}},
		{"data is null", `{"data":null}`, []string{"data"}},
		{"malformed", `{"data":[`, nil},
		{"scalar", `42`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, warn := Records([]byte(tt.body))
			if got == nil || len(got) != 0 {
				t.Fatalf("expected empty non-nil slice, got %#v", got)
			}
			if warn == nil {
				t.Fatal("expected a parse warning")
			}
			if warn.Error() == "" {
				t.Fatal("warning must describe itself")
			}
			if diff := cmp.Diff(tt.wantKeys, warn.Keys); diff != "" {
				t.Fatalf("keys mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	type rec struct {
		ID int `json:"id"`
	}
	got, warnings := Decode[rec]([]byte(`{"data":[{"id":1},{"id":"bad"},{"id":3}]}`))
	if diff := cmp.Diff([]rec{{ID: 1}, {ID: 3}}, got); diff != "" {
		t.Fatalf("decoded mismatch (-want +got):\n%s", diff)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", warnings)
	}
}

func TestCount(t *testing.T) {
	tests := []struct {
		body   string
		want   int
		wantOK bool
	}{
		{`{"count":42,"results":[]}`, 42, true},
		{`{"results":[]}`, 0, false},
		{`[]`, 0, false},
		{`{"count":-1}`, 0, false},
	}
	for _, tt := range tests {
		n, ok := Count([]byte(tt.body))
		if n != tt.want || ok != tt.wantOK {
			t.Errorf("Count(%s) = %d, %v; want %d, %v", tt.body, n, ok, tt.want, tt.wantOK)
		}
	}
}

func asStrings(items []json.RawMessage) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = string(item)
	}
	return out
}
