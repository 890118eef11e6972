package log

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Format: "json", Output: &buf, Component: ComponentTransport})
	l.Info("hello", FieldEndpoint, "members/")

	out := buf.String()
	if !strings.Contains(out, `"component":"transport"`) {
		t.Fatalf("missing component in %s", out)
	}
	if !strings.Contains(out, `"endpoint":"members/"`) {
		t.Fatalf("missing endpoint in %s", out)
	}
}

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var seen string
	h := Middleware(Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		if FromContext(r.Context()).Component() != ComponentHTTP {
			t.Errorf("expected http component logger")
		}
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))
	if seen == "" || rr.Header().Get("X-Request-ID") != seen {
		t.Fatalf("request id not propagated: ctx=%q header=%q", seen, rr.Header().Get("X-Request-ID"))
	}

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "given")
	h.ServeHTTP(rr, req)
	if seen != "given" {
		t.Fatalf("inbound request id not kept, got %q", seen)
	}
}
