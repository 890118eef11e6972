package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

func TestColumnLetter(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "A"},
		{1, "A"},
		{11, "K"},
		{26, "Z"},
		{27, "AA"},
		{52, "AZ"},
		{703, "AAA"},
	}
	for _, tt := range tests {
		if got := ColumnLetter(tt.n); got != tt.want {
			t.Errorf("ColumnLetter(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestSheetTitle(t *testing.T) {
	tests := []struct {
		base, title, want string
	}{
		{"Contributions", "2024-03", "Contributions 2024-03"},
		{"Contributions", "", "Contributions"},
		{"Contributions", "03/2024 [draft]", "Contributions 03-2024 -draft-"},
		{"", "", "Report"},
	}
	for _, tt := range tests {
		if got := SheetTitle(tt.base, tt.title); got != tt.want {
			t.Errorf("SheetTitle(%q, %q) = %q, want %q", tt.base, tt.title, got, tt.want)
		}
	}
	if got := SheetTitle(strings.Repeat("x", 150), ""); len(got) != maxTitleLen {
		t.Errorf("title length = %d, want %d", len(got), maxTitleLen)
	}
}

func TestQuoteSheet(t *testing.T) {
	if got := QuoteSheet("Members' dues"); got != "'Members'' dues'" {
		t.Errorf("QuoteSheet = %q", got)
	}
}

type fakeSheetsAPI struct {
	mu       sync.Mutex
	existing []string
	calls    []string
	written  [][]any
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet:
		f.calls = append(f.calls, "get")
		sheets := make([]map[string]any, 0, len(f.existing))
		for _, title := range f.existing {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": title}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"sheets": sheets})
	case strings.HasSuffix(path, ":batchUpdate"):
		f.calls = append(f.calls, "add")
		_, _ = w.Write([]byte(`{}`))
	case strings.HasSuffix(path, ":clear"):
		f.calls = append(f.calls, "clear")
		_, _ = w.Write([]byte(`{}`))
	case r.Method == http.MethodPut:
		f.calls = append(f.calls, "update:"+r.URL.Query().Get("valueInputOption"))
		var vr struct {
			Values [][]any `json:"values"`
		}
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.written = vr.Values
		_, _ = w.Write([]byte(`{}`))
	default:
		http.Error(w, "unexpected call "+r.Method+" "+path, http.StatusBadRequest)
	}
}

func newTestExporter(t *testing.T, api *fakeSheetsAPI) *Exporter {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return NewWithService(svc, "spreadsheet-1", "Contributions", nil)
}

func TestWriteReportCreatesSheetAndWritesRows(t *testing.T) {
	api := &fakeSheetsAPI{existing: []string{"Summary"}}
	e := newTestExporter(t, api)

	rows := [][]string{{"id", "amount"}, {"1", "500.00"}, {"2", "1000.00"}}
	ref, err := e.WriteReport(context.Background(), "2024-03", rows)
	if err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	if ref != "'Contributions 2024-03'!A1:B3" {
		t.Errorf("ref = %q", ref)
	}
	want := []string{"get", "add", "clear", "update:RAW"}
	if strings.Join(api.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", api.calls, want)
	}
	if len(api.written) != 3 || api.written[1][1] != "500.00" {
		t.Errorf("unexpected written values %v", api.written)
	}
}

func TestWriteReportReusesExistingSheet(t *testing.T) {
	api := &fakeSheetsAPI{existing: []string{"Contributions"}}
	e := newTestExporter(t, api)

	if _, err := e.WriteReport(context.Background(), "", [][]string{{"id"}}); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	for _, c := range api.calls {
		if c == "add" {
			t.Fatal("existing sheet must not be re-created")
		}
	}
}

func TestWriteReportRejectsEmpty(t *testing.T) {
	e := NewWithService(nil, "id", "", nil)
	if _, err := e.WriteReport(context.Background(), "x", [][]string{{"id"}}); err == nil {
		t.Fatal("expected error without a service")
	}
}

func TestNewRequiresConfig(t *testing.T) {
	if _, err := New(context.Background(), Config{}, nil); err == nil {
		t.Error("expected error for missing spreadsheet id")
	}
	if _, err := New(context.Background(), Config{SpreadsheetID: "x"}, nil); err == nil {
		t.Error("expected error for missing credentials")
	}
}
