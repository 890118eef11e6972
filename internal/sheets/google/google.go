// Package google exports formatted contribution reports to a Google Sheets
// spreadsheet using service account credentials.
package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	applog "sacco/internal/log"
	"sacco/internal/ports"
)

// Sheet titles may not contain these characters.
const forbiddenTitleChars = `[]*?/\:`

const maxTitleLen = 100

// Config selects the target spreadsheet and credentials. CredentialsJSON
// takes precedence over CredentialsFile.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// Exporter writes report grids into a dedicated tab per report.
type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
	logger        *applog.Logger
}

var _ ports.ReportSink = (*Exporter)(nil)

// New creates an Exporter authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *applog.Logger) (*Exporter, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	creds, err := credentials(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope),
		goption.WithHTTPClient(newHTTPClientWithPooling()))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName, logger), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetBase string, logger *applog.Logger) *Exporter {
	if logger == nil {
		logger = applog.Discard()
	}
	if strings.TrimSpace(sheetBase) == "" {
		sheetBase = "Contributions"
	}
	return &Exporter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetBase:     strings.TrimSpace(sheetBase),
		logger:        logger.WithComponent(applog.ComponentSheets),
	}
}

func credentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	}
	return nil, errors.New("missing service account credentials")
}

// newHTTPClientWithPooling returns a client tuned for the Sheets API.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

// WriteReport replaces the contents of the report's tab with rows, creating
// the tab when needed, and returns the A1 range written.
func (e *Exporter) WriteReport(ctx context.Context, title string, rows [][]string) (string, error) {
	if e.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if len(rows) == 0 {
		return "", errors.New("empty report")
	}
	sheet := SheetTitle(e.sheetBase, title)

	if err := e.ensureSheet(ctx, sheet); err != nil {
		return "", err
	}

	quoted := QuoteSheet(sheet)
	if _, err := e.svc.Spreadsheets.Values.Clear(e.spreadsheetID, quoted, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear sheet %s: %w", sheet, err)
	}

	width := 0
	values := make([][]any, len(rows))
	for i, row := range rows {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v
		}
		values[i] = cells
		width = max(width, len(row))
	}

	rng := fmt.Sprintf("%s!A1:%s%d", quoted, ColumnLetter(width), len(rows))
	// RAW keeps references such as "00123" as text.
	if _, err := e.svc.Spreadsheets.Values.Update(e.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("write sheet %s: %w", sheet, err)
	}

	e.logger.InfoContext(ctx, "Report exported",
		applog.FieldOperation, applog.OpExport, "range", rng, applog.FieldRecordCount, len(rows)-1)
	return rng, nil
}

func (e *Exporter) ensureSheet(ctx context.Context, sheet string) error {
	ss, err := e.svc.Spreadsheets.Get(e.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == sheet {
			return nil
		}
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: sheet}},
		}},
	}
	if _, err := e.svc.Spreadsheets.BatchUpdate(e.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", sheet, err)
	}
	e.logger.DebugContext(ctx, "Sheet created", "sheet", sheet)
	return nil
}

// SheetTitle builds a valid tab title from the base name and a report title.
func SheetTitle(base, title string) string {
	name := strings.TrimSpace(base)
	if t := strings.TrimSpace(title); t != "" {
		name = strings.TrimSpace(name + " " + t)
	}
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(forbiddenTitleChars, r) {
			return '-'
		}
		return r
	}, name)
	if r := []rune(name); len(r) > maxTitleLen {
		name = string(r[:maxTitleLen])
	}
	if name == "" {
		return "Report"
	}
	return name
}

// QuoteSheet quotes a tab title for use in an A1 range.
func QuoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// ColumnLetter converts a 1-based column number to its A1 letters.
func ColumnLetter(n int) string {
	if n < 1 {
		return "A"
	}
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}
