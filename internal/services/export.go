package services

import (
	"context"
	"errors"
	"fmt"

	"sacco/internal/core"
	applog "sacco/internal/log"
	"sacco/internal/ports"
	"sacco/internal/report"
)

// ErrExportDisabled is returned when no report sink is configured.
var ErrExportDisabled = errors.New("report export is not configured")

// FeedProvider returns the reconciled contribution feed for a filter.
type FeedProvider interface {
	FullFeed(ctx context.Context, p core.FilterParams) (core.Feed, error)
}

// ExportService renders the full feed as CSV text or writes it to a sink.
type ExportService struct {
	feed   FeedProvider
	sink   ports.ReportSink
	logger *applog.Logger
}

// NewExportService builds the service. sink may be nil.
func NewExportService(feed FeedProvider, sink ports.ReportSink, logger *applog.Logger) *ExportService {
	if logger == nil {
		logger = applog.Discard()
	}
	return &ExportService{feed: feed, sink: sink, logger: logger.WithComponent(applog.ComponentReport)}
}

// CSV returns the tabular text for the filtered feed.
func (s *ExportService) CSV(ctx context.Context, p core.FilterParams, columns []report.Column) (string, error) {
	feed, err := s.feed.FullFeed(ctx, p)
	if err != nil {
		return "", err
	}
	s.logger.DebugContext(ctx, "Rendering CSV export",
		applog.FieldOperation, applog.OpExport, applog.FieldRecordCount, len(feed.Records))
	return report.ToTabular(feed.Records, columns), nil
}

// ToSheet writes the filtered feed to the configured sink and returns the
// sink's reference for the written range.
func (s *ExportService) ToSheet(ctx context.Context, p core.FilterParams, columns []report.Column, title string) (string, error) {
	if s.sink == nil {
		return "", ErrExportDisabled
	}
	feed, err := s.feed.FullFeed(ctx, p)
	if err != nil {
		return "", err
	}
	if title == "" {
		title = PeriodTitle(p)
	}
	ref, err := s.sink.WriteReport(ctx, title, report.Rows(feed.Records, columns))
	if err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return ref, nil
}

// Enabled reports whether a sink is configured.
func (s *ExportService) Enabled() bool {
	return s.sink != nil
}

// PeriodTitle names a report after its filter period.
func PeriodTitle(p core.FilterParams) string {
	switch {
	case p.Year > 0 && p.Month > 0:
		return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
	case p.Year > 0:
		return fmt.Sprintf("%04d", p.Year)
	}
	return "All"
}
