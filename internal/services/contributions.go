package services

import (
	"context"
	"fmt"
	"strings"

	"sacco/internal/core"
	applog "sacco/internal/log"
	"sacco/internal/ports"
)

// ContributionService records contributions and keeps cached statistics
// consistent with the writes.
type ContributionService struct {
	writer ports.ContributionWriter
	stats  *StatisticsService
	logger *applog.Logger
}

func NewContributionService(writer ports.ContributionWriter, stats *StatisticsService, logger *applog.Logger) *ContributionService {
	if logger == nil {
		logger = applog.Discard()
	}
	return &ContributionService{writer: writer, stats: stats, logger: logger}
}

// RecordPeriodic validates and records one periodic due. It returns the
// backend's response body.
func (s *ContributionService) RecordPeriodic(ctx context.Context, in core.PeriodicDueInput) ([]byte, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	body, err := s.writer.CreatePeriodicDue(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("record periodic due: %w", err)
	}
	s.written(ctx, core.Periodic, 1)
	return body, nil
}

// RecordCapital validates and records one capital subscription payment.
func (s *ContributionService) RecordCapital(ctx context.Context, in core.CapitalSubscriptionInput) ([]byte, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	body, err := s.writer.CreateCapitalSubscription(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("record capital subscription: %w", err)
	}
	s.written(ctx, core.Capital, 1)
	return body, nil
}

// BulkUpload forwards a spreadsheet of contributions of one kind.
func (s *ContributionService) BulkUpload(ctx context.Context, kind core.SourceType, fileName string, data []byte) ([]byte, error) {
	if !kind.Valid() {
		return nil, core.ErrUnknownSource
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty upload %q", fileName)
	}
	if strings.TrimSpace(fileName) == "" {
		fileName = strings.ToLower(string(kind)) + ".csv"
	}
	body, err := s.writer.BulkUpload(ctx, kind, fileName, data)
	if err != nil {
		return nil, fmt.Errorf("bulk upload %s: %w", kind, err)
	}
	s.written(ctx, kind, -1)
	return body, nil
}

func (s *ContributionService) written(ctx context.Context, kind core.SourceType, n int) {
	if s.stats != nil {
		s.stats.Invalidate()
	}
	s.logger.InfoContext(ctx, "Contributions recorded", applog.FieldSource, string(kind), applog.FieldRecordCount, n)
}
