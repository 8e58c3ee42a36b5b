package service

import (
	"context"
	"fmt"

	"recycling-tracker/internal/constants"
	"recycling-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type ReportStatusUpdater interface {
	UpdateStatus(ctx context.Context, id string, status domain.ReportStatus) (*domain.Report, error)
}

// Invalidator drops cached views after a write.
type Invalidator interface {
	Invalidate()
}

type ReportService struct {
	reports ReportStatusUpdater
	views   Invalidator
	logger  zerolog.Logger
}

func NewReportService(reports ReportStatusUpdater, views Invalidator, logger zerolog.Logger) *ReportService {
	return &ReportService{reports: reports, views: views, logger: logger}
}

// UpdateStatus verifies or rejects a pending report.
func (s *ReportService) UpdateStatus(ctx context.Context, id string, status domain.ReportStatus) (*domain.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	report, err := s.reports.UpdateStatus(ctx, id, status)
	if err != nil {
		s.logger.Warn().Err(err).Str("report_id", id).Str("status", string(status)).Msg("failed to update report status")
		return nil, fmt.Errorf("failed to update report status: %w", err)
	}

	s.views.Invalidate()
	return report, nil
}
