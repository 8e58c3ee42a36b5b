package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"recycling-tracker/internal/constants"
	"recycling-tracker/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

const reportColumns = `id, user_id, material_type, quantity_kg, location, status, reported_at, created_at, updated_at`

const insertReportQuery = `INSERT INTO reports (` + reportColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

// ReportFilter narrows List. Zero fields do not filter. From is inclusive,
// To exclusive.
type ReportFilter struct {
	From     time.Time
	To       time.Time
	UserID   string
	Statuses []domain.ReportStatus
}

type ReportRepository struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

func NewReportRepository(sqlDB *sql.DB, logger zerolog.Logger) *ReportRepository {
	return &ReportRepository{
		db:     sqlDB,
		logger: logger,
		now:    time.Now,
	}
}

func (f ReportFilter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if !f.From.IsZero() {
		conds = append(conds, "reported_at >= ?")
		args = append(args, normalizeTime(f.From))
	}
	if !f.To.IsZero() {
		conds = append(conds, "reported_at < ?")
		args = append(args, normalizeTime(f.To))
	}
	if f.UserID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, f.UserID)
	}
	if len(f.Statuses) > 0 {
		placeholders := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			placeholders[i] = "?"
			args = append(args, string(s))
		}
		conds = append(conds, "status IN ("+strings.Join(placeholders, ", ")+")")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns the matching reports in chronological order.
func (r *ReportRepository) List(ctx context.Context, filter ReportFilter) ([]domain.Report, error) {
	where, args := filter.where()
	query := `SELECT ` + reportColumns + ` FROM reports` + where + ` ORDER BY reported_at, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	reports := []domain.Report{}
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reports: %w", err)
	}

	r.logger.Debug().
		Time("from", filter.From).
		Time("to", filter.To).
		Str("user_id", filter.UserID).
		Int("count", len(reports)).
		Msg("listed reports")
	return reports, nil
}

func (r *ReportRepository) Get(ctx context.Context, id string) (*domain.Report, error) {
	return getReport(ctx, r.db, id)
}

func (r *ReportRepository) Create(ctx context.Context, report *domain.Report) error {
	if err := r.prepare(report); err != nil {
		return err
	}
	if err := insertReport(ctx, r.db, report); err != nil {
		r.logger.Error().Err(err).Str("report_id", report.ID).Msg("failed to create report")
		return err
	}
	return nil
}

// CreateBatch inserts reports in one transaction; nothing is written when any
// report fails.
func (r *ReportRepository) CreateBatch(ctx context.Context, reports []domain.Report) error {
	for i := range reports {
		if err := r.prepare(&reports[i]); err != nil {
			return fmt.Errorf("report at index %d: %w", i, err)
		}
	}

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		return batches(len(reports), constants.DBBatchSize, func(start, end int) error {
			for i := start; i < end; i++ {
				if err := insertReport(ctx, tx, &reports[i]); err != nil {
					return err
				}
			}
			r.logger.Debug().Int("from", start).Int("to", end).Msg("inserted report batch")
			return nil
		})
	})
}

// UpdateStatus moves a pending report to verified or rejected. Status is the
// only mutable column. Verification credits the author
// constants.PointsPerVerifiedReport points in the same transaction.
func (r *ReportRepository) UpdateStatus(ctx context.Context, id string, status domain.ReportStatus) (*domain.Report, error) {
	if status != domain.StatusVerified && status != domain.StatusRejected {
		return nil, fmt.Errorf("%w: cannot move report to status %q", ErrInvalidInput, status)
	}

	var updated *domain.Report
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		current, err := getReport(ctx, tx, id)
		if err != nil {
			return err
		}
		if current.Status != domain.StatusPending {
			return fmt.Errorf("%w: report %s is already %s", ErrInvalidInput, id, current.Status)
		}

		now := normalizeTime(r.now())
		if _, err := tx.ExecContext(ctx,
			`UPDATE reports SET status = ?, updated_at = ? WHERE id = ?`,
			string(status), now, id); err != nil {
			return fmt.Errorf("failed to update report %s status: %w", id, err)
		}
		if status == domain.StatusVerified {
			if err := addPoints(ctx, tx, current.UserID, constants.PointsPerVerifiedReport, now); err != nil {
				return err
			}
		}

		current.Status = status
		current.UpdatedAt = now
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info().
		Str("report_id", id).
		Str("status", string(status)).
		Msg("report status updated")
	return updated, nil
}

func (r *ReportRepository) prepare(rep *domain.Report) error {
	if rep.UserID == "" {
		return fmt.Errorf("%w: report %q has no user", ErrInvalidInput, rep.ID)
	}
	if rep.QuantityKg.IsNegative() {
		return fmt.Errorf("%w: report %q has negative quantity %s", ErrInvalidInput, rep.ID, rep.QuantityKg)
	}
	if !rep.MaterialType.Valid() {
		return fmt.Errorf("%w: report %q has unknown material %q", ErrInvalidInput, rep.ID, rep.MaterialType)
	}
	if rep.Status == "" {
		rep.Status = domain.StatusPending
	}
	if !rep.Status.Valid() {
		return fmt.Errorf("%w: report %q has unknown status %q", ErrInvalidInput, rep.ID, rep.Status)
	}
	if rep.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
		rep.ID = id
	}

	now := normalizeTime(r.now())
	if rep.ReportedAt.IsZero() {
		rep.ReportedAt = now
	}
	rep.ReportedAt = normalizeTime(rep.ReportedAt)
	rep.CreatedAt = now
	rep.UpdatedAt = now
	return nil
}

func insertReport(ctx context.Context, q DBTX, rep *domain.Report) error {
	_, err := q.ExecContext(ctx, insertReportQuery,
		rep.ID, rep.UserID, string(rep.MaterialType), rep.QuantityKg.String(), rep.Location,
		string(rep.Status), rep.ReportedAt, rep.CreatedAt, rep.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert report %s: %w", rep.ID, err)
	}
	return nil
}

func getReport(ctx context.Context, q DBTX, id string) (*domain.Report, error) {
	row := q.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = ?`, id)
	rep, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

func scanReport(row rowScanner) (domain.Report, error) {
	var (
		rep              domain.Report
		material, status string
	)
	err := row.Scan(&rep.ID, &rep.UserID, &material, &rep.QuantityKg, &rep.Location,
		&status, &rep.ReportedAt, &rep.CreatedAt, &rep.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rep, err
		}
		return rep, fmt.Errorf("failed to scan report: %w", err)
	}
	rep.MaterialType = domain.MaterialType(material)
	rep.Status = domain.ReportStatus(status)
	rep.ReportedAt = rep.ReportedAt.UTC()
	rep.CreatedAt = rep.CreatedAt.UTC()
	rep.UpdatedAt = rep.UpdatedAt.UTC()
	return rep, nil
}
