package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/smartstudenthub/activity-api/internal/models"
)

const reportColumns = `r.id, r.title, r.type, r.format, r.purpose, r.scope, r.generated_by, r.status, r.file,
r.statistics, r.error_message, r.shared_with, r.is_public, r.created_at, r.updated_at,
COALESCE(u.full_name, '') AS generated_by_name`

const reportJoins = `FROM reports r LEFT JOIN users u ON u.id = r.generated_by`

// ReportRepository persists report rows and their lifecycle state.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create inserts a new report row with generated defaults.
func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.Status == "" {
		report.Status = models.ReportStatusGenerating
	}
	now := time.Now().UTC()
	if report.CreatedAt.IsZero() {
		report.CreatedAt = now
	}
	report.UpdatedAt = now

	const query = `INSERT INTO reports (id, title, type, format, purpose, scope, generated_by, status, file, statistics, error_message, shared_with, is_public, created_at, updated_at)
VALUES (:id, :title, :type, :format, :purpose, :scope, :generated_by, :status, :file, :statistics, :error_message, :shared_with, :is_public, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, report); err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

// GetByID returns a report row by its identifier.
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*models.Report, error) {
	query := `SELECT ` + reportColumns + ` ` + reportJoins + ` WHERE r.id = $1 LIMIT 1`
	var report models.Report
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get report: %w", err)
	}
	return &report, nil
}

// List returns reports visible to the requester. Admin callers pass
// IncludeAll; everyone else sees rows they generated, rows shared with them,
// and public rows.
func (r *ReportRepository) List(ctx context.Context, filter models.ReportFilter) ([]models.Report, int, error) {
	baseQuery := reportJoins + ` WHERE 1=1`
	var conditions []string
	var args []interface{}

	if !filter.IncludeAll {
		pos := len(args) + 1
		conditions = append(conditions, fmt.Sprintf(`(r.generated_by = $%d OR r.is_public = TRUE OR r.shared_with @> jsonb_build_array(jsonb_build_object('userId', $%d::text)))`, pos, pos))
		args = append(args, filter.RequesterID)
	}
	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("r.type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("r.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	offset := (page - 1) * limit

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY r.created_at DESC LIMIT %d OFFSET %d", reportColumns, baseQuery, limit, offset)

	var reports []models.Report
	if err := r.db.SelectContext(ctx, &reports, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list reports: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count reports: %w", err)
	}

	return reports, total, nil
}

// MarkCompleted transitions a report to completed with its artifact and
// statistics.
func (r *ReportRepository) MarkCompleted(ctx context.Context, id string, file models.ReportFile, stats models.ReportStatistics) error {
	const query = `UPDATE reports SET status = 'completed', file = $2, statistics = $3, error_message = NULL, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, file, stats, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark report completed: %w", err)
	}
	return nil
}

// MarkFailed transitions a report to failed and records the error detail.
func (r *ReportRepository) MarkFailed(ctx context.Context, id, message string) error {
	const query = `UPDATE reports SET status = 'failed', error_message = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, message, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark report failed: %w", err)
	}
	return nil
}

// UpdateSharing replaces the share grants and public flag of a report.
func (r *ReportRepository) UpdateSharing(ctx context.Context, id string, grants models.ShareGrants, isPublic bool) error {
	const query = `UPDATE reports SET shared_with = $2, is_public = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, grants, isPublic, time.Now().UTC()); err != nil {
		return fmt.Errorf("update report sharing: %w", err)
	}
	return nil
}

// Delete removes a report row.
func (r *ReportRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM reports WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete report rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListStale returns reports stuck in generating since before the cutoff.
// Used on startup to fail rows orphaned by a crash.
func (r *ReportRepository) ListStale(ctx context.Context, cutoff time.Time) ([]models.Report, error) {
	query := `SELECT ` + reportColumns + ` ` + reportJoins + ` WHERE r.status = 'generating' AND r.updated_at < $1 ORDER BY r.created_at ASC`
	var reports []models.Report
	if err := r.db.SelectContext(ctx, &reports, query, cutoff); err != nil {
		return nil, fmt.Errorf("list stale reports: %w", err)
	}
	return reports, nil
}
