package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/smartstudenthub/activity-api/internal/models"
)

// AnalyticsRepository exposes read-optimised queries for analytics endpoints.
type AnalyticsRepository struct {
	db *sqlx.DB
}

// NewAnalyticsRepository instantiates the repository.
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// CountActiveStudents returns the number of active students in a department.
func (r *AnalyticsRepository) CountActiveStudents(ctx context.Context, department string) (int, error) {
	const query = `SELECT COUNT(*) FROM users WHERE role = 'student' AND department = $1 AND is_active = TRUE`

	var count int
	if err := r.db.GetContext(ctx, &count, query, department); err != nil {
		return 0, fmt.Errorf("count department students: %w", err)
	}
	return count, nil
}

// CategorySummary aggregates a department's activities per category,
// optionally bounded by a start-date window.
func (r *AnalyticsRepository) CategorySummary(ctx context.Context, filter models.DepartmentAnalyticsFilter) ([]models.CategoryAnalytics, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT a.category,
        COUNT(*) AS total_activities,
        SUM(CASE WHEN a.status = 'approved' THEN 1 ELSE 0 END) AS approved_activities,
        COALESCE(SUM(a.credits), 0) AS total_credits,
        AVG(a.score) AS average_score
        FROM activities a
        JOIN users s ON s.id = a.student_id
        WHERE s.role = 'student' AND s.department = $1`)

	args := []interface{}{filter.Department}
	if filter.From != nil {
		args = append(args, *filter.From)
		builder.WriteString(fmt.Sprintf(" AND a.start_date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		builder.WriteString(fmt.Sprintf(" AND a.start_date < $%d", len(args)))
	}
	builder.WriteString(" GROUP BY a.category ORDER BY total_activities DESC")

	var summaries []models.CategoryAnalytics
	if err := r.db.SelectContext(ctx, &summaries, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query category summary: %w", err)
	}
	return summaries, nil
}

// StudentPerformance ranks a department's students by approved credits,
// highest first.
func (r *AnalyticsRepository) StudentPerformance(ctx context.Context, filter models.DepartmentAnalyticsFilter) ([]models.StudentPerformance, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT a.student_id,
        COALESCE(sp.student_number, '') AS student_number,
        s.full_name,
        sp.year,
        COUNT(*) AS total_activities,
        COALESCE(SUM(a.credits), 0) AS total_credits,
        AVG(a.score) AS average_score
        FROM activities a
        JOIN users s ON s.id = a.student_id
        LEFT JOIN student_profiles sp ON sp.user_id = s.id
        WHERE a.status = 'approved' AND s.department = $1`)

	args := []interface{}{filter.Department}
	if filter.From != nil {
		args = append(args, *filter.From)
		builder.WriteString(fmt.Sprintf(" AND a.start_date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		builder.WriteString(fmt.Sprintf(" AND a.start_date < $%d", len(args)))
	}
	builder.WriteString(` GROUP BY a.student_id, sp.student_number, s.full_name, sp.year
        ORDER BY total_credits DESC`)

	var performance []models.StudentPerformance
	if err := r.db.SelectContext(ctx, &performance, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query student performance: %w", err)
	}
	return performance, nil
}
