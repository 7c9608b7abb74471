package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/smartstudenthub/activity-api/internal/models"
)

const activityColumns = `a.id, a.student_id, a.title, a.description, a.category, a.sub_category, a.organizer, a.location, a.mode,
a.start_date, a.end_date, a.credits, a.score, a.grade, a.documents, a.skills_gained, a.tags, a.learning_outcomes,
a.impact, a.is_public, a.status, a.approved_by, a.approval_date, a.rejection_reason, a.is_verified, a.verification_code,
a.comments, a.created_at, a.updated_at,
s.full_name AS student_name, s.department AS student_department,
COALESCE(sp.student_number, '') AS student_number,
COALESCE(ap.full_name, '') AS approver_name`

const activityJoins = `FROM activities a
JOIN users s ON s.id = a.student_id
LEFT JOIN student_profiles sp ON sp.user_id = a.student_id
LEFT JOIN users ap ON ap.id = a.approved_by`

// ActivityRepository provides database access for activity records.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository creates a new instance of ActivityRepository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create inserts a new activity row. The verification code must already be
// minted by the caller; it is written exactly once and never updated.
func (r *ActivityRepository) Create(ctx context.Context, activity *models.Activity) error {
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = now
	}
	activity.UpdatedAt = now

	const query = `INSERT INTO activities (id, student_id, title, description, category, sub_category, organizer, location, mode,
start_date, end_date, credits, score, grade, documents, skills_gained, tags, learning_outcomes,
impact, is_public, status, is_verified, verification_code, comments, created_at, updated_at)
VALUES (:id, :student_id, :title, :description, :category, :sub_category, :organizer, :location, :mode,
:start_date, :end_date, :credits, :score, :grade, :documents, :skills_gained, :tags, :learning_outcomes,
:impact, :is_public, :status, :is_verified, :verification_code, :comments, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, activity); err != nil {
		return fmt.Errorf("create activity: %w", err)
	}
	return nil
}

// GetByID returns an activity joined with its student and approver names.
func (r *ActivityRepository) GetByID(ctx context.Context, id string) (*models.Activity, error) {
	query := `SELECT ` + activityColumns + ` ` + activityJoins + ` WHERE a.id = $1 LIMIT 1`
	var activity models.Activity
	if err := r.db.GetContext(ctx, &activity, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get activity: %w", err)
	}
	return &activity, nil
}

// List returns activities matching the filter with total count computed from
// the same scoped conditions.
func (r *ActivityRepository) List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, int, error) {
	baseQuery := activityJoins + ` WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("a.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Department != "" && filter.ApprovedBy != "" {
		conditions = append(conditions, fmt.Sprintf("(s.department = $%d OR a.approved_by = $%d)", len(args)+1, len(args)+2))
		args = append(args, filter.Department, filter.ApprovedBy)
	} else if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("s.department = $%d", len(args)+1))
		args = append(args, filter.Department)
	} else if filter.ApprovedBy != "" {
		conditions = append(conditions, fmt.Sprintf("a.approved_by = $%d", len(args)+1))
		args = append(args, filter.ApprovedBy)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("a.category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.Search != "" {
		pos := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(a.title) LIKE $%d OR LOWER(a.description) LIKE $%d OR LOWER(a.organizer) LIKE $%d)", pos, pos, pos))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("a.start_date >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("a.end_date <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"created_at": true,
		"start_date": true,
		"end_date":   true,
		"title":      true,
		"credits":    true,
		"score":      true,
		"status":     true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY a.%s %s LIMIT %d OFFSET %d", activityColumns, baseQuery, sortBy, sortOrder, limit, offset)

	var activities []models.Activity
	if err := r.db.SelectContext(ctx, &activities, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list activities: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count activities: %w", err)
	}

	return activities, total, nil
}

// ListForPortfolio returns a student's activities ordered newest start date
// first, restricted to approved rows unless includeAll is set.
func (r *ActivityRepository) ListForPortfolio(ctx context.Context, studentID string, includeAll bool) ([]models.Activity, error) {
	query := `SELECT ` + activityColumns + ` ` + activityJoins + ` WHERE a.student_id = $1`
	if !includeAll {
		query += ` AND a.status = 'approved'`
	}
	query += ` ORDER BY a.start_date DESC`

	var activities []models.Activity
	if err := r.db.SelectContext(ctx, &activities, query, studentID); err != nil {
		return nil, fmt.Errorf("list portfolio activities: %w", err)
	}
	return activities, nil
}

// Update persists the owner-editable fields. Status and approval metadata are
// written as given so an edit of a decided activity can route back to pending
// with cleared approval columns.
func (r *ActivityRepository) Update(ctx context.Context, activity *models.Activity) error {
	activity.UpdatedAt = time.Now().UTC()
	const query = `UPDATE activities SET title = :title, description = :description, category = :category, sub_category = :sub_category,
organizer = :organizer, location = :location, mode = :mode, start_date = :start_date, end_date = :end_date,
credits = :credits, score = :score, grade = :grade, documents = :documents, skills_gained = :skills_gained,
tags = :tags, learning_outcomes = :learning_outcomes, impact = :impact, is_public = :is_public,
status = :status, approved_by = :approved_by, approval_date = :approval_date, rejection_reason = :rejection_reason,
is_verified = :is_verified, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, activity); err != nil {
		return fmt.Errorf("update activity: %w", err)
	}
	return nil
}

// ActivityDecision captures an approve or reject outcome to persist.
type ActivityDecision struct {
	Status          models.ActivityStatus
	ApprovedBy      string
	ApprovalDate    time.Time
	RejectionReason *string
	Comment         *models.ActivityComment
}

// Decide applies an approval decision with a single conditional update keyed
// on the row still being pending. Returns the number of rows affected; zero
// means the activity was already decided by someone else.
func (r *ActivityRepository) Decide(ctx context.Context, id string, decision ActivityDecision) (int64, error) {
	appended := models.ActivityComments{}
	if decision.Comment != nil {
		appended = models.ActivityComments{*decision.Comment}
	}

	const query = `UPDATE activities
SET status = $2, approved_by = $3, approval_date = $4, rejection_reason = $5,
is_verified = ($2 = 'approved'),
comments = COALESCE(comments, '[]'::jsonb) || $6::jsonb,
updated_at = $7
WHERE id = $1 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query, id, decision.Status, decision.ApprovedBy,
		decision.ApprovalDate, decision.RejectionReason, appended, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("decide activity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("decide activity rows affected: %w", err)
	}
	return affected, nil
}

// AppendComment atomically appends one comment to the activity's trail.
func (r *ActivityRepository) AppendComment(ctx context.Context, id string, comment models.ActivityComment) error {
	const query = `UPDATE activities SET comments = COALESCE(comments, '[]'::jsonb) || $2::jsonb, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, models.ActivityComments{comment}, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("append activity comment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("append comment rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an activity row.
func (r *ActivityRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM activities WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete activity rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// StatsScope bounds an aggregate query to one student or one department.
// Empty fields mean no restriction.
type StatsScope struct {
	StudentID  string
	Department string
}

// Stats aggregates counts, credits, and scores for the scope.
func (r *ActivityRepository) Stats(ctx context.Context, scope StatsScope) (*models.ActivityStats, error) {
	where, args := statsWhere(scope)

	stats := &models.ActivityStats{}

	totalQuery := `SELECT COUNT(*) AS count,
COALESCE(SUM(a.credits), 0) AS total_credits,
COALESCE(AVG(a.score) FILTER (WHERE a.score IS NOT NULL AND a.score > 0), 0) AS average_score
FROM activities a JOIN users s ON s.id = a.student_id` + where
	row := struct {
		Count        int     `db:"count"`
		TotalCredits float64 `db:"total_credits"`
		AverageScore float64 `db:"average_score"`
	}{}
	if err := r.db.GetContext(ctx, &row, totalQuery, args...); err != nil {
		return nil, fmt.Errorf("activity totals: %w", err)
	}
	stats.Total = row.Count
	stats.TotalCredits = row.TotalCredits
	stats.AverageScore = row.AverageScore

	categoryQuery := `SELECT a.category, COUNT(*) AS count,
COALESCE(SUM(a.credits), 0) AS total_credits,
COALESCE(AVG(a.score) FILTER (WHERE a.score IS NOT NULL AND a.score > 0), 0) AS average_score
FROM activities a JOIN users s ON s.id = a.student_id` + where + ` GROUP BY a.category ORDER BY count DESC`
	if err := r.db.SelectContext(ctx, &stats.ByCategory, categoryQuery, args...); err != nil {
		return nil, fmt.Errorf("activity category stats: %w", err)
	}

	statusQuery := `SELECT a.status, COUNT(*) AS count
FROM activities a JOIN users s ON s.id = a.student_id` + where + ` GROUP BY a.status`
	if err := r.db.SelectContext(ctx, &stats.ByStatus, statusQuery, args...); err != nil {
		return nil, fmt.Errorf("activity status stats: %w", err)
	}

	return stats, nil
}

func statsWhere(scope StatsScope) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	if scope.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("a.student_id = $%d", len(args)+1))
		args = append(args, scope.StudentID)
	}
	if scope.Department != "" {
		conditions = append(conditions, fmt.Sprintf("s.department = $%d", len(args)+1))
		args = append(args, scope.Department)
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// ListByStudents returns activities for a set of students, optionally bounded
// by a date range and restricted to approved rows. Used by report generation.
func (r *ActivityRepository) ListByStudents(ctx context.Context, studentIDs []string, from, to *time.Time, approvedOnly bool) ([]models.Activity, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}

	query := `SELECT ` + activityColumns + ` ` + activityJoins + ` WHERE a.student_id = ANY($1)`
	args := []interface{}{pq.Array(studentIDs)}
	if approvedOnly {
		query += ` AND a.status = 'approved'`
	}
	if from != nil {
		query += fmt.Sprintf(` AND a.start_date >= $%d`, len(args)+1)
		args = append(args, *from)
	}
	if to != nil {
		query += fmt.Sprintf(` AND a.end_date <= $%d`, len(args)+1)
		args = append(args, *to)
	}
	query += ` ORDER BY a.start_date DESC`

	var activities []models.Activity
	if err := r.db.SelectContext(ctx, &activities, query, args...); err != nil {
		return nil, fmt.Errorf("list activities by students: %w", err)
	}
	return activities, nil
}
