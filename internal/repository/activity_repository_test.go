package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartstudenthub/activity-api/internal/models"
)

func newActivityMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func activityRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "student_id", "title", "description", "category", "sub_category", "organizer", "location", "mode",
		"start_date", "end_date", "credits", "score", "grade", "documents", "skills_gained", "tags", "learning_outcomes",
		"impact", "is_public", "status", "approved_by", "approval_date", "rejection_reason", "is_verified", "verification_code",
		"comments", "created_at", "updated_at", "student_name", "student_department", "student_number", "approver_name",
	}).AddRow(
		"act-1", "student-1", "Hackathon", "48 hour hackathon", "competition", "", "IEEE", "Campus", "offline",
		now.AddDate(0, 0, -2), now, 2.0, nil, "", []byte(`[]`), []byte(`["teamwork"]`), []byte(`[]`), "",
		"medium", false, "pending", nil, nil, nil, false, "ACT1700000000001",
		[]byte(`[]`), now, now, "Asha Student", "CSE", "23CSE001", "",
	)
}

func TestActivityRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newActivityMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	mock.ExpectExec("INSERT INTO activities").
		WillReturnResult(sqlmock.NewResult(1, 1))

	activity := &models.Activity{
		StudentID:        "student-1",
		Title:            "Hackathon",
		Category:         models.CategoryCompetition,
		Organizer:        "IEEE",
		Mode:             models.ModeOffline,
		StartDate:        time.Now().AddDate(0, 0, -2),
		EndDate:          time.Now(),
		Status:           models.StatusPending,
		Impact:           models.ImpactMedium,
		VerificationCode: "ACT1700000000001",
	}
	err := repo.Create(context.Background(), activity)
	require.NoError(t, err)
	assert.NotEmpty(t, activity.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepositoryGetByID(t *testing.T) {
	db, mock, cleanup := newActivityMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM activities a").
		WithArgs("act-1").
		WillReturnRows(activityRows())

	activity, err := repo.GetByID(context.Background(), "act-1")
	require.NoError(t, err)
	assert.Equal(t, "Hackathon", activity.Title)
	assert.Equal(t, models.StatusPending, activity.Status)
	assert.Equal(t, "CSE", activity.StudentDepartment)
	assert.Equal(t, []string{"teamwork"}, []string(activity.SkillsGained))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepositoryGetByIDNotFound(t *testing.T) {
	db, mock, cleanup := newActivityMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM activities a").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepositoryListScopesFaculty(t *testing.T) {
	db, mock, cleanup := newActivityMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM activities a(.+)\(s\.department = \$1 OR a\.approved_by = \$2\)(.+)ORDER BY a\.created_at DESC LIMIT 10 OFFSET 0`).
		WithArgs("CSE", "fac-1").
		WillReturnRows(activityRows())
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM activities a`).
		WithArgs("CSE", "fac-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	activities, total, err := repo.List(context.Background(), models.ActivityFilter{
		Department: "CSE",
		ApprovedBy: "fac-1",
	})
	require.NoError(t, err)
	assert.Len(t, activities, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepositoryListIgnoresEmptyFilters(t *testing.T) {
	db, mock, cleanup := newActivityMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	// No WithArgs: empty-string filters must not add any condition.
	mock.ExpectQuery(`SELECT (.+) FROM activities a(.+)WHERE 1=1 ORDER BY a\.created_at DESC LIMIT 10 OFFSET 0`).
		WillReturnRows(activityRows())
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM activities a(.+)WHERE 1=1`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	_, _, err := repo.List(context.Background(), models.ActivityFilter{
		Status:   "",
		Category: "",
		Search:   "",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepositoryListClampsPagination(t *testing.T) {
	db, mock, cleanup := newActivityMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	mock.ExpectQuery(`SELECT (.+) LIMIT 100 OFFSET 0`).
		WillReturnRows(activityRows())
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM activities a`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	_, _, err := repo.List(context.Background(), models.ActivityFilter{Page: -3, Limit: 5000})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepositoryListRejectsUnknownSortKey(t *testing.T) {
	db, mock, cleanup := newActivityMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	mock.ExpectQuery(`ORDER BY a\.created_at DESC`).
		WillReturnRows(activityRows())
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM activities a`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	_, _, err := repo.List(context.Background(), models.ActivityFilter{SortBy: "comments; DROP TABLE activities"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepositoryDecideApproves(t *testing.T) {
	db, mock, cleanup := newActivityMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	mock.ExpectExec(`UPDATE activities(.+)WHERE id = \$1 AND status = 'pending'`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	affected, err := repo.Decide(context.Background(), "act-1", ActivityDecision{
		Status:       models.StatusApproved,
		ApprovedBy:   "fac-1",
		ApprovalDate: time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepositoryDecideAlreadyDecided(t *testing.T) {
	db, mock, cleanup := newActivityMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	mock.ExpectExec(`UPDATE activities(.+)status = 'pending'`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	affected, err := repo.Decide(context.Background(), "act-1", ActivityDecision{
		Status:       models.StatusRejected,
		ApprovedBy:   "fac-1",
		ApprovalDate: time.Now(),
	})
	require.NoError(t, err)
	assert.Zero(t, affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepositoryAppendComment(t *testing.T) {
	db, mock, cleanup := newActivityMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	mock.ExpectExec(`UPDATE activities SET comments = COALESCE`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.AppendComment(context.Background(), "act-1", models.ActivityComment{
		UserID:    "fac-1",
		UserName:  "Dr. Rao",
		Role:      models.RoleFaculty,
		Message:   "Please attach the certificate",
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newActivityMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	mock.ExpectExec(`DELETE FROM activities WHERE id = \$1`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepositoryStats(t *testing.T) {
	db, mock, cleanup := newActivityMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) AS count`).
		WithArgs("student-1").
		WillReturnRows(sqlmock.NewRows([]string{"count", "total_credits", "average_score"}).AddRow(4, 7.5, 82.0))
	mock.ExpectQuery(`GROUP BY a\.category`).
		WithArgs("student-1").
		WillReturnRows(sqlmock.NewRows([]string{"category", "count", "total_credits", "average_score"}).
			AddRow("competition", 2, 4.0, 85.0).
			AddRow("workshop", 2, 3.5, 79.0))
	mock.ExpectQuery(`GROUP BY a\.status`).
		WithArgs("student-1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("approved", 3).
			AddRow("pending", 1))

	stats, err := repo.Stats(context.Background(), StatsScope{StudentID: "student-1"})
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 7.5, stats.TotalCredits)
	assert.Len(t, stats.ByCategory, 2)
	assert.Len(t, stats.ByStatus, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}
