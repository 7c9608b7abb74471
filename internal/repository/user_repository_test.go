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

func newUserMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func userRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "email", "password_hash", "full_name", "role", "department", "phone", "is_active", "last_login", "created_at", "updated_at"}).
		AddRow("user-1", "asha@example.edu", "$2a$10$hash", "Asha Student", "student", "CSE", "", true, nil, now, now)
}

func TestUserRepositoryFindByEmailCaseInsensitive(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(`WHERE LOWER\(email\) = LOWER\(\$1\)`).
		WithArgs("Asha@Example.EDU").
		WillReturnRows(userRows())

	user, err := repo.FindByEmail(context.Background(), "Asha@Example.EDU")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreateStudentWithProfile(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO student_profiles").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	detail := &models.UserDetail{
		User: models.User{
			Email:      "asha@example.edu",
			FullName:   "Asha Student",
			Role:       models.RoleStudent,
			Department: "CSE",
			Active:     true,
		},
		Student: &models.StudentProfile{StudentNumber: "23CSE001", Year: 2, Semester: 4},
	}
	err := repo.Create(context.Background(), detail)
	require.NoError(t, err)
	assert.NotEmpty(t, detail.ID)
	assert.Equal(t, detail.ID, detail.Student.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreateAdminSkipsProfile(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Create(context.Background(), &models.UserDetail{
		User: models.User{Email: "root@example.edu", FullName: "Admin", Role: models.RoleAdmin, Active: true},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryFindDetailJoinsFacultyProfile(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs("fac-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "full_name", "role", "department", "phone", "is_active", "last_login", "created_at", "updated_at"}).
			AddRow("fac-1", "rao@example.edu", "$2a$10$hash", "Dr. Rao", "faculty", "CSE", "", true, nil, now, now))
	mock.ExpectQuery(`FROM faculty_profiles WHERE user_id = \$1`).
		WithArgs("fac-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "employee_id", "designation"}).
			AddRow("fac-1", "EMP042", "Associate Professor"))

	detail, err := repo.FindDetailByID(context.Background(), "fac-1")
	require.NoError(t, err)
	require.NotNil(t, detail.Faculty)
	assert.Equal(t, "Associate Professor", detail.Faculty.Designation)
	assert.Nil(t, detail.Student)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryListFiltersByDepartment(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	role := models.RoleStudent
	mock.ExpectQuery(`FROM users WHERE 1=1 AND role = \$1 AND department = \$2`).
		WithArgs(role, "CSE").
		WillReturnRows(userRows())
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).
		WithArgs(role, "CSE").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	users, total, err := repo.List(context.Background(), models.UserFilter{Role: &role, Department: "CSE"})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryDeactivate(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(`UPDATE users SET is_active = FALSE`).
		WithArgs("user-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Deactivate(context.Background(), "user-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryRefreshTokenRoundTrip(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO refresh_tokens").
		WillReturnResult(sqlmock.NewResult(1, 1))

	token := &models.RefreshToken{UserID: "user-1", Token: "opaque", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.CreateRefreshToken(context.Background(), token))
	assert.NotEmpty(t, token.ID)

	now := time.Now()
	mock.ExpectQuery(`FROM refresh_tokens WHERE token = \$1`).
		WithArgs("opaque").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "token", "expires_at", "created_at", "revoked", "revoked_at", "ip_address", "user_agent"}).
			AddRow(token.ID, "user-1", "opaque", now.Add(time.Hour), now, false, nil, "", ""))

	found, err := repo.FindRefreshToken(context.Background(), "opaque")
	require.NoError(t, err)
	assert.Equal(t, "user-1", found.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
