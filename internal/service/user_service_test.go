package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartstudenthub/activity-api/internal/authz"
	"github.com/smartstudenthub/activity-api/internal/dto"
	"github.com/smartstudenthub/activity-api/internal/models"
	appErrors "github.com/smartstudenthub/activity-api/pkg/errors"
)

type mockUserRepo struct {
	users       map[string]*models.UserDetail
	lastFilter  models.UserFilter
	deactivated []string
	revoked     []string
	auditLogs   []*models.AuditLog
	profile     *models.StudentProfile
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*models.UserDetail)}
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return &u.User, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindDetailByID(ctx context.Context, id string) (*models.UserDetail, error) {
	if u, ok := m.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	m.lastFilter = filter
	var list []models.User
	for _, u := range m.users {
		list = append(list, u.User)
	}
	return list, len(list), nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	if detail, ok := m.users[user.ID]; ok {
		detail.User = *user
	}
	return nil
}

func (m *mockUserRepo) UpdateStudentProfile(ctx context.Context, profile *models.StudentProfile) error {
	m.profile = profile
	if detail, ok := m.users[profile.UserID]; ok {
		detail.Student = profile
	}
	return nil
}

func (m *mockUserRepo) Deactivate(ctx context.Context, id string) error {
	m.deactivated = append(m.deactivated, id)
	if detail, ok := m.users[id]; ok {
		detail.Active = false
	}
	return nil
}

func (m *mockUserRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revoked = append(m.revoked, userID)
	return nil
}

func (m *mockUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func seedUsers(repo *mockUserRepo) {
	repo.users["stu-1"] = &models.UserDetail{
		User: models.User{ID: "stu-1", Email: "asha@example.edu", FullName: "Asha Verma", Role: models.RoleStudent, Department: "CSE", Active: true},
		Student: &models.StudentProfile{
			UserID: "stu-1", StudentNumber: "CS2021001", Year: 3, Semester: 6, CGPA: 8.4,
		},
	}
	repo.users["stu-2"] = &models.UserDetail{
		User: models.User{ID: "stu-2", Email: "ravi@example.edu", FullName: "Ravi Kumar", Role: models.RoleStudent, Department: "ECE", Active: true},
	}
	repo.users["fac-1"] = &models.UserDetail{
		User:    models.User{ID: "fac-1", Email: "rao@example.edu", FullName: "Dr. Rao", Role: models.RoleFaculty, Department: "CSE", Active: true},
		Faculty: &models.FacultyProfile{UserID: "fac-1", EmployeeID: "EMP01", Designation: "Professor"},
	}
	repo.users["adm-1"] = &models.UserDetail{
		User: models.User{ID: "adm-1", Email: "root@example.edu", FullName: "Root", Role: models.RoleAdmin, Active: true},
	}
}

func TestUserGetVisibility(t *testing.T) {
	repo := newMockUserRepo()
	seedUsers(repo)
	svc := NewUserService(repo, nil, nil)

	admin := authz.Actor{ID: "adm-1", Role: models.RoleAdmin}
	detail, err := svc.Get(context.Background(), admin, "stu-1")
	require.NoError(t, err)
	require.NotNil(t, detail.Student)
	assert.Equal(t, "CS2021001", detail.Student.StudentNumber)

	self := authz.Actor{ID: "stu-1", Role: models.RoleStudent, Department: "CSE"}
	_, err = svc.Get(context.Background(), self, "stu-1")
	require.NoError(t, err)

	sameDeptFaculty := authz.Actor{ID: "fac-1", Role: models.RoleFaculty, Department: "CSE"}
	_, err = svc.Get(context.Background(), sameDeptFaculty, "stu-1")
	require.NoError(t, err)

	// Other-department students look absent, not forbidden.
	_, err = svc.Get(context.Background(), sameDeptFaculty, "stu-2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	otherStudent := authz.Actor{ID: "stu-2", Role: models.RoleStudent, Department: "ECE"}
	_, err = svc.Get(context.Background(), otherStudent, "stu-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUserListScoping(t *testing.T) {
	repo := newMockUserRepo()
	seedUsers(repo)
	svc := NewUserService(repo, nil, nil)

	admin := authz.Actor{ID: "adm-1", Role: models.RoleAdmin}
	_, meta, err := svc.List(context.Background(), admin, dto.ListUsersRequest{})
	require.NoError(t, err)
	assert.Equal(t, 4, meta.Total)

	faculty := authz.Actor{ID: "fac-1", Role: models.RoleFaculty, Department: "CSE"}
	_, _, err = svc.List(context.Background(), faculty, dto.ListUsersRequest{Role: string(models.RoleAdmin), Department: "ECE"})
	require.NoError(t, err)
	require.NotNil(t, repo.lastFilter.Role)
	assert.Equal(t, models.RoleStudent, *repo.lastFilter.Role)
	assert.Equal(t, "CSE", repo.lastFilter.Department)

	student := authz.Actor{ID: "stu-1", Role: models.RoleStudent}
	_, _, err = svc.List(context.Background(), student, dto.ListUsersRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestUserUpdateSelf(t *testing.T) {
	repo := newMockUserRepo()
	seedUsers(repo)
	svc := NewUserService(repo, nil, nil)

	self := authz.Actor{ID: "stu-1", Role: models.RoleStudent, Department: "CSE"}
	name := "Asha V"
	year := 4
	detail, err := svc.Update(context.Background(), self, "stu-1", dto.UpdateUserRequest{FullName: &name, Year: &year})
	require.NoError(t, err)
	assert.Equal(t, "Asha V", detail.FullName)
	require.NotNil(t, repo.profile)
	assert.Equal(t, 4, repo.profile.Year)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionUserUpdate, repo.auditLogs[0].Action)
}

func TestUserUpdatePrivilegedFieldsRequireAdmin(t *testing.T) {
	repo := newMockUserRepo()
	seedUsers(repo)
	svc := NewUserService(repo, nil, nil)

	self := authz.Actor{ID: "stu-1", Role: models.RoleStudent, Department: "CSE"}
	role := models.RoleAdmin
	_, err := svc.Update(context.Background(), self, "stu-1", dto.UpdateUserRequest{Role: &role})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	// Editing someone else's account looks like a missing user.
	_, err = svc.Update(context.Background(), self, "stu-2", dto.UpdateUserRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	admin := authz.Actor{ID: "adm-1", Role: models.RoleAdmin}
	dept := "ECE"
	detail, err := svc.Update(context.Background(), admin, "stu-1", dto.UpdateUserRequest{Department: &dept})
	require.NoError(t, err)
	assert.Equal(t, "ECE", detail.Department)
}

func TestUserUpdateAdminCannotDeactivateSelf(t *testing.T) {
	repo := newMockUserRepo()
	seedUsers(repo)
	svc := NewUserService(repo, nil, nil)

	admin := authz.Actor{ID: "adm-1", Role: models.RoleAdmin}
	inactive := false
	_, err := svc.Update(context.Background(), admin, "adm-1", dto.UpdateUserRequest{Active: &inactive})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestUserDeactivate(t *testing.T) {
	repo := newMockUserRepo()
	seedUsers(repo)
	svc := NewUserService(repo, nil, nil)

	faculty := authz.Actor{ID: "fac-1", Role: models.RoleFaculty, Department: "CSE"}
	err := svc.Deactivate(context.Background(), faculty, "stu-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	admin := authz.Actor{ID: "adm-1", Role: models.RoleAdmin}
	require.Error(t, svc.Deactivate(context.Background(), admin, "adm-1"))

	require.NoError(t, svc.Deactivate(context.Background(), admin, "stu-1"))
	assert.Contains(t, repo.deactivated, "stu-1")
	assert.Contains(t, repo.revoked, "stu-1")
	require.NotEmpty(t, repo.auditLogs)
	assert.Equal(t, models.AuditActionUserDeactivate, repo.auditLogs[len(repo.auditLogs)-1].Action)

	err = svc.Deactivate(context.Background(), admin, "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUserSetStatus(t *testing.T) {
	repo := newMockUserRepo()
	seedUsers(repo)
	svc := NewUserService(repo, nil, nil)

	faculty := authz.Actor{ID: "fac-1", Role: models.RoleFaculty, Department: "CSE"}
	_, err := svc.SetStatus(context.Background(), faculty, "stu-1", false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	admin := authz.Actor{ID: "adm-1", Role: models.RoleAdmin}
	_, err = svc.SetStatus(context.Background(), admin, "adm-1", false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	detail, err := svc.SetStatus(context.Background(), admin, "stu-1", false)
	require.NoError(t, err)
	assert.False(t, detail.Active)
	assert.Contains(t, repo.revoked, "stu-1")

	detail, err = svc.SetStatus(context.Background(), admin, "stu-1", true)
	require.NoError(t, err)
	assert.True(t, detail.Active)
}

func TestUserListStudentsByDepartment(t *testing.T) {
	repo := newMockUserRepo()
	seedUsers(repo)
	svc := NewUserService(repo, nil, nil)

	faculty := authz.Actor{ID: "fac-1", Role: models.RoleFaculty, Department: "CSE"}
	_, err := svc.ListStudentsByDepartment(context.Background(), faculty, "ECE")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.ListStudentsByDepartment(context.Background(), faculty, "CSE")
	require.NoError(t, err)
	require.NotNil(t, repo.lastFilter.Role)
	assert.Equal(t, models.RoleStudent, *repo.lastFilter.Role)
	assert.Equal(t, "CSE", repo.lastFilter.Department)
	require.NotNil(t, repo.lastFilter.Active)
	assert.True(t, *repo.lastFilter.Active)

	student := authz.Actor{ID: "stu-1", Role: models.RoleStudent, Department: "CSE"}
	_, err = svc.ListStudentsByDepartment(context.Background(), student, "CSE")
	require.Error(t, err)
}

func TestUserListFaculty(t *testing.T) {
	repo := newMockUserRepo()
	seedUsers(repo)
	svc := NewUserService(repo, nil, nil)

	faculty := authz.Actor{ID: "fac-1", Role: models.RoleFaculty, Department: "CSE"}
	_, err := svc.ListFaculty(context.Background(), faculty)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	admin := authz.Actor{ID: "adm-1", Role: models.RoleAdmin}
	_, err = svc.ListFaculty(context.Background(), admin)
	require.NoError(t, err)
	require.NotNil(t, repo.lastFilter.Role)
	assert.Equal(t, models.RoleFaculty, *repo.lastFilter.Role)
}
