package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartstudenthub/activity-api/internal/authz"
	"github.com/smartstudenthub/activity-api/internal/models"
	appErrors "github.com/smartstudenthub/activity-api/pkg/errors"
)

type mockAnalyticsRepo struct {
	students    map[string]int
	categories  []models.CategoryAnalytics
	performance []models.StudentPerformance
	lastFilter  models.DepartmentAnalyticsFilter
}

func (m *mockAnalyticsRepo) CountActiveStudents(_ context.Context, department string) (int, error) {
	return m.students[department], nil
}

func (m *mockAnalyticsRepo) CategorySummary(_ context.Context, filter models.DepartmentAnalyticsFilter) ([]models.CategoryAnalytics, error) {
	m.lastFilter = filter
	return m.categories, nil
}

func (m *mockAnalyticsRepo) StudentPerformance(_ context.Context, filter models.DepartmentAnalyticsFilter) ([]models.StudentPerformance, error) {
	m.lastFilter = filter
	return m.performance, nil
}

func TestDepartmentAnalytics(t *testing.T) {
	score := 82.5
	repo := &mockAnalyticsRepo{
		students: map[string]int{"CSE": 42},
		categories: []models.CategoryAnalytics{
			{Category: models.CategoryWorkshop, TotalActivities: 10, ApprovedActivities: 7, TotalCredits: 21, AverageScore: &score},
		},
		performance: []models.StudentPerformance{
			{StudentID: "stu-1", Name: "Asha Rao", TotalActivities: 5, TotalCredits: 12},
		},
	}
	svc := NewAnalyticsService(repo, nil, nil, nil)

	faculty := authz.Actor{ID: "fac-1", Role: models.RoleFaculty, Department: "CSE"}

	analytics, cached, err := svc.Department(context.Background(), faculty, "", "")
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "CSE", analytics.Department)
	assert.Equal(t, "All Years", analytics.AcademicYear)
	assert.Equal(t, 42, analytics.TotalStudents)
	assert.Len(t, analytics.Categories, 1)
	assert.Len(t, analytics.StudentPerformance, 1)
	assert.Nil(t, repo.lastFilter.From)
}

func TestDepartmentAnalyticsAcademicYearWindow(t *testing.T) {
	repo := &mockAnalyticsRepo{students: map[string]int{"CSE": 1}}
	svc := NewAnalyticsService(repo, nil, nil, nil)
	admin := authz.Actor{ID: "adm-1", Role: models.RoleAdmin}

	analytics, _, err := svc.Department(context.Background(), admin, "CSE", "2023-2024")
	require.NoError(t, err)
	assert.Equal(t, "2023-2024", analytics.AcademicYear)
	require.NotNil(t, repo.lastFilter.From)
	require.NotNil(t, repo.lastFilter.To)
	assert.Equal(t, time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC), *repo.lastFilter.From)
	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), *repo.lastFilter.To)

	_, _, err = svc.Department(context.Background(), admin, "CSE", "not-a-year")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDepartmentAnalyticsScoping(t *testing.T) {
	repo := &mockAnalyticsRepo{students: map[string]int{"CSE": 1, "ECE": 1}}
	svc := NewAnalyticsService(repo, nil, nil, nil)

	faculty := authz.Actor{ID: "fac-1", Role: models.RoleFaculty, Department: "CSE"}
	_, _, err := svc.Department(context.Background(), faculty, "ECE", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	student := authz.Actor{ID: "stu-1", Role: models.RoleStudent, Department: "CSE"}
	_, _, err = svc.Department(context.Background(), student, "CSE", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	admin := authz.Actor{ID: "adm-1", Role: models.RoleAdmin}
	analytics, _, err := svc.Department(context.Background(), admin, "ECE", "")
	require.NoError(t, err)
	assert.Equal(t, "ECE", analytics.Department)
}
