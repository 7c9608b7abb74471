package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartstudenthub/activity-api/internal/authz"
	"github.com/smartstudenthub/activity-api/internal/dto"
	"github.com/smartstudenthub/activity-api/internal/models"
	appErrors "github.com/smartstudenthub/activity-api/pkg/errors"
	"github.com/smartstudenthub/activity-api/pkg/export"
	"github.com/smartstudenthub/activity-api/pkg/storage"
)

type mockReportRepo struct {
	reports   map[string]models.Report
	failed    map[string]string
	completed map[string]models.ReportFile
}

func newMockReportRepo() *mockReportRepo {
	return &mockReportRepo{
		reports:   make(map[string]models.Report),
		failed:    make(map[string]string),
		completed: make(map[string]models.ReportFile),
	}
}

func (m *mockReportRepo) Create(ctx context.Context, report *models.Report) error {
	if report.ID == "" {
		report.ID = "rep-new"
	}
	if report.Status == "" {
		report.Status = models.ReportStatusGenerating
	}
	m.reports[report.ID] = *report
	return nil
}

func (m *mockReportRepo) GetByID(ctx context.Context, id string) (*models.Report, error) {
	if r, ok := m.reports[id]; ok {
		return &r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockReportRepo) List(ctx context.Context, filter models.ReportFilter) ([]models.Report, int, error) {
	var list []models.Report
	for _, r := range m.reports {
		if !filter.IncludeAll && r.GeneratedBy != filter.RequesterID && !r.IsPublic {
			continue
		}
		list = append(list, r)
	}
	return list, len(list), nil
}

func (m *mockReportRepo) MarkCompleted(ctx context.Context, id string, file models.ReportFile, stats models.ReportStatistics) error {
	r := m.reports[id]
	r.Status = models.ReportStatusCompleted
	r.File = file
	r.Statistics = stats
	m.reports[id] = r
	m.completed[id] = file
	return nil
}

func (m *mockReportRepo) MarkFailed(ctx context.Context, id, message string) error {
	r := m.reports[id]
	r.Status = models.ReportStatusFailed
	r.ErrorMessage = &message
	m.reports[id] = r
	m.failed[id] = message
	return nil
}

func (m *mockReportRepo) UpdateSharing(ctx context.Context, id string, grants models.ShareGrants, isPublic bool) error {
	r := m.reports[id]
	r.SharedWith = grants
	r.IsPublic = isPublic
	m.reports[id] = r
	return nil
}

func (m *mockReportRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.reports[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.reports, id)
	return nil
}

func (m *mockReportRepo) ListStale(ctx context.Context, cutoff time.Time) ([]models.Report, error) {
	var stale []models.Report
	for _, r := range m.reports {
		if r.Status == models.ReportStatusGenerating && r.CreatedAt.Before(cutoff) {
			stale = append(stale, r)
		}
	}
	return stale, nil
}

type mockPortfolioActivities struct {
	activities []models.Activity
}

func (m *mockPortfolioActivities) ListForPortfolio(ctx context.Context, studentID string, includeAll bool) ([]models.Activity, error) {
	if includeAll {
		return m.activities, nil
	}
	var approved []models.Activity
	for _, a := range m.activities {
		if a.Status == models.StatusApproved {
			approved = append(approved, a)
		}
	}
	return approved, nil
}

func (m *mockPortfolioActivities) ListByStudents(ctx context.Context, studentIDs []string, from, to *time.Time, approvedOnly bool) ([]models.Activity, error) {
	return m.activities, nil
}

type mockReportUsers struct {
	users      map[string]*models.UserDetail
	studentIDs map[string][]string
}

func (m *mockReportUsers) FindDetailByID(ctx context.Context, id string) (*models.UserDetail, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockReportUsers) ListStudentIDs(ctx context.Context, department string) ([]string, error) {
	return m.studentIDs[department], nil
}

func (m *mockReportUsers) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	return nil
}

type stubPortfolioRenderer struct{}

func (stubPortfolioRenderer) Render(doc export.PortfolioDocument) ([]byte, error) {
	return []byte("%PDF-portfolio"), nil
}

type stubCSVRenderer struct{ lastData export.Dataset }

func (r *stubCSVRenderer) Render(data export.Dataset) ([]byte, error) {
	r.lastData = data
	return []byte("csv-data"), nil
}

type stubPDFRenderer struct{}

func (stubPDFRenderer) Render(data export.Dataset, title string) ([]byte, error) {
	return []byte("%PDF-report"), nil
}

type memStorage struct {
	files map[string][]byte
}

func newMemStorage() *memStorage { return &memStorage{files: make(map[string][]byte)} }

func (m *memStorage) Save(filename string, data []byte) (string, error) {
	m.files[filename] = data
	return "/tmp/" + filename, nil
}

func (m *memStorage) Delete(filename string) error {
	delete(m.files, filename)
	return nil
}

func (m *memStorage) Path(filename string) string { return "/tmp/" + filename }

func (m *memStorage) CleanupOlderThan(ttl time.Duration) ([]string, error) { return nil, nil }

type reportFixture struct {
	svc     *ReportService
	reports *mockReportRepo
	users   *mockReportUsers
	acts    *mockPortfolioActivities
	store   *memStorage
	csv     *stubCSVRenderer
}

func newReportFixture() *reportFixture {
	score := 80.0
	f := &reportFixture{
		reports: newMockReportRepo(),
		store:   newMemStorage(),
		csv:     &stubCSVRenderer{},
		users: &mockReportUsers{
			users: map[string]*models.UserDetail{
				"stu-1": {
					User: models.User{ID: "stu-1", FullName: "Asha Verma", Role: models.RoleStudent, Department: "CSE"},
					Student: &models.StudentProfile{
						UserID: "stu-1", StudentNumber: "CS2021001", Year: 3, Semester: 6, CGPA: 8.4,
					},
				},
				"fac-1": {
					User: models.User{ID: "fac-1", FullName: "Dr. Rao", Role: models.RoleFaculty, Department: "CSE"},
				},
			},
			studentIDs: map[string][]string{
				"CSE": {"stu-1", "stu-2"},
				"":    {"stu-1", "stu-2", "stu-3"},
			},
		},
		acts: &mockPortfolioActivities{
			activities: []models.Activity{
				{
					ID: "act-1", StudentID: "stu-1", StudentName: "Asha Verma",
					StudentDepartment: "CSE", Title: "Hackathon",
					Category: models.CategoryCompetition, Status: models.StatusApproved,
					Credits: 3, Score: &score,
					SkillsGained: models.StringList{"teamwork", "golang"},
					StartDate:    time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
					EndDate:      time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC),
				},
				{
					ID: "act-2", StudentID: "stu-1", StudentName: "Asha Verma",
					StudentDepartment: "CSE", Title: "Paper Draft",
					Category: models.CategoryResearch, Status: models.StatusPending,
					Credits:   1,
					StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
					EndDate:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
				},
			},
		},
	}
	f.svc = NewReportService(
		f.reports, f.acts, f.users,
		stubPortfolioRenderer{}, f.csv, stubPDFRenderer{},
		f.store,
		storage.NewSignedURLSigner("test-secret", time.Minute),
		authz.New(false), nil, nil,
		ReportServiceConfig{SignedURLTTL: time.Minute, ResultTTL: time.Hour},
	)
	return f
}

func TestGeneratePortfolio(t *testing.T) {
	f := newReportFixture()
	student := authz.Actor{ID: "stu-1", Role: models.RoleStudent, Department: "CSE"}

	resp, err := f.svc.GeneratePortfolio(context.Background(), student, dto.GeneratePortfolioRequest{})
	require.NoError(t, err)

	assert.Equal(t, models.ReportStatusCompleted, resp.Report.Status)
	assert.Equal(t, models.ReportStudentPortfolio, resp.Report.Type)
	assert.Equal(t, 1, resp.ActivitiesIncluded)
	assert.Equal(t, 1, resp.Report.Statistics.TotalStudents)
	assert.InDelta(t, 80.0, resp.Report.Statistics.AverageScore, 0.01)
	assert.True(t, strings.HasPrefix(resp.DownloadURL, "/api/v1/export/"))
	assert.Len(t, f.store.files, 1)
}

func TestGeneratePortfolioIncludeAll(t *testing.T) {
	f := newReportFixture()
	admin := authz.Actor{ID: "adm-1", Role: models.RoleAdmin}

	resp, err := f.svc.GeneratePortfolio(context.Background(), admin, dto.GeneratePortfolioRequest{StudentID: "stu-1", IncludeAll: true})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.ActivitiesIncluded)
}

func TestGeneratePortfolioForeignStudentHidden(t *testing.T) {
	f := newReportFixture()

	otherStudent := authz.Actor{ID: "stu-2", Role: models.RoleStudent, Department: "CSE"}
	_, err := f.svc.GeneratePortfolio(context.Background(), otherStudent, dto.GeneratePortfolioRequest{StudentID: "stu-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	otherDeptFaculty := authz.Actor{ID: "fac-9", Role: models.RoleFaculty, Department: "ECE"}
	_, err = f.svc.GeneratePortfolio(context.Background(), otherDeptFaculty, dto.GeneratePortfolioRequest{StudentID: "stu-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestGeneratePortfolioRejectsNonStudentTarget(t *testing.T) {
	f := newReportFixture()
	admin := authz.Actor{ID: "adm-1", Role: models.RoleAdmin}

	_, err := f.svc.GeneratePortfolio(context.Background(), admin, dto.GeneratePortfolioRequest{StudentID: "fac-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestGenerateReportQueuesWork(t *testing.T) {
	f := newReportFixture()
	f.svc.Start(context.Background())
	defer f.svc.Stop()

	faculty := authz.Actor{ID: "fac-1", Role: models.RoleFaculty, Department: "CSE"}
	report, err := f.svc.Generate(context.Background(), faculty, dto.GenerateReportRequest{
		Title:  "CSE Department Summary",
		Type:   models.ReportDepartmentSummary,
		Format: models.ReportFormatCSV,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusGenerating, report.Status)
	assert.Equal(t, []string{"CSE"}, report.Scope.Departments)

	require.Eventually(t, func() bool {
		stored, err := f.reports.GetByID(context.Background(), report.ID)
		return err == nil && stored.Status == models.ReportStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	stored, err := f.reports.GetByID(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Statistics.TotalStudents)
	assert.Equal(t, 2, stored.Statistics.TotalActivities)
	assert.Contains(t, stored.File.Filename, ".csv")
	assert.Equal(t, []string{"Student", "Department", "Title", "Category", "Status", "Start Date", "End Date", "Credits", "Score"}, f.csv.lastData.Headers)
}

func TestGenerateReportStudentsForbidden(t *testing.T) {
	f := newReportFixture()
	student := authz.Actor{ID: "stu-1", Role: models.RoleStudent}

	_, err := f.svc.Generate(context.Background(), student, dto.GenerateReportRequest{
		Title: "Sneaky", Type: models.ReportCustomReport,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestReportAccessControl(t *testing.T) {
	f := newReportFixture()
	f.reports.reports["rep-1"] = models.Report{
		ID: "rep-1", Title: "Summary", GeneratedBy: "fac-1",
		Status: models.ReportStatusCompleted,
		File:   models.ReportFile{Filename: "summary.pdf"},
		SharedWith: models.ShareGrants{
			{UserID: "stu-1", Permission: models.PermissionView},
		},
	}

	owner := authz.Actor{ID: "fac-1", Role: models.RoleFaculty, Department: "CSE"}
	_, err := f.svc.Get(context.Background(), owner, "rep-1")
	require.NoError(t, err)

	viewer := authz.Actor{ID: "stu-1", Role: models.RoleStudent}
	_, err = f.svc.Get(context.Background(), viewer, "rep-1")
	require.NoError(t, err)

	// View grants do not allow downloads.
	_, err = f.svc.DownloadLink(context.Background(), viewer, "rep-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	stranger := authz.Actor{ID: "stu-9", Role: models.RoleStudent}
	_, err = f.svc.Get(context.Background(), stranger, "rep-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReportDownloadRoundTrip(t *testing.T) {
	f := newReportFixture()
	f.reports.reports["rep-1"] = models.Report{
		ID: "rep-1", GeneratedBy: "fac-1",
		Status: models.ReportStatusCompleted,
		File:   models.ReportFile{Filename: "summary.pdf"},
	}

	owner := authz.Actor{ID: "fac-1", Role: models.RoleFaculty}
	link, err := f.svc.DownloadLink(context.Background(), owner, "rep-1")
	require.NoError(t, err)
	assert.Equal(t, int64(60), link.ExpiresIn)

	token := strings.TrimPrefix(link.URL, "/api/v1/export/")
	path, report, err := f.svc.ResolveDownload(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/summary.pdf", path)
	assert.Equal(t, "rep-1", report.ID)

	_, _, err = f.svc.ResolveDownload(context.Background(), "not.a.valid.token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestReportDownloadUnfinished(t *testing.T) {
	f := newReportFixture()
	f.reports.reports["rep-1"] = models.Report{
		ID: "rep-1", GeneratedBy: "fac-1", Status: models.ReportStatusGenerating,
	}

	owner := authz.Actor{ID: "fac-1", Role: models.RoleFaculty}
	_, err := f.svc.DownloadLink(context.Background(), owner, "rep-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "generating")
}

func TestReportShare(t *testing.T) {
	f := newReportFixture()
	f.reports.reports["rep-1"] = models.Report{
		ID: "rep-1", GeneratedBy: "fac-1", Status: models.ReportStatusCompleted,
	}

	owner := authz.Actor{ID: "fac-1", Role: models.RoleFaculty}
	isPublic := true
	updated, err := f.svc.Share(context.Background(), owner, "rep-1", dto.ShareReportRequest{
		SharedWith: models.ShareGrants{{UserID: "stu-1", Permission: models.PermissionDownload}},
		IsPublic:   &isPublic,
	})
	require.NoError(t, err)
	assert.True(t, updated.IsPublic)
	require.Len(t, updated.SharedWith, 1)

	// Download grant implies view for that user.
	grantee := authz.Actor{ID: "stu-1", Role: models.RoleStudent}
	_, err = f.svc.Get(context.Background(), grantee, "rep-1")
	require.NoError(t, err)

	_, err = f.svc.Share(context.Background(), owner, "rep-1", dto.ShareReportRequest{
		SharedWith: models.ShareGrants{{UserID: "stu-1", Permission: "admin"}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportDelete(t *testing.T) {
	f := newReportFixture()
	f.reports.reports["rep-1"] = models.Report{
		ID: "rep-1", GeneratedBy: "fac-1", Status: models.ReportStatusCompleted,
		File:     models.ReportFile{Filename: "summary.pdf"},
		IsPublic: true,
	}
	f.store.files["summary.pdf"] = []byte("data")

	// Public visibility does not confer delete rights.
	stranger := authz.Actor{ID: "stu-9", Role: models.RoleStudent}
	err := f.svc.Delete(context.Background(), stranger, "rep-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	owner := authz.Actor{ID: "fac-1", Role: models.RoleFaculty}
	require.NoError(t, f.svc.Delete(context.Background(), owner, "rep-1"))
	assert.Empty(t, f.store.files)
}

func TestRecoverStaleReEnqueues(t *testing.T) {
	f := newReportFixture()
	f.svc.Start(context.Background())
	defer f.svc.Stop()

	f.reports.reports["rep-old"] = models.Report{
		ID: "rep-old", Title: "Interrupted", GeneratedBy: "fac-1",
		Type: models.ReportDepartmentSummary, Format: models.ReportFormatCSV,
		Status:    models.ReportStatusGenerating,
		Scope:     models.ReportScope{Departments: []string{"CSE"}},
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}
	f.reports.reports["rep-fresh"] = models.Report{
		ID: "rep-fresh", Status: models.ReportStatusGenerating,
		CreatedAt: time.Now(),
	}

	require.NoError(t, f.svc.RecoverStale(context.Background(), time.Hour))

	require.Eventually(t, func() bool {
		stored, err := f.reports.GetByID(context.Background(), "rep-old")
		return err == nil && stored.Status == models.ReportStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	fresh, err := f.reports.GetByID(context.Background(), "rep-fresh")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusGenerating, fresh.Status)
}

func TestRecoverStaleWithoutWorkersFails(t *testing.T) {
	f := newReportFixture()
	f.reports.reports["rep-old"] = models.Report{
		ID: "rep-old", Status: models.ReportStatusGenerating,
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}

	require.NoError(t, f.svc.RecoverStale(context.Background(), time.Hour))
	assert.Contains(t, f.reports.failed, "rep-old")
}

func TestPortfolioAverageSkipsUnscoredActivities(t *testing.T) {
	first, third := 80.0, 90.0
	activities := []models.Activity{
		{ID: "act-1", StudentID: "stu-1", Category: models.CategoryCompetition, Status: models.StatusApproved, Credits: 2, Score: &first},
		{ID: "act-2", StudentID: "stu-1", Category: models.CategoryResearch, Status: models.StatusApproved, Credits: 1},
		{ID: "act-3", StudentID: "stu-1", Category: models.CategoryWorkshop, Status: models.StatusApproved, Credits: 1, Score: &third},
	}
	student := &models.UserDetail{
		User:    models.User{ID: "stu-1", FullName: "Asha Verma", Role: models.RoleStudent, Department: "CSE"},
		Student: &models.StudentProfile{UserID: "stu-1", StudentNumber: "CS2021001"},
	}

	doc := buildPortfolioDocument(student, activities)
	assert.Equal(t, 3, doc.TotalActivities)
	assert.InDelta(t, 85.0, doc.AverageScore, 0.01)

	stats := buildReportStatistics([]string{"stu-1"}, activities)
	assert.InDelta(t, 85.0, stats.AverageScore, 0.01)
	assert.InDelta(t, 4.0, stats.TotalCredits, 0.01)
}
