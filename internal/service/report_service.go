package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smartstudenthub/activity-api/internal/authz"
	"github.com/smartstudenthub/activity-api/internal/dto"
	"github.com/smartstudenthub/activity-api/internal/models"
	appErrors "github.com/smartstudenthub/activity-api/pkg/errors"
	"github.com/smartstudenthub/activity-api/pkg/export"
	"github.com/smartstudenthub/activity-api/pkg/jobs"
	"github.com/smartstudenthub/activity-api/pkg/storage"
)

const maxPortfolioSkills = 20

type reportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id string) (*models.Report, error)
	List(ctx context.Context, filter models.ReportFilter) ([]models.Report, int, error)
	MarkCompleted(ctx context.Context, id string, file models.ReportFile, stats models.ReportStatistics) error
	MarkFailed(ctx context.Context, id, message string) error
	UpdateSharing(ctx context.Context, id string, grants models.ShareGrants, isPublic bool) error
	Delete(ctx context.Context, id string) error
	ListStale(ctx context.Context, cutoff time.Time) ([]models.Report, error)
}

type reportActivityRepository interface {
	ListForPortfolio(ctx context.Context, studentID string, includeAll bool) ([]models.Activity, error)
	ListByStudents(ctx context.Context, studentIDs []string, from, to *time.Time, approvedOnly bool) ([]models.Activity, error)
}

type reportUserRepository interface {
	FindDetailByID(ctx context.Context, id string) (*models.UserDetail, error)
	ListStudentIDs(ctx context.Context, department string) ([]string, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type portfolioRenderer interface {
	Render(doc export.PortfolioDocument) ([]byte, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type reportStorage interface {
	Save(filename string, data []byte) (string, error)
	Delete(filename string) error
	Path(filename string) string
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ReportService generates portfolios synchronously and custom reports through
// a background queue.
type ReportService struct {
	reports    reportRepository
	activities reportActivityRepository
	users      reportUserRepository
	portfolio  portfolioRenderer
	csv        csvRenderer
	pdf        pdfRenderer
	storage    reportStorage
	signer     *storage.SignedURLSigner
	policy     *authz.Policy
	queue      *jobs.Queue
	validator  *validator.Validate
	logger     *zap.Logger

	signedURLTTL time.Duration
	resultTTL    time.Duration
}

// ReportServiceConfig bundles construction parameters.
type ReportServiceConfig struct {
	SignedURLTTL time.Duration
	ResultTTL    time.Duration
	Workers      int
	MaxRetries   int
}

// NewReportService constructs a ReportService and its worker queue. Call
// Start to begin processing queued reports.
func NewReportService(
	reports reportRepository,
	activities reportActivityRepository,
	users reportUserRepository,
	portfolio portfolioRenderer,
	csv csvRenderer,
	pdf pdfRenderer,
	store reportStorage,
	signer *storage.SignedURLSigner,
	policy *authz.Policy,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg ReportServiceConfig,
) *ReportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SignedURLTTL <= 0 {
		cfg.SignedURLTTL = 15 * time.Minute
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 7 * 24 * time.Hour
	}

	s := &ReportService{
		reports:      reports,
		activities:   activities,
		users:        users,
		portfolio:    portfolio,
		csv:          csv,
		pdf:          pdf,
		storage:      store,
		signer:       signer,
		policy:       policy,
		validator:    validate,
		logger:       logger,
		signedURLTTL: cfg.SignedURLTTL,
		resultTTL:    cfg.ResultTTL,
	}
	s.queue = jobs.NewQueue("reports", s.process, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the background workers.
func (s *ReportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the queue and stops the workers.
func (s *ReportService) Stop() {
	s.queue.Stop()
}

// GeneratePortfolio renders a student portfolio synchronously. The report row
// enters directly at completed.
func (s *ReportService) GeneratePortfolio(ctx context.Context, actor authz.Actor, req dto.GeneratePortfolioRequest) (*dto.PortfolioResponse, error) {
	studentID := req.StudentID
	if studentID == "" {
		studentID = actor.ID
	}
	if actor.Role == models.RoleStudent && studentID != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	student, err := s.users.FindDetailByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	if actor.Role == models.RoleFaculty && student.Department != actor.Department {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	activities, err := s.activities.ListForPortfolio(ctx, studentID, req.IncludeAll)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activities")
	}

	doc := buildPortfolioDocument(student, activities)
	rendered, err := s.portfolio.Render(doc)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render portfolio")
	}

	filename := fmt.Sprintf("portfolio_%s_%d.pdf", studentID, time.Now().Unix())
	if _, err := s.storage.Save(filename, rendered); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store portfolio")
	}

	report := &models.Report{
		ID:          uuid.NewString(),
		Title:       fmt.Sprintf("Portfolio - %s", student.FullName),
		Type:        models.ReportStudentPortfolio,
		Format:      models.ReportFormatPDF,
		Scope:       models.ReportScope{Students: []string{studentID}},
		GeneratedBy: actor.ID,
		Status:      models.ReportStatusCompleted,
		File: models.ReportFile{
			Filename:     filename,
			OriginalName: fmt.Sprintf("%s_portfolio.pdf", strings.ReplaceAll(student.FullName, " ", "_")),
			URL:          "/uploads/reports/" + filename,
			Size:         int64(len(rendered)),
		},
		Statistics: models.ReportStatistics{
			TotalStudents:   1,
			TotalActivities: doc.TotalActivities,
			TotalCredits:    doc.TotalCredits,
			AverageScore:    doc.AverageScore,
		},
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist report")
	}

	s.recordAudit(ctx, actor.ID, models.AuditActionReportGenerate, report.ID)

	token, _, err := s.signer.Generate(report.ID, filename)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}
	return &dto.PortfolioResponse{
		Report:             report,
		ActivitiesIncluded: doc.TotalActivities,
		DownloadURL:        downloadPath(token),
	}, nil
}

// Generate creates a custom report row in generating state and queues the
// rendering work. The caller is never blocked on generation.
func (s *ReportService) Generate(ctx context.Context, actor authz.Actor, req dto.GenerateReportRequest) (*models.Report, error) {
	if actor.Role == models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students cannot generate custom reports")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report payload")
	}
	if !req.Type.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown report type %q", req.Type))
	}
	if req.Type == models.ReportStudentPortfolio {
		return nil, appErrors.Clone(appErrors.ErrValidation, "portfolios are generated synchronously via the portfolio endpoint")
	}

	format := req.Format
	if format == "" {
		format = models.ReportFormatPDF
	}

	scope := req.Scope
	if actor.Role == models.RoleFaculty && len(scope.Departments) == 0 && len(scope.Students) == 0 {
		scope.Departments = []string{actor.Department}
	}

	report := &models.Report{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Type:        req.Type,
		Format:      format,
		Purpose:     req.Purpose,
		Scope:       scope,
		GeneratedBy: actor.ID,
		Status:      models.ReportStatusGenerating,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist report")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: report.ID, Type: string(report.Type)}); err != nil {
		s.logger.Error("failed to enqueue report", zap.String("report_id", report.ID), zap.Error(err))
		if markErr := s.reports.MarkFailed(ctx, report.ID, "failed to queue generation"); markErr != nil {
			s.logger.Error("failed to mark report failed", zap.Error(markErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue report generation")
	}

	s.recordAudit(ctx, actor.ID, models.AuditActionReportGenerate, report.ID)
	return report, nil
}

// Get returns a report the actor may view.
func (s *ReportService) Get(ctx context.Context, actor authz.Actor, id string) (*models.Report, error) {
	report, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanAccessReport(actor, report, models.PermissionView) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
	}
	return report, nil
}

// List returns reports visible to the actor.
func (s *ReportService) List(ctx context.Context, actor authz.Actor, req dto.ListReportsRequest) ([]models.Report, models.ListMeta, error) {
	filter := models.ReportFilter{
		RequesterID: actor.ID,
		IncludeAll:  actor.Role == models.RoleAdmin,
		Type:        models.ReportType(req.Type),
		Status:      models.ReportStatus(req.Status),
		Page:        req.Page,
		Limit:       req.Limit,
	}

	reports, total, err := s.reports.List(ctx, filter)
	if err != nil {
		return nil, models.ListMeta{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reports")
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
	return reports, models.NewListMeta(len(reports), total, page, limit), nil
}

// DownloadLink issues a signed, time-limited URL for a completed report.
func (s *ReportService) DownloadLink(ctx context.Context, actor authz.Actor, id string) (*dto.DownloadLinkResponse, error) {
	report, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanAccessReport(actor, report, models.PermissionView) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
	}
	if !s.policy.CanAccessReport(actor, report, models.PermissionDownload) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to download this report")
	}
	if report.Status != models.ReportStatusCompleted || report.File.Filename == "" {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, fmt.Sprintf("report is %s", report.Status))
	}

	token, _, err := s.signer.Generate(report.ID, report.File.Filename)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}
	return &dto.DownloadLinkResponse{
		URL:       downloadPath(token),
		ExpiresIn: int64(s.signedURLTTL.Seconds()),
	}, nil
}

// ResolveDownload validates a signed token and returns the on-disk path of
// the referenced artifact.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (string, *models.Report, error) {
	reportID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return "", nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired download token")
	}

	report, err := s.load(ctx, reportID)
	if err != nil {
		return "", nil, err
	}
	if report.File.Filename == "" || report.File.Filename != relPath {
		return "", nil, appErrors.Clone(appErrors.ErrNotFound, "report artifact not found")
	}
	return s.storage.Path(relPath), report, nil
}

// Share replaces the share grants of a report. Only the owner, an editor, or
// an admin may share.
func (s *ReportService) Share(ctx context.Context, actor authz.Actor, id string, req dto.ShareReportRequest) (*models.Report, error) {
	report, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanAccessReport(actor, report, models.PermissionView) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
	}
	if !s.policy.CanAccessReport(actor, report, models.PermissionEdit) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to share this report")
	}

	for _, grant := range req.SharedWith {
		switch grant.Permission {
		case models.PermissionView, models.PermissionDownload, models.PermissionEdit:
		default:
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown permission %q", grant.Permission))
		}
		if grant.UserID == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "share grant requires a userId")
		}
	}

	isPublic := report.IsPublic
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}
	if err := s.reports.UpdateSharing(ctx, id, req.SharedWith, isPublic); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update sharing")
	}

	s.recordAudit(ctx, actor.ID, models.AuditActionReportShare, id)
	return s.load(ctx, id)
}

// Delete removes a report row and its stored artifact.
func (s *ReportService) Delete(ctx context.Context, actor authz.Actor, id string) error {
	report, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !s.policy.CanAccessReport(actor, report, models.PermissionView) {
		return appErrors.Clone(appErrors.ErrNotFound, "report not found")
	}
	if actor.Role != models.RoleAdmin && actor.ID != report.GeneratedBy {
		return appErrors.Clone(appErrors.ErrForbidden, "not allowed to delete this report")
	}

	if err := s.reports.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete report")
	}
	if report.File.Filename != "" {
		if err := s.storage.Delete(report.File.Filename); err != nil {
			s.logger.Warn("failed to delete report artifact", zap.String("filename", report.File.Filename), zap.Error(err))
		}
	}
	return nil
}

// RecoverStale re-enqueues reports stuck in generating since before the
// cutoff. Called once at startup, after Start, so rows orphaned by a crash
// get another run. Rows that cannot be re-enqueued are marked failed.
func (s *ReportService) RecoverStale(ctx context.Context, olderThan time.Duration) error {
	stale, err := s.reports.ListStale(ctx, time.Now().UTC().Add(-olderThan))
	if err != nil {
		return err
	}
	for _, report := range stale {
		if err := s.queue.Enqueue(jobs.Job{ID: report.ID, Type: string(report.Type)}); err != nil {
			s.logger.Error("failed to re-enqueue stale report", zap.String("report_id", report.ID), zap.Error(err))
			if markErr := s.reports.MarkFailed(ctx, report.ID, "generation interrupted by restart"); markErr != nil {
				s.logger.Error("failed to fail stale report", zap.String("report_id", report.ID), zap.Error(markErr))
			}
			continue
		}
		s.logger.Info("re-enqueued stale report", zap.String("report_id", report.ID))
	}
	return nil
}

// CleanupArtifacts removes stored files older than the configured result TTL.
func (s *ReportService) CleanupArtifacts() {
	removed, err := s.storage.CleanupOlderThan(s.resultTTL)
	if err != nil {
		s.logger.Warn("artifact cleanup failed", zap.Error(err))
		return
	}
	if len(removed) > 0 {
		s.logger.Info("removed expired report artifacts", zap.Int("count", len(removed)))
	}
}

// process renders one queued report. Runs on the worker pool.
func (s *ReportService) process(ctx context.Context, job jobs.Job) error {
	report, err := s.reports.GetByID(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("load queued report: %w", err)
	}
	if report.Status != models.ReportStatusGenerating {
		return nil
	}

	file, stats, err := s.render(ctx, report)
	if err != nil {
		if markErr := s.reports.MarkFailed(ctx, report.ID, err.Error()); markErr != nil {
			s.logger.Error("failed to mark report failed", zap.String("report_id", report.ID), zap.Error(markErr))
		}
		s.logger.Warn("report generation failed", zap.String("report_id", report.ID), zap.Error(err))
		return nil
	}

	if err := s.reports.MarkCompleted(ctx, report.ID, file, stats); err != nil {
		return fmt.Errorf("mark report completed: %w", err)
	}
	s.logger.Info("report generated",
		zap.String("report_id", report.ID),
		zap.String("type", string(report.Type)),
		zap.Int64("bytes", file.Size))
	return nil
}

func (s *ReportService) render(ctx context.Context, report *models.Report) (models.ReportFile, models.ReportStatistics, error) {
	var none models.ReportFile
	var noStats models.ReportStatistics

	studentIDs, err := s.resolveScope(ctx, report.Scope)
	if err != nil {
		return none, noStats, err
	}
	if len(studentIDs) == 0 {
		return none, noStats, errors.New("no students in scope")
	}

	activities, err := s.activities.ListByStudents(ctx, studentIDs,
		report.Scope.DateRange.Start, report.Scope.DateRange.End, true)
	if err != nil {
		return none, noStats, err
	}

	dataset := buildReportDataset(activities)
	stats := buildReportStatistics(studentIDs, activities)

	var rendered []byte
	var ext string
	switch report.Format {
	case models.ReportFormatCSV:
		rendered, err = s.csv.Render(dataset)
		ext = "csv"
	default:
		rendered, err = s.pdf.Render(dataset, report.Title)
		ext = "pdf"
	}
	if err != nil {
		return none, noStats, fmt.Errorf("render report: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.%s", report.Type, report.ID, ext)
	if _, err := s.storage.Save(filename, rendered); err != nil {
		return none, noStats, fmt.Errorf("store report: %w", err)
	}

	return models.ReportFile{
		Filename:     filename,
		OriginalName: fmt.Sprintf("%s.%s", strings.ReplaceAll(report.Title, " ", "_"), ext),
		URL:          "/uploads/reports/" + filename,
		Size:         int64(len(rendered)),
	}, stats, nil
}

func (s *ReportService) resolveScope(ctx context.Context, scope models.ReportScope) ([]string, error) {
	seen := make(map[string]bool)
	var ids []string
	for _, id := range scope.Students {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, department := range scope.Departments {
		deptIDs, err := s.users.ListStudentIDs(ctx, department)
		if err != nil {
			return nil, fmt.Errorf("resolve department %s: %w", department, err)
		}
		for _, id := range deptIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	if len(scope.Students) == 0 && len(scope.Departments) == 0 {
		all, err := s.users.ListStudentIDs(ctx, "")
		if err != nil {
			return nil, fmt.Errorf("resolve all students: %w", err)
		}
		ids = all
	}
	return ids, nil
}

func (s *ReportService) load(ctx context.Context, id string) (*models.Report, error) {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report")
	}
	return report, nil
}

func (s *ReportService) recordAudit(ctx context.Context, actorID, action, reportID string) {
	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "report",
		ResourceID: &reportID,
	}); err != nil {
		s.logger.Warn("failed to record report audit log", zap.Error(err))
	}
}

// buildPortfolioDocument aggregates activities into the rendered portfolio
// input: totals, category breakdown, average over non-zero scores, and the
// first bounded set of distinct skills.
func buildPortfolioDocument(student *models.UserDetail, activities []models.Activity) export.PortfolioDocument {
	doc := export.PortfolioDocument{
		Student: export.PortfolioStudent{
			FullName:   student.FullName,
			Department: student.Department,
		},
		GeneratedAt:     time.Now().UTC(),
		TotalActivities: len(activities),
	}
	if student.Student != nil {
		doc.Student.StudentNumber = student.Student.StudentNumber
		doc.Student.Year = student.Student.Year
		doc.Student.Semester = student.Student.Semester
		doc.Student.CGPA = student.Student.CGPA
	}

	type categoryAgg struct {
		count   int
		credits float64
	}
	categories := make(map[models.ActivityCategory]*categoryAgg)
	var categoryOrder []models.ActivityCategory

	var scoreSum float64
	var scored int
	seenSkills := make(map[string]bool)

	for _, activity := range activities {
		doc.TotalCredits += activity.Credits
		if activity.Score != nil && *activity.Score > 0 {
			scoreSum += *activity.Score
			scored++
		}

		agg, ok := categories[activity.Category]
		if !ok {
			agg = &categoryAgg{}
			categories[activity.Category] = agg
			categoryOrder = append(categoryOrder, activity.Category)
		}
		agg.count++
		agg.credits += activity.Credits

		for _, skill := range activity.SkillsGained {
			if len(doc.Skills) >= maxPortfolioSkills {
				break
			}
			if skill != "" && !seenSkills[skill] {
				seenSkills[skill] = true
				doc.Skills = append(doc.Skills, skill)
			}
		}

		doc.Activities = append(doc.Activities, export.PortfolioActivity{
			Title:            activity.Title,
			Category:         string(activity.Category),
			Status:           string(activity.Status),
			Organizer:        activity.Organizer,
			Location:         activity.Location,
			StartDate:        activity.StartDate,
			EndDate:          activity.EndDate,
			DurationDays:     activity.Duration(),
			Credits:          activity.Credits,
			Score:            activity.Score,
			Grade:            activity.Grade,
			Description:      activity.Description,
			LearningOutcomes: activity.LearningOutcomes,
			ApprovedByName:   activity.ApproverName,
		})
	}

	if scored > 0 {
		doc.AverageScore = scoreSum / float64(scored)
	}
	for _, category := range categoryOrder {
		agg := categories[category]
		doc.Categories = append(doc.Categories, export.PortfolioCategory{
			Name:    string(category),
			Count:   agg.count,
			Credits: agg.credits,
		})
	}
	return doc
}

func downloadPath(token string) string {
	return "/api/v1/export/" + token
}

func buildReportDataset(activities []models.Activity) export.Dataset {
	dataset := export.Dataset{
		Headers: []string{"Student", "Department", "Title", "Category", "Status", "Start Date", "End Date", "Credits", "Score"},
	}
	for _, activity := range activities {
		score := ""
		if activity.Score != nil {
			score = fmt.Sprintf("%.0f", *activity.Score)
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student":    activity.StudentName,
			"Department": activity.StudentDepartment,
			"Title":      activity.Title,
			"Category":   string(activity.Category),
			"Status":     string(activity.Status),
			"Start Date": activity.StartDate.Format("2006-01-02"),
			"End Date":   activity.EndDate.Format("2006-01-02"),
			"Credits":    fmt.Sprintf("%.1f", activity.Credits),
			"Score":      score,
		})
	}
	return dataset
}

func buildReportStatistics(studentIDs []string, activities []models.Activity) models.ReportStatistics {
	stats := models.ReportStatistics{
		TotalStudents:   len(studentIDs),
		TotalActivities: len(activities),
	}
	var scoreSum float64
	var scored int
	for _, activity := range activities {
		stats.TotalCredits += activity.Credits
		if activity.Score != nil && *activity.Score > 0 {
			scoreSum += *activity.Score
			scored++
		}
	}
	if scored > 0 {
		stats.AverageScore = scoreSum / float64(scored)
	}
	return stats
}
