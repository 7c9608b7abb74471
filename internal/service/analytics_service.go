package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/smartstudenthub/activity-api/internal/authz"
	"github.com/smartstudenthub/activity-api/internal/models"
	appErrors "github.com/smartstudenthub/activity-api/pkg/errors"
)

// AnalyticsRepository describes the persistence layer required by
// AnalyticsService.
type AnalyticsRepository interface {
	CountActiveStudents(ctx context.Context, department string) (int, error)
	CategorySummary(ctx context.Context, filter models.DepartmentAnalyticsFilter) ([]models.CategoryAnalytics, error)
	StudentPerformance(ctx context.Context, filter models.DepartmentAnalyticsFilter) ([]models.StudentPerformance, error)
}

// AnalyticsService provides read-optimised department aggregates with cache
// integration.
type AnalyticsService struct {
	repo    AnalyticsRepository
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(repo AnalyticsRepository, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{repo: repo, cache: cache, metrics: metrics, logger: logger}
}

// Department aggregates a department's activity analytics. Faculty may only
// query their own department; the department defaults to the actor's. The
// boolean indicates whether data originated from cache.
func (s *AnalyticsService) Department(ctx context.Context, actor authz.Actor, department, academicYear string) (*models.DepartmentAnalytics, bool, error) {
	if department == "" {
		department = actor.Department
	}

	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleFaculty:
		if department != actor.Department {
			return nil, false, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view analytics for other departments")
		}
	default:
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view department analytics")
	}
	if department == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "department is required")
	}

	filter := models.DepartmentAnalyticsFilter{Department: department}
	yearLabel := "All Years"
	if academicYear != "" {
		from, to, err := parseAcademicYear(academicYear)
		if err != nil {
			return nil, false, err
		}
		filter.From = &from
		filter.To = &to
		yearLabel = academicYear
	}

	cacheKey := makeAnalyticsCacheKey("department", department, academicYear)
	var cached models.DepartmentAnalytics
	if s.cache.Enabled() {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	start := time.Now()
	totalStudents, err := s.repo.CountActiveStudents(ctx, department)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	categories, err := s.repo.CategorySummary(ctx, filter)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate categories")
	}
	performance, err := s.repo.StudentPerformance(ctx, filter)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate student performance")
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("analytics_department", time.Since(start))
	}

	analytics := &models.DepartmentAnalytics{
		Department:         department,
		AcademicYear:       yearLabel,
		TotalStudents:      totalStudents,
		Categories:         categories,
		StudentPerformance: performance,
		GeneratedAt:        time.Now().UTC(),
	}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, cacheKey, analytics, 0); err != nil {
			s.logger.Warn("failed to cache department analytics", zap.Error(err))
		}
	}
	return analytics, false, nil
}

// parseAcademicYear turns "2023-2024" into the [Jan 1 2023, Jan 1 2025)
// start-date window.
func parseAcademicYear(raw string) (time.Time, time.Time, error) {
	parts := strings.SplitN(raw, "-", 2)
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "academicYear must look like 2023-2024")
	}
	startYear, err1 := strconv.Atoi(parts[0])
	endYear, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || endYear < startYear {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "academicYear must look like 2023-2024")
	}

	from := time.Date(startYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(endYear+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	return from, to, nil
}

func makeAnalyticsCacheKey(parts ...string) string {
	var builder strings.Builder
	builder.Grow(len(parts) * 16)
	builder.WriteString("analytics")
	for _, part := range parts {
		if part == "" {
			continue
		}
		builder.WriteByte(':')
		builder.WriteString(strings.ReplaceAll(part, ":", "|"))
	}
	return builder.String()
}
