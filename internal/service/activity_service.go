package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/smartstudenthub/activity-api/internal/authz"
	"github.com/smartstudenthub/activity-api/internal/dto"
	"github.com/smartstudenthub/activity-api/internal/models"
	"github.com/smartstudenthub/activity-api/internal/repository"
	appErrors "github.com/smartstudenthub/activity-api/pkg/errors"
)

type activityRepo interface {
	Create(ctx context.Context, activity *models.Activity) error
	GetByID(ctx context.Context, id string) (*models.Activity, error)
	List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, int, error)
	Update(ctx context.Context, activity *models.Activity) error
	Decide(ctx context.Context, id string, decision repository.ActivityDecision) (int64, error)
	AppendComment(ctx context.Context, id string, comment models.ActivityComment) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context, scope repository.StatsScope) (*models.ActivityStats, error)
}

type activityAuditor interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// ActivityService implements the activity lifecycle: submission, role-scoped
// listing, owner edits, approval decisions, comments, and aggregates.
type ActivityService struct {
	repo      activityRepo
	audit     activityAuditor
	policy    *authz.Policy
	cache     *CacheService
	statsTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewActivityService constructs an ActivityService.
func NewActivityService(repo activityRepo, audit activityAuditor, policy *authz.Policy, cache *CacheService, statsTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *ActivityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if statsTTL <= 0 {
		statsTTL = 5 * time.Minute
	}
	return &ActivityService{
		repo:      repo,
		audit:     audit,
		policy:    policy,
		cache:     cache,
		statsTTL:  statsTTL,
		validator: validate,
		logger:    logger,
	}
}

// Create submits a new activity owned by the acting student. The verification
// code is minted here exactly once and never changes afterwards.
func (s *ActivityService) Create(ctx context.Context, actor authz.Actor, req dto.CreateActivityRequest) (*models.Activity, error) {
	if actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can submit activities")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activity payload")
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endDate must not be before startDate")
	}
	if !models.ActivityCategory(req.Category).Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown category %q", req.Category))
	}

	activity := req.ToModel()
	activity.StudentID = actor.ID
	activity.Status = models.StatusPending
	activity.VerificationCode = mintVerificationCode()
	normalizeTags(activity)

	if err := s.repo.Create(ctx, activity); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create activity")
	}

	s.invalidateStats(ctx)
	return s.reload(ctx, activity.ID)
}

// Get returns one activity if the actor may view it. An existing activity the
// actor has no view right on is reported as not found.
func (s *ActivityService) Get(ctx context.Context, actor authz.Actor, id string) (*models.Activity, error) {
	activity, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.Can(actor, authz.ActionView, resourceOf(activity)) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
	}
	return activity, nil
}

// List returns activities scoped to the actor's role. Students only ever see
// their own records regardless of supplied filters; faculty see their
// department plus anything they decided; admins see everything.
func (s *ActivityService) List(ctx context.Context, actor authz.Actor, req dto.ListActivitiesRequest) ([]models.Activity, models.ListMeta, error) {
	filter := req.ToFilter()

	switch actor.Role {
	case models.RoleStudent:
		filter.StudentID = actor.ID
		filter.Department = ""
		filter.ApprovedBy = ""
	case models.RoleFaculty:
		filter.Department = actor.Department
		filter.ApprovedBy = actor.ID
	case models.RoleAdmin:
		// unscoped, client filters apply as-is
	default:
		return nil, models.ListMeta{}, appErrors.Clone(appErrors.ErrForbidden, "unknown role")
	}

	activities, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, models.ListMeta{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activities")
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
	return activities, models.NewListMeta(len(activities), total, page, limit), nil
}

// Update applies an owner edit. Editing an already-decided activity routes it
// back to pending and clears every piece of approval metadata, forcing a
// fresh review.
func (s *ActivityService) Update(ctx context.Context, actor authz.Actor, id string, req dto.UpdateActivityRequest) (*models.Activity, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activity payload")
	}

	activity, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.Can(actor, authz.ActionView, resourceOf(activity)) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
	}
	if !s.policy.Can(actor, authz.ActionEdit, resourceOf(activity)) {
		if activity.Status == models.StatusApproved && actor.ID == activity.StudentID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "approved activities cannot be edited")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to edit this activity")
	}

	req.Apply(activity)
	if activity.EndDate.Before(activity.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endDate must not be before startDate")
	}
	if !activity.Category.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown category %q", activity.Category))
	}
	normalizeTags(activity)

	if activity.Status == models.StatusRejected && actor.ID == activity.StudentID {
		activity.Status = models.StatusPending
		activity.ApprovedBy = nil
		activity.ApprovalDate = nil
		activity.RejectionReason = nil
		activity.IsVerified = false
	}

	if err := s.repo.Update(ctx, activity); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update activity")
	}

	s.invalidateStats(ctx)
	return s.reload(ctx, id)
}

// Delete removes an activity the actor owns (or any activity, for admins).
func (s *ActivityService) Delete(ctx context.Context, actor authz.Actor, id string) error {
	activity, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !s.policy.Can(actor, authz.ActionView, resourceOf(activity)) {
		return appErrors.Clone(appErrors.ErrNotFound, "activity not found")
	}
	if !s.policy.Can(actor, authz.ActionDelete, resourceOf(activity)) {
		return appErrors.Clone(appErrors.ErrForbidden, "not allowed to delete this activity")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete activity")
	}

	s.invalidateStats(ctx)
	return nil
}

// Approve marks a pending activity approved. The underlying update is
// conditional on the row still being pending, so duplicate clicks and
// concurrent decisions lose cleanly.
func (s *ActivityService) Approve(ctx context.Context, actor authz.Actor, actorName, id string, req dto.ApproveActivityRequest) (*models.Activity, error) {
	activity, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.Can(actor, authz.ActionView, resourceOf(activity)) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
	}
	if activity.Status != models.StatusPending {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, fmt.Sprintf("activity is already %s", activity.Status))
	}
	if !s.policy.Can(actor, authz.ActionApprove, resourceOf(activity)) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to approve this activity")
	}

	now := time.Now().UTC()
	decision := repository.ActivityDecision{
		Status:       models.StatusApproved,
		ApprovedBy:   actor.ID,
		ApprovalDate: now,
	}
	if req.Comment != "" {
		decision.Comment = &models.ActivityComment{
			UserID:    actor.ID,
			UserName:  actorName,
			Role:      actor.Role,
			Message:   req.Comment,
			CreatedAt: now,
		}
	}

	affected, err := s.repo.Decide(ctx, id, decision)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve activity")
	}
	if affected == 0 {
		current, loadErr := s.load(ctx, id)
		if loadErr != nil {
			return nil, loadErr
		}
		return nil, appErrors.Clone(appErrors.ErrStateConflict, fmt.Sprintf("activity is already %s", current.Status))
	}

	s.recordDecisionAudit(ctx, actor.ID, models.AuditActionActivityApprove, id, decision.Status)
	s.invalidateStats(ctx)
	return s.reload(ctx, id)
}

// Reject marks a pending activity rejected with a mandatory reason and writes
// a system comment carrying that reason.
func (s *ActivityService) Reject(ctx context.Context, actor authz.Actor, actorName, id string, req dto.RejectActivityRequest) (*models.Activity, error) {
	if strings.TrimSpace(req.Reason) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required")
	}

	activity, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.Can(actor, authz.ActionView, resourceOf(activity)) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
	}
	if activity.Status != models.StatusPending {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, fmt.Sprintf("activity is already %s", activity.Status))
	}
	if !s.policy.Can(actor, authz.ActionApprove, resourceOf(activity)) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to reject this activity")
	}

	now := time.Now().UTC()
	reason := strings.TrimSpace(req.Reason)
	decision := repository.ActivityDecision{
		Status:          models.StatusRejected,
		ApprovedBy:      actor.ID,
		ApprovalDate:    now,
		RejectionReason: &reason,
		Comment: &models.ActivityComment{
			UserID:    actor.ID,
			UserName:  actorName,
			Role:      actor.Role,
			Message:   "Activity rejected: " + reason,
			CreatedAt: now,
		},
	}

	affected, err := s.repo.Decide(ctx, id, decision)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject activity")
	}
	if affected == 0 {
		current, loadErr := s.load(ctx, id)
		if loadErr != nil {
			return nil, loadErr
		}
		return nil, appErrors.Clone(appErrors.ErrStateConflict, fmt.Sprintf("activity is already %s", current.Status))
	}

	s.recordDecisionAudit(ctx, actor.ID, models.AuditActionActivityReject, id, decision.Status)
	s.invalidateStats(ctx)
	return s.reload(ctx, id)
}

// AddComment appends a comment for any actor with view access.
func (s *ActivityService) AddComment(ctx context.Context, actor authz.Actor, actorName, id string, req dto.AddCommentRequest) (*models.Activity, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid comment payload")
	}

	activity, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.Can(actor, authz.ActionComment, resourceOf(activity)) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
	}

	comment := models.ActivityComment{
		UserID:    actor.ID,
		UserName:  actorName,
		Role:      actor.Role,
		Message:   req.Message,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.AppendComment(ctx, id, comment); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add comment")
	}

	return s.reload(ctx, id)
}

// Stats returns role-scoped aggregates, served from cache when warm.
func (s *ActivityService) Stats(ctx context.Context, actor authz.Actor) (*models.ActivityStats, error) {
	scope := repository.StatsScope{}
	switch actor.Role {
	case models.RoleStudent:
		scope.StudentID = actor.ID
	case models.RoleFaculty:
		scope.Department = actor.Department
	}

	cacheKey := statsCacheKey(scope)
	if s.cache.Enabled() {
		var cached models.ActivityStats
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	stats, err := s.repo.Stats(ctx, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute activity stats")
	}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, cacheKey, stats, s.statsTTL); err != nil {
			s.logger.Warn("failed to cache activity stats", zap.Error(err))
		}
	}
	return stats, nil
}

func (s *ActivityService) load(ctx context.Context, id string) (*models.Activity, error) {
	activity, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}
	return activity, nil
}

func (s *ActivityService) reload(ctx context.Context, id string) (*models.Activity, error) {
	activity, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload activity")
	}
	return activity, nil
}

func (s *ActivityService) recordDecisionAudit(ctx context.Context, actorID, action, activityID string, status models.ActivityStatus) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(map[string]string{"status": string(status)})
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "activity",
		ResourceID: &activityID,
		NewValues:  payload,
	}); err != nil {
		s.logger.Warn("failed to record decision audit log", zap.Error(err))
	}
}

func (s *ActivityService) invalidateStats(ctx context.Context) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, "activity:stats:*"); err != nil {
		s.logger.Warn("failed to invalidate stats cache", zap.Error(err))
	}
}

func resourceOf(activity *models.Activity) authz.Resource {
	return authz.Resource{
		OwnerID:         activity.StudentID,
		OwnerDepartment: activity.StudentDepartment,
		Status:          activity.Status,
	}
}

func statsCacheKey(scope repository.StatsScope) string {
	switch {
	case scope.StudentID != "":
		return "activity:stats:student:" + scope.StudentID
	case scope.Department != "":
		return "activity:stats:department:" + scope.Department
	default:
		return "activity:stats:all"
	}
}

func normalizeTags(activity *models.Activity) {
	for i, tag := range activity.Tags {
		activity.Tags[i] = strings.ToLower(strings.TrimSpace(tag))
	}
}

// mintVerificationCode builds the external reference token written once at
// insert time. The random suffix keeps same-millisecond submissions distinct;
// the database unique constraint is the final arbiter.
func mintVerificationCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	suffix := int64(0)
	if err == nil {
		suffix = n.Int64()
	}
	return fmt.Sprintf("ACT%d%06d", time.Now().UnixMilli(), suffix)
}
