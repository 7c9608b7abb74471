package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/smartstudenthub/activity-api/internal/authz"
	"github.com/smartstudenthub/activity-api/internal/dto"
	"github.com/smartstudenthub/activity-api/internal/models"
	appErrors "github.com/smartstudenthub/activity-api/pkg/errors"
)

type userRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindDetailByID(ctx context.Context, id string) (*models.UserDetail, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	Update(ctx context.Context, user *models.User) error
	UpdateStudentProfile(ctx context.Context, profile *models.StudentProfile) error
	Deactivate(ctx context.Context, id string) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// UserService implements account management use cases.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs a UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// Get returns a user with its profile. Admins may look up anyone; faculty may
// look up students of their own department; everyone may look up themselves.
func (s *UserService) Get(ctx context.Context, actor authz.Actor, id string) (*models.UserDetail, error) {
	detail, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	allowed := actor.Role == models.RoleAdmin || actor.ID == id ||
		(actor.Role == models.RoleFaculty && detail.Role == models.RoleStudent && detail.Department == actor.Department)
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	return detail, nil
}

// List returns users matching the filter. Admins list anyone; faculty are
// forced to students of their own department.
func (s *UserService) List(ctx context.Context, actor authz.Actor, req dto.ListUsersRequest) ([]models.User, models.ListMeta, error) {
	filter := req.ToFilter()

	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleFaculty:
		student := models.RoleStudent
		filter.Role = &student
		filter.Department = actor.Department
	default:
		return nil, models.ListMeta{}, appErrors.Clone(appErrors.ErrForbidden, "not allowed to list users")
	}

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, models.ListMeta{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
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
	return users, models.NewListMeta(len(users), total, page, limit), nil
}

// Update applies profile changes. Users may edit their own name, phone, and
// student academic fields; role, department, and active flips require admin.
func (s *UserService) Update(ctx context.Context, actor authz.Actor, id string, req dto.UpdateUserRequest) (*models.UserDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	isAdmin := actor.Role == models.RoleAdmin
	if !isAdmin && actor.ID != id {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	if !isAdmin && (req.Role != nil || req.Active != nil || req.Department != nil) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins can change role, department, or active status")
	}

	detail, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	user := detail.User
	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.Department != nil {
		user.Department = *req.Department
	}
	if req.Role != nil {
		if !req.Role.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
		}
		user.Role = *req.Role
	}
	if req.Active != nil {
		if !*req.Active && actor.ID == id {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot deactivate your own account")
		}
		user.Active = *req.Active
	}

	if err := s.repo.Update(ctx, &user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}

	if detail.Student != nil && (req.RollNumber != nil || req.Year != nil || req.Semester != nil || req.CGPA != nil) {
		profile := *detail.Student
		if req.RollNumber != nil {
			profile.RollNumber = *req.RollNumber
		}
		if req.Year != nil {
			profile.Year = *req.Year
		}
		if req.Semester != nil {
			profile.Semester = *req.Semester
		}
		if req.CGPA != nil {
			profile.CGPA = *req.CGPA
		}
		if err := s.repo.UpdateStudentProfile(ctx, &profile); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student profile")
		}
	}

	s.recordAudit(ctx, actor.ID, models.AuditActionUserUpdate, id, req)
	return s.load(ctx, id)
}

// SetStatus flips the active flag on an account. Admin only; admins cannot
// deactivate themselves.
func (s *UserService) SetStatus(ctx context.Context, actor authz.Actor, id string, active bool) (*models.UserDetail, error) {
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins can change account status")
	}
	if actor.ID == id && !active {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot deactivate your own account")
	}

	detail, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	user := detail.User
	user.Active = active
	if err := s.repo.Update(ctx, &user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user status")
	}
	if !active {
		if err := s.repo.RevokeUserRefreshTokens(ctx, id); err != nil {
			s.logger.Warn("failed to revoke tokens of deactivated user", zap.Error(err))
		}
	}

	s.recordAudit(ctx, actor.ID, models.AuditActionUserUpdate, id, map[string]bool{"isActive": active})
	return s.load(ctx, id)
}

// ListStudentsByDepartment returns the active students of a department.
// Faculty may only query their own department.
func (s *UserService) ListStudentsByDepartment(ctx context.Context, actor authz.Actor, department string) ([]models.User, error) {
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleFaculty:
		if actor.Department != department {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view students from other departments")
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to list students")
	}

	student := models.RoleStudent
	active := true
	users, _, err := s.repo.List(ctx, models.UserFilter{
		Role:       &student,
		Department: department,
		Active:     &active,
		Limit:      1000,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return users, nil
}

// ListFaculty returns all active faculty accounts. Admin only.
func (s *UserService) ListFaculty(ctx context.Context, actor authz.Actor) ([]models.User, error) {
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to list faculty")
	}

	faculty := models.RoleFaculty
	active := true
	users, _, err := s.repo.List(ctx, models.UserFilter{
		Role:   &faculty,
		Active: &active,
		Limit:  1000,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list faculty")
	}
	return users, nil
}

// Deactivate soft-deletes an account. Admin only, and never the admin's own.
func (s *UserService) Deactivate(ctx context.Context, actor authz.Actor, id string) error {
	if actor.Role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only admins can deactivate accounts")
	}
	if actor.ID == id {
		return appErrors.Clone(appErrors.ErrForbidden, "cannot deactivate your own account")
	}

	if _, err := s.load(ctx, id); err != nil {
		return err
	}

	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate user")
	}
	if err := s.repo.RevokeUserRefreshTokens(ctx, id); err != nil {
		s.logger.Warn("failed to revoke tokens of deactivated user", zap.Error(err))
	}

	s.recordAudit(ctx, actor.ID, models.AuditActionUserDeactivate, id, nil)
	return nil
}

func (s *UserService) load(ctx context.Context, id string) (*models.UserDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return detail, nil
}

func (s *UserService) recordAudit(ctx context.Context, actorID, action, targetID string, payload interface{}) {
	var newValues []byte
	if payload != nil {
		newValues, _ = json.Marshal(payload)
	}
	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "user",
		ResourceID: &targetID,
		NewValues:  newValues,
		CreatedAt:  time.Now().UTC(),
	}); err != nil {
		s.logger.Warn("failed to record user audit log", zap.Error(err))
	}
}
