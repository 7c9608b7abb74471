package dto

import "github.com/smartstudenthub/activity-api/internal/models"

// UpdateUserRequest captures PUT /users/:id payload. Role and active changes
// are admin-only and enforced in the service.
type UpdateUserRequest struct {
	FullName   *string          `json:"fullName" validate:"omitempty,max=100"`
	Phone      *string          `json:"phone"`
	Department *string          `json:"department"`
	Role       *models.UserRole `json:"role" validate:"omitempty,oneof=student faculty admin"`
	Active     *bool            `json:"isActive"`
	RollNumber *string          `json:"rollNumber"`
	Year       *int             `json:"year" validate:"omitempty,min=1,max=6"`
	Semester   *int             `json:"semester" validate:"omitempty,min=1,max=12"`
	CGPA       *float64         `json:"cgpa" validate:"omitempty,min=0,max=10"`
}

// SetUserStatusRequest captures PATCH /users/:id/status payload. The pointer
// distinguishes an omitted flag from an explicit false.
type SetUserStatusRequest struct {
	Active *bool `json:"isActive" binding:"required"`
}

// ListUsersRequest captures GET /users query parameters.
type ListUsersRequest struct {
	Role       string `form:"role"`
	Department string `form:"department"`
	Active     *bool  `form:"isActive"`
	Search     string `form:"search"`
	Page       int    `form:"page"`
	Limit      int    `form:"limit"`
}

// ToFilter converts query parameters into the repository filter.
func (r ListUsersRequest) ToFilter() models.UserFilter {
	filter := models.UserFilter{
		Department: r.Department,
		Active:     r.Active,
		Search:     r.Search,
		Page:       r.Page,
		Limit:      r.Limit,
	}
	if r.Role != "" {
		role := models.UserRole(r.Role)
		filter.Role = &role
	}
	return filter
}
