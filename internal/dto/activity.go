package dto

import (
	"time"

	"github.com/smartstudenthub/activity-api/internal/models"
)

// CreateActivityRequest captures POST /activities payload.
type CreateActivityRequest struct {
	Title            string                   `json:"title" validate:"required,max=200"`
	Description      string                   `json:"description" validate:"required,max=1000"`
	Category         string                   `json:"category" validate:"required"`
	SubCategory      string                   `json:"subCategory"`
	Organizer        string                   `json:"organizer" validate:"required"`
	Location         string                   `json:"location"`
	Mode             models.ActivityMode      `json:"mode" validate:"omitempty,oneof=online offline hybrid"`
	StartDate        time.Time                `json:"startDate" validate:"required"`
	EndDate          time.Time                `json:"endDate" validate:"required"`
	Credits          float64                  `json:"credits" validate:"min=0,max=10"`
	Score            *float64                 `json:"score" validate:"omitempty,min=0,max=100"`
	Grade            string                   `json:"grade"`
	Documents        models.ActivityDocuments `json:"documents"`
	SkillsGained     []string                 `json:"skillsGained"`
	Tags             []string                 `json:"tags"`
	LearningOutcomes string                   `json:"learningOutcomes" validate:"max=500"`
	Impact           models.ActivityImpact    `json:"impact" validate:"omitempty,oneof=low medium high"`
	IsPublic         bool                     `json:"isPublic"`
}

// ToModel converts the request into a new activity record with defaults
// applied.
func (r CreateActivityRequest) ToModel() *models.Activity {
	mode := r.Mode
	if mode == "" {
		mode = models.ModeOffline
	}
	impact := r.Impact
	if impact == "" {
		impact = models.ImpactMedium
	}
	return &models.Activity{
		Title:            r.Title,
		Description:      r.Description,
		Category:         models.ActivityCategory(r.Category),
		SubCategory:      r.SubCategory,
		Organizer:        r.Organizer,
		Location:         r.Location,
		Mode:             mode,
		StartDate:        r.StartDate,
		EndDate:          r.EndDate,
		Credits:          r.Credits,
		Score:            r.Score,
		Grade:            r.Grade,
		Documents:        r.Documents,
		SkillsGained:     models.StringList(r.SkillsGained),
		Tags:             models.StringList(r.Tags),
		LearningOutcomes: r.LearningOutcomes,
		Impact:           impact,
		IsPublic:         r.IsPublic,
	}
}

// UpdateActivityRequest captures PUT /activities/:id payload. Nil fields are
// left untouched.
type UpdateActivityRequest struct {
	Title            *string                   `json:"title" validate:"omitempty,max=200"`
	Description      *string                   `json:"description" validate:"omitempty,max=1000"`
	Category         *string                   `json:"category"`
	SubCategory      *string                   `json:"subCategory"`
	Organizer        *string                   `json:"organizer"`
	Location         *string                   `json:"location"`
	Mode             *models.ActivityMode      `json:"mode" validate:"omitempty,oneof=online offline hybrid"`
	StartDate        *time.Time                `json:"startDate"`
	EndDate          *time.Time                `json:"endDate"`
	Credits          *float64                  `json:"credits" validate:"omitempty,min=0,max=10"`
	Score            *float64                  `json:"score" validate:"omitempty,min=0,max=100"`
	Grade            *string                   `json:"grade"`
	Documents        *models.ActivityDocuments `json:"documents"`
	SkillsGained     *[]string                 `json:"skillsGained"`
	Tags             *[]string                 `json:"tags"`
	LearningOutcomes *string                   `json:"learningOutcomes" validate:"omitempty,max=500"`
	Impact           *models.ActivityImpact    `json:"impact" validate:"omitempty,oneof=low medium high"`
	IsPublic         *bool                     `json:"isPublic"`
}

// Apply merges the provided fields onto the activity.
func (r UpdateActivityRequest) Apply(activity *models.Activity) {
	if r.Title != nil {
		activity.Title = *r.Title
	}
	if r.Description != nil {
		activity.Description = *r.Description
	}
	if r.Category != nil {
		activity.Category = models.ActivityCategory(*r.Category)
	}
	if r.SubCategory != nil {
		activity.SubCategory = *r.SubCategory
	}
	if r.Organizer != nil {
		activity.Organizer = *r.Organizer
	}
	if r.Location != nil {
		activity.Location = *r.Location
	}
	if r.Mode != nil {
		activity.Mode = *r.Mode
	}
	if r.StartDate != nil {
		activity.StartDate = *r.StartDate
	}
	if r.EndDate != nil {
		activity.EndDate = *r.EndDate
	}
	if r.Credits != nil {
		activity.Credits = *r.Credits
	}
	if r.Score != nil {
		activity.Score = r.Score
	}
	if r.Grade != nil {
		activity.Grade = *r.Grade
	}
	if r.Documents != nil {
		activity.Documents = *r.Documents
	}
	if r.SkillsGained != nil {
		activity.SkillsGained = models.StringList(*r.SkillsGained)
	}
	if r.Tags != nil {
		activity.Tags = models.StringList(*r.Tags)
	}
	if r.LearningOutcomes != nil {
		activity.LearningOutcomes = *r.LearningOutcomes
	}
	if r.Impact != nil {
		activity.Impact = *r.Impact
	}
	if r.IsPublic != nil {
		activity.IsPublic = *r.IsPublic
	}
}

// DecideActivityRequest captures PATCH /activities/:id/approve payload. The
// status field selects between approval and rejection.
type DecideActivityRequest struct {
	Status          string `json:"status" binding:"required,oneof=approved rejected"`
	Comment         string `json:"comments"`
	RejectionReason string `json:"rejectionReason"`
}

// ApproveActivityRequest carries the optional approver comment.
type ApproveActivityRequest struct {
	Comment string `json:"comment"`
}

// RejectActivityRequest carries the mandatory rejection reason.
type RejectActivityRequest struct {
	Reason string `json:"reason"`
}

// AddCommentRequest captures POST /activities/:id/comments payload.
type AddCommentRequest struct {
	Message string `json:"message" validate:"required,max=1000"`
}

// ListActivitiesRequest captures GET /activities query parameters.
type ListActivitiesRequest struct {
	Status    string     `form:"status"`
	Category  string     `form:"category"`
	StudentID string     `form:"studentId"`
	Search    string     `form:"search"`
	From      *time.Time `form:"startDate" time_format:"2006-01-02"`
	To        *time.Time `form:"endDate" time_format:"2006-01-02"`
	Page      int        `form:"page"`
	Limit     int        `form:"limit"`
	SortBy    string     `form:"sortBy"`
	SortOrder string     `form:"sortOrder"`
}

// ToFilter converts query parameters into the repository filter. Role scoping
// is applied afterwards by the service.
func (r ListActivitiesRequest) ToFilter() models.ActivityFilter {
	return models.ActivityFilter{
		StudentID: r.StudentID,
		Status:    models.ActivityStatus(r.Status),
		Category:  models.ActivityCategory(r.Category),
		Search:    r.Search,
		From:      r.From,
		To:        r.To,
		Page:      r.Page,
		Limit:     r.Limit,
		SortBy:    r.SortBy,
		SortOrder: r.SortOrder,
	}
}
