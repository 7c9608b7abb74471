package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ActivityCategory is the closed set of activity classifications.
type ActivityCategory string

const (
	CategoryAcademic        ActivityCategory = "academic"
	CategoryResearch        ActivityCategory = "research"
	CategoryConference      ActivityCategory = "conference"
	CategoryWorkshop        ActivityCategory = "workshop"
	CategoryCertification   ActivityCategory = "certification"
	CategoryInternship      ActivityCategory = "internship"
	CategoryProject         ActivityCategory = "project"
	CategoryCompetition     ActivityCategory = "competition"
	CategoryVolunteering    ActivityCategory = "volunteering"
	CategoryExtracurricular ActivityCategory = "extracurricular"
	CategoryLeadership      ActivityCategory = "leadership"
	CategoryPublication     ActivityCategory = "publication"
	CategoryPatent          ActivityCategory = "patent"
	CategoryAward           ActivityCategory = "award"
	CategoryOther           ActivityCategory = "other"
)

// ActivityCategories lists every accepted category value.
var ActivityCategories = []ActivityCategory{
	CategoryAcademic, CategoryResearch, CategoryConference, CategoryWorkshop,
	CategoryCertification, CategoryInternship, CategoryProject,
	CategoryCompetition, CategoryVolunteering, CategoryExtracurricular,
	CategoryLeadership, CategoryPublication, CategoryPatent, CategoryAward,
	CategoryOther,
}

// Valid reports whether the category is a known value.
func (c ActivityCategory) Valid() bool {
	for _, known := range ActivityCategories {
		if c == known {
			return true
		}
	}
	return false
}

// ActivityStatus captures the review lifecycle of an activity.
type ActivityStatus string

const (
	StatusPending  ActivityStatus = "pending"
	StatusApproved ActivityStatus = "approved"
	StatusRejected ActivityStatus = "rejected"
	// StatusUnderReview is accepted in filters for forward compatibility.
	// No transition currently produces it.
	StatusUnderReview ActivityStatus = "under_review"
)

// Valid reports whether the status is a known value.
func (s ActivityStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusUnderReview:
		return true
	}
	return false
}

// ActivityMode describes how an activity was conducted.
type ActivityMode string

const (
	ModeOnline  ActivityMode = "online"
	ModeOffline ActivityMode = "offline"
	ModeHybrid  ActivityMode = "hybrid"
)

// ActivityImpact grades the significance of an activity.
type ActivityImpact string

const (
	ImpactLow    ActivityImpact = "low"
	ImpactMedium ActivityImpact = "medium"
	ImpactHigh   ActivityImpact = "high"
)

// ActivityDocument is a supporting document attached to an activity.
type ActivityDocument struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	FileType string `json:"fileType"`
}

// ActivityDocuments is the JSONB-persisted document list.
type ActivityDocuments []ActivityDocument

// Value marshals the documents to JSON for persistence.
func (d ActivityDocuments) Value() (driver.Value, error) {
	if d == nil {
		d = ActivityDocuments{}
	}
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal activity documents: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the document list.
func (d *ActivityDocuments) Scan(value interface{}) error {
	return scanJSON(value, d, "activity documents")
}

// ActivityComment is one entry in an activity's append-only comment trail.
type ActivityComment struct {
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Role      UserRole  `json:"role"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// ActivityComments is the JSONB-persisted comment trail.
type ActivityComments []ActivityComment

// Value marshals the comments to JSON for persistence.
func (c ActivityComments) Value() (driver.Value, error) {
	if c == nil {
		c = ActivityComments{}
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal activity comments: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the comment trail.
func (c *ActivityComments) Scan(value interface{}) error {
	return scanJSON(value, c, "activity comments")
}

// StringList is a JSONB-persisted list of strings.
type StringList []string

// Value marshals the list to JSON for persistence.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal string list: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the list.
func (l *StringList) Scan(value interface{}) error {
	return scanJSON(value, l, "string list")
}

// Activity represents a student activity record.
type Activity struct {
	ID               string            `db:"id" json:"id"`
	StudentID        string            `db:"student_id" json:"studentId"`
	Title            string            `db:"title" json:"title"`
	Description      string            `db:"description" json:"description"`
	Category         ActivityCategory  `db:"category" json:"category"`
	SubCategory      string            `db:"sub_category" json:"subCategory,omitempty"`
	Organizer        string            `db:"organizer" json:"organizer"`
	Location         string            `db:"location" json:"location,omitempty"`
	Mode             ActivityMode      `db:"mode" json:"mode"`
	StartDate        time.Time         `db:"start_date" json:"startDate"`
	EndDate          time.Time         `db:"end_date" json:"endDate"`
	Credits          float64           `db:"credits" json:"credits"`
	Score            *float64          `db:"score" json:"score,omitempty"`
	Grade            string            `db:"grade" json:"grade,omitempty"`
	Documents        ActivityDocuments `db:"documents" json:"documents"`
	SkillsGained     StringList        `db:"skills_gained" json:"skillsGained"`
	Tags             StringList        `db:"tags" json:"tags"`
	LearningOutcomes string            `db:"learning_outcomes" json:"learningOutcomes,omitempty"`
	Impact           ActivityImpact    `db:"impact" json:"impact"`
	IsPublic         bool              `db:"is_public" json:"isPublic"`
	Status           ActivityStatus    `db:"status" json:"status"`
	ApprovedBy       *string           `db:"approved_by" json:"approvedBy,omitempty"`
	ApprovalDate     *time.Time        `db:"approval_date" json:"approvalDate,omitempty"`
	RejectionReason  *string           `db:"rejection_reason" json:"rejectionReason,omitempty"`
	IsVerified       bool              `db:"is_verified" json:"isVerified"`
	VerificationCode string            `db:"verification_code" json:"verificationCode"`
	Comments         ActivityComments  `db:"comments" json:"comments"`
	CreatedAt        time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updatedAt"`

	// Joined student columns, populated on list and detail reads.
	StudentName       string `db:"student_name" json:"studentName,omitempty"`
	StudentNumber     string `db:"student_number" json:"studentNumber,omitempty"`
	StudentDepartment string `db:"student_department" json:"studentDepartment,omitempty"`
	ApproverName      string `db:"approver_name" json:"approverName,omitempty"`
}

// Duration returns the inclusive activity length in days.
func (a Activity) Duration() int {
	days := int(a.EndDate.Sub(a.StartDate).Hours()/24) + 1
	if days < 1 {
		return 1
	}
	return days
}

// ActivityFilter captures the role-scoped listing criteria. Empty strings
// mean no filtering on that dimension.
type ActivityFilter struct {
	StudentID  string
	Department string
	ApprovedBy string
	Status     ActivityStatus
	Category   ActivityCategory
	Search     string
	From       *time.Time
	To         *time.Time
	Page       int
	Limit      int
	SortBy     string
	SortOrder  string
}

// CategoryStat aggregates counts and credits for one category.
type CategoryStat struct {
	Category     ActivityCategory `db:"category" json:"category"`
	Count        int              `db:"count" json:"count"`
	TotalCredits float64          `db:"total_credits" json:"totalCredits"`
	AverageScore float64          `db:"average_score" json:"averageScore"`
}

// StatusStat aggregates counts per review status.
type StatusStat struct {
	Status ActivityStatus `db:"status" json:"status"`
	Count  int            `db:"count" json:"count"`
}

// ActivityStats is the aggregate view returned by the stats endpoint.
type ActivityStats struct {
	Total        int            `json:"total"`
	TotalCredits float64        `json:"totalCredits"`
	AverageScore float64        `json:"averageScore"`
	ByCategory   []CategoryStat `json:"byCategory"`
	ByStatus     []StatusStat   `json:"byStatus"`
}

func scanJSON(value interface{}, dest interface{}, label string) error {
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported %s type %T", label, value)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal %s: %w", label, err)
	}
	return nil
}
