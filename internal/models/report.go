package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ReportType enumerates supported report categories.
type ReportType string

const (
	ReportStudentPortfolio    ReportType = "student_portfolio"
	ReportDepartmentSummary   ReportType = "department_summary"
	ReportAccreditationReport ReportType = "accreditation_report"
	ReportActivityAnalysis    ReportType = "activity_analysis"
	ReportPerformanceReport   ReportType = "performance_report"
	ReportComplianceReport    ReportType = "compliance_report"
	ReportCustomReport        ReportType = "custom_report"
)

// ReportTypes lists every accepted report type.
var ReportTypes = []ReportType{
	ReportStudentPortfolio, ReportDepartmentSummary, ReportAccreditationReport,
	ReportActivityAnalysis, ReportPerformanceReport, ReportComplianceReport,
	ReportCustomReport,
}

// Valid reports whether the type is a known value.
func (t ReportType) Valid() bool {
	for _, known := range ReportTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ReportFormat enumerates supported output formats.
type ReportFormat string

const (
	ReportFormatPDF ReportFormat = "pdf"
	ReportFormatCSV ReportFormat = "csv"
)

// ReportStatus captures report generation lifecycle states.
type ReportStatus string

const (
	ReportStatusGenerating ReportStatus = "generating"
	ReportStatusCompleted  ReportStatus = "completed"
	ReportStatusFailed     ReportStatus = "failed"
)

// ReportDateRange bounds the activities considered by a report.
type ReportDateRange struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// ReportScope selects which students and departments a report covers.
type ReportScope struct {
	Students     []string        `json:"students,omitempty"`
	Departments  []string        `json:"departments,omitempty"`
	AcademicYear string          `json:"academicYear,omitempty"`
	DateRange    ReportDateRange `json:"dateRange"`
}

// Value marshals the scope to JSON for persistence.
func (s ReportScope) Value() (driver.Value, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal report scope: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the scope.
func (s *ReportScope) Scan(value interface{}) error {
	return scanJSON(value, s, "report scope")
}

// ReportFile describes the generated artifact on disk.
type ReportFile struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
	URL          string `json:"url"`
	Size         int64  `json:"size"`
}

// Value marshals the file metadata to JSON for persistence.
func (f ReportFile) Value() (driver.Value, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("marshal report file: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the file metadata.
func (f *ReportFile) Scan(value interface{}) error {
	return scanJSON(value, f, "report file")
}

// ReportStatistics summarizes what the report covered.
type ReportStatistics struct {
	TotalStudents   int     `json:"totalStudents"`
	TotalActivities int     `json:"totalActivities"`
	TotalCredits    float64 `json:"totalCredits"`
	AverageScore    float64 `json:"averageScore"`
}

// Value marshals the statistics to JSON for persistence.
func (s ReportStatistics) Value() (driver.Value, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal report statistics: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the statistics.
func (s *ReportStatistics) Scan(value interface{}) error {
	return scanJSON(value, s, "report statistics")
}

// SharePermission grades what a share grant allows.
type SharePermission string

const (
	PermissionView     SharePermission = "view"
	PermissionDownload SharePermission = "download"
	PermissionEdit     SharePermission = "edit"
)

// ShareGrant gives one user access to a report.
type ShareGrant struct {
	UserID     string          `json:"userId"`
	Permission SharePermission `json:"permission"`
}

// ShareGrants is the JSONB-persisted share list.
type ShareGrants []ShareGrant

// Value marshals the grants to JSON for persistence.
func (g ShareGrants) Value() (driver.Value, error) {
	if g == nil {
		g = ShareGrants{}
	}
	data, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("marshal share grants: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the grant list.
func (g *ShareGrants) Scan(value interface{}) error {
	return scanJSON(value, g, "share grants")
}

// Report represents a generated or in-flight report row.
type Report struct {
	ID           string           `db:"id" json:"id"`
	Title        string           `db:"title" json:"title"`
	Type         ReportType       `db:"type" json:"type"`
	Format       ReportFormat     `db:"format" json:"format"`
	Purpose      string           `db:"purpose" json:"purpose,omitempty"`
	Scope        ReportScope      `db:"scope" json:"scope"`
	GeneratedBy  string           `db:"generated_by" json:"generatedBy"`
	Status       ReportStatus     `db:"status" json:"status"`
	File         ReportFile       `db:"file" json:"file"`
	Statistics   ReportStatistics `db:"statistics" json:"statistics"`
	ErrorMessage *string          `db:"error_message" json:"errorMessage,omitempty"`
	SharedWith   ShareGrants      `db:"shared_with" json:"sharedWith"`
	IsPublic     bool             `db:"is_public" json:"isPublic"`
	CreatedAt    time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updatedAt"`

	GeneratedByName string `db:"generated_by_name" json:"generatedByName,omitempty"`
}

// ReportFilter captures listing criteria for reports.
type ReportFilter struct {
	RequesterID string
	IncludeAll  bool
	Type        ReportType
	Status      ReportStatus
	Page        int
	Limit       int
}
