package models

import "time"

// DepartmentAnalyticsFilter bounds the department analytics aggregation.
// From and To are derived from the academic year when one is given.
type DepartmentAnalyticsFilter struct {
	Department string
	From       *time.Time
	To         *time.Time
}

// CategoryAnalytics aggregates a department's activities per category.
type CategoryAnalytics struct {
	Category           ActivityCategory `db:"category" json:"category"`
	TotalActivities    int              `db:"total_activities" json:"totalActivities"`
	ApprovedActivities int              `db:"approved_activities" json:"approvedActivities"`
	TotalCredits       float64          `db:"total_credits" json:"totalCredits"`
	AverageScore       *float64         `db:"average_score" json:"averageScore,omitempty"`
}

// StudentPerformance ranks a department's students by approved credits.
type StudentPerformance struct {
	StudentID       string   `db:"student_id" json:"studentId"`
	StudentNumber   string   `db:"student_number" json:"studentNumber"`
	Name            string   `db:"full_name" json:"name"`
	Year            *int     `db:"year" json:"year,omitempty"`
	TotalActivities int      `db:"total_activities" json:"totalActivities"`
	TotalCredits    float64  `db:"total_credits" json:"totalCredits"`
	AverageScore    *float64 `db:"average_score" json:"averageScore,omitempty"`
}

// DepartmentAnalytics is the response of the department analytics endpoint.
type DepartmentAnalytics struct {
	Department         string               `json:"department"`
	AcademicYear       string               `json:"academicYear"`
	TotalStudents      int                  `json:"totalStudents"`
	Categories         []CategoryAnalytics  `json:"activitiesAnalytics"`
	StudentPerformance []StudentPerformance `json:"studentPerformance"`
	GeneratedAt        time.Time            `json:"generatedAt"`
}
