package dto

import "github.com/smartstudenthub/activity-api/internal/models"

// GeneratePortfolioRequest captures POST /reports/portfolio payload.
type GeneratePortfolioRequest struct {
	StudentID  string `json:"studentId"`
	IncludeAll bool   `json:"includeAll"`
}

// PortfolioResponse is returned after synchronous portfolio generation.
type PortfolioResponse struct {
	Report             *models.Report `json:"report"`
	ActivitiesIncluded int            `json:"activitiesIncluded"`
	DownloadURL        string         `json:"downloadUrl"`
}

// GenerateReportRequest captures POST /reports/generate payload for
// asynchronous custom reports.
type GenerateReportRequest struct {
	Title   string              `json:"title" validate:"required,max=200"`
	Type    models.ReportType   `json:"type" validate:"required"`
	Format  models.ReportFormat `json:"format" validate:"omitempty,oneof=pdf csv"`
	Purpose string              `json:"purpose" validate:"max=500"`
	Scope   models.ReportScope  `json:"scope"`
}

// ShareReportRequest captures POST /reports/:id/share payload.
type ShareReportRequest struct {
	SharedWith models.ShareGrants `json:"sharedWith"`
	IsPublic   *bool              `json:"isPublic"`
}

// ListReportsRequest captures GET /reports query parameters.
type ListReportsRequest struct {
	Type   string `form:"type"`
	Status string `form:"status"`
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
}

// DownloadLinkResponse carries a signed, time-limited artifact URL.
type DownloadLinkResponse struct {
	URL       string `json:"url"`
	ExpiresIn int64  `json:"expiresIn"`
}
