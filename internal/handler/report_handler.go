package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smartstudenthub/activity-api/internal/dto"
	"github.com/smartstudenthub/activity-api/internal/service"
	appErrors "github.com/smartstudenthub/activity-api/pkg/errors"
	"github.com/smartstudenthub/activity-api/pkg/response"
)

// ReportHandler wires HTTP endpoints to the report service.
type ReportHandler struct {
	service *service.ReportService
}

// NewReportHandler creates a new handler.
func NewReportHandler(svc *service.ReportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// GeneratePortfolio godoc
// @Summary Generate a student portfolio PDF
// @Description Renders the portfolio synchronously and returns a download link
// @Tags Reports
// @Accept json
// @Produce json
// @Param studentId path string true "Student ID"
// @Param payload body dto.GeneratePortfolioRequest false "Portfolio options"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/portfolio/{studentId} [post]
func (h *ReportHandler) GeneratePortfolio(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.GeneratePortfolioRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid portfolio payload"))
			return
		}
	}
	if studentID := c.Param("studentId"); studentID != "" {
		req.StudentID = studentID
	}

	res, err := h.service.GeneratePortfolio(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "portfolio generated", res)
}

// Generate godoc
// @Summary Generate a custom report
// @Description Queues asynchronous report generation and returns the tracking row
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body dto.GenerateReportRequest true "Report definition"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /reports [post]
func (h *ReportHandler) Generate(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.GenerateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid report payload"))
		return
	}

	report, err := h.service.Generate(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Accepted(c, "report generation queued", report)
}

// List godoc
// @Summary List reports
// @Description Lists reports owned by, shared with, or public to the caller
// @Tags Reports
// @Produce json
// @Param type query string false "Filter by report type"
// @Param status query string false "Filter by status"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /reports [get]
func (h *ReportHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ListReportsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}

	reports, meta, err := h.service.List(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.List(c, reports, meta)
}

// Get godoc
// @Summary Get a report
// @Tags Reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/{id} [get]
func (h *ReportHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	report, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, report)
}

// DownloadLink godoc
// @Summary Issue a signed download link
// @Description Returns a time-limited URL for a completed report artifact
// @Tags Reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/{id}/download [get]
func (h *ReportHandler) DownloadLink(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	link, err := h.service.DownloadLink(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, link)
}

// Download serves the artifact referenced by a signed token. The token itself
// authorizes the request, so this route sits outside the JWT middleware.
// @Summary Download a report artifact
// @Tags Reports
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /export/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	path, report, err := h.service.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.FileAttachment(path, report.File.OriginalName)
}

// Share godoc
// @Summary Share a report
// @Description Replaces the share grants and public flag of a report
// @Tags Reports
// @Accept json
// @Produce json
// @Param id path string true "Report ID"
// @Param payload body dto.ShareReportRequest true "Share grants"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/{id}/share [post]
func (h *ReportHandler) Share(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ShareReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid share payload"))
		return
	}

	report, err := h.service.Share(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, http.StatusOK, "report sharing updated", report)
}

// Delete godoc
// @Summary Delete a report
// @Description Removes the report row and its stored artifact
// @Tags Reports
// @Param id path string true "Report ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/{id} [delete]
func (h *ReportHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
