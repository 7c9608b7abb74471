package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smartstudenthub/activity-api/internal/service"
	appErrors "github.com/smartstudenthub/activity-api/pkg/errors"
	"github.com/smartstudenthub/activity-api/pkg/response"
)

// AnalyticsHandler exposes aggregated department analytics.
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
}

// NewAnalyticsHandler constructs the analytics handler.
func NewAnalyticsHandler(analytics *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Department godoc
// @Summary Department activity analytics
// @Description Category aggregates and student performance for a department. Faculty see their own department only.
// @Tags Reports
// @Produce json
// @Param department query string false "Department (defaults to the caller's)"
// @Param academicYear query string false "Academic year, e.g. 2023-2024"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /reports/analytics/department [get]
func (h *AnalyticsHandler) Department(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	analytics, _, err := h.analytics.Department(c.Request.Context(), actor,
		c.Query("department"), c.Query("academicYear"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, analytics)
}
