package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smartstudenthub/activity-api/internal/dto"
	"github.com/smartstudenthub/activity-api/internal/models"
	"github.com/smartstudenthub/activity-api/internal/service"
	appErrors "github.com/smartstudenthub/activity-api/pkg/errors"
	"github.com/smartstudenthub/activity-api/pkg/response"
)

// ActivityHandler wires HTTP endpoints to the activity service.
type ActivityHandler struct {
	service *service.ActivityService
}

// NewActivityHandler creates a new handler.
func NewActivityHandler(svc *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{service: svc}
}

// Create godoc
// @Summary Submit an activity
// @Description Students submit a new activity for review
// @Tags Activities
// @Accept json
// @Produce json
// @Param payload body dto.CreateActivityRequest true "Activity payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /activities [post]
func (h *ActivityHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid activity payload"))
		return
	}

	activity, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "activity submitted", activity)
}

// List godoc
// @Summary List activities
// @Description List activities scoped to the caller's role
// @Tags Activities
// @Produce json
// @Param status query string false "Filter by status"
// @Param category query string false "Filter by category"
// @Param search query string false "Search title, description, organizer"
// @Param startDate query string false "Only activities starting on or after this date (YYYY-MM-DD)"
// @Param endDate query string false "Only activities starting on or before this date (YYYY-MM-DD)"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /activities [get]
func (h *ActivityHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ListActivitiesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}

	activities, meta, err := h.service.List(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.List(c, activities, meta)
}

// Get godoc
// @Summary Get an activity
// @Tags Activities
// @Produce json
// @Param id path string true "Activity ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /activities/{id} [get]
func (h *ActivityHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	activity, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, activity)
}

// Update godoc
// @Summary Update an activity
// @Description Owners edit their activity; editing a rejected activity resubmits it
// @Tags Activities
// @Accept json
// @Produce json
// @Param id path string true "Activity ID"
// @Param payload body dto.UpdateActivityRequest true "Fields to update"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /activities/{id} [put]
func (h *ActivityHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.UpdateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid activity payload"))
		return
	}

	activity, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, activity)
}

// Delete godoc
// @Summary Delete an activity
// @Tags Activities
// @Param id path string true "Activity ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /activities/{id} [delete]
func (h *ActivityHandler) Delete(c *gin.Context) {
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

// Decide godoc
// @Summary Approve or reject a pending activity
// @Description Approves with an optional comment or rejects with a mandatory reason
// @Tags Activities
// @Accept json
// @Produce json
// @Param id path string true "Activity ID"
// @Param payload body dto.DecideActivityRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /activities/{id}/approve [patch]
func (h *ActivityHandler) Decide(c *gin.Context) {
	claims := claimsFromContext(c)
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.DecideActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "status must be approved or rejected"))
		return
	}

	var (
		activity interface{}
		err      error
	)
	if req.Status == "approved" {
		activity, err = h.service.Approve(c.Request.Context(), actor, claims.FullName, c.Param("id"),
			dto.ApproveActivityRequest{Comment: req.Comment})
	} else {
		activity, err = h.service.Reject(c.Request.Context(), actor, claims.FullName, c.Param("id"),
			dto.RejectActivityRequest{Reason: req.RejectionReason})
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, http.StatusOK, "activity "+req.Status, activity)
}

// Pending godoc
// @Summary List activities awaiting approval
// @Description Oldest first; faculty see their own department only
// @Tags Activities
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /activities/pending/approval [get]
func (h *ActivityHandler) Pending(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ListActivitiesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	req.Status = string(models.StatusPending)
	req.SortBy = "created_at"
	req.SortOrder = "asc"

	activities, meta, err := h.service.List(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.List(c, activities, meta)
}

// AddComment godoc
// @Summary Comment on an activity
// @Tags Activities
// @Accept json
// @Produce json
// @Param id path string true "Activity ID"
// @Param payload body dto.AddCommentRequest true "Comment"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /activities/{id}/comments [post]
func (h *ActivityHandler) AddComment(c *gin.Context) {
	claims := claimsFromContext(c)
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid comment payload"))
		return
	}

	activity, err := h.service.AddComment(c.Request.Context(), actor, claims.FullName, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, activity)
}

// Stats godoc
// @Summary Activity statistics
// @Description Aggregates scoped to the caller's role
// @Tags Activities
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /activities/stats/summary [get]
func (h *ActivityHandler) Stats(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	stats, err := h.service.Stats(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, stats)
}
