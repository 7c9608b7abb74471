package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/smartstudenthub/activity-api/internal/models"
	"github.com/smartstudenthub/activity-api/internal/service"
)

func TestReportHandlerRequiresAuth(t *testing.T) {
	handler := NewReportHandler(&service.ReportService{})

	c, w := testContext(t, http.MethodPost, "/reports", []byte(`{}`))
	handler.Generate(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = testContext(t, http.MethodGet, "/reports", nil)
	handler.List(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = testContext(t, http.MethodPost, "/reports/portfolio", nil)
	handler.GeneratePortfolio(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReportHandlerRejectsMalformedJSON(t *testing.T) {
	handler := NewReportHandler(&service.ReportService{})

	c, w := testContext(t, http.MethodPost, "/reports", []byte(`{not json`))
	authenticate(c, models.RoleFaculty)
	handler.Generate(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = testContext(t, http.MethodPost, "/reports/rep-1/share", []byte(`{not json`))
	authenticate(c, models.RoleFaculty)
	c.Params = gin.Params{{Key: "id", Value: "rep-1"}}
	handler.Share(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
