package dto

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListActivitiesRequestBindsDateWindow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/activities?startDate=2026-01-01&endDate=2026-03-31", nil)

	var req ListActivitiesRequest
	require.NoError(t, c.ShouldBindQuery(&req))
	require.NotNil(t, req.From)
	require.NotNil(t, req.To)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), *req.From)
	assert.Equal(t, time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC), *req.To)

	filter := req.ToFilter()
	assert.Equal(t, req.From, filter.From)
	assert.Equal(t, req.To, filter.To)
}
