package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/smartstudenthub/activity-api/internal/middleware"
	"github.com/smartstudenthub/activity-api/internal/models"
	"github.com/smartstudenthub/activity-api/internal/service"
)

func testContext(t *testing.T, method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(method, path, bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func authenticate(c *gin.Context, role models.UserRole) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{
		UserID: "u1", Role: role, FullName: "Test User", Department: "CSE",
	})
}

func TestActivityHandlerRequiresAuth(t *testing.T) {
	handler := NewActivityHandler(&service.ActivityService{})

	c, w := testContext(t, http.MethodGet, "/activities", nil)
	handler.List(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = testContext(t, http.MethodPost, "/activities", []byte(`{}`))
	handler.Create(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = testContext(t, http.MethodGet, "/activities/stats", nil)
	handler.Stats(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestActivityHandlerRejectsMalformedJSON(t *testing.T) {
	handler := NewActivityHandler(&service.ActivityService{})

	c, w := testContext(t, http.MethodPost, "/activities", []byte(`{not json`))
	authenticate(c, models.RoleStudent)
	handler.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = testContext(t, http.MethodPut, "/activities/act-1", []byte(`{not json`))
	authenticate(c, models.RoleStudent)
	c.Params = gin.Params{{Key: "id", Value: "act-1"}}
	handler.Update(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = testContext(t, http.MethodPatch, "/activities/act-1/approve", []byte(`{not json`))
	authenticate(c, models.RoleFaculty)
	c.Params = gin.Params{{Key: "id", Value: "act-1"}}
	handler.Decide(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = testContext(t, http.MethodPatch, "/activities/act-1/approve", []byte(`{"status":"maybe"}`))
	authenticate(c, models.RoleFaculty)
	c.Params = gin.Params{{Key: "id", Value: "act-1"}}
	handler.Decide(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
