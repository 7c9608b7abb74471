package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/smartstudenthub/activity-api/internal/authz"
	"github.com/smartstudenthub/activity-api/internal/middleware"
	"github.com/smartstudenthub/activity-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// actorFromContext builds the authorization actor from the JWT claims of the
// current request. The boolean is false when the request is unauthenticated.
func actorFromContext(c *gin.Context) (authz.Actor, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		return authz.Actor{}, false
	}
	return authz.Actor{
		ID:         claims.UserID,
		Role:       claims.Role,
		Department: claims.Department,
	}, true
}
