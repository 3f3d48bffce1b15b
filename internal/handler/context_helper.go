package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ndthanh/qltv-api/internal/middleware"
	"github.com/ndthanh/qltv-api/internal/models"
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

func principalFromContext(c *gin.Context) *models.PrincipalInfo {
	claims := claimsFromContext(c)
	if claims == nil {
		return nil
	}
	return &models.PrincipalInfo{
		IdentityID: claims.IdentityID,
		Username:   claims.Username,
		Fullname:   claims.Fullname,
		Role:       claims.Role,
	}
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
