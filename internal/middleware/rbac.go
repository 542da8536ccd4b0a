package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ojt-labs/account-api/internal/models"
	appErrors "github.com/ojt-labs/account-api/pkg/errors"
	"github.com/ojt-labs/account-api/pkg/response"
)

// RequireRoles enforces role-based access control for routes. The caller
// passes when any of its role claims matches an allowed role; comparison is
// case-insensitive like everywhere else in the role model.
func RequireRoles(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		for _, role := range claims.Roles {
			for _, a := range allowed {
				if strings.EqualFold(role, a) {
					c.Next()
					return
				}
			}
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}
