package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/doclingate/internal/models"
	"github.com/yoockh/doclingate/internal/utils"
)

// RequireRole runs after JWTAuth and admits only the listed app roles.
func RequireRole(allowed ...string) gin.HandlerFunc {
	allow := map[string]struct{}{}
	for _, a := range allowed {
		a = strings.TrimSpace(strings.ToLower(a))
		if a != "" {
			allow[a] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		role, _ := c.Get("role")
		s, _ := role.(string)

		if _, ok := allow[strings.ToLower(strings.TrimSpace(s))]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, apiError{
				Error: "Forbidden",
				Code:  utils.CodeForbidden,
			})
			return
		}
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc { return RequireRole(string(models.RoleAdmin)) }
