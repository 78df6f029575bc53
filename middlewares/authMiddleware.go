package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/catalog_backend/utils"
)

// AuthMiddleware accepts an optional "Authorization: Bearer <jwt>" header and
// puts the token's username and business id into the request context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")
		if auth == "" {
			c.Next()
			return
		}

		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		claims, err := utils.JwtValidate(strings.TrimSpace(token))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := utils.SetUsernameInContext(c.Request.Context(), claims.Username)
		if claims.BusinessId != "" {
			ctx = utils.SetBusinessIdInContext(ctx, claims.BusinessId)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
