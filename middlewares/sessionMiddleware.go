package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/catalog_backend/config"
	"github.com/mmdatafocus/catalog_backend/utils"
)

// Session is what the login service stores under Token:<token>.
type Session struct {
	Username   string `json:"username"`
	BusinessId string `json:"business_id"`
}

// SessionMiddleware resolves the optional token header against redis. A
// session's business id takes precedence over the X-Business-Id header.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Request.Header.Get("token")
		if token == "" {
			c.Next()
			return
		}
		var session Session
		exists, err := config.GetRedisObject(c.Request.Context(), "Token:"+token, &session)
		if err != nil || !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := utils.SetUsernameInContext(c.Request.Context(), session.Username)
		if session.BusinessId != "" {
			ctx = utils.SetBusinessIdInContext(ctx, session.BusinessId)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
