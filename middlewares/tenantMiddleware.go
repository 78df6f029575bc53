package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mmdatafocus/catalog_backend/utils"
)

const (
	HeaderBusinessId    = "X-Business-Id"
	HeaderCorrelationId = "x-correlation-id"
)

// CorrelationMiddleware attaches the caller's correlation id, or a new one,
// to the request context and echoes it back.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := c.GetHeader(HeaderCorrelationId)
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Header(HeaderCorrelationId, cid)
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	}
}

// TenantMiddleware puts X-Business-Id into the request context unless a
// session already did. A header naming a different business than the
// session is refused.
func TenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader(HeaderBusinessId))
		ctx := c.Request.Context()
		if current, ok := utils.GetBusinessIdFromContext(ctx); ok && current != "" {
			if header != "" && header != current {
				c.JSON(http.StatusForbidden, gin.H{"error": "business id does not match session"})
				c.Abort()
				return
			}
			c.Next()
			return
		}
		if header != "" {
			c.Request = c.Request.WithContext(utils.SetBusinessIdInContext(ctx, header))
		}
		c.Next()
	}
}
