package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RockaiDev/bariqe-dashboard/internal/logging"
)

// OrganizationHeader selects the tenant a request operates on.
const OrganizationHeader = "X-Organization-ID"

// OrganizationScope reads the tenant header into the request context. Requests
// without the header fall back to defaultID; uuid.Nil leaves them unscoped.
func OrganizationScope(defaultID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := defaultID
		if raw := strings.TrimSpace(c.GetHeader(OrganizationHeader)); raw != "" {
			parsed, err := ParseOrganizationID(raw)
			if err != nil {
				_ = c.Error(err)
				c.Abort()
				return
			}
			id = parsed
		}
		if id == uuid.Nil {
			c.Next()
			return
		}

		ctx := ContextWithOrganizationID(c.Request.Context(), id)
		logger := logging.FromContext(ctx).With(zap.String("organizationId", id.String()))
		c.Request = c.Request.WithContext(logging.NewContextWithLogger(ctx, logger))
		c.Next()
	}
}
