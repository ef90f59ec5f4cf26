package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/RockaiDev/bariqe-dashboard/internal/auth"
	"github.com/RockaiDev/bariqe-dashboard/internal/recordloader"
	"github.com/RockaiDev/bariqe-dashboard/internal/repository"
)

// DataLoader attaches a record loader for the request's tenant to the request context.
// It must run after the organization scope is set.
func DataLoader(repo repository.RecordRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, ok := auth.OrganizationIDFromContext(c.Request.Context())
		if !ok {
			c.Next()
			return
		}
		loader := recordloader.NewRecordLoader(repo, tenantID)
		c.Request = c.Request.WithContext(recordloader.NewContext(c.Request.Context(), loader))
		c.Next()
	}
}
