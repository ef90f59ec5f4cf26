package export

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/RockaiDev/bariqe-dashboard/internal/auth"
	"github.com/RockaiDev/bariqe-dashboard/internal/domain"
	"github.com/RockaiDev/bariqe-dashboard/internal/logging"
	"github.com/RockaiDev/bariqe-dashboard/internal/query"
)

// Handler serves exports and import templates over HTTP.
type Handler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func attachment(c *gin.Context, format Format, name string) {
	c.Header("Content-Type", format.ContentType())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Status(http.StatusOK)
}

// Export streams the filtered, sorted collection as ?format=xlsx|csv.
func (h *Handler) Export(def domain.EntityDefinition) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, err := auth.RequireOrganizationID(c.Request.Context())
		if err != nil {
			_ = c.Error(err)
			return
		}
		format, err := ParseFormat(c.Query("format"))
		if err != nil {
			_ = c.Error(err)
			return
		}

		req := Request{
			OrganizationID: orgID,
			Entity:         def,
			Format:         format,
			Query: query.Request{
				Filters: optionalQuery(c, "filters"),
				Sort:    optionalQuery(c, "sort"),
			},
		}
		// Reject bad filters while the status can still be changed
		if _, err := h.service.Plan(req); err != nil {
			_ = c.Error(err)
			return
		}

		attachment(c, format, h.service.FileName(def, format))
		if _, err := h.service.Export(c.Request.Context(), req, c.Writer); err != nil {
			logging.FromContext(c.Request.Context()).Error("export aborted", zap.String("entity", def.Name), zap.Error(err))
			c.Abort()
		}
	}
}

// Template serves an empty workbook with the import header row.
func (h *Handler) Template(def domain.EntityDefinition) gin.HandlerFunc {
	return func(c *gin.Context) {
		format, err := ParseFormat(c.Query("format"))
		if err != nil {
			_ = c.Error(err)
			return
		}
		attachment(c, format, TemplateFileName(def, format))
		if err := h.service.Template(def, format, c.Writer); err != nil {
			logging.FromContext(c.Request.Context()).Error("template write failed", zap.String("entity", def.Name), zap.Error(err))
			c.Abort()
		}
	}
}

// optionalQuery returns nil for absent parameters so list defaults apply.
func optionalQuery(c *gin.Context, key string) any {
	if value, ok := c.GetQuery(key); ok {
		return value
	}
	return nil
}
