package ingestion

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RockaiDev/bariqe-dashboard/internal/apperr"
	"github.com/RockaiDev/bariqe-dashboard/internal/auth"
	"github.com/RockaiDev/bariqe-dashboard/internal/domain"
)

// maxUploadSize bounds the multipart form kept in memory.
const maxUploadSize = 32 << 20

// Handler exposes ingestion as an HTTP endpoint.
type Handler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Import handles a multipart upload with the spreadsheet in the "file" field.
// It answers 400 when rows failed and none were imported.
func (h *Handler) Import(def domain.EntityDefinition) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, err := auth.RequireOrganizationID(c.Request.Context())
		if err != nil {
			_ = c.Error(err)
			return
		}

		if err := c.Request.ParseMultipartForm(maxUploadSize); err != nil {
			_ = c.Error(apperr.InvalidInput("invalid form data", err))
			return
		}
		file, header, err := c.Request.FormFile("file")
		if err != nil {
			_ = c.Error(apperr.InvalidInput("file required", err))
			return
		}
		defer file.Close()

		result, err := h.service.Import(c.Request.Context(), Request{
			OrganizationID: orgID,
			Entity:         def,
			FileName:       header.Filename,
			Data:           file,
		})
		if err != nil {
			_ = c.Error(err)
			return
		}

		status := http.StatusOK
		if result.Imported() == 0 && len(result.Failed) > 0 {
			status = http.StatusBadRequest
		}
		c.JSON(status, result)
	}
}
