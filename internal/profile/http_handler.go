package profile

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RockaiDev/bariqe-dashboard/internal/auth"
)

// Handler serves the business profile.
type Handler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Get(c *gin.Context) {
	orgID, err := auth.RequireOrganizationID(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	info, err := h.service.Get(c.Request.Context(), orgID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, info)
}
