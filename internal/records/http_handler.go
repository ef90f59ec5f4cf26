package records

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/RockaiDev/bariqe-dashboard/internal/apperr"
	"github.com/RockaiDev/bariqe-dashboard/internal/auth"
	"github.com/RockaiDev/bariqe-dashboard/internal/domain"
	"github.com/RockaiDev/bariqe-dashboard/internal/query"
)

// Handler exposes the record operations of one service over HTTP.
type Handler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the list and single record routes of def on group.
func (h *Handler) Register(group gin.IRoutes, def domain.EntityDefinition) {
	base := "/" + def.Slug
	group.GET(base, h.List(def))
	group.POST(base, h.Create(def))
	group.GET(base+"/:id", h.Get(def))
	group.PUT(base+"/:id", h.Update(def))
	group.PATCH(base+"/:id", h.Update(def))
	group.DELETE(base+"/:id", h.Delete(def))
}

// List answers ?perPage=&page=&filters=&sort=&expand= with a page of records.
func (h *Handler) List(def domain.EntityDefinition) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, err := auth.RequireOrganizationID(c.Request.Context())
		if err != nil {
			_ = c.Error(err)
			return
		}

		page, err := h.service.List(c.Request.Context(), def, orgID, query.Request{
			PerPage: c.Query("perPage"),
			Page:    c.Query("page"),
			Filters: optionalQuery(c, "filters"),
			Sort:    optionalQuery(c, "sort"),
		})
		if err != nil {
			_ = c.Error(err)
			return
		}

		if fields := expandFields(c); len(fields) > 0 {
			page.Data, err = h.service.Expand(c.Request.Context(), def, orgID, page.Data, fields)
			if err != nil {
				_ = c.Error(err)
				return
			}
		}
		c.JSON(http.StatusOK, page)
	}
}

func (h *Handler) Get(def domain.EntityDefinition) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, id, ok := scopeAndID(c)
		if !ok {
			return
		}
		record, err := h.service.Get(c.Request.Context(), def, orgID, id)
		if err != nil {
			_ = c.Error(err)
			return
		}
		if fields := expandFields(c); len(fields) > 0 {
			expanded, err := h.service.Expand(c.Request.Context(), def, orgID, []domain.Record{record}, fields)
			if err != nil {
				_ = c.Error(err)
				return
			}
			record = expanded[0]
		}
		c.JSON(http.StatusOK, record)
	}
}

func (h *Handler) Create(def domain.EntityDefinition) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, err := auth.RequireOrganizationID(c.Request.Context())
		if err != nil {
			_ = c.Error(err)
			return
		}
		fields, ok := bindFields(c)
		if !ok {
			return
		}
		record, err := h.service.Create(c.Request.Context(), def, orgID, fields)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusCreated, record)
	}
}

// Update merges the body into the record for both PUT and PATCH.
func (h *Handler) Update(def domain.EntityDefinition) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, id, ok := scopeAndID(c)
		if !ok {
			return
		}
		fields, ok := bindFields(c)
		if !ok {
			return
		}
		record, err := h.service.Update(c.Request.Context(), def, orgID, id, fields)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, record)
	}
}

func (h *Handler) Delete(def domain.EntityDefinition) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, id, ok := scopeAndID(c)
		if !ok {
			return
		}
		ack, err := h.service.Delete(c.Request.Context(), def, orgID, id)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, ack)
	}
}

func scopeAndID(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	orgID, err := auth.RequireOrganizationID(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		_ = c.Error(apperr.InvalidInput("id must be a valid UUID", err))
		return uuid.Nil, uuid.Nil, false
	}
	return orgID, id, true
}

func bindFields(c *gin.Context) (map[string]any, bool) {
	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		_ = c.Error(apperr.InvalidInput("request body must be a JSON object", err))
		return nil, false
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, true
}

func expandFields(c *gin.Context) []string {
	var fields []string
	for _, raw := range c.QueryArray("expand") {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				fields = append(fields, part)
			}
		}
	}
	return fields
}

// optionalQuery returns nil for absent parameters so list defaults apply.
func optionalQuery(c *gin.Context, key string) any {
	if value, ok := c.GetQuery(key); ok {
		return value
	}
	return nil
}
