package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/RockaiDev/bariqe-dashboard/internal/apperr"
	"github.com/RockaiDev/bariqe-dashboard/internal/logging"
)

// errorResponse is the body of every failed API call.
type errorResponse struct {
	Error   apperr.Kind    `json:"error"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// renderErrors turns the last error a handler attached into a JSON response.
func renderErrors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		appErr := apperr.As(c.Errors.Last().Err)
		status := appErr.HTTPStatusCode()
		logger := logging.FromContext(c.Request.Context())
		fields := []zap.Field{
			zap.String("kind", string(appErr.Kind())),
			zap.Int("status", status),
			zap.Error(appErr),
		}
		if status >= http.StatusInternalServerError {
			logger.Error("request failed", fields...)
		} else {
			logger.Debug("request rejected", fields...)
		}

		public := appErr.PublicErrorDetail()
		c.AbortWithStatusJSON(status, errorResponse{
			Error:   appErr.Kind(),
			Message: public.Message,
			Data:    public.Data,
		})
	}
}

func notFound(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusNotFound, errorResponse{
		Error:   apperr.KindNotFound,
		Message: "route not found",
	})
}
