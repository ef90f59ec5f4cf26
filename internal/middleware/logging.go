package middleware

import (
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/rs/xid"
	"go.uber.org/zap"

	"github.com/RockaiDev/bariqe-dashboard/internal/logging"
)

// RequestIDHeader carries the id assigned to every request.
const RequestIDHeader = "X-Request-ID"

// AccessLog logs every request as a combined access and error log, and logs
// panics with their stack.
func AccessLog(logger *zap.Logger) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		ginzap.Ginzap(logger, time.RFC3339, true),
		ginzap.RecoveryWithZap(logger, true),
	}
}

// RequestLogger attaches a request scoped logger to the request context.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = xid.New().String()
		}
		c.Header(RequestIDHeader, requestID)

		scoped := logger.With(
			zap.String("requestId", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		c.Request = c.Request.WithContext(logging.NewContextWithLogger(c.Request.Context(), scoped))
		c.Next()
	}
}
