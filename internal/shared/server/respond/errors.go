package respond

import (
	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/shared/telemetry"
)

// Error logs and sends a failure envelope. fields may be nil.
func Error(c *gin.Context, status int, message string, fields []FieldError) {
	logFields := map[string]any{
		"status":     status,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if sub := c.GetString("adminSub"); sub != "" {
		logFields["admin_sub"] = sub
	}
	if len(fields) > 0 {
		logFields["field_errors"] = len(fields)
	}
	if status >= 500 {
		telemetry.Error("http.error", logFields)
	} else {
		telemetry.Warn("http.error", logFields)
	}

	c.AbortWithStatusJSON(status, Envelope{
		Success: false,
		Message: message,
		Errors:  fields,
	})
}
