package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/shared/telemetry"
)

// Context keys handlers may set to enrich the request log line.
const (
	LogKeyContactID = "contactId"
	LogKeyAssetKind = "assetKind"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       c.FullPath(),
			"status":      c.Writer.Status(),
			"bytes":       c.Writer.Size(),
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		if sub := c.GetString(adminSubKey); sub != "" {
			fields["admin_sub"] = sub
		}
		if id := c.GetString(LogKeyContactID); id != "" {
			fields["contact_id"] = id
		}
		if kind := c.GetString(LogKeyAssetKind); kind != "" {
			fields["asset_kind"] = kind
		}
		telemetry.Info("request.complete", fields)
	}
}
