package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/shared/server/respond"
	"portfolio-backend/internal/shared/telemetry"
)

// SecurityHeaders sets conservative browser hardening headers.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "SAMEORIGIN")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cross-Origin-Resource-Policy", "cross-origin")
		h.Set("X-DNS-Prefetch-Control", "off")
		h.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
		c.Next()
	}
}

// Ensurer is a storage handle that can confirm it is usable.
type Ensurer interface {
	Ensure(ctx context.Context) error
}

// RequireStore answers 503 when the storage handle cannot be brought up.
// A nil handle means storage is in-process and always available.
func RequireStore(store Ensurer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil {
			c.Next()
			return
		}
		if err := store.Ensure(c.Request.Context()); err != nil {
			telemetry.Error("db.ensure_failed", map[string]any{
				"request_id": RequestIDFromContext(c),
				"error":      err.Error(),
			})
			respond.Error(c, http.StatusServiceUnavailable, "Database connection unavailable", nil)
			return
		}
		c.Next()
	}
}
