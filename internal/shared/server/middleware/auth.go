package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/shared/auth"
	"portfolio-backend/internal/shared/server/respond"
)

const (
	adminSubKey   = "adminSub"
	adminEmailKey = "adminEmail"
)

// RequireAdmin rejects requests without a valid admin bearer token.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		token, ok := strings.CutPrefix(header, "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			respond.Error(c, http.StatusUnauthorized, "Missing or invalid token", nil)
			return
		}

		claims, err := auth.VerifyJWT(token)
		if err != nil {
			respond.Error(c, http.StatusUnauthorized, "Missing or invalid token", nil)
			return
		}
		if !claims.IsAdmin() {
			respond.Error(c, http.StatusForbidden, "Admin access required", nil)
			return
		}

		c.Set(adminSubKey, claims.Sub)
		if claims.Email != "" {
			c.Set(adminEmailKey, claims.Email)
		}
		c.Next()
	}
}

// AdminSubFromContext fetches the subject set by RequireAdmin.
func AdminSubFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(adminSubKey)
}

// AdminEmailFromContext fetches the admin email set by RequireAdmin.
func AdminEmailFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(adminEmailKey)
}
