package server

import (
	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/shared/server/middleware"
	"portfolio-backend/internal/shared/server/respond"
)

// registerMeRoutes attaches GET /auth/me so the dashboard can check a token.
func registerMeRoutes(admin *gin.RouterGroup) {
	admin.GET("/auth/me", meHandler)
}

func meHandler(c *gin.Context) {
	response := gin.H{
		"sub":  middleware.AdminSubFromContext(c),
		"role": "admin",
	}
	if email := middleware.AdminEmailFromContext(c); email != "" {
		response["email"] = email
	}
	respond.OK(c, response)
}
