package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/shared/auth"
)

func newAdminRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequireAdmin())
	router.GET("/api/contact", func(c *gin.Context) {
		c.String(http.StatusOK, AdminSubFromContext(c))
	})
	router.OPTIONS("/api/contact", func(c *gin.Context) {})
	return router
}

func TestRequireAdminAllowsOptionsWithoutToken(t *testing.T) {
	router := newAdminRouter()

	req := httptest.NewRequest(http.MethodOptions, "/api/contact", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	adminToken, err := auth.SignJWT(auth.Claims{Sub: "google:1", Role: auth.RoleAdmin})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	viewerToken, err := auth.SignJWT(auth.Claims{Sub: "google:2"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer not-a-token", want: http.StatusUnauthorized},
		{name: "not admin", header: "Bearer " + viewerToken, want: http.StatusForbidden},
		{name: "admin", header: "Bearer " + adminToken, want: http.StatusOK},
	}

	router := newAdminRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/contact", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)
			if resp.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, resp.Code)
			}
			if tt.want == http.StatusOK && resp.Body.String() != "google:1" {
				t.Fatalf("expected admin sub in context, got %q", resp.Body.String())
			}
		})
	}
}
