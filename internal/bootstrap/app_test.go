package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/notify"
	sharedauth "portfolio-backend/internal/shared/auth"
	"portfolio-backend/internal/shared/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Env:               "dev",
		ObjectStoreType:   "local",
		LocalStoreDir:     t.TempDir(),
		ContactRateLimit:  3,
		ContactRateWindow: 15 * time.Minute,
		APIRateLimit:      100,
		APIRateWindow:     15 * time.Minute,
		NotifyTransport:   "log",
		NotifyTimeout:     time.Second,
		AdminNotifyEmail:  "owner@example.com",
		MailFrom:          "site@example.com",
		AdminEmails:       []string{"owner@example.com"},
	}
}

func adminToken(t *testing.T) string {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	token, err := sharedauth.SignJWT(sharedauth.Claims{Sub: "google:1", Email: "owner@example.com", Role: sharedauth.RoleAdmin})
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}
	return token
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestBuildWiresMemoryBackedApp(t *testing.T) {
	gin.SetMode(gin.TestMode)
	app, err := Build(testConfig(t))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer app.Close(context.Background())

	if app.DB != nil {
		t.Fatalf("expected memory repositories without DATABASE_URL")
	}
	if _, ok := app.Dispatcher.(*notify.AsyncDispatcher); !ok {
		t.Fatalf("expected async dispatcher, got %T", app.Dispatcher)
	}
	token := adminToken(t)

	rec := serve(app.Router, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"OK"`) {
		t.Fatalf("health: %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(app.Router, httptest.NewRequest(http.MethodGet, "/api/nowhere", nil))
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "Route not found") {
		t.Fatalf("no route: %d %s", rec.Code, rec.Body.String())
	}

	payload := `{"name":"Jane Doe","email":"jane@example.com","subject":"Hello there","message":"I would like to talk about a project."}`
	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec = serve(app.Router, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit: %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(app.Router, httptest.NewRequest(http.MethodGet, "/api/contact", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("list without token: %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/contact", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = serve(app.Router, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d %s", rec.Code, rec.Body.String())
	}
	var list struct {
		Data       []map[string]any `json:"data"`
		Pagination map[string]int   `json:"pagination"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Data) != 1 || list.Pagination["totalContacts"] != 1 {
		t.Fatalf("unexpected list %s", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = serve(app.Router, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "owner@example.com") {
		t.Fatalf("me: %d %s", rec.Code, rec.Body.String())
	}

	if err := app.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestBuildServesUploadedImage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	app, err := Build(testConfig(t))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer app.Close(context.Background())

	png := append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00"), make([]byte, 32)...)
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="profileImage"; filename="me.png"`)
	h.Set("Content-Type", "image/png")
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write(png)
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/profile/upload/image", bytes.NewReader(body.Bytes()))
	req.Header.Set("Content-Type", w.FormDataContentType())
	if rec := serve(app.Router, req); rec.Code != http.StatusUnauthorized {
		t.Fatalf("upload without token: %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/profile/upload/image", bytes.NewReader(body.Bytes()))
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+adminToken(t))
	if rec := serve(app.Router, req); rec.Code != http.StatusOK {
		t.Fatalf("upload: %d %s", rec.Code, rec.Body.String())
	}

	rec := serve(app.Router, httptest.NewRequest(http.MethodGet, "/api/profile/image", nil))
	if rec.Code != http.StatusOK || !bytes.Equal(rec.Body.Bytes(), png) {
		t.Fatalf("serve image: %d (%d bytes)", rec.Code, rec.Body.Len())
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("security headers missing: %q", got)
	}
}

func TestBuildRequiresDatabaseOutsideDev(t *testing.T) {
	cfg := testConfig(t)
	cfg.Env = "production"
	if _, err := Build(cfg); err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected DATABASE_URL error, got %v", err)
	}

	cfg = testConfig(t)
	cfg.NotifyTransport = "smtp"
	cfg.MailFrom = ""
	if _, err := Build(cfg); err == nil || !strings.Contains(err.Error(), "MAIL_FROM") {
		t.Fatalf("expected MAIL_FROM error, got %v", err)
	}
}
