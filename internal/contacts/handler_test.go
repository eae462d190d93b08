package contacts

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type envelope struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Pagination *Pagination     `json:"pagination"`
	Errors     []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
}

func newTestRouter(t *testing.T) (*gin.Engine, *Service, *fakeClock) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc, clock, _ := newTestService(t)
	r := gin.New()
	api := r.Group("/api")
	NewHandler(svc).RegisterRoutes(api, api)
	return r, svc, clock
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.9:41000"
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	var env envelope
	if err := json.Unmarshal(resp.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: decode %q: %v", method, path, resp.Body.String(), err)
	}
	return resp, env
}

func TestContactEndToEnd(t *testing.T) {
	r, _, clock := newTestRouter(t)

	payload := `{"name":"Jane Doe","email":"jane@example.com","subject":"Project inquiry",` +
		`"message":"I would like to discuss a twenty-plus character web project with you soon.","budget":""}`
	resp, env := doJSON(t, r, http.MethodPost, "/api/contact", payload)
	if resp.Code != http.StatusCreated || !env.Success {
		t.Fatalf("submit: %d %+v", resp.Code, env)
	}
	if env.Message != "Message sent successfully! I'll get back to you soon." {
		t.Fatalf("unexpected message %q", env.Message)
	}
	var receipt Receipt
	if err := json.Unmarshal(env.Data, &receipt); err != nil || receipt.ID == "" {
		t.Fatalf("decode receipt: %v %s", err, env.Data)
	}

	resp, env = doJSON(t, r, http.MethodGet, "/api/contact?status=new", "")
	if resp.Code != http.StatusOK || env.Pagination == nil || env.Pagination.TotalContacts != 1 {
		t.Fatalf("list: %d %+v", resp.Code, env)
	}

	resp, env = doJSON(t, r, http.MethodGet, "/api/contact/"+receipt.ID, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("get: %d", resp.Code)
	}
	var fetched Contact
	_ = json.Unmarshal(env.Data, &fetched)
	if !fetched.IsRead || fetched.Status != StatusRead {
		t.Fatalf("expected contact marked read, got %+v", fetched)
	}

	clock.Advance(time.Minute)
	before := clock.Now()
	resp, env = doJSON(t, r, http.MethodPut, "/api/contact/"+receipt.ID,
		`{"status":"replied","reply":"Thanks, will follow up."}`)
	if resp.Code != http.StatusOK || env.Message != "Contact updated successfully" {
		t.Fatalf("update: %d %+v", resp.Code, env)
	}
	var updated Contact
	_ = json.Unmarshal(env.Data, &updated)
	if updated.Status != StatusReplied || updated.RepliedAt == nil || updated.RepliedAt.Before(before) {
		t.Fatalf("unexpected updated contact %+v", updated)
	}

	resp, env = doJSON(t, r, http.MethodGet, "/api/contact/stats", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("stats: %d", resp.Code)
	}
	var stats Stats
	_ = json.Unmarshal(env.Data, &stats)
	if len(stats.StatusCounts) != 1 || stats.StatusCounts[0].Value != "replied" {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestSubmitRateLimitedOverHTTP(t *testing.T) {
	r, _, _ := newTestRouter(t)

	for i := 0; i < 2; i++ {
		resp, _ := doJSON(t, r, http.MethodPost, "/api/contact", `{"name":"Jane Doe"}`)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("attempt %d: expected 400, got %d", i+1, resp.Code)
		}
	}
	resp, _ := doJSON(t, r, http.MethodPost, "/api/contact", `{not json`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: expected 400, got %d", resp.Code)
	}

	resp, env := doJSON(t, r, http.MethodPost, "/api/contact", `{"name":"Jane Doe"}`)
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.Code)
	}
	if env.Message != "Too many contact form submissions. Please try again later." {
		t.Fatalf("unexpected message %q", env.Message)
	}
	if resp.Header().Get("Retry-After") != "900" {
		t.Fatalf("expected Retry-After 900, got %q", resp.Header().Get("Retry-After"))
	}
}

func TestContactHandlerErrors(t *testing.T) {
	r, svc, _ := newTestRouter(t)
	svc.Limiter = nil
	receipt, err := submitFrom(svc, "192.0.2.1", validSubmission())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	tests := []struct {
		name    string
		method  string
		path    string
		body    string
		status  int
		message string
		field   string
	}{
		{name: "validation", method: http.MethodPost, path: "/api/contact", body: `{"name":"J","email":"x"}`, status: http.StatusBadRequest, message: "Validation errors", field: "name"},
		{name: "budget too large", method: http.MethodPost, path: "/api/contact", body: budgetPayload(`100000001`), status: http.StatusBadRequest, message: "Validation errors", field: "budget"},
		{name: "missing contact", method: http.MethodGet, path: "/api/contact/6f1c1e3a-8d4b-4f7e-9a53-0d1c2b3a4f5e", status: http.StatusNotFound, message: "Contact not found"},
		{name: "malformed id", method: http.MethodPut, path: "/api/contact/xyz", body: `{}`, status: http.StatusNotFound, message: "Contact not found"},
		{name: "bad transition", method: http.MethodPut, path: "/api/contact/" + receipt.ID, body: `{"status":"replied"}`, status: http.StatusBadRequest, message: "Validation errors", field: "status"},
		{name: "bad priority", method: http.MethodPut, path: "/api/contact/" + receipt.ID, body: `{"priority":"meh"}`, status: http.StatusBadRequest, message: "Validation errors", field: "priority"},
		{name: "bad page", method: http.MethodGet, path: "/api/contact?page=zero", status: http.StatusBadRequest, message: "Validation errors", field: "page"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, env := doJSON(t, r, tt.method, tt.path, tt.body)
			if resp.Code != tt.status || env.Message != tt.message {
				t.Fatalf("got %d %q, want %d %q", resp.Code, env.Message, tt.status, tt.message)
			}
			if tt.field != "" && (len(env.Errors) == 0 || env.Errors[0].Field != tt.field) {
				t.Fatalf("expected first error on %s, got %+v", tt.field, env.Errors)
			}
		})
	}
}

func TestListHugePageOverHTTP(t *testing.T) {
	r, svc, _ := newTestRouter(t)
	if _, err := submitFrom(svc, "192.0.2.2", validSubmission()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	resp, env := doJSON(t, r, http.MethodGet, "/api/contact?page=9223372036854775807", "")
	if resp.Code != http.StatusOK || !env.Success {
		t.Fatalf("list: %d %+v", resp.Code, env)
	}
	if string(env.Data) != "[]" || env.Pagination == nil || env.Pagination.TotalContacts != 1 {
		t.Fatalf("expected empty page over 1 contact, got %s %+v", env.Data, env.Pagination)
	}
}

func budgetPayload(budget string) string {
	var buf bytes.Buffer
	buf.WriteString(`{"name":"Jane Doe","email":"jane@example.com","subject":"Project inquiry",`)
	buf.WriteString(`"message":"Twenty characters at the very least.","budget":`)
	buf.WriteString(budget)
	buf.WriteString(`}`)
	return buf.String()
}
