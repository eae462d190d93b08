package contacts

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/shared/server/middleware"
	"portfolio-backend/internal/shared/server/respond"
	"portfolio-backend/internal/shared/telemetry"
)

const rateLimitMessage = "Too many contact form submissions. Please try again later."

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches the public submit and the admin endpoints.
func (h *Handler) RegisterRoutes(public, admin *gin.RouterGroup) {
	public.POST("/contact", h.submit)
	admin.GET("/contact", h.list)
	admin.GET("/contact/stats", h.stats)
	admin.GET("/contact/:id", h.get)
	admin.PUT("/contact/:id", h.update)
}

func (h *Handler) submit(c *gin.Context) {
	var payload Submission
	if err := c.ShouldBindJSON(&payload); err != nil {
		// A malformed body still costs the caller an attempt.
		if err := h.Svc.Admit(c.ClientIP()); err != nil {
			h.rateLimited(c, err)
			return
		}
		respond.Error(c, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	receipt, err := h.Svc.Submit(c.Request.Context(), SubmitInput{
		Payload:    payload,
		SourceAddr: c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	})
	if err != nil {
		var verr *ValidationError
		switch {
		case errors.Is(err, ErrRateLimited):
			h.rateLimited(c, err)
		case errors.As(err, &verr):
			respond.Error(c, http.StatusBadRequest, "Validation errors", verr.Fields)
		default:
			telemetry.Error("contact.submit_failed", map[string]any{
				"error":      err,
				"request_id": middleware.RequestIDFromContext(c),
			})
			respond.Error(c, http.StatusInternalServerError, "Server error while submitting form", nil)
		}
		return
	}

	c.Set(middleware.LogKeyContactID, receipt.ID)
	respond.Created(c, "Message sent successfully! I'll get back to you soon.", receipt)
}

func (h *Handler) rateLimited(c *gin.Context, err error) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		c.Header("Retry-After", middleware.RetryAfterSeconds(rl.RetryAfter))
	}
	respond.Error(c, http.StatusTooManyRequests, rateLimitMessage, nil)
}

func (h *Handler) list(c *gin.Context) {
	opts := ListOptions{
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
		SortBy:   c.Query("sortBy"),
	}
	var fields []respond.FieldError
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			fields = append(fields, respond.FieldError{Field: "page", Message: "Page must be a positive integer"})
		}
		opts.Page = n
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			fields = append(fields, respond.FieldError{Field: "limit", Message: "Limit must be a positive integer"})
		}
		opts.Limit = n
	}
	if len(fields) > 0 {
		respond.Error(c, http.StatusBadRequest, "Validation errors", fields)
		return
	}

	page, err := h.Svc.List(c.Request.Context(), opts)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			respond.Error(c, http.StatusBadRequest, "Validation errors", verr.Fields)
			return
		}
		telemetry.Error("contact.list_failed", map[string]any{"error": err})
		respond.Error(c, http.StatusInternalServerError, "Server error while fetching contacts", nil)
		return
	}
	respond.Paged(c, page.Items, page.Pagination)
}

func (h *Handler) stats(c *gin.Context) {
	stats, err := h.Svc.Stats(c.Request.Context())
	if err != nil {
		telemetry.Error("contact.stats_failed", map[string]any{"error": err})
		respond.Error(c, http.StatusInternalServerError, "Server error while fetching statistics", nil)
		return
	}
	respond.OK(c, stats)
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.LogKeyContactID, id)
	contact, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "Contact not found", nil)
			return
		}
		telemetry.Error("contact.get_failed", map[string]any{"error": err, "contact_id": id})
		respond.Error(c, http.StatusInternalServerError, "Server error while fetching contact", nil)
		return
	}
	respond.OK(c, contact)
}

func (h *Handler) update(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.LogKeyContactID, id)

	var in UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	contact, err := h.Svc.Update(c.Request.Context(), id, in)
	if err != nil {
		var (
			verr *ValidationError
			terr *TransitionError
		)
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "Contact not found", nil)
		case errors.As(err, &verr):
			respond.Error(c, http.StatusBadRequest, "Validation errors", verr.Fields)
		case errors.As(err, &terr):
			respond.Error(c, http.StatusBadRequest, "Validation errors", []respond.FieldError{{
				Field:   "status",
				Message: "Cannot change status from " + string(terr.From) + " to " + string(terr.To),
			}})
		default:
			telemetry.Error("contact.update_failed", map[string]any{"error": err, "contact_id": id})
			respond.Error(c, http.StatusInternalServerError, "Server error while updating contact", nil)
		}
		return
	}
	respond.OKMessage(c, "Contact updated successfully", contact)
}
