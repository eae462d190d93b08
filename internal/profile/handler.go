package profile

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/shared/server/respond"
	"portfolio-backend/internal/shared/telemetry"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches the public reads and the admin save.
func (h *Handler) RegisterRoutes(public, admin *gin.RouterGroup) {
	public.GET("/profile", h.get)
	public.GET("/profile/summary", h.summary)
	admin.POST("/profile", h.save)
	admin.PUT("/profile", h.save)
}

func (h *Handler) get(c *gin.Context) {
	p, err := h.Svc.Get(c.Request.Context())
	if err != nil {
		h.readError(c, err, "Profile not found", "Server error while fetching profile")
		return
	}
	respond.OK(c, toView(p))
}

func (h *Handler) summary(c *gin.Context) {
	p, err := h.Svc.Get(c.Request.Context())
	if err != nil {
		h.readError(c, err, "Profile summary not found", "Server error while fetching profile summary")
		return
	}
	respond.OK(c, toSummary(p))
}

func (h *Handler) readError(c *gin.Context, err error, notFound, failed string) {
	if errors.Is(err, ErrNotFound) {
		respond.Error(c, http.StatusNotFound, notFound, nil)
		return
	}
	telemetry.Error("profile.read_failed", map[string]any{"error": err})
	respond.Error(c, http.StatusInternalServerError, failed, nil)
}

func (h *Handler) save(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	p, created, err := h.Svc.Save(c.Request.Context(), in)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			respond.Error(c, http.StatusBadRequest, "Validation errors", verr.Fields)
			return
		}
		telemetry.Error("profile.save_failed", map[string]any{"error": err})
		respond.Error(c, http.StatusInternalServerError, "Server error while processing profile", nil)
		return
	}

	msg := "Profile updated successfully"
	if created {
		msg = "Profile created successfully"
	}
	respond.OKMessage(c, msg, toView(p))
}
