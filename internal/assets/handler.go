package assets

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/shared/server/middleware"
	"portfolio-backend/internal/shared/server/respond"
	"portfolio-backend/internal/shared/telemetry"
	"portfolio-backend/internal/shared/util"
)

// multipartSlack covers boundaries, part headers and small extra fields.
const multipartSlack = 64 << 10

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches public retrieval and admin mutation routes.
func (h *Handler) RegisterRoutes(public, admin *gin.RouterGroup) {
	public.GET("/profile/image", h.serve(KindImage))
	public.GET("/profile/resume", h.serve(KindResume))
	admin.POST("/profile/upload/image", h.upload(KindImage, "profileImage"))
	admin.POST("/profile/upload/resume", h.upload(KindResume, "resume"))
	admin.DELETE("/profile/file/:type", h.delete)
}

var uploadMessages = map[Kind]struct {
	ok, invalidType, failed string
}{
	KindImage:  {"Profile image uploaded successfully", "Only image files are allowed for profile image", "Server error while uploading image"},
	KindResume: {"Resume uploaded successfully", "Only PDF files are allowed for resume", "Server error while uploading resume"},
}

// upload streams the named multipart part straight into the service. Other
// parts are skipped, and the body is capped so an oversized request is cut
// off mid-stream.
func (h *Handler) upload(kind Kind, field string) gin.HandlerFunc {
	msgs := uploadMessages[kind]
	return func(c *gin.Context) {
		c.Set(middleware.LogKeyAssetKind, string(kind))
		limit := h.Svc.Limits.For(kind)
		if c.Request.ContentLength > limit+multipartSlack {
			h.uploadError(c, kind, ErrFileTooLarge, msgs.invalidType, msgs.failed)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartSlack)

		mr, err := c.Request.MultipartReader()
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "No file uploaded", nil)
			return
		}

		for {
			part, err := mr.NextPart()
			if errors.Is(err, io.EOF) {
				h.uploadError(c, kind, ErrNoFile, msgs.invalidType, msgs.failed)
				return
			}
			if err != nil {
				h.uploadError(c, kind, err, msgs.invalidType, msgs.failed)
				return
			}
			if part.FormName() != field || part.FileName() == "" {
				part.Close()
				continue
			}

			res, err := h.Svc.Upload(c.Request.Context(), UploadInput{
				Kind:        kind,
				Filename:    part.FileName(),
				ContentType: part.Header.Get("Content-Type"),
				Size:        -1,
				Body:        part,
			})
			part.Close()
			if err != nil {
				h.uploadError(c, kind, err, msgs.invalidType, msgs.failed)
				return
			}
			respond.OKMessage(c, msgs.ok, gin.H{
				"reference":  res.Reference,
				"storedName": res.StoredName,
			})
			return
		}
	}
}

func (h *Handler) uploadError(c *gin.Context, kind Kind, err error, invalidType, failed string) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, ErrNoFile):
		respond.Error(c, http.StatusBadRequest, "No file uploaded", nil)
	case errors.Is(err, ErrInvalidFileType):
		respond.Error(c, http.StatusBadRequest, invalidType, nil)
	case errors.Is(err, ErrFileTooLarge), errors.As(err, &maxErr):
		respond.Error(c, http.StatusRequestEntityTooLarge, "File too large. Maximum size is "+humanSize(h.Svc.Limits.For(kind)), nil)
	default:
		telemetry.Error("asset.upload_failed", map[string]any{
			"assetKind":  string(kind),
			"request_id": middleware.RequestIDFromContext(c),
			"error":      err,
		})
		respond.Error(c, http.StatusInternalServerError, failed, nil)
	}
}

func (h *Handler) delete(c *gin.Context) {
	kind, ok := ParseKind(c.Param("type"))
	if !ok {
		respond.Error(c, http.StatusBadRequest, `Invalid file type. Must be "image" or "resume"`, nil)
		return
	}
	c.Set(middleware.LogKeyAssetKind, string(kind))

	if err := h.Svc.Delete(c.Request.Context(), kind); err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, fmt.Sprintf("No %s found to delete", kind), nil)
			return
		}
		telemetry.Error("asset.delete_failed", map[string]any{"assetKind": string(kind), "error": err})
		respond.Error(c, http.StatusInternalServerError, "Server error while deleting file", nil)
		return
	}
	if kind == KindImage {
		respond.Message(c, "Image deleted successfully")
		return
	}
	respond.Message(c, "Resume deleted successfully")
}

func (h *Handler) serve(kind Kind) gin.HandlerFunc {
	notFound := "Profile image not found"
	if kind == KindResume {
		notFound = "Resume not found"
	}
	return func(c *gin.Context) {
		c.Set(middleware.LogKeyAssetKind, string(kind))
		rc, asset, err := h.Svc.Open(c.Request.Context(), kind)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				respond.Error(c, http.StatusNotFound, notFound, nil)
				return
			}
			telemetry.Error("asset.open_failed", map[string]any{"assetKind": string(kind), "error": err})
			respond.Error(c, http.StatusInternalServerError, "Server error while fetching file", nil)
			return
		}
		defer rc.Close()

		headers := map[string]string{
			"Cache-Control": "public, max-age=3600",
			"ETag":          strconv.Quote(asset.StoredName()),
		}
		if kind == KindResume {
			name := util.SanitizeFileName(asset.OriginalName)
			if name == "" {
				name = "resume.pdf"
			}
			headers["Content-Disposition"] = mime.FormatMediaType("inline", map[string]string{"filename": name})
		}
		size := asset.SizeBytes
		if size <= 0 {
			size = -1
		}
		c.DataFromReader(http.StatusOK, size, asset.MimeType, rc, headers)
	}
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%dMB", n>>20)
	case n >= 1<<10:
		return fmt.Sprintf("%dKB", n>>10)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}
