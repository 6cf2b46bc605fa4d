package render

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-ranker/internal/shared/server/middleware"
	"resume-ranker/internal/shared/server/respond"
	"resume-ranker/internal/shared/telemetry"
)

const defaultMaxContentBytes = 1 << 20

// Handler serves document downloads built from edited resume text.
type Handler struct {
	MaxContentBytes int64
}

// NewHandler constructs a Handler with the default body limit.
func NewHandler() *Handler {
	return &Handler{MaxContentBytes: defaultMaxContentBytes}
}

// RegisterRoutes attaches the download route to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/ai/download-docs", h.downloadDocs)
}

type downloadRequest struct {
	Content  string `json:"content"`
	Filename string `json:"filename"`
}

func (h *Handler) downloadDocs(c *gin.Context) {
	if h.MaxContentBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxContentBytes)
	}
	var req downloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", "Resume content is too large", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid json body", nil)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Missing resume content", nil)
		return
	}

	data, err := RenderText(req.Content)
	if err != nil {
		telemetry.Error("render.docx_failed", map[string]any{
			"request_id": middleware.RequestIDFromContext(c),
			"error":      err.Error(),
		})
		respond.Error(c, http.StatusInternalServerError, "render_error", "Failed to generate DOCX", nil)
		return
	}
	respond.Attachment(c, ContentType, DownloadName(req.Filename), data)
}
