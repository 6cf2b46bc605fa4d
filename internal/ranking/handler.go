package ranking

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"resume-ranker/internal/profiles"
	"resume-ranker/internal/shared/server/middleware"
	"resume-ranker/internal/shared/server/respond"
)

const (
	defaultMaxFiles       = 50
	defaultMaxUploadBytes = 25 << 20
	upgradeHint           = "Upgrade to Pro for unlimited resume analysis."
)

// Handler wires ranking HTTP handlers to the service.
type Handler struct {
	Svc            *Service
	MaxFiles       int
	MaxUploadBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, maxFiles int, maxUploadBytes int64) *Handler {
	if maxFiles <= 0 {
		maxFiles = defaultMaxFiles
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{Svc: svc, MaxFiles: maxFiles, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches the rank route. It is registered separately so the
// router can put it behind its own rate limit group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/rank", h.rank)
}

// RegisterHistoryRoutes attaches session history and download routes.
func (h *Handler) RegisterHistoryRoutes(rg *gin.RouterGroup) {
	rg.GET("/sessions", h.listSessions)
	rg.GET("/sessions/:id", h.getSession)
	rg.POST("/resume-download", h.download)
}

func (h *Handler) rank(c *gin.Context) {
	userID := middleware.AuthenticatedUserID(c)
	if _, err := h.Svc.Precheck(c.Request.Context(), userID); err != nil {
		writeError(c, err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", "Upload too large", gin.H{"maxBytes": h.MaxUploadBytes})
			return
		}
		writeError(c, ErrBadRequest)
		return
	}
	defer func() { _ = form.RemoveAll() }()

	headers := form.File["resumes"]
	if len(headers) > h.MaxFiles {
		respond.ErrorWithMessage(c, http.StatusBadRequest, "too_many_files", "Too many files",
			"At most "+strconv.Itoa(h.MaxFiles)+" resumes can be ranked at once.")
		return
	}

	files := make([]Upload, 0, len(headers))
	for _, fh := range headers {
		data, err := readFormFile(fh)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", gin.H{"file": fh.Filename})
			return
		}
		files = append(files, Upload{
			FileName: fh.Filename,
			MimeType: fh.Header.Get("Content-Type"),
			Data:     data,
		})
	}
	c.Set("fileCount", len(files))

	// Only an absent or empty field is missing; whitespace is kept as sent.
	var jd string
	if vals := form.Value["jobDescription"]; len(vals) > 0 {
		jd = vals[0]
	}

	res, err := h.Svc.Rank(c.Request.Context(), RankRequest{
		UserID:         userID,
		JobDescription: jd,
		Files:          files,
		RequestID:      middleware.RequestIDFromContext(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("sessionId", res.SessionID)
	respond.OK(c, res)
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (h *Handler) listSessions(c *gin.Context) {
	userID := middleware.AuthenticatedUserID(c)
	if userID == "" {
		writeError(c, ErrUnauthenticated)
		return
	}

	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	sessions, err := h.Svc.ListSessions(c.Request.Context(), userID, limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"items": sessions, "limit": limit, "offset": offset})
}

func (h *Handler) getSession(c *gin.Context) {
	userID := middleware.AuthenticatedUserID(c)
	if userID == "" {
		writeError(c, ErrUnauthenticated)
		return
	}
	session, err := h.Svc.GetSession(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if session.Results == nil {
		session.Results = []ResultRow{}
	}
	c.Set("sessionId", session.ID)
	respond.OK(c, session)
}

type downloadRequest struct {
	Path string `json:"path"`
}

func (h *Handler) download(c *gin.Context) {
	userID := middleware.AuthenticatedUserID(c)
	if userID == "" {
		writeError(c, ErrUnauthenticated)
		return
	}
	var req downloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, ErrMissingPath)
		return
	}
	url, err := h.Svc.DownloadURL(c.Request.Context(), userID, req.Path)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"url": url})
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		respond.Error(c, http.StatusUnauthorized, "unauthenticated", "Not authenticated", nil)
	case errors.Is(err, ErrProfileNotFound), errors.Is(err, profiles.ErrNotFound):
		respond.Error(c, http.StatusBadRequest, "profile_not_found", "User profile not found", nil)
	case errors.Is(err, profiles.ErrSubscriptionInactive):
		respond.Error(c, http.StatusPaymentRequired, "subscription_inactive", "Your subscription is inactive. Please upgrade.", nil)
	case errors.Is(err, profiles.ErrFreeLimitReached):
		respond.ErrorWithMessage(c, http.StatusPaymentRequired, "free_limit_reached", "Free-tier limit reached", upgradeHint)
	case errors.Is(err, ErrBadRequest):
		respond.Error(c, http.StatusBadRequest, "validation_error", "Missing job description or files", nil)
	case errors.Is(err, ErrPersistence):
		respond.Error(c, http.StatusInternalServerError, "persistence_error", "Failed to save ranking session", nil)
	case errors.Is(err, ErrSessionNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "Ranking session not found", nil)
	case errors.Is(err, ErrMissingPath):
		respond.Error(c, http.StatusBadRequest, "validation_error", "Missing file path", nil)
	case errors.Is(err, ErrForbiddenPath):
		respond.Error(c, http.StatusForbidden, "forbidden", "File not accessible", nil)
	case errors.Is(err, ErrStoreUnavailable):
		respond.Error(c, http.StatusServiceUnavailable, "storage_unavailable", "Failed to generate signed URL", nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respond.Error(c, http.StatusRequestTimeout, "timeout", "Request canceled", nil)
	case errors.Is(err, ErrSigning):
		respond.Error(c, http.StatusInternalServerError, "signing_failed", "Failed to generate signed URL", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal", "Internal error", nil)
	}
}
