package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"resume-ranker/internal/shared/server/middleware"
	"resume-ranker/internal/shared/server/respond"
	"resume-ranker/internal/shared/telemetry"
)

const defaultSummaryTimeout = 60 * time.Second

// Handler serves AI-assisted summaries and rewrites.
type Handler struct {
	Completer Completer
	// Timeout bounds each completion call.
	Timeout time.Duration
}

// NewHandler constructs a Handler. A nil completer behaves as unconfigured.
func NewHandler(c Completer) *Handler {
	if c == nil {
		c = PlaceholderClient{}
	}
	return &Handler{Completer: c, Timeout: defaultSummaryTimeout}
}

// RegisterRoutes attaches AI routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/ai/candidate-summary", h.candidateSummary)
	rg.POST("/ai/recruiter-summary", h.recruiterSummary)
	rg.POST("/ai/summary", h.screeningSummary)
	rg.POST("/ai/rewrite-jd", h.rewriteJD)
	rg.POST("/ai/rewrite-resume", h.rewriteResume)
	rg.POST("/ai/boost-resume", h.boostResume)
	rg.POST("/ai/improve-score", h.improveScore)
	rg.POST("/ai/boost-to-80", h.boostToTarget)
}

type candidateSummaryRequest struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// resumeRequest accepts both field names used by clients for the resume body.
type resumeRequest struct {
	Resume          string   `json:"resume"`
	ResumeText      string   `json:"resumeText"`
	JD              string   `json:"jd"`
	MissingKeywords []string `json:"missingKeywords"`
}

func (r resumeRequest) resume() string {
	if strings.TrimSpace(r.Resume) != "" {
		return r.Resume
	}
	return r.ResumeText
}

type jdRequest struct {
	JD string `json:"jd"`
}

func (h *Handler) candidateSummary(c *gin.Context) {
	var req candidateSummaryRequest
	if !h.bind(c, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Missing resume text", nil)
		return
	}
	if out, ok := h.complete(c, CandidateSummaryPrompt(req.Text, req.Score), "Summary failed"); ok {
		respond.OK(c, gin.H{"summary": out})
	}
}

func (h *Handler) recruiterSummary(c *gin.Context) {
	var req resumeRequest
	if !h.bind(c, &req) {
		return
	}
	if strings.TrimSpace(req.resume()) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Missing resume text", nil)
		return
	}
	if out, ok := h.complete(c, RecruiterSummaryPrompt(req.resume()), "Failed to summarize"); ok {
		respond.OK(c, gin.H{"summary": out})
	}
}

func (h *Handler) screeningSummary(c *gin.Context) {
	var req resumeRequest
	if !h.bind(c, &req) {
		return
	}
	if strings.TrimSpace(req.resume()) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Missing resume text", nil)
		return
	}
	if out, ok := h.complete(c, ScreeningSummaryPrompt(req.resume()), "Summary failed"); ok {
		respond.OK(c, gin.H{"text": out})
	}
}

func (h *Handler) rewriteJD(c *gin.Context) {
	var req jdRequest
	if !h.bind(c, &req) {
		return
	}
	if strings.TrimSpace(req.JD) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Missing job description", nil)
		return
	}
	if out, ok := h.complete(c, RewriteJDPrompt(req.JD), "Rewrite failed"); ok {
		respond.OK(c, gin.H{"text": out})
	}
}

func (h *Handler) rewriteResume(c *gin.Context) {
	var req resumeRequest
	if !h.bind(c, &req) {
		return
	}
	if strings.TrimSpace(req.resume()) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Missing resume text", gin.H{"text": ""})
		return
	}
	if out, ok := h.complete(c, RewriteResumePrompt(req.resume(), req.JD), "Rewrite failed"); ok {
		respond.OK(c, gin.H{"text": strings.TrimSpace(out)})
	}
}

func (h *Handler) boostResume(c *gin.Context) {
	var req resumeRequest
	if !h.bind(c, &req) {
		return
	}
	if strings.TrimSpace(req.resume()) == "" || strings.TrimSpace(req.JD) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Missing resume or job description", nil)
		return
	}
	if out, ok := h.complete(c, BoostResumePrompt(req.resume(), req.JD), "Boost failed"); ok {
		respond.OK(c, gin.H{"text": out})
	}
}

func (h *Handler) improveScore(c *gin.Context) {
	var req resumeRequest
	if !h.bind(c, &req) {
		return
	}
	if strings.TrimSpace(req.resume()) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Missing resume text", nil)
		return
	}
	if out, ok := h.complete(c, ImproveScorePrompt(req.resume(), req.MissingKeywords), "Failed to improve score"); ok {
		respond.OK(c, gin.H{"improved": out})
	}
}

func (h *Handler) boostToTarget(c *gin.Context) {
	var req resumeRequest
	if !h.bind(c, &req) {
		return
	}
	if strings.TrimSpace(req.resume()) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Missing resume text", gin.H{"text": ""})
		return
	}

	res, err := Boost(c.Request.Context(), h.timed(), req.resume(), req.JD)
	if err != nil {
		h.writeError(c, err, "Boost failed")
		return
	}
	respond.OK(c, res)
}

// bind rejects guests and decodes the JSON body into dst.
func (h *Handler) bind(c *gin.Context, dst any) bool {
	if middleware.AuthenticatedUserID(c) == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthenticated", "Not authenticated", nil)
		return false
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid json body", nil)
		return false
	}
	return true
}

func (h *Handler) complete(c *gin.Context, prompt, failMsg string) (string, bool) {
	out, err := h.timed().Complete(c.Request.Context(), prompt)
	if err != nil {
		h.writeError(c, err, failMsg)
		return "", false
	}
	return out, true
}

// timed wraps the completer so every call gets its own deadline.
func (h *Handler) timed() Completer {
	return timeoutCompleter{next: h.Completer, timeout: h.Timeout}
}

func (h *Handler) writeError(c *gin.Context, err error, failMsg string) {
	switch {
	case errors.Is(err, ErrNotConfigured):
		respond.Error(c, http.StatusServiceUnavailable, "llm_not_configured", "AI is not configured", nil)
	case errors.Is(err, context.DeadlineExceeded):
		respond.Error(c, http.StatusGatewayTimeout, "llm_timeout", "AI request timed out", nil)
	default:
		telemetry.Error("llm.request_failed", map[string]any{
			"request_id": middleware.RequestIDFromContext(c),
			"path":       c.FullPath(),
			"error":      err.Error(),
		})
		respond.Error(c, http.StatusInternalServerError, "llm_error", failMsg, nil)
	}
}

type timeoutCompleter struct {
	next    Completer
	timeout time.Duration
}

func (t timeoutCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	return t.next.Complete(ctx, prompt)
}
