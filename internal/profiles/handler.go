package profiles

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-ranker/internal/shared/server/middleware"
	"resume-ranker/internal/shared/server/respond"
)

// Handler exposes profile endpoints.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches profile routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/profile", h.getProfile)
}

// RegisterDevRoutes attaches dev-only profile routes.
func (h *Handler) RegisterDevRoutes(rg *gin.RouterGroup) {
	rg.POST("/profile/reset", h.resetProfile)
	rg.POST("/profile/status", h.setStatus)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) getProfile(c *gin.Context) {
	userID := middleware.AuthenticatedUserID(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthenticated", "Not authenticated", nil)
		return
	}
	p, err := h.Svc.Ensure(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err, "failed to fetch profile")
		return
	}
	respond.OK(c, profileResponse(p))
}

func (h *Handler) resetProfile(c *gin.Context) {
	userID := middleware.AuthenticatedUserID(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthenticated", "Not authenticated", nil)
		return
	}
	p, err := h.Svc.Reset(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err, "failed to reset profile")
		return
	}
	respond.OK(c, profileResponse(p))
}

func (h *Handler) setStatus(c *gin.Context) {
	userID := middleware.AuthenticatedUserID(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthenticated", "Not authenticated", nil)
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid json body", nil)
		return
	}
	status, err := ParseStatus(req.Status)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "status must be one of free, pro, active, inactive", nil)
		return
	}
	p, err := h.Svc.SetStatus(c.Request.Context(), userID, status)
	if err != nil {
		writeError(c, err, "failed to update profile")
		return
	}
	respond.OK(c, profileResponse(p))
}

func profileResponse(p Profile) gin.H {
	return gin.H{
		"userId":             p.UserID,
		"creditsUsed":        p.CreditsUsed,
		"creditsLimit":       p.CreditsLimit,
		"remainingCredits":   p.Remaining(),
		"subscriptionStatus": p.SubscriptionStatus,
	}
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respond.Error(c, http.StatusRequestTimeout, "timeout", "request canceled", nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusBadRequest, "profile_not_found", "User profile not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
