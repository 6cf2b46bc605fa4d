package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-ranker/internal/shared/server/middleware"
	"resume-ranker/internal/shared/server/respond"
)

// Handler serves the identity endpoint.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches /me.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.me)
}

// me prefers the stored user and falls back to token claims for identities
// that were never synced, such as dev headers.
func (h *Handler) me(c *gin.Context) {
	userID := middleware.AuthenticatedUserID(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthenticated", "Not authenticated", nil)
		return
	}

	user, err := h.Svc.GetByID(c.Request.Context(), userID)
	switch {
	case err == nil:
		respond.OK(c, gin.H{
			"userId":     user.ID,
			"email":      user.Email,
			"fullName":   user.FullName,
			"pictureUrl": user.PictureURL,
		})
	case errors.Is(err, ErrNotFound):
		respond.OK(c, gin.H{
			"userId":     userID,
			"email":      middleware.UserEmailFromContext(c),
			"fullName":   middleware.UserNameFromContext(c),
			"pictureUrl": middleware.UserPictureFromContext(c),
		})
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load user", nil)
	}
}
