package local

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-ranker/internal/shared/server/respond"
	"resume-ranker/internal/shared/telemetry"
)

// RegisterRoutes mounts the signed download route.
func (s *Store) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/files/*key", s.download)
}

func (s *Store) download(c *gin.Context) {
	key := strings.TrimLeft(c.Param("key"), "/")
	if err := s.signer.Verify(key, c.Query("expires"), c.Query("sig"), s.now()); err != nil {
		if errors.Is(err, ErrSignatureExpired) {
			respond.Error(c, http.StatusForbidden, "link_expired", "Download link expired", nil)
			return
		}
		respond.Error(c, http.StatusForbidden, "invalid_signature", "Invalid download link", nil)
		return
	}

	rc, err := s.Open(c.Request.Context(), key)
	if err != nil {
		if os.IsNotExist(err) {
			respond.Error(c, http.StatusNotFound, "not_found", "File not found", nil)
			return
		}
		telemetry.Error("files.open_failed", map[string]any{"key": key, "error": err.Error()})
		respond.Error(c, http.StatusInternalServerError, "internal", "Internal error", nil)
		return
	}
	defer rc.Close()

	name := filepath.Base(key)
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		telemetry.Warn("files.copy_failed", map[string]any{"key": key, "error": err.Error()})
	}
}
