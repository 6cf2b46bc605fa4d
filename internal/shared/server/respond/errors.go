package respond

import (
	"github.com/gin-gonic/gin"

	"resume-ranker/internal/shared/telemetry"
)

// ErrorResponse is the standardized error body.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Message string      `json:"message,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// Error sends a standardized error response.
func Error(c *gin.Context, status int, code, errMsg string, details interface{}) {
	write(c, status, ErrorResponse{Error: errMsg, Code: code, Details: details})
}

// ErrorWithMessage sends an error response carrying an extra user-facing hint.
func ErrorWithMessage(c *gin.Context, status int, code, errMsg, message string) {
	write(c, status, ErrorResponse{Error: errMsg, Code: code, Message: message})
}

func write(c *gin.Context, status int, body ErrorResponse) {
	fields := map[string]any{
		"status":     status,
		"code":       body.Code,
		"error":      body.Error,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if userID := c.GetString("userId"); userID != "" {
		fields["user_id"] = userID
	}
	if isGuest, ok := c.Get("isGuest"); ok {
		fields["is_guest"] = isGuest
	}
	if status >= 500 {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}

	c.AbortWithStatusJSON(status, body)
}
