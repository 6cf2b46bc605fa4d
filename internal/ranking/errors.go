package ranking

import "errors"

var (
	ErrUnauthenticated  = errors.New("not authenticated")
	ErrProfileNotFound  = errors.New("user profile not found")
	ErrBadRequest       = errors.New("missing job description or files")
	ErrPersistence      = errors.New("failed to save ranking session")
	ErrSessionNotFound  = errors.New("ranking session not found")
	ErrMissingPath      = errors.New("missing file path")
	ErrForbiddenPath    = errors.New("file does not belong to user")
	ErrStoreUnavailable = errors.New("object store not configured")
	ErrSigning          = errors.New("failed to sign download url")
)
