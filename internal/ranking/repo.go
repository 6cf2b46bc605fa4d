package ranking

import "context"

// Repo persists ranking sessions and their result rows.
type Repo interface {
	// CreateSession stores the session and all of its results atomically.
	CreateSession(ctx context.Context, session Session) error
	DeleteSession(ctx context.Context, userID, sessionID string) error
	ListSessions(ctx context.Context, userID string, limit, offset int) ([]Session, error)
	// GetSession returns the session with results ordered by score descending.
	GetSession(ctx context.Context, userID, sessionID string) (Session, error)
}
