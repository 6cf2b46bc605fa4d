package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"resume-ranker/internal/profiles"
)

// ProfileEnsurer creates the quota profile of a user on first login.
type ProfileEnsurer interface {
	Ensure(ctx context.Context, userID string) (profiles.Profile, error)
}

// Service syncs OAuth identities into the users table.
type Service struct {
	Repo     Repo
	Profiles ProfileEnsurer
}

// NewService constructs a Service. profiles may be nil.
func NewService(repo Repo, profiles ProfileEnsurer) *Service {
	return &Service{Repo: repo, Profiles: profiles}
}

// UpsertFromAuth persists the identity and makes sure a quota profile exists.
func (s *Service) UpsertFromAuth(ctx context.Context, user User) error {
	if s == nil || s.Repo == nil {
		return errors.New("users service not configured")
	}
	if strings.TrimSpace(user.ID) == "" || strings.TrimSpace(user.Email) == "" {
		return errors.New("user id and email are required")
	}
	user.fillNames()
	if err := s.Repo.Upsert(ctx, user); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	if s.Profiles != nil {
		if _, err := s.Profiles.Ensure(ctx, user.ID); err != nil {
			return fmt.Errorf("ensure profile: %w", err)
		}
	}
	return nil
}

// GetByID returns a stored user or ErrNotFound.
func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return User{}, errors.New("user id is required")
	}
	return s.Repo.GetByID(ctx, userID)
}
