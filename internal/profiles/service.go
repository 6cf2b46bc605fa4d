package profiles

import (
	"context"
	"errors"
	"strings"
)

// DefaultFreeCredits is the credit allowance of a newly created free profile.
const DefaultFreeCredits = 10

// Store persists profiles. Charge must be atomic: it increments credits_used
// only when the profile still passes its gate.
type Store interface {
	Get(ctx context.Context, userID string) (Profile, error)
	Ensure(ctx context.Context, defaults Profile) (Profile, error)
	Charge(ctx context.Context, userID string) (Profile, error)
	Reset(ctx context.Context, userID string) (Profile, error)
	SetStatus(ctx context.Context, userID string, status Status) (Profile, error)
}

// Service manages profiles via an underlying store.
type Service struct {
	store     Store
	freeLimit int
}

// NewService constructs a Service with an in-memory store.
func NewService(freeLimit int) *Service {
	return NewStoreService(NewMemoryStore(), freeLimit)
}

// NewStoreService constructs a Service over an explicit store.
func NewStoreService(store Store, freeLimit int) *Service {
	if freeLimit <= 0 {
		freeLimit = DefaultFreeCredits
	}
	return &Service{store: store, freeLimit: freeLimit}
}

// Get returns the stored profile or ErrNotFound.
func (s *Service) Get(ctx context.Context, userID string) (Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return Profile{}, errors.New("user id is required")
	}
	return s.store.Get(ctx, userID)
}

// Ensure returns the user's profile, creating a free one on first sight.
func (s *Service) Ensure(ctx context.Context, userID string) (Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return Profile{}, errors.New("user id is required")
	}
	return s.store.Ensure(ctx, Profile{
		UserID:             userID,
		CreditsLimit:       s.freeLimit,
		SubscriptionStatus: StatusFree,
	})
}

// Check loads the profile and applies the quota gate without charging.
func (s *Service) Check(ctx context.Context, userID string) (Profile, error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	if err := p.Gate(); err != nil {
		return p, err
	}
	return p, nil
}

// Charge consumes one credit. It fails with the gate error when a concurrent
// run used the last free credit first.
func (s *Service) Charge(ctx context.Context, userID string) (Profile, error) {
	return s.store.Charge(ctx, userID)
}

// Reset sets credits_used back to zero.
func (s *Service) Reset(ctx context.Context, userID string) (Profile, error) {
	if _, err := s.Ensure(ctx, userID); err != nil {
		return Profile{}, err
	}
	return s.store.Reset(ctx, userID)
}

// SetStatus overrides the subscription status.
func (s *Service) SetStatus(ctx context.Context, userID string, status Status) (Profile, error) {
	if _, err := ParseStatus(string(status)); err != nil {
		return Profile{}, err
	}
	if _, err := s.Ensure(ctx, userID); err != nil {
		return Profile{}, err
	}
	return s.store.SetStatus(ctx, userID, status)
}
