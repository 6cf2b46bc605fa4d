package profiles

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps profiles in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Profile
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]Profile)}
}

func (s *MemoryStore) Get(ctx context.Context, userID string) (Profile, error) {
	if err := ctx.Err(); err != nil {
		return Profile{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.data[userID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) Ensure(ctx context.Context, defaults Profile) (Profile, error) {
	if err := ctx.Err(); err != nil {
		return Profile{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.data[defaults.UserID]; ok {
		return p, nil
	}
	now := time.Now().UTC()
	defaults.CreatedAt = now
	defaults.UpdatedAt = now
	s.data[defaults.UserID] = defaults
	return defaults, nil
}

func (s *MemoryStore) Charge(ctx context.Context, userID string) (Profile, error) {
	if err := ctx.Err(); err != nil {
		return Profile{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.data[userID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	if err := p.Gate(); err != nil {
		return p, err
	}
	p.CreditsUsed++
	p.UpdatedAt = time.Now().UTC()
	s.data[userID] = p
	return p, nil
}

func (s *MemoryStore) Reset(ctx context.Context, userID string) (Profile, error) {
	return s.update(ctx, userID, func(p *Profile) { p.CreditsUsed = 0 })
}

func (s *MemoryStore) SetStatus(ctx context.Context, userID string, status Status) (Profile, error) {
	return s.update(ctx, userID, func(p *Profile) { p.SubscriptionStatus = status })
}

// Put stores p as-is. Intended for seeding tests and dev fixtures.
func (s *MemoryStore) Put(p Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[p.UserID] = p
}

func (s *MemoryStore) update(ctx context.Context, userID string, fn func(*Profile)) (Profile, error) {
	if err := ctx.Err(); err != nil {
		return Profile{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.data[userID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	fn(&p)
	p.UpdatedAt = time.Now().UTC()
	s.data[userID] = p
	return p, nil
}
