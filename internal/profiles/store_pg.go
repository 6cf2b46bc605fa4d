package profiles

import (
	"context"
	"database/sql"
	"errors"
)

// PGStore persists profiles in Postgres.
type PGStore struct {
	DB *sql.DB
}

// NewPGStore constructs a Postgres-backed profile store.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{DB: db}
}

const profileColumns = `user_id, credits_used, credits_limit, subscription_status, created_at, updated_at`

func (s *PGStore) Get(ctx context.Context, userID string) (Profile, error) {
	row := s.DB.QueryRowContext(ctx, `
SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID)
	return scanProfile(row)
}

func (s *PGStore) Ensure(ctx context.Context, defaults Profile) (Profile, error) {
	if _, err := s.DB.ExecContext(ctx, `
INSERT INTO profiles (user_id, credits_used, credits_limit, subscription_status)
VALUES ($1, 0, $2, $3)
ON CONFLICT (user_id) DO NOTHING`, defaults.UserID, defaults.CreditsLimit, string(defaults.SubscriptionStatus)); err != nil {
		return Profile{}, err
	}
	return s.Get(ctx, defaults.UserID)
}

// Charge increments credits_used in a single conditional UPDATE so two
// instances racing for the last free credit cannot both succeed.
func (s *PGStore) Charge(ctx context.Context, userID string) (Profile, error) {
	row := s.DB.QueryRowContext(ctx, `
UPDATE profiles
SET credits_used = credits_used + 1, updated_at = now()
WHERE user_id = $1
  AND subscription_status <> 'inactive'
  AND (subscription_status <> 'free' OR credits_used < credits_limit)
RETURNING `+profileColumns, userID)
	p, err := scanProfile(row)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Profile{}, err
	}

	current, err := s.Get(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	if gateErr := current.Gate(); gateErr != nil {
		return current, gateErr
	}
	return current, ErrFreeLimitReached
}

func (s *PGStore) Reset(ctx context.Context, userID string) (Profile, error) {
	row := s.DB.QueryRowContext(ctx, `
UPDATE profiles SET credits_used = 0, updated_at = now()
WHERE user_id = $1
RETURNING `+profileColumns, userID)
	return scanProfile(row)
}

func (s *PGStore) SetStatus(ctx context.Context, userID string, status Status) (Profile, error) {
	row := s.DB.QueryRowContext(ctx, `
UPDATE profiles SET subscription_status = $2, updated_at = now()
WHERE user_id = $1
RETURNING `+profileColumns, userID, string(status))
	return scanProfile(row)
}

func scanProfile(row *sql.Row) (Profile, error) {
	var p Profile
	var status string
	if err := row.Scan(&p.UserID, &p.CreditsUsed, &p.CreditsLimit, &status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	p.SubscriptionStatus = Status(status)
	return p, nil
}
