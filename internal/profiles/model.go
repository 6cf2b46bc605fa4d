package profiles

import (
	"strings"
	"time"
)

// Status is the subscription state mirrored from the payment provider.
type Status string

const (
	StatusFree     Status = "free"
	StatusPro      Status = "pro"
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// ParseStatus validates a raw status string.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusFree, StatusPro, StatusActive, StatusInactive:
		return s, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Profile is a user's quota state.
type Profile struct {
	UserID             string    `json:"userId"`
	CreditsUsed        int       `json:"creditsUsed"`
	CreditsLimit       int       `json:"creditsLimit"`
	SubscriptionStatus Status    `json:"subscriptionStatus"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Remaining may be negative for paid plans that run past the nominal limit.
func (p Profile) Remaining() int {
	return p.CreditsLimit - p.CreditsUsed
}

// Gate reports whether the profile may start another ranking run.
func (p Profile) Gate() error {
	switch p.SubscriptionStatus {
	case StatusInactive:
		return ErrSubscriptionInactive
	case StatusFree:
		if p.CreditsUsed >= p.CreditsLimit {
			return ErrFreeLimitReached
		}
	}
	return nil
}
