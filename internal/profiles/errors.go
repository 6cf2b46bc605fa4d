package profiles

import "errors"

var (
	// ErrNotFound indicates no profile row exists for the user.
	ErrNotFound = errors.New("profile not found")
	// ErrSubscriptionInactive blocks every run until the subscription is renewed.
	ErrSubscriptionInactive = errors.New("subscription inactive")
	// ErrFreeLimitReached blocks free users once credits_used reaches credits_limit.
	ErrFreeLimitReached = errors.New("free-tier limit reached")
	// ErrInvalidStatus rejects unknown subscription states.
	ErrInvalidStatus = errors.New("invalid subscription status")
)
