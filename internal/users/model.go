package users

import (
	"strings"
	"time"
)

// User is an identity synced from the OAuth provider. Ranking history and
// quota profiles are keyed by ID.
type User struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullName"`
	GivenName  string    `json:"givenName"`
	FamilyName string    `json:"familyName"`
	PictureURL string    `json:"pictureUrl"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// fillNames derives given/family names from FullName when the provider
// only returned a display name.
func (u *User) fillNames() {
	if u.GivenName != "" || u.FamilyName != "" {
		return
	}
	parts := strings.Fields(u.FullName)
	switch len(parts) {
	case 0:
	case 1:
		u.GivenName = parts[0]
	default:
		u.GivenName = parts[0]
		u.FamilyName = strings.Join(parts[1:], " ")
	}
}
