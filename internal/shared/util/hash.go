package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashUserKey returns a filesystem-safe identifier for a user ID.
func HashUserKey(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:])
}

// UserKeyPrefix is the object-key prefix under which every file of userID lives.
func UserKeyPrefix(userID string) string {
	return HashUserKey(userID) + "/"
}

// OwnsKey reports whether storageKey sits under userID's prefix.
func OwnsKey(userID, storageKey string) bool {
	if strings.TrimSpace(userID) == "" || strings.Contains(storageKey, "..") {
		return false
	}
	return strings.HasPrefix(storageKey, UserKeyPrefix(userID))
}
