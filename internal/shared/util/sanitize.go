package util

import "strings"

// SafeStorageName replaces every character outside [A-Za-z0-9._-] with '_'
// so user-supplied names can be embedded in object keys.
func SafeStorageName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	if strings.Trim(out, "._") == "" {
		return "file"
	}
	return out
}
