package identity

import "strings"

// NormalizeUsername performs case-insensitive canonicalization (trim + lower-case).
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
