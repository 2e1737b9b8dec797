package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// User is a registered dashboard account. Password holds the hasher digest,
// never the raw secret.
type User struct {
	Username string
	Password string
}

// NormalizeUsername lower-cases and trims a username the way it is stored.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// DisplayName capitalizes the first letter of a stored username.
func DisplayName(username string) string {
	r, size := utf8.DecodeRuneInString(username)
	if r == utf8.RuneError {
		return username
	}
	return string(unicode.ToTitle(r)) + username[size:]
}
