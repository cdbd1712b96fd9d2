package core

import "strings"

// CleanString trims surrounding whitespace and optionally lowercases,
// for normalizing identifiers like usernames and URL suffixes.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		s = strings.ToLower(s)
	}
	return s
}
