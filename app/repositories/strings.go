package repositories

import "strings"

// lowerASCII lowercases a LIKE needle; LOWER() in SQLite only folds ASCII.
func lowerASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}
