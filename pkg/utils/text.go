package utils

import (
	"strings"
	"unicode/utf8"
)

// NormalizeUsername lower-cases and trims a username for lookups.
func NormalizeUsername(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// EscapeLike escapes the LIKE wildcards in a user supplied search term.
func EscapeLike(input string) string {
	replacer := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	return replacer.Replace(input)
}
