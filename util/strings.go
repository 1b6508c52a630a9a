package util

import (
	"strings"
	"unicode"
)

const Ellipsis = "…"

// Trunc truncates the input string to at most maxRunes runes, including a trailing ellipsis if it was truncated.
// It cuts at the last space if there is one in the second half. It is UTF8-safe, but does not care for HTML.
func Trunc(s string, maxRunes int) string {
	s = strings.TrimSpace(s)
	if maxRunes <= 0 {
		return ""
	}
	var runes = []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	var cut = runes[:maxRunes-1] // room for the ellipsis
	if i := lastSpace(cut); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimRightFunc(string(cut), unicode.IsSpace) + Ellipsis
}

func lastSpace(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return -1
}
