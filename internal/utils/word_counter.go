package utils

import (
	"strings"
	"unicode"
)

// CountWords counts whitespace-separated tokens that contain at least one
// letter or digit, so stray dashes and ellipses are not words.
func CountWords(text string) int {
	count := 0
	for _, field := range strings.Fields(text) {
		if strings.IndexFunc(field, isWordRune) >= 0 {
			count++
		}
	}
	return count
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
