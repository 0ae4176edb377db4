package validators

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SanitizeString trims the input, strips control characters and caps it at maxLen runes.
func SanitizeString(input string, maxLen int) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.TrimSpace(input))
	if maxLen > 0 && utf8.RuneCountInString(cleaned) > maxLen {
		return string([]rune(cleaned)[:maxLen])
	}
	return cleaned
}

// SanitizeCode normalizes document codes such as trace types and doc statuses ("co" -> "CO").
func SanitizeCode(input string, maxLen int) string {
	return strings.ToUpper(SanitizeString(input, maxLen))
}
