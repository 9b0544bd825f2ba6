// Package textutil holds the small string helpers shared by prompt builders.
package textutil

import (
	"strings"
	"unicode/utf8"
)

// Ellipsis is appended by Truncate when text is cut.
const Ellipsis = "..."

var angleBrackets = strings.NewReplacer("<", "&lt;", ">", "&gt;")

// Sanitize escapes angle brackets so user or stored text interpolated into a
// prompt cannot come back out of the model as live markup.
func Sanitize(text string) string {
	return angleBrackets.Replace(text)
}

// Truncate cuts text to maxLen characters and appends an ellipsis marker.
// Lengths are counted in runes so multi-byte text is never split mid-character.
func Truncate(text string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(text) <= maxLen {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxLen]) + Ellipsis
}

// StripCodeFence removes a leading ``` or ```json line and a trailing ``` from
// model output that was supposed to be bare JSON.
func StripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
