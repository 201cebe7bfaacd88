// Package sanitize cleans user-provided text before it is rendered by the
// map host, whose tooltips interpret strings as HTML.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxLabelRunes bounds marker labels.
const MaxLabelRunes = 80

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// StripHTML removes all HTML tags and any dangling tag opener.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = strings.ReplaceAll(result, "<", "")
	result = strings.ReplaceAll(result, ">", "")
	return strings.TrimSpace(result)
}

// Label strips markup, collapses whitespace and truncates to MaxLabelRunes.
func Label(s string) string {
	result := strings.Join(strings.Fields(StripHTML(s)), " ")
	if utf8.RuneCountInString(result) <= MaxLabelRunes {
		return result
	}
	runes := []rune(result)
	return strings.TrimSpace(string(runes[:MaxLabelRunes-1])) + "…"
}
