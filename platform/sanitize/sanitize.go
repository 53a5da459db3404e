// Package sanitize cleans user-provided text before it is stored.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	htmlTagRegex = regexp.MustCompile(`<[^>]*>`)
	// runs of horizontal whitespace; newlines are kept
	spaceRunRegex = regexp.MustCompile(`[ \t\f\v]+`)

	entityReplacer = strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&amp;", "&",
		"&quot;", "\"",
		"&#39;", "'",
		"&nbsp;", " ",
	)
)

// StripHTML removes all HTML tags from a string, making it safe for text-only display.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = entityReplacer.Replace(result)
	// Re-strip after entity decode to catch encoded tags
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Text strips HTML and collapses horizontal whitespace. Use for free-text
// fields like activity descriptions, task titles and reminder notes.
func Text(s string) string {
	return spaceRunRegex.ReplaceAllString(StripHTML(s), " ")
}

// TextPtr is Text for optional fields.
func TextPtr(s *string) *string {
	if s == nil {
		return nil
	}
	result := Text(*s)
	return &result
}
