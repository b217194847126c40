// internal/app/system/htmlsanitize/htmlsanitize.go
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strict = bluemonday.StrictPolicy()
	rich   = bluemonday.UGCPolicy()
)

// Plain strips every tag and returns unescaped, trimmed text. Used for
// titles, names and descriptions that clients render as text.
func Plain(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// Rich keeps safe user formatting (paragraphs, lists, links, code) and drops
// scripts, event handlers, iframes and javascript: URLs. Used for
// announcement, post and reply bodies.
func Rich(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(rich.Sanitize(s))
}
