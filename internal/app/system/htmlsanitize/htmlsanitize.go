// Package htmlsanitize strips markup from user-supplied text.
package htmlsanitize

import (
	"html"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictOnce   sync.Once
	strictPolicy *bluemonday.Policy
)

func strict() *bluemonday.Policy {
	strictOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}

// PlainText removes every tag (and the contents of script and style
// elements) and returns the remaining text unescaped, so "Tom & Jerry"
// survives as written.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return html.UnescapeString(strict().Sanitize(s))
}

// HasMarkup reports whether s contained anything PlainText would remove.
func HasMarkup(s string) bool {
	return PlainText(s) != s
}
