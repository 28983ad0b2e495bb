// Package sanitize strips markup from user-supplied free-text fields.
// Uses bluemonday so names and descriptions stored by the API can never
// smuggle script tags or event handlers into a client that renders them
// as HTML.
package sanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// policy is the singleton strict policy: no tags survive, only text.
var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// Plain strips all HTML from s and returns trimmed plain text. bluemonday
// entity-escapes remaining text, so the escaping is undone afterwards: the
// result is stored as data, not as markup.
func Plain(s string) string {
	return strings.TrimSpace(html.UnescapeString(getPolicy().Sanitize(s)))
}
