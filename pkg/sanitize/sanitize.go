// Package sanitize filters stored report markup before it is rendered.
package sanitize

import (
	"html/template"

	"github.com/microcosm-cc/bluemonday"

	"dailyreport/pkg/editor"
)

var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "strong", "b", "em", "i", "ul", "ol", "li")
	p.AllowAttrs("href", "target", "rel").OnElements("a")
	p.AllowAttrs("src", "alt", "title").OnElements("img")
	p.AllowAttrs("width", "height").Matching(bluemonday.NumberOrPercent).OnElements("img")
	p.RequireParseableURLs(true)
	p.AllowRelativeURLs(true)
	p.AllowURLSchemes("http", "https", "mailto")
	return p
}

// HTML keeps only the allow-listed tags and attributes. Disallowed elements
// are unwrapped; script and style are dropped with their content.
func HTML(s string) string {
	return policy.Sanitize(s)
}

// Report prepares stored report content for display: legacy affordance
// markup is removed and the result is sanitized.
func Report(content string) template.HTML {
	return template.HTML(HTML(editor.CleanLegacyMarkup(content)))
}
