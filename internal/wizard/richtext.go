package wizard

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	presentationPolicy = bluemonday.UGCPolicy()
	textOnlyPolicy     = bluemonday.StrictPolicy()
)

// SanitizePresentation cleans rich-text deck content before it is stored.
func SanitizePresentation(content string) string {
	return strings.TrimSpace(presentationPolicy.Sanitize(content))
}

// HasText reports whether rich-text content contains anything visible.
// Editors emit markup such as "<p><br></p>" for an empty document.
func HasText(content string) bool {
	text := html.UnescapeString(textOnlyPolicy.Sanitize(content))
	return strings.TrimSpace(text) != ""
}
