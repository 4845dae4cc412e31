// Package textextract reduces stored page markup to plain text.
//
// This is a best-effort pass: tags are dropped wholesale and entities decoded.
// Structure (lists, tables, line breaks implied by block elements) is not
// preserved.
package textextract

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var tag = regexp.MustCompile(`<[^>]+>`)

// Text strips every <...> tag from markup, decodes HTML entities and trims
// surrounding whitespace.
func Text(markup string) string {
	stripped := tag.ReplaceAllString(markup, "")
	return strings.TrimSpace(html.UnescapeString(stripped))
}
