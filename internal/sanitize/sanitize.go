// Package sanitize turns arbitrary page titles into safe path segments.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultMaxLength is used when a non-positive max length is requested.
	DefaultMaxLength = 30
	// Placeholder is returned when nothing usable is left of the input.
	Placeholder = "untitled"
)

var (
	transliterator = strings.NewReplacer(
		"ç", "c", "ğ", "g", "ı", "i", "ö", "o", "ş", "s", "ü", "u",
		"Ç", "C", "Ğ", "G", "İ", "I", "Ö", "O", "Ş", "S", "Ü", "U",
	)
	forbidden  = regexp.MustCompile(`[<>:"/\\|?*.\n\r\t]`)
	whitespace = regexp.MustCompile(`[\s\v\x1c-\x1f]+`)
	disallowed = regexp.MustCompile(`[^a-z0-9_]`)
)

// Name normalizes rawName into a lower-case path segment made of [a-z0-9_],
// at most maxLength bytes long. When nothing usable is left it returns
// Placeholder whole, whatever maxLength is.
func Name(rawName string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}

	name := transliterator.Replace(rawName)
	name = toASCII(name)
	name = forbidden.ReplaceAllString(name, "")
	name = whitespace.ReplaceAllString(name, "_")
	name = strings.ToLower(strings.TrimSpace(name))
	name = disallowed.ReplaceAllString(name, "")

	if name == "" {
		return Placeholder
	}
	if len(name) > maxLength {
		name = name[:maxLength]
	}
	return name
}

// toASCII decomposes s (NFKD) and drops every code point outside ASCII, so
// accented letters keep their base letter.
func toASCII(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	out, _, err := transform.String(t, s)
	if err != nil {
		return ""
	}
	return out
}
