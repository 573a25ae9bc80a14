package tags

import (
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// MaxLength is the longest display or normalized tag, in characters.
const MaxLength = 100

// Normalize maps a display tag to its comparison key. Each character is
// lower-cased on its own, without locale or context rules, so the key has
// as many characters as the display tag. Whitespace and punctuation are
// kept as is.
func Normalize(display string) string {
	s, _, _ := transform.String(runes.Map(unicode.ToLower), display)
	return s
}

// Same reports whether two display tags collapse to the same tag.
func Same(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
