// Package normalize reduces Arabic text to a canonical form for answer comparison.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Harakat, sukun and tatweel carry no meaning for recall checks.
var marks = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x0640, Hi: 0x0640, Stride: 1},
		{Lo: 0x064B, Hi: 0x0652, Stride: 1},
	},
}

func fold(r rune) rune {
	switch r {
	case 'أ', 'إ', 'آ':
		return 'ا'
	case 'ة':
		return 'ه'
	case 'ى':
		return 'ي'
	}
	return r
}

func outsideLetters(r rune) bool {
	if unicode.IsSpace(r) {
		return false
	}
	return r < 0x0621 || r > 0x064A
}

func chain() transform.Transformer {
	return transform.Chain(
		runes.Remove(runes.In(marks)),
		runes.Map(fold),
		runes.Remove(runes.Predicate(outsideLetters)),
	)
}

// Normalize returns the canonical form of s. It is total and idempotent.
func Normalize(s string) string {
	out, _, err := transform.String(chain(), s)
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(out), " ")
}

// Equal reports whether a and b have the same canonical form.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
