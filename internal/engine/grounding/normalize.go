// internal/engine/grounding/normalize.go
package grounding

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize case-folds s, strips diacritics and reduces every run of punctuation or
// whitespace to a single space. A minus sign directly before a digit is kept so that
// "-40.5" and "40.5" stay distinct.
func Normalize(s string) string {
	// Transformers carry state, so each call builds its own.
	stripMarks := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(stripMarks, s)
	if err != nil {
		stripped = s
	}
	folded := cases.Fold().String(stripped)

	var b strings.Builder
	b.Grow(len(folded))
	pendingSpace := false
	src := []rune(folded)
	for i, r := range src {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		case isMinus(r) && i+1 < len(src) && unicode.IsDigit(src[i+1]) && (i == 0 || !isWordRune(src[i-1])):
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteByte('-')
		default:
			pendingSpace = true
		}
	}
	return b.String()
}

// Grounded reports whether value appears in request once both are normalised.
func Grounded(value, request string) bool {
	v := Normalize(value)
	if v == "" {
		return false
	}
	return strings.Contains(Normalize(request), v)
}

func isMinus(r rune) bool {
	return r == '-' || r == '−'
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
