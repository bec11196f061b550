package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Text is a prepared matching subject.
//
// Raw is NFKC-normalized and lower-cased; regular expressions run against it.
// Words keeps only letters and digits, with every other run of characters
// (and camelCase boundaries) collapsed to a single space; apostrophes are
// dropped. Keywords match whole words of it.
type Text struct {
	Raw   string
	Words string
}

// Prepare normalizes s for matching.
func Prepare(s string) Text {
	n := norm.NFKC.String(s)
	return Text{
		Raw:   strings.ToLower(n),
		Words: words(n),
	}
}

func words(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	space := true
	for _, r := range s {
		switch {
		case r == '\'' || r == '’':
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if !space && unicode.IsUpper(r) && unicode.IsLower(prev) {
				b.WriteByte(' ')
			}
			b.WriteRune(unicode.ToLower(r))
			space = false
		case !space:
			b.WriteByte(' ')
			space = true
		}
		prev = r
	}
	return strings.TrimSpace(b.String())
}

func (t Text) containsWords(kw string) bool {
	if t.Words == "" {
		return false
	}
	return strings.Contains(" "+t.Words+" ", " "+kw+" ")
}
