package matching

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const stopWordThe = "the"

// Normalize folds diacritics, lowercases, collapses whitespace and strips every
// rune that is not a letter, number, underscore or space.
func Normalize(name string) string {
	folded := foldDiacritics(name)
	folded = strings.ToLower(folded)
	folded = collapseSpaces(folded)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if r == ' ' || r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
		}
	}
	return collapseSpaces(b.String())
}

// FirstSignificantToken returns the first token of the normalized name,
// skipping a leading "the".
func FirstSignificantToken(name string) string {
	return firstToken(Normalize(name))
}

func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// strings.Fields splits on every unicode space, so tabs and NBSP collapse too.
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
