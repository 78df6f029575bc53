package matching

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Similarity is 1 - editDistance/maxLen, measured in runes. Two empty strings
// are identical.
func Similarity(a, b string) float64 {
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return float64(maxLen-dist) / float64(maxLen)
}
