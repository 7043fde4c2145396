package reconciler

import (
	"regexp"
	"strings"
)

var nonWord = regexp.MustCompile(`[^\w\s]`)

// tokenSet lower-cases s, drops punctuation and returns the distinct words.
func tokenSet(s string) map[string]struct{} {
	words := strings.Fields(nonWord.ReplaceAllString(strings.ToLower(s), ""))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Similarity is the Jaccard index of the word sets of a and b, in [0, 1].
// Two inputs without any words score 0.
func Similarity(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)

	inter := 0
	for w := range ta {
		if _, ok := tb[w]; ok {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
