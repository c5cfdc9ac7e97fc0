package textutil

import (
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeKey upper-cases a name and collapses its inner whitespace so that
// " reeves\n" and "REEVES" resolve to the same lookup key.
func NormalizeKey(name string) string {
	name = strings.ToUpper(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, " ")
	return name
}

// ClosestMatch returns the candidate most similar to `name` by Jaro-Winkler
// similarity along with its score, or "" when there are no candidates.
func ClosestMatch(name string, candidates []string) (string, float64) {
	best := ""
	bestScore := 0.0
	for _, c := range candidates {
		score := matchr.JaroWinkler(name, c, false)
		if score > bestScore {
			best = c
			bestScore = score
		}
	}
	return best, bestScore
}
