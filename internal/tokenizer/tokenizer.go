// Package tokenizer implements the deterministic text-to-token routine
// shared by the BM25 index and query path: lowercase, extract maximal
// runs of [a-z0-9]+, and drop single-character tokens that aren't purely
// numeric. No stemming, no stop-word removal.
package tokenizer

import (
	"regexp"
	"strings"
)

var tokenRe = regexp.MustCompile(`[a-z0-9]+`)

// Tokenize is a pure function of its input: same text always yields the
// same token sequence, independent of process state or locale.
func Tokenize(text string) []string {
	matches := tokenRe.FindAllString(strings.ToLower(text), -1)

	tokens := make([]string, 0, len(matches))
	for _, m := range matches {
		if len(m) > 1 || isDigits(m) {
			tokens = append(tokens, m)
		}
	}
	return tokens
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
