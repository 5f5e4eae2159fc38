// Package snippet builds a highlighted excerpt of chunk content around
// the query terms that best match it.
package snippet

import (
	"regexp"
	"strings"
)

const (
	windowSize = 50
	maxLength  = 300
)

// Build selects the 50-word window of content that best overlaps the
// query's terms, marks each cut window boundary with an ellipsis, cuts
// text longer than maxLength characters to maxLength and appends an
// ellipsis, and wraps every query-term occurrence in <mark>.
func Build(content, query string) string {
	terms := queryTermSet(query)
	words := strings.Fields(content)

	bestStart, bestScore := 0, 0
	for i := range words {
		end := i + windowSize
		if end > len(words) {
			end = len(words)
		}
		score := 0
		for _, w := range words[i:end] {
			if terms[strings.ToLower(strings.TrimRight(w, ".,;:"))] {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			bestStart = i
		}
	}

	end := bestStart + windowSize
	if end > len(words) {
		end = len(words)
	}
	text := strings.Join(words[bestStart:end], " ")

	if bestStart > 0 {
		text = "..." + text
	}
	if end < len(words) {
		text = text + "..."
	}

	if len(text) > maxLength {
		text = text[:maxLength] + "..."
	}

	return highlight(text, terms)
}

// queryTermSet lowercases and splits the query on whitespace into a set
// of distinct terms.
func queryTermSet(query string) map[string]bool {
	terms := make(map[string]bool)
	for _, t := range strings.Fields(strings.ToLower(query)) {
		terms[t] = true
	}
	return terms
}

// highlight wraps every case-insensitive, word-boundary-anchored
// occurrence of each term in <mark>...</mark>. Terms are regex-escaped
// before matching so user-supplied query text can never inject regex
// metacharacters.
func highlight(text string, terms map[string]bool) string {
	for term := range terms {
		pattern := regexp.MustCompile(`(?i)\b(` + regexp.QuoteMeta(term) + `)\b`)
		text = pattern.ReplaceAllString(text, "<mark>$1</mark>")
	}
	return text
}
