package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize_LowercasesAndExtractsAlphanumericRuns(t *testing.T) {
	tokens := Tokenize("The Database Connection Timed Out")
	assert.Equal(t, []string{"the", "database", "connection", "timed", "out"}, tokens)
}

func TestTokenize_DropsSingleCharNonNumericTokens(t *testing.T) {
	tokens := Tokenize("a b c 1 22 x9")
	assert.Equal(t, []string{"1", "22", "x9"}, tokens)
}

func TestTokenize_KeepsSingleDigitTokens(t *testing.T) {
	tokens := Tokenize("error code 5 occurred")
	assert.Equal(t, []string{"error", "code", "5", "occurred"}, tokens)
}

func TestTokenize_SplitsOnPunctuationAndWhitespace(t *testing.T) {
	tokens := Tokenize("retry-after: 30s, connection_pool.timeout")
	assert.Equal(t, []string{"retry", "after", "30s", "connection", "pool", "timeout"}, tokens)
}

func TestTokenize_EmptyStringReturnsEmptySlice(t *testing.T) {
	tokens := Tokenize("")
	assert.Empty(t, tokens)
}

func TestTokenize_NoStemmingNoStopWordRemoval(t *testing.T) {
	tokens := Tokenize("the connections were retrying")
	assert.Contains(t, tokens, "the")
	assert.Contains(t, tokens, "connections")
	assert.Contains(t, tokens, "retrying")
}

func TestTokenize_IsDeterministic(t *testing.T) {
	text := "Kubernetes pod CrashLoopBackOff on node-42"
	a := Tokenize(text)
	b := Tokenize(text)
	assert.Equal(t, a, b)
}

func TestTokenize_QueryAndCorpusShareRoutine(t *testing.T) {
	// Same text embedded in a larger document vs. as a bare query tokenizes identically.
	query := "timeout"
	doc := "a connection timeout occurred while polling"

	queryTokens := Tokenize(query)
	docTokens := Tokenize(doc)

	assert.Equal(t, []string{"timeout"}, queryTokens)
	assert.Contains(t, docTokens, "timeout")
}
