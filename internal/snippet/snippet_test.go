package snippet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuild_HighlightsQueryTerms(t *testing.T) {
	out := Build("the database connection timed out during the retry", "database connection")
	assert.Contains(t, out, "<mark>database</mark>")
	assert.Contains(t, out, "<mark>connection</mark>")
}

func TestBuild_HighlightIsCaseInsensitive(t *testing.T) {
	out := Build("Database Connection failed", "database")
	assert.Contains(t, out, "<mark>Database</mark>")
}

func TestBuild_HighlightIsWordBoundaryAnchored(t *testing.T) {
	out := Build("the database is up, metadata is fine", "data")
	assert.NotContains(t, out, "<mark>data</mark>base")
	assert.NotContains(t, out, "meta<mark>data</mark>")
}

func TestBuild_PrependsEllipsisWhenWindowStartsAfterZero(t *testing.T) {
	words := make([]string, 0, 120)
	for i := 0; i < 60; i++ {
		words = append(words, "filler")
	}
	words = append(words, "timeout", "error")
	for i := 0; i < 60; i++ {
		words = append(words, "filler")
	}
	content := strings.Join(words, " ")

	out := Build(content, "timeout error")
	assert.True(t, strings.HasPrefix(out, "..."))
}

func TestBuild_AppendsEllipsisWhenWindowEndsBeforeLastWord(t *testing.T) {
	words := make([]string, 0, 120)
	words = append(words, "timeout", "error")
	for i := 0; i < 60; i++ {
		words = append(words, "filler")
	}
	content := strings.Join(words, " ")

	out := Build(content, "timeout error")
	assert.True(t, strings.HasSuffix(out, "..."))
}

func TestBuild_NoEllipsisWhenShortContentFitsWhole(t *testing.T) {
	out := Build("a short timeout message", "timeout")
	assert.False(t, strings.HasPrefix(out, "..."))
}

func TestBuild_TruncatesLongWindowTo300Chars(t *testing.T) {
	words := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		words = append(words, "supercalifragilisticexpialidocious")
	}
	content := strings.Join(words, " ")

	// A query that matches nothing isolates truncation from highlighting.
	out := Build(content, "zzz")
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.LessOrEqual(t, len(out), 303)
}

func TestBuild_TruncatesAfterAddingBothBoundaryEllipses(t *testing.T) {
	// The matched term sits at the tail of the selected window, which puts
	// it past the 300-char truncation cutoff: the output carries both
	// boundary ellipses but no <mark>, isolating the truncation bound from
	// highlighting's own length contribution.
	words := make([]string, 0, 70)
	for i := 0; i < 10; i++ {
		words = append(words, "filler")
	}
	for i := 0; i < 49; i++ {
		words = append(words, "xxxxxxxxxxxxxxxxxxxx")
	}
	words = append(words, "target")
	for i := 0; i < 10; i++ {
		words = append(words, "filler")
	}
	content := strings.Join(words, " ")

	out := Build(content, "target")

	assert.True(t, strings.HasPrefix(out, "..."))
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.NotContains(t, out, "<mark>")
	assert.LessOrEqual(t, len(out), 306)
}

func TestBuild_PicksEarliestWindowOnTie(t *testing.T) {
	content := "the timeout here and timeout again but nothing else matches anywhere in this text at all no more hits"
	out := Build(content, "timeout")
	assert.True(t, strings.HasPrefix(out, "the <mark>timeout</mark> here"))
}

func TestBuild_EscapesRegexMetacharactersInQueryTerms(t *testing.T) {
	out := Build("the (timeout) occurred", "(timeout)")
	assert.NotPanics(t, func() { Build("the (timeout) occurred", "(timeout)") })
	assert.NotEmpty(t, out)
}

func TestBuild_EmptyQueryReturnsUnhighlightedWindow(t *testing.T) {
	out := Build("nothing special here at all", "")
	assert.NotContains(t, out, "<mark>")
}
