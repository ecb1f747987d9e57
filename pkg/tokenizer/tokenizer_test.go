package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintNormalizesCase(t *testing.T) {
	a := Fingerprint("hello world")
	b := Fingerprint("  HELLO   WORLD  ")
	assert.Equal(t, a, b)
}

func TestFingerprintDiffersOnContent(t *testing.T) {
	assert.NotEqual(t, Fingerprint("hello"), Fingerprint("goodbye"))
}

func TestTokensDropsPunctuationAndDuplicates(t *testing.T) {
	set := Tokens("The cat, the cat sat on a mat!", Options{})
	_, hasThe := set["the"]
	_, hasCat := set["cat"]
	require.True(t, hasThe)
	require.True(t, hasCat)
	assert.Len(t, set, 6) // the, cat, sat, on, a, mat
}

func TestJaccardEmptyBoth(t *testing.T) {
	assert.Equal(t, 0.0, Jaccard(TokenSet{}, TokenSet{}))
}

func TestJaccardScenarioD(t *testing.T) {
	a := Tokens("the cat sat on mat", Options{})
	b := Tokens("the cat sat on mat slowly", Options{})
	sim := Jaccard(a, b)
	assert.InDelta(t, 5.0/6.0, sim, 1e-9)
}

func TestDefaultBucketerGroupsNearDuplicatesTogether(t *testing.T) {
	b := NewDefaultBucketer()
	a := Tokens("breaking news the senate votes today", Options{})
	c := Tokens("breaking news the senate votes today zzlater", Options{})
	assert.Equal(t, b.Bucket(a), b.Bucket(c))
}

func TestDefaultBucketerEmptyTokens(t *testing.T) {
	b := NewDefaultBucketer()
	assert.Equal(t, uint64(0), b.Bucket(TokenSet{}))
}

func TestExtractURLsFindsMultiple(t *testing.T) {
	urls := ExtractURLs("check this out http://example.com/a and also https://example.org/b please")
	assert.Equal(t, []string{"http://example.com/a", "https://example.org/b"}, urls)
}

func TestSplitWhitespaceURLs(t *testing.T) {
	assert.Equal(t, []string{"http://a", "http://b"}, SplitWhitespaceURLs("  http://a  http://b "))
	assert.Nil(t, SplitWhitespaceURLs("   "))
}
