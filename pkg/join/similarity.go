package join

import (
	"github.com/kittclouds/coordnet/internal/store"
	"github.com/kittclouds/coordnet/pkg/tokenizer"
)

// similarityMatcher builds a matchFunc that accepts a pair only when their
// messages' Jaccard token similarity meets threshold. Token sets are
// computed once per event and cached by message id, since a sliding window
// re-examines the same event against many neighbors.
func similarityMatcher(opts tokenizer.Options, threshold float64) matchFunc {
	cache := make(map[string]tokenizer.TokenSet)
	tokensFor := func(r store.Row) tokenizer.TokenSet {
		if t, ok := cache[r.MessageID]; ok {
			return t
		}
		t := tokenizer.Tokens(r.Message, opts)
		cache[r.MessageID] = t
		return t
	}
	return func(prior, current store.Row) bool {
		return tokenizer.Jaccard(tokensFor(prior), tokensFor(current)) >= threshold
	}
}
