// Package tokenizer provides the deterministic text→fingerprint and
// text→token-set transforms used by co-tweet equality and co-similarity
// scoring, plus the bucketing capability the Temporal Join Engine uses to
// widen co-similarity's equality key into a scalable candidate group.
package tokenizer

import (
	"hash/fnv"
	"sort"
	"strings"
	"unicode"

	"github.com/orsinium-labs/stopwords"
)

// Options configures tokenization. The zero value is the spec's default:
// lowercase, split on whitespace/punctuation boundaries, keep stopwords.
type Options struct {
	// RemoveStopwords drops English stopwords from the token set before
	// scoring. Off by default to match spec.md's default tokenization,
	// which does not mention stopword removal.
	RemoveStopwords bool
}

// Fingerprint computes the 64-bit hash used for co-tweet equality.
// Normalization: lowercase, collapse internal whitespace, strip surrounding
// whitespace. Two messages co-tweet iff their fingerprints are equal.
func Fingerprint(text string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(normalizeForFingerprint(text)))
	return h.Sum64()
}

func normalizeForFingerprint(text string) string {
	lower := strings.ToLower(text)
	fields := strings.Fields(lower)
	return strings.Join(fields, " ")
}

// TokenSet is a boolean bag of words: membership only, no counts.
type TokenSet map[string]struct{}

// Tokens splits text into a normalized token set: lowercase, split on
// whitespace and punctuation class boundaries (runs of letters/digits are
// kept together, everything else is a separator), empty tokens dropped.
func Tokens(text string, opts Options) TokenSet {
	set := make(TokenSet)
	var cur strings.Builder
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		tok := cur.String()
		cur.Reset()
		if opts.RemoveStopwords && stopwords.EN[tok] {
			return
		}
		set[tok] = struct{}{}
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()
	return set
}

// Jaccard computes |A ∩ B| / |A ∪ B|, 0 when both sets are empty.
func Jaccard(a, b TokenSet) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	intersection := 0
	for tok := range small {
		if _, ok := large[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// Bucketer assigns a token set to a single coarse candidate group. The
// Temporal Join Engine groups co-similarity events by bucket before running
// the sliding window, so every event must fall into exactly one bucket
// (the contract that prevents a pair from being double-counted across
// overlapping buckets).
type Bucketer interface {
	Bucket(tokens TokenSet) uint64
}

// DefaultBucketer buckets on a hash of the lexicographically smallest
// tokens in the set (a cheap locality key: near-duplicate texts tend to
// share their rarest/earliest-sorting tokens). This trades recall — a pair
// whose shared tokens aren't among the chosen shingle can land in different
// buckets and never be compared — for the scalability §4.4 requires; it is
// documented here rather than implemented as full minhash/LSH.
type DefaultBucketer struct {
	// NumBuckets is the bucket-space size. Must be > 0.
	NumBuckets uint64
	// ShingleSize is how many of the smallest sorted tokens contribute to
	// the bucket key.
	ShingleSize int
}

// NewDefaultBucketer returns a DefaultBucketer with the package's default
// bucket-space size and shingle width.
func NewDefaultBucketer() DefaultBucketer {
	return DefaultBucketer{NumBuckets: DefaultNumBuckets, ShingleSize: DefaultShingleSize}
}

// DefaultNumBuckets is the bucket-space size baked into the store's
// bucket_key column at ingest time.
const DefaultNumBuckets uint64 = 4096

// DefaultShingleSize is the number of smallest tokens used to derive a
// bucket key.
const DefaultShingleSize = 3

// Bucket implements Bucketer.
func (b DefaultBucketer) Bucket(tokens TokenSet) uint64 {
	if len(tokens) == 0 {
		return 0
	}
	sorted := make([]string, 0, len(tokens))
	for t := range tokens {
		sorted = append(sorted, t)
	}
	sort.Strings(sorted)
	n := b.ShingleSize
	if n <= 0 {
		n = DefaultShingleSize
	}
	if n > len(sorted) {
		n = len(sorted)
	}
	h := fnv.New64a()
	h.Write([]byte(strings.Join(sorted[:n], "|")))
	numBuckets := b.NumBuckets
	if numBuckets == 0 {
		numBuckets = DefaultNumBuckets
	}
	return h.Sum64() % numBuckets
}
