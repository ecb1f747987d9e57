package tokenizer

import (
	"strings"

	"github.com/coregx/ahocorasick"
)

// urlSchemeAutomaton is a tiny Aho-Corasick automaton over the two URL
// schemes coordnet recognizes. Reusing a single compiled automaton (the
// teacher's dual-purpose "build once, scan many" idiom) is overkill for two
// literal strings, but it keeps the scan path consistent with how the rest
// of the corpus locates fixed surface forms inside free text, and leaves
// room to add more schemes (ftp://, mailto:) without changing ExtractURLs.
var urlSchemeAutomaton = mustBuildSchemeAutomaton()

func mustBuildSchemeAutomaton() *ahocorasick.Automaton {
	ac, err := ahocorasick.NewBuilder().
		AddStrings([]string{"http://", "https://"}).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		panic("tokenizer: failed to build URL scheme automaton: " + err.Error())
	}
	return ac
}

// ExtractURLs pulls whitespace-delimited URL spans out of raw text by
// locating scheme prefixes with the AC automaton and extending each match
// to the next whitespace rune. Used as a fallback by the CSV ingest adapter
// when a row's dedicated urls column is blank but the message text embeds
// links directly.
func ExtractURLs(text string) []string {
	matches := urlSchemeAutomaton.FindAllOverlapping([]byte(text))
	if len(matches) == 0 {
		return nil
	}
	var out []string
	lastEnd := -1
	for _, m := range matches {
		if m.Start < lastEnd {
			continue // overlapping scheme match inside an already-extracted URL
		}
		end := m.Start
		for end < len(text) && !isURLBoundary(rune(text[end])) {
			end++
		}
		out = append(out, text[m.Start:end])
		lastEnd = end
	}
	return out
}

func isURLBoundary(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r':
		return true
	default:
		return false
	}
}

// SplitWhitespaceURLs splits the §6.1 whitespace-delimited urls field into
// an ordered sequence, trimming any stray delimiters.
func SplitWhitespaceURLs(field string) []string {
	fields := strings.Fields(field)
	if len(fields) == 0 {
		return nil
	}
	return fields
}
