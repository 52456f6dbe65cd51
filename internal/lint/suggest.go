package lint

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxSuggestions is the suggestion list cap when not configured.
const DefaultMaxSuggestions = 5

// maxSuggestionDistance bounds the edit distance for candidates. Words
// further away than this are never offered.
const maxSuggestionDistance = 2

type candidate struct {
	word     string
	dist     int
	phonetic bool
}

// suggest returns up to max candidate replacements for an unknown token,
// ranked by edit distance with a phonetic tie-break, then
// lexicographically for stable ordering. Candidate casing follows the
// original token (a capitalized token gets capitalized suggestions).
func suggest(lex *Lexicon, token string, max int) []string {
	lower := strings.ToLower(token)
	tokCode := Soundex(lower)
	n := utf8.RuneCountInString(lower)

	var cands []candidate
	for length := n - maxSuggestionDistance; length <= n+maxSuggestionDistance; length++ {
		if length < 1 {
			continue
		}
		for _, w := range lex.WordsOfLength(length) {
			d := BoundedDistance(lower, w, maxSuggestionDistance)
			if d == 0 || d > maxSuggestionDistance {
				continue
			}
			cands = append(cands, candidate{
				word:     w,
				dist:     d,
				phonetic: Soundex(w) == tokCode,
			})
		}
	}

	sort.Slice(cands, func(i, j int) bool {
		if cands[i].dist != cands[j].dist {
			return cands[i].dist < cands[j].dist
		}
		if cands[i].phonetic != cands[j].phonetic {
			return cands[i].phonetic
		}
		return cands[i].word < cands[j].word
	})

	if len(cands) > max {
		cands = cands[:max]
	}

	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = matchCase(token, c.word)
	}
	return out
}

// matchCase applies the source token's leading capitalization to a
// lowercase suggestion.
func matchCase(src, suggestion string) string {
	first, _ := utf8.DecodeRuneInString(src)
	if first == utf8.RuneError || !unicode.IsUpper(first) {
		return suggestion
	}

	head, size := utf8.DecodeRuneInString(suggestion)
	if head == utf8.RuneError {
		return suggestion
	}
	return string(unicode.ToUpper(head)) + suggestion[size:]
}
