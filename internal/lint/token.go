package lint

import (
	"unicode"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// TokenKind distinguishes word-like tokens from punctuation.
type TokenKind uint8

const (
	// TokenWord is a word-like token containing at least one letter.
	TokenWord TokenKind = iota

	// TokenPunct is a punctuation or symbol token.
	TokenPunct
)

// Token is one segment of the input text. Start is a rune offset;
// adjacent punctuation is never part of a word token, so a word followed
// by a period or quote still matches the dictionary as the bare word.
type Token struct {
	Text  string
	Start int
	Kind  TokenKind
}

// Len returns the token length in runes.
func (t Token) Len() int {
	return utf8.RuneCountInString(t.Text)
}

// Range returns the token's span.
func (t Token) Range() Range {
	return Range{Start: t.Start, Length: t.Len()}
}

// Tokenize splits text into word and punctuation tokens using Unicode
// word-boundary segmentation. Whitespace segments are dropped. Word
// segments are trimmed of any edge punctuation the segmenter left
// attached, keeping interior apostrophes and hyphens intact.
func Tokenize(text string) []Token {
	if text == "" {
		return nil
	}

	var tokens []Token
	offset := 0
	state := -1
	rest := text

	for len(rest) > 0 {
		var seg string
		seg, rest, state = uniseg.FirstWordInString(rest, state)
		segLen := utf8.RuneCountInString(seg)

		switch classifySegment(seg) {
		case segWord:
			tok, trimmed := trimWord(seg, offset)
			if trimmed.Length > 0 {
				tokens = append(tokens, tok)
			}
		case segPunct:
			// Emit each punctuation rune as its own token so the
			// grammar passes can see exact adjacency.
			runeOff := offset
			for _, r := range seg {
				if !unicode.IsSpace(r) {
					tokens = append(tokens, Token{
						Text:  string(r),
						Start: runeOff,
						Kind:  TokenPunct,
					})
				}
				runeOff++
			}
		}

		offset += segLen
	}

	return tokens
}

type segClass uint8

const (
	segSpace segClass = iota
	segWord
	segPunct
)

// classifySegment buckets a segment by its dominant rune class.
func classifySegment(seg string) segClass {
	hasLetter := false
	hasPunct := false
	for _, r := range seg {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			hasLetter = true
		case unicode.IsSpace(r):
		default:
			hasPunct = true
		}
	}
	if hasLetter {
		return segWord
	}
	if hasPunct {
		return segPunct
	}
	return segSpace
}

// trimWord strips edge runes that are neither letters nor digits from a
// word segment, adjusting the start offset. Interior runes (apostrophes,
// hyphens) are preserved.
func trimWord(seg string, offset int) (Token, Range) {
	runes := []rune(seg)
	start := 0
	end := len(runes)

	for start < end && !isWordRune(runes[start]) {
		start++
	}
	for end > start && !isWordRune(runes[end-1]) {
		end--
	}

	tok := Token{
		Text:  string(runes[start:end]),
		Start: offset + start,
		Kind:  TokenWord,
	}
	return tok, Range{Start: tok.Start, Length: end - start}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Lintable reports whether a word token should be matched against the
// lexicon. Numbers, digit-bearing identifiers, single letters, and
// all-caps acronyms are skipped.
func Lintable(tok Token) bool {
	if tok.Kind != TokenWord {
		return false
	}

	runes := []rune(tok.Text)
	if len(runes) < 2 {
		return false
	}

	upper := 0
	for _, r := range runes {
		if unicode.IsDigit(r) {
			return false
		}
		if unicode.IsUpper(r) {
			upper++
		}
	}
	// All-caps tokens are treated as acronyms.
	if upper == len(runes) {
		return false
	}
	return true
}
