package lint

import (
	"bufio"
	"bytes"
	_ "embed"
	"strings"
	"unicode/utf8"
)

//go:embed lexicon.txt
var lexiconData []byte

// Lexicon is the built-in set of known words, indexed by length for
// bounded suggestion candidate scans. Entries are stored lowercase.
type Lexicon struct {
	words    map[string]struct{}
	byLength map[int][]string
}

// LoadLexicon parses the embedded word list.
func LoadLexicon() *Lexicon {
	return parseLexicon(lexiconData)
}

// NewLexicon builds a lexicon from an explicit word list. Intended for
// tests that need a small controlled vocabulary.
func NewLexicon(words []string) *Lexicon {
	lex := &Lexicon{
		words:    make(map[string]struct{}, len(words)),
		byLength: make(map[int][]string),
	}
	for _, w := range words {
		lex.insert(strings.ToLower(strings.TrimSpace(w)))
	}
	return lex
}

func parseLexicon(data []byte) *Lexicon {
	lex := &Lexicon{
		words:    make(map[string]struct{}, 2048),
		byLength: make(map[int][]string),
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word == "" || strings.HasPrefix(word, "#") {
			continue
		}
		lex.insert(strings.ToLower(word))
	}
	return lex
}

func (l *Lexicon) insert(word string) {
	if word == "" {
		return
	}
	if _, exists := l.words[word]; exists {
		return
	}
	l.words[word] = struct{}{}
	n := utf8.RuneCountInString(word)
	l.byLength[n] = append(l.byLength[n], word)
}

// Contains reports whether the lowercase form of word is known.
func (l *Lexicon) Contains(word string) bool {
	_, ok := l.words[strings.ToLower(word)]
	return ok
}

// Len returns the number of known words.
func (l *Lexicon) Len() int {
	return len(l.words)
}

// WordsOfLength returns the known words with the given rune count.
// The returned slice is shared; callers must not modify it.
func (l *Lexicon) WordsOfLength(n int) []string {
	return l.byLength[n]
}
