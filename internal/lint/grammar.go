package lint

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// GrammarRule inspects the token stream and reports Grammar issues.
// Rules must not retain the token slice past the call.
type GrammarRule interface {
	// Name identifies the rule in messages and configuration.
	Name() string

	// Check returns the issues found in the token stream. Returned
	// issues need not be sorted; the engine orders and de-conflicts
	// them.
	Check(tokens []Token) []Issue
}

// builtinRules returns the grammar rules that are always active.
func builtinRules() []GrammarRule {
	return []GrammarRule{
		repeatedWordRule{},
		doubledPunctuationRule{},
		sentenceCaseRule{},
	}
}

// repeatedWordRule flags an immediate repetition of the same word, such
// as "the the". Punctuation between the words breaks the repetition.
type repeatedWordRule struct{}

func (repeatedWordRule) Name() string { return "repeated-word" }

func (repeatedWordRule) Check(tokens []Token) []Issue {
	var issues []Issue
	for i := 1; i < len(tokens); i++ {
		prev, curr := tokens[i-1], tokens[i]
		if prev.Kind != TokenWord || curr.Kind != TokenWord {
			continue
		}
		if !strings.EqualFold(prev.Text, curr.Text) {
			continue
		}
		issues = append(issues, Issue{
			Range:    curr.Range(),
			Kind:     KindGrammar,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("repeated word %q", curr.Text),
		})
	}
	return issues
}

// doubledPunctuationRule flags exactly two identical terminal punctuation
// marks in a row, such as ",," or "!!". Runs of three or more are left
// alone so ellipses are not flagged.
type doubledPunctuationRule struct{}

func (doubledPunctuationRule) Name() string { return "doubled-punctuation" }

var doubledPunctuationSet = map[string]struct{}{
	".": {}, ",": {}, ";": {}, ":": {}, "!": {}, "?": {},
}

func (doubledPunctuationRule) Check(tokens []Token) []Issue {
	var issues []Issue
	for i := 0; i < len(tokens); {
		tok := tokens[i]
		if tok.Kind != TokenPunct {
			i++
			continue
		}
		if _, watched := doubledPunctuationSet[tok.Text]; !watched {
			i++
			continue
		}

		// Measure the run of identical adjacent marks.
		run := 1
		for i+run < len(tokens) {
			next := tokens[i+run]
			if next.Kind != TokenPunct || next.Text != tok.Text || next.Start != tok.Start+run {
				break
			}
			run++
		}

		if run == 2 {
			issues = append(issues, Issue{
				Range:       Range{Start: tok.Start, Length: 2},
				Kind:        KindGrammar,
				Severity:    SeverityHint,
				Message:     fmt.Sprintf("doubled punctuation %q", tok.Text+tok.Text),
				Suggestions: []string{tok.Text},
			})
		}
		i += run
	}
	return issues
}

// sentenceCaseRule flags a lowercase word directly following terminal
// punctuation.
type sentenceCaseRule struct{}

func (sentenceCaseRule) Name() string { return "sentence-case" }

func isTerminal(tok Token) bool {
	switch tok.Text {
	case ".", "!", "?":
		return tok.Kind == TokenPunct
	}
	return false
}

func (sentenceCaseRule) Check(tokens []Token) []Issue {
	var issues []Issue
	for i := 1; i < len(tokens); i++ {
		curr := tokens[i]
		if curr.Kind != TokenWord || !isTerminal(tokens[i-1]) {
			continue
		}
		// Runs of terminal punctuation (ellipses) do not start a
		// sentence.
		if i >= 2 && tokens[i-2].Kind == TokenPunct && tokens[i-2].Text == tokens[i-1].Text {
			continue
		}
		first, _ := utf8.DecodeRuneInString(curr.Text)
		if !unicode.IsLower(first) {
			continue
		}
		issues = append(issues, Issue{
			Range:       curr.Range(),
			Kind:        KindGrammar,
			Severity:    SeverityHint,
			Message:     "sentence should start with a capital letter",
			Suggestions: []string{string(unicode.ToUpper(first)) + curr.Text[utf8.RuneLen(first):]},
		})
	}
	return issues
}
