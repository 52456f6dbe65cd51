// Package lint implements the analysis engine that turns a text snapshot
// into ranked spelling and grammar issues.
//
// Analysis is pure: the engine holds only immutable configuration (the
// lexicon, the rule list, the suggestion cap), so a single instance can
// be probed, crashed, and rebuilt by the supervisor without shared state
// leaking between instances.
package lint

import (
	"sort"
	"strconv"
	"strings"
)

// Engine analyzes text snapshots against the built-in lexicon, a user
// dictionary snapshot, and the configured grammar rules.
type Engine struct {
	lexicon        *Lexicon
	rules          []GrammarRule
	maxSuggestions int
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxSuggestions caps the suggestion list per spelling issue.
func WithMaxSuggestions(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxSuggestions = n
		}
	}
}

// WithLexicon replaces the embedded lexicon. Intended for tests.
func WithLexicon(lex *Lexicon) Option {
	return func(e *Engine) {
		if lex != nil {
			e.lexicon = lex
		}
	}
}

// WithRule appends a grammar rule after the built-in rules.
func WithRule(rule GrammarRule) Option {
	return func(e *Engine) {
		if rule != nil {
			e.rules = append(e.rules, rule)
		}
	}
}

// New creates an engine with the embedded lexicon and built-in grammar
// rules.
func New(opts ...Option) *Engine {
	e := &Engine{
		lexicon:        LoadLexicon(),
		rules:          builtinRules(),
		maxSuggestions: DefaultMaxSuggestions,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Analyze runs the spelling and grammar passes over text. Empty text and
// text without lintable tokens yield an empty issue list, not an error.
// The issues returned are non-overlapping and sorted by start offset.
func (e *Engine) Analyze(text string, dict Dictionary) []Issue {
	if text == "" {
		return nil
	}

	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}

	issues := e.spellingPass(tokens, dict)
	for _, rule := range e.rules {
		issues = append(issues, rule.Check(tokens)...)
	}

	return resolveCollisions(issues)
}

// spellingPass emits one Spelling issue per lintable token that is in
// neither the lexicon nor the dictionary snapshot.
func (e *Engine) spellingPass(tokens []Token, dict Dictionary) []Issue {
	var issues []Issue
	for _, tok := range tokens {
		if !Lintable(tok) {
			continue
		}
		lower := strings.ToLower(tok.Text)
		if e.lexicon.Contains(lower) {
			continue
		}
		if dict != nil && dict.Contains(lower) {
			continue
		}
		issues = append(issues, Issue{
			Range:       tok.Range(),
			Kind:        KindSpelling,
			Severity:    SeverityWarning,
			Message:     "unknown word " + strconv.Quote(tok.Text),
			Suggestions: suggest(e.lexicon, tok.Text, e.maxSuggestions),
		})
	}
	return issues
}

// resolveCollisions sorts issues and enforces the non-overlap invariant.
// Issues on the identical range collapse to the higher severity; on a
// severity tie the Spelling issue wins since it carries suggestions the
// user can act on. Partial overlaps keep the earlier issue.
func resolveCollisions(issues []Issue) []Issue {
	if len(issues) == 0 {
		return nil
	}

	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Range.Start != issues[j].Range.Start {
			return issues[i].Range.Start < issues[j].Range.Start
		}
		return issues[i].Range.Length < issues[j].Range.Length
	})

	out := issues[:0:0]
	for _, issue := range issues {
		if len(out) == 0 {
			out = append(out, issue)
			continue
		}

		last := &out[len(out)-1]
		if issue.Range == last.Range {
			if preferOver(issue, *last) {
				*last = issue
			}
			continue
		}
		if issue.Range.Overlaps(last.Range) {
			continue
		}
		out = append(out, issue)
	}
	return out
}

// preferOver reports whether a should replace b when both occupy the
// identical range.
func preferOver(a, b Issue) bool {
	if a.Severity != b.Severity {
		return a.Severity > b.Severity
	}
	return a.Kind == KindSpelling && b.Kind != KindSpelling
}
