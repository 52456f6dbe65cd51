package lint

// IssueKind classifies a detected problem.
type IssueKind uint8

const (
	// KindSpelling is an unknown-word issue with replacement suggestions.
	KindSpelling IssueKind = iota

	// KindGrammar is a token-stream issue such as a repeated word.
	KindGrammar
)

// String returns the kind name.
func (k IssueKind) String() string {
	switch k {
	case KindSpelling:
		return "spelling"
	case KindGrammar:
		return "grammar"
	default:
		return "unknown"
	}
}

// Severity orders issues for collision resolution and display.
// Higher values are more severe.
type Severity uint8

const (
	// SeverityHint is a cosmetic observation.
	SeverityHint Severity = iota

	// SeverityWarning is a probable mistake.
	SeverityWarning

	// SeverityError is a definite mistake.
	SeverityError
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityHint:
		return "hint"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Range identifies a span of text in rune offsets.
type Range struct {
	// Start is the rune offset of the first rune in the span.
	Start int
	// Length is the span length in runes.
	Length int
}

// End returns the rune offset one past the last rune.
func (r Range) End() int {
	return r.Start + r.Length
}

// Overlaps reports whether two ranges share at least one rune.
func (r Range) Overlaps(other Range) bool {
	return r.Start < other.End() && other.Start < r.End()
}

// Issue is a single detected spelling or grammar problem.
type Issue struct {
	// Range is the problem span in rune offsets.
	Range Range

	// Kind classifies the issue.
	Kind IssueKind

	// Severity ranks the issue against others on the same range.
	Severity Severity

	// Message is a short human-readable description.
	Message string

	// Suggestions holds candidate replacements, best first.
	Suggestions []string
}

// Request is one analysis submission for a monitored field.
type Request struct {
	// FieldID identifies the monitored text field.
	FieldID string

	// Text is the full text snapshot at submission time.
	Text string

	// Generation is the per-field monotonic submission counter.
	// Consumers discard results carrying a generation lower than the
	// highest one already observed for the field.
	Generation uint64
}

// Result is the outcome of analyzing one Request. Issues are
// non-overlapping and sorted by start offset.
type Result struct {
	// Generation echoes the request's generation.
	Generation uint64

	// Issues holds the detected problems in start order.
	Issues []Issue
}

// Dictionary is the read side of the user dictionary consumed during
// analysis. Implementations must answer case-insensitively and must
// represent a consistent point-in-time snapshot.
type Dictionary interface {
	Contains(word string) bool
}
