// Package overlay turns lint results plus accessibility-space geometry
// into renderable marks and popup placement.
//
// Everything here is a pure transform. The accessibility tree reports
// bounding rects in a top-down coordinate space; host rendering uses a
// bottom-up space, so rect mapping is a single vertical flip plus a
// host-specific offset:
//
//	hostY = hostHeight - (axY + rectHeight) + offsetY
package overlay

import (
	"github.com/underlint/underlint/internal/lint"
)

// Rect is an axis-aligned rectangle. The vertical axis direction is
// context-dependent: top-down for accessibility input, bottom-up after
// mapping into host space.
type Rect struct {
	X, Y          float64
	Width, Height float64
}

// IsDegenerate reports whether the rect has no area.
func (r Rect) IsDegenerate() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Style selects the underline rendering for a mark.
type Style uint8

const (
	// StyleSpelling marks spelling issues (red underline).
	StyleSpelling Style = iota

	// StyleGrammar marks grammar issues (blue underline).
	StyleGrammar
)

// String returns the style name.
func (s Style) String() string {
	switch s {
	case StyleSpelling:
		return "spelling"
	case StyleGrammar:
		return "grammar"
	default:
		return "unknown"
	}
}

// styleFor maps an issue kind to its mark style.
func styleFor(kind lint.IssueKind) Style {
	if kind == lint.KindGrammar {
		return StyleGrammar
	}
	return StyleSpelling
}

// Mark is one renderable underline in host space. Issue is retained for
// hit-testing and suggestion lookup.
type Mark struct {
	Rect  Rect
	Style Style
	Issue *lint.Issue
}

// Placement says which side of the underline a popup is anchored to.
type Placement uint8

const (
	// PlaceBelow anchors the popup directly below the underline.
	PlaceBelow Placement = iota

	// PlaceAbove anchors the popup above the underline when there is
	// not enough space below.
	PlaceAbove
)

// String returns the placement name.
func (p Placement) String() string {
	switch p {
	case PlaceBelow:
		return "below"
	case PlaceAbove:
		return "above"
	default:
		return "unknown"
	}
}

// Popup is a suggestion-popup placement in host space.
type Popup struct {
	Rect      Rect
	Placement Placement
}

// Geometry carries the parameters of the flip into host space.
type Geometry struct {
	// HostHeight is the height of the flipped-axis host area.
	HostHeight float64

	// OffsetY is the host-specific vertical offset added after the
	// flip.
	OffsetY float64
}

// MapRect converts a top-down accessibility rect into bottom-up host
// space. A degenerate input produces a zero-size rect at the mapped
// position.
func MapRect(r Rect, g Geometry) Rect {
	mapped := Rect{
		X:      r.X,
		Y:      g.HostHeight - (r.Y + r.Height) + g.OffsetY,
		Width:  r.Width,
		Height: r.Height,
	}
	if r.IsDegenerate() {
		mapped.Width = 0
		mapped.Height = 0
	}
	return mapped
}

// Calculator computes marks and popup placement from configuration.
type Calculator struct {
	// PopupMinWidth and PopupMaxWidth clamp the popup width.
	PopupMinWidth float64
	PopupMaxWidth float64

	// CharWidth approximates the rendered width of one suggestion
	// character when sizing the popup.
	CharWidth float64

	// RowHeight is the height of one suggestion row.
	RowHeight float64

	// MaxSuggestions caps the rows counted toward popup height.
	MaxSuggestions int
}

// DefaultCalculator returns production popup metrics.
func DefaultCalculator() Calculator {
	return Calculator{
		PopupMinWidth:  120,
		PopupMaxWidth:  360,
		CharWidth:      8,
		RowHeight:      22,
		MaxSuggestions: 5,
	}
}

// RectSource resolves an issue range to its accessibility-space
// bounding rect. It returns false when the range has no on-screen
// geometry (scrolled out of view).
type RectSource func(r lint.Range) (Rect, bool)

// Marks produces one mark per issue that has on-screen geometry.
// Issues without geometry are skipped, not errored.
func (c Calculator) Marks(result lint.Result, rects RectSource, g Geometry) []Mark {
	if rects == nil {
		return nil
	}

	marks := make([]Mark, 0, len(result.Issues))
	for i := range result.Issues {
		issue := &result.Issues[i]
		axRect, ok := rects(issue.Range)
		if !ok {
			continue
		}
		marks = append(marks, Mark{
			Rect:  MapRect(axRect, g),
			Style: styleFor(issue.Kind),
			Issue: issue,
		})
	}
	return marks
}

// Popup places the suggestion popup for a mark within the host-space
// screen rect. The popup goes directly below the underline when enough
// vertical space remains, otherwise above it. In bottom-up host space
// "below" means smaller Y.
func (c Calculator) Popup(mark Mark, screen Rect) Popup {
	issue := mark.Issue

	rows := 0
	longest := 0
	if issue != nil {
		rows = len(issue.Suggestions)
		if c.MaxSuggestions > 0 && rows > c.MaxSuggestions {
			rows = c.MaxSuggestions
		}
		for _, s := range issue.Suggestions {
			if n := len([]rune(s)); n > longest {
				longest = n
			}
		}
	}

	width := clamp(float64(longest)*c.CharWidth, c.PopupMinWidth, c.PopupMaxWidth)
	height := c.RowHeight * float64(rows)

	below := Rect{
		X:      mark.Rect.X,
		Y:      mark.Rect.Y - height,
		Width:  width,
		Height: height,
	}
	if below.Y >= screen.Y {
		return Popup{Rect: below, Placement: PlaceBelow}
	}

	above := below
	above.Y = mark.Rect.Y + mark.Rect.Height
	return Popup{Rect: above, Placement: PlaceAbove}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
