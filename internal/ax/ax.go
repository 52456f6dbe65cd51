// Package ax is the boundary to the host OS accessibility tree.
//
// The real reader is a thin wrapper over the platform UI-introspection
// API and lives outside this module; consumers program against the
// Reader interface. Traversal is modeled as a lazy, depth-bounded pull
// sequence: cost and permission failure are deferred to first
// consumption, and a depth limit, not the size of the host UI tree,
// bounds the walk.
package ax

import (
	"context"
	"errors"

	"github.com/underlint/underlint/internal/overlay"
)

// ErrNotAccessible indicates the host has not granted UI-introspection
// permission. Fatal to monitoring until permission is granted; report
// once, do not retry in a tight loop.
var ErrNotAccessible = errors.New("accessibility permission not granted")

// Traversal depth bounds. Persisted settings are clamped into this
// window on write.
const (
	MinDepth     = 4
	MaxDepth     = 30
	DefaultDepth = 12
)

// ClampDepth forces a traversal depth into [MinDepth, MaxDepth].
func ClampDepth(d int) int {
	if d < MinDepth {
		return MinDepth
	}
	if d > MaxDepth {
		return MaxDepth
	}
	return d
}

// TextRange is a span of a field's text in rune offsets.
type TextRange struct {
	Start  int
	Length int
}

// Segment pairs a text range with its on-screen bounding rect in
// top-down accessibility coordinates.
type Segment struct {
	Range TextRange
	Rect  overlay.Rect
}

// Traversal is a lazy sequence of segments produced by one tree walk.
type Traversal struct {
	next func() (Segment, bool)
}

// NewTraversal wraps a pull function into a Traversal.
func NewTraversal(next func() (Segment, bool)) *Traversal {
	return &Traversal{next: next}
}

// Next returns the next segment, or ok=false when the walk is done.
func (t *Traversal) Next() (Segment, bool) {
	if t == nil || t.next == nil {
		return Segment{}, false
	}
	return t.next()
}

// Collect drains the traversal into a slice.
func (t *Traversal) Collect() []Segment {
	var segs []Segment
	for {
		seg, ok := t.Next()
		if !ok {
			return segs
		}
		segs = append(segs, seg)
	}
}

// Reader walks the accessibility tree under a focused element.
type Reader interface {
	// Read starts a lazy traversal of at most maxDepth segments under
	// the focused field. It returns ErrNotAccessible when the host
	// has not granted introspection permission.
	Read(ctx context.Context, fieldID string, maxDepth int) (*Traversal, error)
}

// ResolveRect locates the accessibility rect covering a text range,
// assuming a uniform per-character width within a segment. It returns
// false when no collected segment contains the range start.
func ResolveRect(segments []Segment, r TextRange, charWidth float64) (overlay.Rect, bool) {
	for _, seg := range segments {
		end := seg.Range.Start + seg.Range.Length
		if r.Start < seg.Range.Start || r.Start >= end {
			continue
		}
		offset := float64(r.Start-seg.Range.Start) * charWidth
		return overlay.Rect{
			X:      seg.Rect.X + offset,
			Y:      seg.Rect.Y,
			Width:  float64(r.Length) * charWidth,
			Height: seg.Rect.Height,
		}, true
	}
	return overlay.Rect{}, false
}
