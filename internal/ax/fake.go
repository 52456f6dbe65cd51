package ax

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/underlint/underlint/internal/overlay"
)

// FakeReader simulates the platform accessibility tree for tests and
// the demo command. Fields are laid out on a fixed character grid, one
// segment per line, in top-down coordinates.
type FakeReader struct {
	mu         sync.Mutex
	fields     map[string]*fakeField
	accessible bool

	// CharWidth and LineHeight define the character grid.
	CharWidth  float64
	LineHeight float64
}

type fakeField struct {
	text    string
	originX float64
	originY float64
}

// NewFakeReader creates an accessible fake reader with an 8x16 grid.
func NewFakeReader() *FakeReader {
	return &FakeReader{
		fields:     make(map[string]*fakeField),
		accessible: true,
		CharWidth:  8,
		LineHeight: 16,
	}
}

// SetAccessible toggles the simulated permission grant.
func (f *FakeReader) SetAccessible(ok bool) {
	f.mu.Lock()
	f.accessible = ok
	f.mu.Unlock()
}

// AddField registers a simulated text field at origin (x, y) and
// returns its generated field ID.
func (f *FakeReader) AddField(text string, x, y float64) string {
	id := uuid.NewString()
	f.mu.Lock()
	f.fields[id] = &fakeField{text: text, originX: x, originY: y}
	f.mu.Unlock()
	return id
}

// SetText replaces a field's text, simulating typing.
func (f *FakeReader) SetText(fieldID, text string) {
	f.mu.Lock()
	if fld, ok := f.fields[fieldID]; ok {
		fld.text = text
	}
	f.mu.Unlock()
}

// Text returns the field's current text snapshot.
func (f *FakeReader) Text(fieldID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fld, ok := f.fields[fieldID]; ok {
		return fld.text
	}
	return ""
}

// Read implements Reader. The traversal is lazy: each Next call
// produces one line segment, and the walk stops after maxDepth
// segments even for longer fields.
func (f *FakeReader) Read(_ context.Context, fieldID string, maxDepth int) (*Traversal, error) {
	f.mu.Lock()
	accessible := f.accessible
	fld, exists := f.fields[fieldID]
	var text string
	var originX, originY float64
	if exists {
		text = fld.text
		originX = fld.originX
		originY = fld.originY
	}
	f.mu.Unlock()

	if !accessible {
		return nil, ErrNotAccessible
	}
	if !exists {
		return NewTraversal(nil), nil
	}

	lines := strings.Split(text, "\n")
	line := 0
	offset := 0
	emitted := 0

	return NewTraversal(func() (Segment, bool) {
		if line >= len(lines) || emitted >= maxDepth {
			return Segment{}, false
		}

		current := lines[line]
		n := len([]rune(current))
		seg := Segment{
			Range: TextRange{Start: offset, Length: n},
			Rect: overlay.Rect{
				X:      originX,
				Y:      originY + float64(line)*f.LineHeight,
				Width:  float64(n) * f.CharWidth,
				Height: f.LineHeight,
			},
		}

		offset += n + 1 // the newline
		line++
		emitted++
		return seg, true
	}), nil
}
