// Package editorstate implements the per-buffer state described in
// spec.md §3.6/§4.6: a Buffer, a CursorSet, an OverlayStore, an EventLog,
// and a Viewport, with Apply as the single function that mutates state.
package editorstate

import (
	"github.com/fresh-editor/fresh/internal/buffer"
	"github.com/fresh-editor/fresh/internal/cursor"
	"github.com/fresh-editor/fresh/internal/event"
	"github.com/fresh-editor/fresh/internal/overlay"
)

// State is one open buffer's full editable state.
type State struct {
	Buffer   *buffer.Buffer
	Cursors  *cursor.Set
	Overlays *overlay.Store
	Log      *event.Log
	Viewport Viewport
}

// New returns a fresh state over an empty buffer.
func New() *State {
	return &State{
		Buffer:   buffer.New(),
		Cursors:  cursor.NewSet(),
		Overlays: overlay.New(),
		Log:      event.NewLog(),
	}
}

// FromBuffer returns a fresh state wrapping an already-loaded buffer.
func FromBuffer(b *buffer.Buffer) *State {
	return &State{
		Buffer:   b,
		Cursors:  cursor.NewSet(),
		Overlays: overlay.New(),
		Log:      event.NewLog(),
	}
}

// ApplyAndLog appends e to the log and applies it — the normal path for
// editor-originated edits.
func (s *State) ApplyAndLog(e event.Event) {
	s.Log.Append(e)
	s.Apply(e)
}

// ApplyBatchAndLog wraps events into a single Batch log entry and applies
// it as one atomic step — the path multi-cursor operations use so a single
// undo reverts all of them (spec.md §8 property 6).
func (s *State) ApplyBatchAndLog(events []event.Event, label string) event.Event {
	b := s.Log.ApplyEventsAsBatch(events, label)
	s.Apply(b)
	return b
}

// Undo pops the log's last event (or batch), applies its inverse, and
// reports whether anything was undone.
func (s *State) Undo() bool {
	inv, ok := s.Log.Undo()
	if !ok {
		return false
	}
	s.Apply(inv)
	return true
}

// Redo re-applies the next event (or batch) past the current head.
func (s *State) Redo() bool {
	e, ok := s.Log.Redo()
	if !ok {
		return false
	}
	s.Apply(e)
	return true
}

// Apply mutates state according to e. It is total and is the only
// function in the package that changes Buffer/Cursors/Overlays — every
// other mutator in this package goes through it.
func (s *State) Apply(e event.Event) {
	switch e.Kind {
	case event.KindInsert:
		s.applyInsert(e)
	case event.KindDelete:
		s.applyDelete(e)
	case event.KindAddCursor:
		s.Cursors.Add(cursor.Cursor{ID: e.CursorID, Position: e.Position, Anchor: e.Anchor})
	case event.KindRemoveCursor:
		s.Cursors.Remove(e.CursorID)
	case event.KindMoveCursor:
		s.applyMoveCursor(e)
	case event.KindAddOverlay:
		s.Overlays.Add(overlay.Overlay{
			ID: e.OverlayID, Start: e.OverlayRange.Start, End: e.OverlayRange.End,
			Face: overlay.Face(e.OverlayFace), Priority: e.OverlayPriority, Message: e.OverlayMessage,
		})
	case event.KindRemoveOverlay:
		s.Overlays.Remove(e.OverlayID)
	case event.KindBatch:
		for _, child := range e.Events {
			s.Apply(child)
		}
	}
}

func (s *State) applyInsert(e event.Event) {
	pos := e.Position
	n := int64(len(e.Text))
	s.Buffer.Insert(pos, []byte(e.Text))

	for _, c := range s.Cursors.Iter() {
		updated := c
		changed := false
		if c.Position > pos {
			updated.Position += n
			changed = true
		}
		if c.Anchor != nil && *c.Anchor > pos {
			a := *c.Anchor + n
			updated.Anchor = &a
			changed = true
		}
		if c.ID == e.CursorID {
			updated.Position = pos + n
			changed = true
		}
		if changed {
			s.Cursors.Update(c.ID, updated)
		}
	}
}

func (s *State) applyDelete(e event.Event) {
	r := e.Range
	length := r.Len()
	s.Buffer.Delete(r.Start, r.End)

	for _, c := range s.Cursors.Iter() {
		if c.ID == e.CursorID {
			s.Cursors.Update(c.ID, cursor.Cursor{Position: r.Start, StickyColumn: c.StickyColumn})
			continue
		}
		updated := c
		updated.Position = shiftForDelete(c.Position, r.Start, r.End, length)
		if c.Anchor != nil {
			a := shiftForDelete(*c.Anchor, r.Start, r.End, length)
			updated.Anchor = &a
		}
		s.Cursors.Update(c.ID, updated)
	}
}

// shiftForDelete implements spec.md §4.6's delete-shift rule: positions at
// or before range.start are unchanged; positions inside the deleted range
// clamp to range.start; positions after it shift left by the range's length.
func shiftForDelete(pos, start, end, length int64) int64 {
	switch {
	case pos <= start:
		return pos
	case pos < end:
		return start
	default:
		return pos - length
	}
}

func (s *State) applyMoveCursor(e event.Event) {
	prior, _ := s.Cursors.ByID(e.CursorID)
	updated := cursor.Cursor{
		Position:     e.NewPosition,
		Anchor:       e.NewAnchor,
		Block:        prior.Block,
		StickyColumn: e.NewStickyColumn,
		State:        inputStateForAnchor(e.NewAnchor, prior.State),
	}
	s.Cursors.Update(e.CursorID, updated)
}

// inputStateForAnchor derives a cursor's selection-input state (spec.md
// §4.4) from its post-move anchor: any anchor means the cursor is mid
// selection, and the move that produced it distinguishes a word selection
// (add-cursor-at-next-match's initial word select) from a plain character
// selection. A move that clears the anchor always returns to Idle,
// including out of Block (there is no anchor-carrying way back into Block
// short of a fresh alt-drag, which sets it directly on the cursor).
func inputStateForAnchor(anchor *int64, prior cursor.InputState) cursor.InputState {
	if anchor == nil {
		return cursor.Idle
	}
	if prior == cursor.SelectingWord {
		return cursor.SelectingWord
	}
	return cursor.SelectingChar
}
