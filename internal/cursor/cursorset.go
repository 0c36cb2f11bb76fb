package cursor

import (
	"sort"

	"github.com/fresh-editor/fresh/internal/buffer"
)

// Set is an ordered collection of cursors with exactly one primary. At
// least one cursor always exists.
type Set struct {
	cursors   []Cursor
	primaryID int64
	nextID    int64
}

// NewSet returns a set with a single primary cursor at position 0.
func NewSet() *Set {
	s := &Set{}
	id := s.allocID()
	s.cursors = []Cursor{{ID: id, Position: 0}}
	s.primaryID = id
	return s
}

func (s *Set) allocID() int64 {
	id := s.nextID
	s.nextID++
	return id
}

// AllocID reserves and returns the next free cursor id without creating a
// cursor, for callers building AddCursor events ahead of time (e.g. batch
// construction). Cursor ids are monotonically assigned and never reused.
func (s *Set) AllocID() int64 { return s.allocID() }

// Count returns the number of cursors.
func (s *Set) Count() int { return len(s.cursors) }

// Iter returns the cursors in sorted-by-position order.
func (s *Set) Iter() []Cursor {
	out := make([]Cursor, len(s.cursors))
	copy(out, s.cursors)
	return out
}

// Primary returns the primary cursor.
func (s *Set) Primary() Cursor {
	for _, c := range s.cursors {
		if c.ID == s.primaryID {
			return c
		}
	}
	// Normalization guarantees this is unreachable, but fail safe to the
	// first cursor rather than panicking mid-render.
	return s.cursors[0]
}

// PrimaryID returns the id of the primary cursor.
func (s *Set) PrimaryID() int64 { return s.primaryID }

// ByID returns the cursor with the given id, if present.
func (s *Set) ByID(id int64) (Cursor, bool) {
	for _, c := range s.cursors {
		if c.ID == id {
			return c, true
		}
	}
	return Cursor{}, false
}

// Add inserts a new cursor (assigning it the next free id if id is < 0) and
// normalizes the set.
func (s *Set) Add(c Cursor) int64 {
	if c.ID < 0 {
		c.ID = s.allocID()
	} else if c.ID >= s.nextID {
		s.nextID = c.ID + 1
	}
	s.cursors = append(s.cursors, c)
	s.normalize()
	return c.ID
}

// Remove removes the cursor with the given id, unless it is the only
// cursor left (a set may never become empty). Removing the primary
// promotes the lowest remaining id to primary.
func (s *Set) Remove(id int64) {
	if len(s.cursors) <= 1 {
		return
	}
	idx := -1
	for i, c := range s.cursors {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	s.cursors = append(s.cursors[:idx], s.cursors[idx+1:]...)
	if id == s.primaryID && len(s.cursors) > 0 {
		lowest := s.cursors[0].ID
		for _, c := range s.cursors[1:] {
			if c.ID < lowest {
				lowest = c.ID
			}
		}
		s.primaryID = lowest
	}
	s.normalize()
}

// RemoveSecondary keeps only the primary cursor, clearing all additions.
func (s *Set) RemoveSecondary() {
	for _, c := range s.cursors {
		if c.ID == s.primaryID {
			s.cursors = []Cursor{c}
			return
		}
	}
}

// SetPrimary designates the cursor with the given id as primary, if it
// exists.
func (s *Set) SetPrimary(id int64) {
	if _, ok := s.ByID(id); ok {
		s.primaryID = id
	}
}

// Update replaces the cursor with id with updated, then re-normalizes.
func (s *Set) Update(id int64, updated Cursor) {
	for i, c := range s.cursors {
		if c.ID == id {
			updated.ID = id
			s.cursors[i] = updated
			s.normalize()
			return
		}
	}
}

// normalize merges cursors with identical (position, anchor) and re-sorts
// by position for deterministic iteration.
func (s *Set) normalize() {
	sort.SliceStable(s.cursors, func(i, j int) bool {
		return s.cursors[i].Position < s.cursors[j].Position
	})

	type posKey struct {
		pos       int64
		hasAnchor bool
		anchor    int64
	}
	out := s.cursors[:0:0]
	seen := map[posKey]int{}
	for _, c := range s.cursors {
		key := posKey{pos: c.Position}
		if c.Anchor != nil {
			key.hasAnchor = true
			key.anchor = *c.Anchor
		}
		if i, ok := seen[key]; ok {
			// Merged away; if it happened to be the primary, hand
			// primary status to the survivor occupying the same slot.
			if c.ID == s.primaryID {
				s.primaryID = out[i].ID
			}
			continue
		}
		seen[key] = len(out)
		out = append(out, c)
	}
	s.cursors = out

	if _, ok := s.ByID(s.primaryID); !ok && len(s.cursors) > 0 {
		s.primaryID = s.cursors[len(s.cursors)-1].ID
	}
}

// AddAtNextMatchResult reports what AddCursorAtNextMatch did, since the
// spec gives it two distinct behaviors depending on whether the primary
// already had a selection.
type AddAtNextMatchResult struct {
	WordSelected bool  // true: no new cursor, the word under the cursor was selected
	NewCursorID  int64 // valid only when WordSelected is false
}

// AddCursorAtNextMatch implements "add cursor at next match": if the
// primary has a selection, it scans forward from the selection's end for
// the next literal occurrence of that selection's text and adds a cursor
// there with the same anchor-to-position offset. If the primary has no
// selection, it selects the word under the cursor instead and adds no
// cursor.
func (s *Set) AddCursorAtNextMatch(buf *buffer.Buffer) AddAtNextMatchResult {
	primary := s.Primary()
	if !primary.HasSelection() {
		start, end := buf.WordBoundary(primary.Position)
		anchor := start
		s.Update(primary.ID, Cursor{Position: end, Anchor: &anchor, StickyColumn: primary.StickyColumn, State: SelectingWord})
		return AddAtNextMatchResult{WordSelected: true}
	}

	selStart, selEnd := primary.Selection()
	text := buf.Slice(selStart, selEnd)
	offset := primary.Position - selStart // preserves which end was the live position

	match := buf.FindNext(text, selEnd)
	if match < 0 {
		return AddAtNextMatchResult{WordSelected: false, NewCursorID: -1}
	}

	newAnchor := match
	newPosition := match + int64(len(text))
	if offset == 0 {
		// Position was at the selection's start; keep that orientation.
		newPosition, newAnchor = newAnchor, newPosition
	}
	id := s.Add(Cursor{ID: -1, Position: newPosition, Anchor: &newAnchor})
	return AddAtNextMatchResult{NewCursorID: id}
}

// AddCursorVertical implements "add cursor above/below": derive a new
// cursor at targetLine using the primary's sticky column, clamping to the
// line's length.
func (s *Set) AddCursorVertical(buf *buffer.Buffer, targetLine int) int64 {
	primary := s.Primary()
	col := primary.StickyColumn
	lineStart := buf.LineToByte(targetLine)
	lineEnd := buf.LineToByte(targetLine + 1)
	if lineEnd > lineStart && buf.Slice(lineEnd-1, lineEnd) == "\n" {
		lineEnd--
	}
	pos := lineStart + int64(col)
	if pos > lineEnd {
		pos = lineEnd
	}
	return s.Add(Cursor{ID: -1, Position: pos, StickyColumn: col})
}
