package editorstate

import (
	"strings"
	"testing"

	"github.com/fresh-editor/fresh/internal/event"
)

func TestCursorShiftOnInsert(t *testing.T) {
	s := New()
	primary := s.Cursors.PrimaryID()
	s.ApplyAndLog(event.Insert(0, "hello world", primary))

	other := s.Cursors.AllocID()
	s.Apply(event.AddCursor(other, 6, nil))

	// Insert "X" at position 0 with the primary cursor; the other cursor
	// (at position 6, > 0) must shift right by len("X").
	s.ApplyAndLog(event.Insert(0, "X", primary))

	c, _ := s.Cursors.ByID(other)
	if c.Position != 7 {
		t.Fatalf("expected shifted position 7, got %d", c.Position)
	}
}

func TestCursorClampOnDelete(t *testing.T) {
	s := New()
	primary := s.Cursors.PrimaryID()
	s.ApplyAndLog(event.Insert(0, "0123456789", primary))

	inside := s.Cursors.AllocID()
	after := s.Cursors.AllocID()
	s.Apply(event.AddCursor(inside, 5, nil))
	s.Apply(event.AddCursor(after, 9, nil))

	// Delete [2,7): cursor at 5 is inside the range -> clamps to 2.
	// Cursor at 9 is after the range -> shifts left by 5.
	s.ApplyAndLog(event.Delete(event.ByteRange{Start: 2, End: 7}, "23456", primary))

	ic, _ := s.Cursors.ByID(inside)
	if ic.Position != 2 {
		t.Fatalf("expected clamp to 2, got %d", ic.Position)
	}
	ac, _ := s.Cursors.ByID(after)
	if ac.Position != 4 {
		t.Fatalf("expected shift to 4, got %d", ac.Position)
	}
}

// TestEventReplayDeterminism is property 4 from spec.md §8.
func TestEventReplayDeterminism(t *testing.T) {
	s := New()
	primary := s.Cursors.PrimaryID()
	s.ApplyAndLog(event.Insert(0, "abc\ndef", primary))
	other := s.Cursors.AllocID()
	s.ApplyAndLog(event.AddCursor(other, 1, nil))
	s.ApplyAndLog(event.Insert(1, "Z", primary))
	s.ApplyAndLog(event.Delete(event.ByteRange{Start: 0, End: 1}, "a", primary))

	replayed := New()
	for _, e := range s.Log.Events() {
		replayed.Apply(e)
	}

	if string(replayed.Buffer.Bytes()) != string(s.Buffer.Bytes()) {
		t.Fatalf("replay buffer mismatch: got %q want %q", replayed.Buffer.Bytes(), s.Buffer.Bytes())
	}
	if replayed.Cursors.Count() != s.Cursors.Count() {
		t.Fatalf("replay cursor count mismatch: got %d want %d", replayed.Cursors.Count(), s.Cursors.Count())
	}
	origPositions := map[int64]int64{}
	for _, c := range s.Cursors.Iter() {
		origPositions[c.ID] = c.Position
	}
	for _, c := range replayed.Cursors.Iter() {
		if want, ok := origPositions[c.ID]; !ok || want != c.Position {
			t.Fatalf("replay cursor %d position mismatch: got %d want %d", c.ID, c.Position, want)
		}
	}
}

// TestUndoInversionSingleEvent is property 5 from spec.md §8.
func TestUndoInversionSingleEvent(t *testing.T) {
	s := New()
	primary := s.Cursors.PrimaryID()
	before := string(s.Buffer.Bytes())
	s.ApplyAndLog(event.Insert(0, "hello", primary))
	if !s.Undo() {
		t.Fatal("expected undo to succeed")
	}
	if string(s.Buffer.Bytes()) != before {
		t.Fatalf("undo did not restore buffer: got %q", s.Buffer.Bytes())
	}
}

func TestUndoInversionBatch(t *testing.T) {
	s := New()
	primary := s.Cursors.PrimaryID()
	before := string(s.Buffer.Bytes())
	s.ApplyBatchAndLog([]event.Event{
		event.Insert(0, "a", primary),
		event.Insert(1, "b", primary),
	}, "multi")
	if !s.Undo() {
		t.Fatal("expected undo to succeed")
	}
	if string(s.Buffer.Bytes()) != before {
		t.Fatalf("batch undo did not restore buffer: got %q", s.Buffer.Bytes())
	}
}

// TestS1MultiCursorType is scenario S1 from spec.md §8.
func TestS1MultiCursorType(t *testing.T) {
	s := New()
	primary := s.Cursors.PrimaryID()
	s.ApplyAndLog(event.Insert(0, "aaa\nbbb\nccc\nddd", primary))

	id1 := s.Cursors.AllocID()
	id2 := s.Cursors.AllocID()
	id3 := s.Cursors.AllocID()
	s.Apply(event.AddCursor(id1, 4, nil))
	s.Apply(event.AddCursor(id2, 8, nil))
	s.Apply(event.AddCursor(id3, 12, nil))
	s.Apply(event.MoveCursor(primary, s.mustPos(primary), 0, nil, nil, 0, 0))

	// Type "X" at all four cursors: sort by range.start descending, i.e.
	// insert at the highest position first.
	s.ApplyBatchAndLog([]event.Event{
		event.Insert(12, "X", id3),
		event.Insert(8, "X", id2),
		event.Insert(4, "X", id1),
		event.Insert(0, "X", primary),
	}, "type")

	want := "Xaaa\nXbbb\nXccc\nXddd"
	if got := string(s.Buffer.Bytes()); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
	count := strings.Count(want, "X")
	if count != 4 {
		t.Fatalf("expected 4 X's, got %d", count)
	}

	if !s.Undo() {
		t.Fatal("expected undo to succeed")
	}
	if got := string(s.Buffer.Bytes()); got != "aaa\nbbb\nccc\nddd" {
		t.Fatalf("undo mismatch: got %q", got)
	}

	if !s.Redo() {
		t.Fatal("expected redo to succeed")
	}
	if got := string(s.Buffer.Bytes()); got != want {
		t.Fatalf("redo mismatch: got %q", got)
	}
}

func (s *State) mustPos(id int64) int64 {
	c, _ := s.Cursors.ByID(id)
	return c.Position
}
