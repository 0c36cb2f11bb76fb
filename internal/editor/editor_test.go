package editor

import (
	"testing"

	"github.com/fresh-editor/fresh/internal/cursor"
	"github.com/fresh-editor/fresh/internal/event"
)

func TestTypeRuneInsertsAtEveryCursor(t *testing.T) {
	e := New()
	s := e.Active()
	primary := s.Cursors.PrimaryID()
	s.ApplyAndLog(event.Insert(0, "aaa\nbbb\nccc", primary))

	id1 := s.Cursors.AllocID()
	id2 := s.Cursors.AllocID()
	s.Apply(event.AddCursor(id1, 4, nil))
	s.Apply(event.AddCursor(id2, 8, nil))
	s.Apply(event.MoveCursor(primary, s.Cursors.Primary().Position, 0, nil, nil, 0, 0))

	e.TypeRune("X")

	want := "Xaaa\nXbbb\nXccc"
	if got := string(s.Buffer.Bytes()); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

// TestS2MultiCursorPasteMatchingLineCount is scenario S2 from spec.md §8:
// pasting 3 clipboard lines into 3 cursors distributes one line per cursor.
func TestS2MultiCursorPasteMatchingLineCount(t *testing.T) {
	e := New()
	s := e.Active()
	primary := s.Cursors.PrimaryID()
	s.ApplyAndLog(event.Insert(0, "\n\n", primary))
	// Three cursors, one per (empty) line.
	id1 := s.Cursors.AllocID()
	id2 := s.Cursors.AllocID()
	s.Apply(event.MoveCursor(primary, s.Cursors.Primary().Position, 0, nil, nil, 0, 0))
	s.Apply(event.AddCursor(id1, 1, nil))
	s.Apply(event.AddCursor(id2, 2, nil))

	e.Clipboard.Write("one\ntwo\nthree")
	e.paste()

	want := "one\ntwo\nthree"
	if got := string(s.Buffer.Bytes()); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

// When clipboard line count does not match cursor count, the whole
// clipboard text is pasted at every cursor.
func TestPasteMismatchedLineCountPastesWholeTextEverywhere(t *testing.T) {
	e := New()
	s := e.Active()
	primary := s.Cursors.PrimaryID()
	s.ApplyAndLog(event.Insert(0, "|", primary))
	id1 := s.Cursors.AllocID()
	s.Apply(event.MoveCursor(primary, s.Cursors.Primary().Position, 0, nil, nil, 0, 0))
	s.Apply(event.AddCursor(id1, 1, nil))

	e.Clipboard.Write("XY")
	e.paste()

	want := "XY|XY"
	if got := string(s.Buffer.Bytes()); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestPasteReplacesSelectionThenInserts(t *testing.T) {
	e := New()
	s := e.Active()
	primary := s.Cursors.PrimaryID()
	s.ApplyAndLog(event.Insert(0, "hello world", primary))

	anchor := int64(11)
	s.Apply(event.MoveCursor(primary, 11, 5, nil, &anchor, 0, 0))

	e.Clipboard.Write("bye")
	e.paste()

	if got := string(s.Buffer.Bytes()); got != "hellobye" {
		t.Fatalf("got %q", got)
	}
}

func TestPasteIsOneUndoStep(t *testing.T) {
	e := New()
	s := e.Active()
	primary := s.Cursors.PrimaryID()
	s.ApplyAndLog(event.Insert(0, "\n\n", primary))
	id1 := s.Cursors.AllocID()
	id2 := s.Cursors.AllocID()
	s.Apply(event.AddCursor(id1, 1, nil))
	s.Apply(event.AddCursor(id2, 2, nil))
	s.Apply(event.MoveCursor(primary, s.Cursors.Primary().Position, 0, nil, nil, 0, 0))

	before := string(s.Buffer.Bytes())
	e.Clipboard.Write("one\ntwo\nthree")
	e.paste()
	if !s.Undo() {
		t.Fatal("expected undo to succeed")
	}
	if got := string(s.Buffer.Bytes()); got != before {
		t.Fatalf("undo did not fully restore: got %q want %q", got, before)
	}
}

// TestS3RenameCancelLeavesBufferUntouched is scenario S3 from spec.md §8.
func TestS3RenameCancelLeavesBufferUntouched(t *testing.T) {
	e := New()
	s := e.Active()
	primary := s.Cursors.PrimaryID()
	s.ApplyAndLog(event.Insert(0, "let counter = 1;", primary))
	before := string(s.Buffer.Bytes())
	beforeLogLen := len(s.Log.Events())

	e.OpenPrompt(OpenRename("counter"))
	e.HandleKey("backspace")
	e.TypeRune("id")
	e.HandleKey("escape")

	if e.Prompt().IsOpen() {
		t.Fatal("expected prompt to be closed after escape")
	}
	if got := string(s.Buffer.Bytes()); got != before {
		t.Fatalf("buffer mutated by canceled rename prompt: got %q want %q", got, before)
	}
	if got := len(s.Log.Events()); got != beforeLogLen {
		t.Fatalf("event log grew from canceled rename prompt: got %d want %d", got, beforeLogLen)
	}
}

// TestS4WorkspaceEditIsOneUndoStep is scenario S4 from spec.md §8: an
// LSP-style multi-occurrence rename applied as N TextEdits, undone in one
// step regardless of how many edits it contained.
func TestS4WorkspaceEditIsOneUndoStep(t *testing.T) {
	e := New()
	s := e.Active()
	primary := s.Cursors.PrimaryID()
	s.ApplyAndLog(event.Insert(0, "foo = foo + foo", primary))
	before := string(s.Buffer.Bytes())

	edits := []event.Event{
		event.Delete(event.ByteRange{Start: 12, End: 15}, "foo", primary),
		event.Delete(event.ByteRange{Start: 6, End: 9}, "foo", primary),
		event.Delete(event.ByteRange{Start: 0, End: 3}, "foo", primary),
	}
	insertions := []event.Event{
		event.Insert(12, "bar", primary),
		event.Insert(6, "bar", primary),
		event.Insert(0, "bar", primary),
	}
	all := []event.Event{edits[0], insertions[0], edits[1], insertions[1], edits[2], insertions[2]}
	e.ApplyWorkspaceEdit(e.ActiveID(), all, "rename")

	if got := string(s.Buffer.Bytes()); got != "bar = bar + bar" {
		t.Fatalf("got %q", got)
	}
	if !s.Undo() {
		t.Fatal("expected undo to succeed")
	}
	if got := string(s.Buffer.Bytes()); got != before {
		t.Fatalf("workspace edit undo mismatch: got %q want %q", got, before)
	}
}

func TestSplitPaneTracksBothBuffers(t *testing.T) {
	e := New()
	second := e.OpenEmpty()
	e.Layout().SplitPane(Vertical, second)

	panes := e.Layout().Panes()
	if len(panes) != 2 {
		t.Fatalf("expected 2 panes, got %d", len(panes))
	}
}

func TestCopyThenPasteRoundTrips(t *testing.T) {
	e := New()
	s := e.Active()
	primary := s.Cursors.PrimaryID()
	s.ApplyAndLog(event.Insert(0, "hello world", primary))

	anchor := int64(0)
	s.Apply(event.MoveCursor(primary, 11, 5, nil, &anchor, 0, 0))
	e.performAction(Action{Name: "copy"})

	text, err := e.Clipboard.Read()
	if err != nil {
		t.Fatal(err)
	}
	if text != "hello" {
		t.Fatalf("got %q", text)
	}
	// Selection is untouched by a plain copy.
	if got := string(s.Buffer.Bytes()); got != "hello world" {
		t.Fatalf("copy mutated buffer: got %q", got)
	}
}

func TestCutRemovesSelection(t *testing.T) {
	e := New()
	s := e.Active()
	primary := s.Cursors.PrimaryID()
	s.ApplyAndLog(event.Insert(0, "hello world", primary))

	anchor := int64(11)
	s.Apply(event.MoveCursor(primary, 11, 5, nil, &anchor, 0, 0))
	e.performAction(Action{Name: "cut"})

	if got := string(s.Buffer.Bytes()); got != "hello" {
		t.Fatalf("got %q", got)
	}
}

func TestArrowKeysMoveCursorByChar(t *testing.T) {
	e := New()
	s := e.Active()
	primary := s.Cursors.PrimaryID()
	s.ApplyAndLog(event.Insert(0, "ab\ncd", primary))
	s.Apply(event.MoveCursor(primary, s.Cursors.Primary().Position, 0, nil, nil, 0, 0))

	e.HandleKey("right")
	e.HandleKey("right")
	if got := s.Cursors.Primary().Position; got != 2 {
		t.Fatalf("after two right moves, got position %d want 2", got)
	}

	e.HandleKey("left")
	if got := s.Cursors.Primary().Position; got != 1 {
		t.Fatalf("after left move, got position %d want 1", got)
	}
}

func TestDownArrowMovesToNextLinePreservingColumn(t *testing.T) {
	e := New()
	s := e.Active()
	primary := s.Cursors.PrimaryID()
	s.ApplyAndLog(event.Insert(0, "ab\ncd", primary))
	s.Apply(event.MoveCursor(primary, s.Cursors.Primary().Position, 0, nil, nil, 0, 0))

	e.HandleKey("right")
	e.HandleKey("right") // column 2, end of line 0
	e.HandleKey("down")  // line 1 ("cd") is only 2 chars long, clamp to its end

	if got := s.Cursors.Primary().Position; got != 5 {
		t.Fatalf("got position %d want 5", got)
	}

	e.HandleKey("up")
	if got := s.Cursors.Primary().Position; got != 2 {
		t.Fatalf("got position %d want 2", got)
	}
}

func TestShiftArrowStartsSelectionPlainArrowCollapsesIt(t *testing.T) {
	e := New()
	s := e.Active()
	primary := s.Cursors.PrimaryID()
	s.ApplyAndLog(event.Insert(0, "hello", primary))
	s.Apply(event.MoveCursor(primary, s.Cursors.Primary().Position, 0, nil, nil, 0, 0))

	e.HandleKey("shift+right")
	e.HandleKey("shift+right")
	c := s.Cursors.Primary()
	if !c.HasSelection() {
		t.Fatal("expected a selection after two shift+right moves")
	}
	if c.State != cursor.SelectingChar {
		t.Fatalf("got state %v want SelectingChar", c.State)
	}
	if start, end := c.Selection(); start != 0 || end != 2 {
		t.Fatalf("got selection [%d,%d) want [0,2)", start, end)
	}

	e.HandleKey("right")
	c = s.Cursors.Primary()
	if c.HasSelection() {
		t.Fatal("expected selection to collapse on a plain move")
	}
	if c.State != cursor.Idle {
		t.Fatalf("got state %v want Idle", c.State)
	}
}

func TestHomeEndMoveToLineBoundaries(t *testing.T) {
	e := New()
	s := e.Active()
	primary := s.Cursors.PrimaryID()
	s.ApplyAndLog(event.Insert(0, "hello world", primary))
	s.Apply(event.MoveCursor(primary, s.Cursors.Primary().Position, 5, nil, nil, 0, 0))

	e.HandleKey("home")
	if got := s.Cursors.Primary().Position; got != 0 {
		t.Fatalf("home: got %d want 0", got)
	}
	e.HandleKey("end")
	if got := s.Cursors.Primary().Position; got != 11 {
		t.Fatalf("end: got %d want 11", got)
	}
}

func TestEscapeCollapsesSelectionAndRemovesSecondaryCursors(t *testing.T) {
	e := New()
	s := e.Active()
	primary := s.Cursors.PrimaryID()
	s.ApplyAndLog(event.Insert(0, "hello", primary))
	id1 := s.Cursors.AllocID()
	s.Apply(event.AddCursor(id1, 4, nil))

	anchor := int64(0)
	s.Apply(event.MoveCursor(primary, s.Cursors.Primary().Position, 3, nil, &anchor, 0, 0))

	e.HandleKey("escape")

	if got := s.Cursors.Count(); got != 1 {
		t.Fatalf("got %d cursors after escape, want 1", got)
	}
	c := s.Cursors.Primary()
	if c.HasSelection() || c.State != cursor.Idle {
		t.Fatalf("expected collapsed Idle cursor, got %+v", c)
	}
}

func TestUndoRedoActionsDelegateToState(t *testing.T) {
	e := New()
	s := e.Active()
	primary := s.Cursors.PrimaryID()
	before := string(s.Buffer.Bytes())
	s.ApplyAndLog(event.Insert(0, "x", primary))
	e.performAction(Action{Name: "undo"})
	if got := string(s.Buffer.Bytes()); got != before {
		t.Fatalf("undo action failed: got %q", got)
	}
	e.performAction(Action{Name: "redo"})
	if got := string(s.Buffer.Bytes()); got != "x" {
		t.Fatalf("redo action failed: got %q", got)
	}
}
