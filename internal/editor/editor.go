// Package editor implements the multi-buffer/split coordinator described
// in spec.md §4.7: it owns every open buffer's EditorState, a layout tree
// of splits and tabs, the clipboard, modal prompts, and key/mouse routing.
package editor

import (
	"sort"
	"strings"

	"github.com/fresh-editor/fresh/internal/buffer"
	"github.com/fresh-editor/fresh/internal/cursor"
	"github.com/fresh-editor/fresh/internal/event"
	"github.com/fresh-editor/fresh/internal/editorstate"
)

// Action is the result of mapping a key through the binding table: a named
// editor command plus whatever argument it needs.
type Action struct {
	Name string
	Arg  string
}

// KeyBindings maps a key chord string (e.g. "ctrl+z", "alt+shift+up") to an
// Action name understood by Editor.performAction.
type KeyBindings map[string]string

// DefaultKeyBindings is a minimal, overridable table; cmd/fresh's
// runServer copies the configured keybindings on top of it.
func DefaultKeyBindings() KeyBindings {
	return KeyBindings{
		"ctrl+z":       "undo",
		"ctrl+y":       "redo",
		"ctrl+shift+z": "redo",
		"ctrl+c":       "copy",
		"ctrl+x":       "cut",
		"ctrl+v":       "paste",
		"ctrl+d":       "add_cursor_at_next_match",
		"alt+up":       "add_cursor_above",
		"alt+down":     "add_cursor_below",
		"escape":       "remove_secondary_cursors",
		"backspace":    "delete_backward",
		"delete":       "delete_forward",

		"left":  "move_left",
		"right": "move_right",
		"up":    "move_up",
		"down":  "move_down",
		"home":  "move_home",
		"end":   "move_end",

		"shift+left":  "select_left",
		"shift+right": "select_right",
		"shift+up":    "select_up",
		"shift+down":  "select_down",
		"shift+home":  "select_home",
		"shift+end":   "select_end",
	}
}

// Editor owns many EditorStates (one per open buffer), the layout tree,
// the clipboard, and routes input into events.
type Editor struct {
	states    map[BufferID]*editorstate.State
	nextID    BufferID
	layout    *LayoutNode
	activeTab BufferID

	Clipboard *Clipboard
	Bindings  KeyBindings
	prompt    *Prompt

	// SessionMode tells the renderer to defer to the terminal's hardware
	// cursor instead of drawing a software one — set when running under
	// the session server (spec.md §4.7).
	SessionMode bool

	quit   bool
	detach bool
}

// New returns an Editor with a single empty buffer open.
func New() *Editor {
	e := &Editor{
		states:    map[BufferID]*editorstate.State{},
		Clipboard: NewClipboard(nil),
		Bindings:  DefaultKeyBindings(),
	}
	id := e.OpenEmpty()
	e.layout = newPaneNode(id)
	e.activeTab = id
	return e
}

// OpenEmpty opens a new empty buffer and returns its id, without touching
// the layout tree (callers that want a visible tab call OpenInPane too).
func (e *Editor) OpenEmpty() BufferID {
	id := e.nextID
	e.nextID++
	e.states[id] = editorstate.New()
	return id
}

// OpenFile loads path into a new buffer and returns its id.
func (e *Editor) OpenFile(path string) (BufferID, error) {
	b, err := buffer.LoadFromFile(path)
	if err != nil {
		return -1, err
	}
	id := e.nextID
	e.nextID++
	e.states[id] = editorstate.FromBuffer(b)
	return id, nil
}

// OpenContent opens a new buffer over in-memory content rather than a
// file on disk, recording path as the buffer's path without reading it.
func (e *Editor) OpenContent(content []byte, path string) BufferID {
	b := buffer.FromString(string(content))
	b.SetPath(path)
	id := e.nextID
	e.nextID++
	e.states[id] = editorstate.FromBuffer(b)
	return id
}

// State returns the EditorState for id, if open.
func (e *Editor) State(id BufferID) (*editorstate.State, bool) {
	s, ok := e.states[id]
	return s, ok
}

// OpenBufferIDs returns every currently open buffer id, in no particular
// order. Used by cmd/fresh to persist the open-file set at shutdown and
// by the session server's recovery writes (spec.md §6.4).
func (e *Editor) OpenBufferIDs() []BufferID {
	ids := make([]BufferID, 0, len(e.states))
	for id := range e.states {
		ids = append(ids, id)
	}
	return ids
}

// Active returns the EditorState of the currently focused tab.
func (e *Editor) Active() *editorstate.State {
	return e.states[e.activeTab]
}

// ActiveID returns the currently focused buffer id.
func (e *Editor) ActiveID() BufferID { return e.activeTab }

// Focus makes id the active tab, if open.
func (e *Editor) Focus(id BufferID) {
	if _, ok := e.states[id]; ok {
		e.activeTab = id
	}
}

// Layout returns the root of the split/tab layout tree.
func (e *Editor) Layout() *LayoutNode { return e.layout }

// Prompt returns the currently open modal prompt, or nil.
func (e *Editor) Prompt() *Prompt { return e.prompt }

// OpenPrompt installs p as the Editor's modal, consuming subsequent keys.
func (e *Editor) OpenPrompt(p *Prompt) { e.prompt = p }

// ClosePrompt discards the current prompt without side effects — used by
// both successful commit and cancel paths; callers apply any resulting
// event themselves before calling this.
func (e *Editor) ClosePrompt() { e.prompt = nil }

// ShouldQuit reports whether a Quit action has been routed.
func (e *Editor) ShouldQuit() bool { return e.quit }

// ShouldDetach reports whether a Detach action has been routed.
func (e *Editor) ShouldDetach() bool { return e.detach }

// HandleKey routes one key chord: to the open prompt if any, otherwise
// through the key-binding table into an action (spec.md §4.7).
func (e *Editor) HandleKey(key string) {
	if e.prompt.IsOpen() {
		e.handlePromptKey(key)
		return
	}
	name, ok := e.Bindings[key]
	if !ok {
		return
	}
	e.performAction(Action{Name: name})
}

// TypeRune routes a single printed character: into the open prompt if any,
// otherwise as a multi-cursor insert at every cursor (spec.md §8 S1).
func (e *Editor) TypeRune(r string) {
	if e.prompt.IsOpen() {
		e.prompt.Type(r)
		return
	}
	e.insertAtEveryCursor(r)
}

func (e *Editor) handlePromptKey(key string) {
	p := e.prompt
	switch key {
	case "escape":
		// S3: cancel appends nothing to the event log; the buffer is
		// never touched by a pending rename.
		e.ClosePrompt()
	case "backspace":
		p.Backspace()
	case "enter":
		e.commitPrompt()
	}
}

func (e *Editor) commitPrompt() {
	// The core doesn't know what a rename resolves to (LSP is out of
	// scope) — committing simply closes the prompt here; a plugin/LSP
	// collaborator outside the core is expected to turn the commit into
	// a real Batch of TextEdits (scenario S4) via ApplyWorkspaceEdit.
	e.ClosePrompt()
}

func (e *Editor) performAction(a Action) {
	s := e.Active()
	switch a.Name {
	case "undo":
		s.Undo()
	case "redo":
		s.Redo()
	case "copy":
		e.copySelections(false)
	case "cut":
		e.copySelections(true)
	case "paste":
		e.paste()
	case "add_cursor_at_next_match":
		s.Cursors.AddCursorAtNextMatch(s.Buffer)
	case "add_cursor_above":
		e.addCursorVertical(-1)
	case "add_cursor_below":
		e.addCursorVertical(1)
	case "remove_secondary_cursors":
		s.Cursors.RemoveSecondary()
		e.collapseSelection()
	case "delete_backward":
		e.deleteAtEveryCursor(-1)
	case "delete_forward":
		e.deleteAtEveryCursor(1)
	case "move_left":
		e.moveEveryCursor(moveLeft, false)
	case "move_right":
		e.moveEveryCursor(moveRight, false)
	case "move_up":
		e.moveEveryCursor(moveUp, false)
	case "move_down":
		e.moveEveryCursor(moveDown, false)
	case "move_home":
		e.moveEveryCursor(moveHome, false)
	case "move_end":
		e.moveEveryCursor(moveEnd, false)
	case "select_left":
		e.moveEveryCursor(moveLeft, true)
	case "select_right":
		e.moveEveryCursor(moveRight, true)
	case "select_up":
		e.moveEveryCursor(moveUp, true)
	case "select_down":
		e.moveEveryCursor(moveDown, true)
	case "select_home":
		e.moveEveryCursor(moveHome, true)
	case "select_end":
		e.moveEveryCursor(moveEnd, true)
	case "quit":
		e.quit = true
	case "detach":
		e.detach = true
	}
}

// moveStep computes the position (and resulting sticky column) a single
// directional move lands cursor c on, within buf.
type moveStep func(buf *buffer.Buffer, c cursor.Cursor) (newPos int64, newSticky int)

func stickyColumnAt(buf *buffer.Buffer, pos int64) int {
	line := buf.ByteToLine(pos)
	return int(pos - buf.LineToByte(line))
}

// lineEndByte returns the byte offset just past line's last character,
// excluding its trailing newline if any.
func lineEndByte(buf *buffer.Buffer, line int) int64 {
	start := buf.LineToByte(line)
	end := buf.LineToByte(line + 1)
	if end > start && buf.Slice(end-1, end) == "\n" {
		end--
	}
	return end
}

func moveLeft(buf *buffer.Buffer, c cursor.Cursor) (int64, int) {
	pos := buf.PrevCharBoundary(c.Position)
	return pos, stickyColumnAt(buf, pos)
}

func moveRight(buf *buffer.Buffer, c cursor.Cursor) (int64, int) {
	pos := buf.NextCharBoundary(c.Position)
	return pos, stickyColumnAt(buf, pos)
}

// verticalLine implements the same sticky-column clamp AddCursorVertical
// uses, but for moving a cursor that already exists rather than adding one.
func verticalLine(buf *buffer.Buffer, c cursor.Cursor, delta int) int64 {
	line := buf.ByteToLine(c.Position) + delta
	if line < 0 {
		line = 0
	}
	lineStart := buf.LineToByte(line)
	end := lineEndByte(buf, line)
	pos := lineStart + int64(c.StickyColumn)
	if pos > end {
		pos = end
	}
	return pos
}

func moveUp(buf *buffer.Buffer, c cursor.Cursor) (int64, int) {
	return verticalLine(buf, c, -1), c.StickyColumn
}

func moveDown(buf *buffer.Buffer, c cursor.Cursor) (int64, int) {
	return verticalLine(buf, c, 1), c.StickyColumn
}

func moveHome(buf *buffer.Buffer, c cursor.Cursor) (int64, int) {
	line := buf.ByteToLine(c.Position)
	return buf.LineToByte(line), 0
}

func moveEnd(buf *buffer.Buffer, c cursor.Cursor) (int64, int) {
	line := buf.ByteToLine(c.Position)
	pos := lineEndByte(buf, line)
	return pos, stickyColumnAt(buf, pos)
}

// moveEveryCursor applies step to every cursor, driving the selection-input
// state machine (spec.md §4.4): extend keeps (or starts) a selection from
// each cursor's pre-move position and enters SelectingChar; a plain move
// collapses any selection and returns to Idle. One MoveCursor event per
// cursor, batched so undo reverts every cursor's move together.
func (e *Editor) moveEveryCursor(step moveStep, extend bool) {
	s := e.Active()
	cursors := s.Cursors.Iter()

	var events []event.Event
	for _, c := range cursors {
		newPos, newSticky := step(s.Buffer, c)

		var newAnchor *int64
		if extend {
			if c.Anchor != nil {
				a := *c.Anchor
				newAnchor = &a
			} else {
				a := c.Position
				newAnchor = &a
			}
		}

		if newPos == c.Position && anchorEqual(c.Anchor, newAnchor) {
			continue
		}
		events = append(events, event.MoveCursor(c.ID, c.Position, newPos, c.Anchor, newAnchor, c.StickyColumn, newSticky))
	}
	if len(events) == 0 {
		return
	}
	if len(events) == 1 {
		s.ApplyAndLog(events[0])
		return
	}
	s.ApplyBatchAndLog(events, "move")
}

func anchorEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// collapseSelection clears the primary cursor's selection and returns it to
// Idle, the non-shift-move/escape transition of spec.md §4.4's state
// machine. Called after remove_secondary_cursors, which already discards
// every other cursor's selection by discarding the cursor itself.
func (e *Editor) collapseSelection() {
	s := e.Active()
	p := s.Cursors.Primary()
	if p.Anchor == nil {
		return
	}
	s.ApplyAndLog(event.MoveCursor(p.ID, p.Position, p.Position, p.Anchor, nil, p.StickyColumn, p.StickyColumn))
}

func (e *Editor) addCursorVertical(delta int) {
	s := e.Active()
	primary := s.Cursors.Primary()
	line := s.Buffer.ByteToLine(primary.Position)
	s.Cursors.AddCursorVertical(s.Buffer, line+delta)
}

// insertAtEveryCursor implements typed-character multi-cursor insert: any
// selection under a cursor is deleted first (reverse-sorted), then text is
// inserted at every cursor, the whole thing committed as one batch.
func (e *Editor) insertAtEveryCursor(text string) {
	s := e.Active()
	cursors := s.Cursors.Iter()

	var events []event.Event
	type pending struct {
		id  int64
		pos int64
	}
	var inserts []pending

	// Deletions first, sorted by range start descending.
	type delOp struct {
		id         int64
		start, end int64
	}
	var dels []delOp
	for _, c := range cursors {
		if c.HasSelection() {
			start, end := c.Selection()
			dels = append(dels, delOp{c.ID, start, end})
		} else {
			inserts = append(inserts, pending{c.ID, c.Position})
		}
	}
	sort.Slice(dels, func(i, j int) bool { return dels[i].start > dels[j].start })
	for _, d := range dels {
		deleted := s.Buffer.Slice(d.start, d.end)
		events = append(events, event.Delete(event.ByteRange{Start: d.start, End: d.end}, deleted, d.id))
		inserts = append(inserts, pending{d.id, d.start})
	}

	sort.Slice(inserts, func(i, j int) bool { return inserts[i].pos > inserts[j].pos })
	for _, ins := range inserts {
		events = append(events, event.Insert(ins.pos, text, ins.id))
	}

	if len(events) == 0 {
		return
	}
	if len(events) == 1 {
		s.ApplyAndLog(events[0])
		return
	}
	s.ApplyBatchAndLog(events, "type")
}

// deleteAtEveryCursor deletes the selection (if any) or one character in
// direction (-1 backward, +1 forward) at every cursor, as one batch.
func (e *Editor) deleteAtEveryCursor(direction int) {
	s := e.Active()
	cursors := s.Cursors.Iter()

	type delOp struct {
		id         int64
		start, end int64
	}
	var dels []delOp
	for _, c := range cursors {
		if c.HasSelection() {
			start, end := c.Selection()
			dels = append(dels, delOp{c.ID, start, end})
			continue
		}
		if direction < 0 {
			prev := s.Buffer.PrevCharBoundary(c.Position)
			if prev < c.Position {
				dels = append(dels, delOp{c.ID, prev, c.Position})
			}
		} else {
			next := s.Buffer.NextCharBoundary(c.Position)
			if next > c.Position {
				dels = append(dels, delOp{c.ID, c.Position, next})
			}
		}
	}
	if len(dels) == 0 {
		return
	}
	sort.Slice(dels, func(i, j int) bool { return dels[i].start > dels[j].start })

	events := make([]event.Event, 0, len(dels))
	for _, d := range dels {
		deleted := s.Buffer.Slice(d.start, d.end)
		events = append(events, event.Delete(event.ByteRange{Start: d.start, End: d.end}, deleted, d.id))
	}
	if len(events) == 1 {
		s.ApplyAndLog(events[0])
		return
	}
	s.ApplyBatchAndLog(events, "delete")
}

func (e *Editor) copySelections(cut bool) {
	s := e.Active()
	cursors := s.Cursors.Iter()
	var parts []string
	var dels []event.Event
	type delOp struct {
		id         int64
		start, end int64
	}
	var ops []delOp
	for _, c := range cursors {
		if !c.HasSelection() {
			continue
		}
		start, end := c.Selection()
		parts = append(parts, s.Buffer.Slice(start, end))
		ops = append(ops, delOp{c.ID, start, end})
	}
	if len(parts) == 0 {
		return
	}
	e.Clipboard.Write(strings.Join(parts, "\n"))
	if !cut {
		return
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].start > ops[j].start })
	for _, d := range ops {
		deleted := s.Buffer.Slice(d.start, d.end)
		dels = append(dels, event.Delete(event.ByteRange{Start: d.start, End: d.end}, deleted, d.id))
	}
	if len(dels) == 1 {
		s.ApplyAndLog(dels[0])
	} else {
		s.ApplyBatchAndLog(dels, "cut")
	}
}

// paste implements spec.md §4.7's multi-cursor paste: for N cursors with M
// clipboard lines, if M == N, line i pastes at cursor i; otherwise the
// whole clipboard pastes at each cursor. Deletions for any selections come
// first (reverse-sorted), insertions follow, the whole thing is one batch.
func (e *Editor) paste() {
	s := e.Active()
	text, err := e.Clipboard.Read()
	if err != nil || text == "" {
		return
	}
	cursors := s.Cursors.Iter()
	lines := strings.Split(text, "\n")

	perCursorText := make(map[int64]string, len(cursors))
	if len(lines) == len(cursors) {
		for i, c := range cursors {
			perCursorText[c.ID] = lines[i]
		}
	} else {
		for _, c := range cursors {
			perCursorText[c.ID] = text
		}
	}

	type delOp struct {
		id         int64
		start, end int64
	}
	var dels []delOp
	type insOp struct {
		id   int64
		pos  int64
		text string
	}
	var inserts []insOp

	for _, c := range cursors {
		if c.HasSelection() {
			start, end := c.Selection()
			dels = append(dels, delOp{c.ID, start, end})
			inserts = append(inserts, insOp{c.ID, start, perCursorText[c.ID]})
		} else {
			inserts = append(inserts, insOp{c.ID, c.Position, perCursorText[c.ID]})
		}
	}

	var events []event.Event
	sort.Slice(dels, func(i, j int) bool { return dels[i].start > dels[j].start })
	for _, d := range dels {
		deleted := s.Buffer.Slice(d.start, d.end)
		events = append(events, event.Delete(event.ByteRange{Start: d.start, End: d.end}, deleted, d.id))
	}
	sort.Slice(inserts, func(i, j int) bool { return inserts[i].pos > inserts[j].pos })
	for _, ins := range inserts {
		events = append(events, event.Insert(ins.pos, ins.text, ins.id))
	}

	if len(events) == 0 {
		return
	}
	if len(events) == 1 {
		s.ApplyAndLog(events[0])
		return
	}
	s.ApplyBatchAndLog(events, "paste")
}

// ApplyWorkspaceEdit applies N TextEdits (e.g. an LSP rename) as a single
// batch, so one undo restores every occurrence (spec.md §8 S4). edits must
// already be sorted by range start descending.
func (e *Editor) ApplyWorkspaceEdit(id BufferID, edits []event.Event, label string) {
	s, ok := e.State(id)
	if !ok || len(edits) == 0 {
		return
	}
	if len(edits) == 1 {
		s.ApplyAndLog(edits[0])
		return
	}
	s.ApplyBatchAndLog(edits, label)
}
