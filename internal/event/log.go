package event

// Log is the append-only sequence of edit events backing undo/redo. Events
// past the current head (the redo tail) are truncated whenever a new event
// is appended, matching a conventional linear undo history.
type Log struct {
	events []Event
	head   int // number of events currently "applied" (0..len(events))
}

// NewLog returns an empty event log.
func NewLog() *Log { return &Log{} }

// Append pushes event onto the log, first truncating any redo tail.
func (l *Log) Append(e Event) {
	l.events = l.events[:l.head]
	l.events = append(l.events, e)
	l.head = len(l.events)
}

// ApplyEventsAsBatch wraps events into a single Batch entry labeled label
// and appends it. Per spec.md §4.3, multi-cursor batches sort per-cursor
// range-bearing events by range start descending before being wrapped, so
// replaying them never shifts a not-yet-applied edit's byte positions —
// callers must pass events already in that order.
func (l *Log) ApplyEventsAsBatch(events []Event, label string) Event {
	b := Batch(label, events)
	l.Append(b)
	return b
}

// Undo returns the inverse of the last applied event (or batch) and moves
// the head back one step. Returns (Event{}, false) at the start of the log.
func (l *Log) Undo() (Event, bool) {
	if l.head == 0 {
		return Event{}, false
	}
	l.head--
	return l.events[l.head].Invert(), true
}

// Redo returns the event (or batch) just past the current head and
// advances the head. Returns (Event{}, false) at the end of the log.
func (l *Log) Redo() (Event, bool) {
	if l.head >= len(l.events) {
		return Event{}, false
	}
	e := l.events[l.head]
	l.head++
	return e, true
}

// Events returns the events currently applied, in application order
// (0..head). Folding these from an empty state must reproduce the current
// (Buffer, CursorSet) exactly — spec.md §8 property 4.
func (l *Log) Events() []Event {
	out := make([]Event, l.head)
	copy(out, l.events[:l.head])
	return out
}

// CanUndo reports whether Undo would return an event.
func (l *Log) CanUndo() bool { return l.head > 0 }

// CanRedo reports whether Redo would return an event.
func (l *Log) CanRedo() bool { return l.head < len(l.events) }
