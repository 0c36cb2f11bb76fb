// Package event defines the discriminated, invertible edit events that
// EditorState folds to produce all editor state (spec.md §3.3, §4.3).
package event

// ByteRange is a half-open [Start,End) byte range.
type ByteRange struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

func (r ByteRange) Len() int64 { return r.End - r.Start }

// CursorSnapshot is the full prior state of a cursor, carried by
// RemoveCursor so it can be inverted back into an AddCursor.
type CursorSnapshot struct {
	CursorID     int64  `json:"cursor_id"`
	Position     int64  `json:"position"`
	Anchor       *int64 `json:"anchor,omitempty"`
	BlockLine    *int   `json:"block_line,omitempty"`
	BlockCol     *int   `json:"block_col,omitempty"`
	StickyColumn int    `json:"sticky_column"`
}

// OverlaySnapshot is the full prior state of an overlay, carried by
// RemoveOverlay so it can be inverted back into an AddOverlay.
type OverlaySnapshot struct {
	OverlayID string    `json:"overlay_id"`
	Range     ByteRange `json:"range"`
	Face      int       `json:"face"`
	Priority  uint16    `json:"priority"`
	Message   string    `json:"message,omitempty"`
}

// Kind discriminates the Event variants.
type Kind string

const (
	KindInsert       Kind = "insert"
	KindDelete       Kind = "delete"
	KindAddCursor    Kind = "add_cursor"
	KindRemoveCursor Kind = "remove_cursor"
	KindMoveCursor   Kind = "move_cursor"
	KindAddOverlay   Kind = "add_overlay"
	KindRemoveOverlay Kind = "remove_overlay"
	KindBatch        Kind = "batch"
)

// Event is a single atomic change. Every event carries enough information
// to invert it; Invert is total and never needs to consult buffer state.
type Event struct {
	Kind Kind `json:"kind"`

	// Insert
	Position int64  `json:"position,omitempty"`
	Text     string `json:"text,omitempty"`
	CursorID int64  `json:"cursor_id,omitempty"`

	// Delete
	Range       ByteRange `json:"range,omitempty"`
	DeletedText string    `json:"deleted_text,omitempty"`

	// AddCursor
	Anchor *int64 `json:"anchor,omitempty"`

	// RemoveCursor
	PriorCursor *CursorSnapshot `json:"prior_cursor,omitempty"`

	// MoveCursor
	OldPosition      int64  `json:"old_position,omitempty"`
	NewPosition      int64  `json:"new_position,omitempty"`
	OldAnchor        *int64 `json:"old_anchor,omitempty"`
	NewAnchor        *int64 `json:"new_anchor,omitempty"`
	OldStickyColumn  int    `json:"old_sticky_column,omitempty"`
	NewStickyColumn  int    `json:"new_sticky_column,omitempty"`

	// AddOverlay
	OverlayID       string    `json:"overlay_id,omitempty"`
	OverlayRange    ByteRange `json:"overlay_range,omitempty"`
	OverlayFace     int       `json:"overlay_face,omitempty"`
	OverlayPriority uint16    `json:"overlay_priority,omitempty"`
	OverlayMessage  string    `json:"overlay_message,omitempty"`

	// RemoveOverlay
	PriorOverlay *OverlaySnapshot `json:"prior_overlay,omitempty"`

	// Batch
	Label  string  `json:"label,omitempty"`
	Events []Event `json:"events,omitempty"`
}

// Insert builds an Insert event.
func Insert(position int64, text string, cursorID int64) Event {
	return Event{Kind: KindInsert, Position: position, Text: text, CursorID: cursorID}
}

// Delete builds a Delete event. deletedText must be the text actually
// removed, so the event can be inverted without consulting the buffer.
func Delete(r ByteRange, deletedText string, cursorID int64) Event {
	return Event{Kind: KindDelete, Range: r, DeletedText: deletedText, CursorID: cursorID}
}

// AddCursor builds an AddCursor event.
func AddCursor(cursorID, position int64, anchor *int64) Event {
	return Event{Kind: KindAddCursor, CursorID: cursorID, Position: position, Anchor: anchor}
}

// RemoveCursor builds a RemoveCursor event carrying the cursor's full prior
// state so it can be restored on undo.
func RemoveCursor(priorState CursorSnapshot) Event {
	return Event{Kind: KindRemoveCursor, CursorID: priorState.CursorID, PriorCursor: &priorState}
}

// MoveCursor builds a MoveCursor event.
func MoveCursor(cursorID, oldPos, newPos int64, oldAnchor, newAnchor *int64, oldSticky, newSticky int) Event {
	return Event{
		Kind: KindMoveCursor, CursorID: cursorID,
		OldPosition: oldPos, NewPosition: newPos,
		OldAnchor: oldAnchor, NewAnchor: newAnchor,
		OldStickyColumn: oldSticky, NewStickyColumn: newSticky,
	}
}

// AddOverlay builds an AddOverlay event.
func AddOverlay(overlayID string, r ByteRange, face int, priority uint16, message string) Event {
	return Event{
		Kind: KindAddOverlay, OverlayID: overlayID, OverlayRange: r,
		OverlayFace: face, OverlayPriority: priority, OverlayMessage: message,
	}
}

// RemoveOverlay builds a RemoveOverlay event carrying the overlay's full
// prior state so it can be restored on undo.
func RemoveOverlay(prior OverlaySnapshot) Event {
	return Event{Kind: KindRemoveOverlay, OverlayID: prior.OverlayID, PriorOverlay: &prior}
}

// Batch wraps events into a single atomic logical entry. Nested batches are
// flattened — a Batch built from events that include another Batch absorbs
// that batch's children directly.
func Batch(label string, events []Event) Event {
	flat := make([]Event, 0, len(events))
	for _, e := range events {
		if e.Kind == KindBatch {
			flat = append(flat, e.Events...)
		} else {
			flat = append(flat, e)
		}
	}
	return Event{Kind: KindBatch, Label: label, Events: flat}
}

// Invert returns the event that undoes e. Every variant carries enough
// information in itself to compute this without consulting buffer state.
func (e Event) Invert() Event {
	switch e.Kind {
	case KindInsert:
		return Delete(ByteRange{Start: e.Position, End: e.Position + int64(len(e.Text))}, e.Text, e.CursorID)
	case KindDelete:
		return Insert(e.Range.Start, e.DeletedText, e.CursorID)
	case KindAddCursor:
		return RemoveCursor(CursorSnapshot{CursorID: e.CursorID, Position: e.Position, Anchor: e.Anchor})
	case KindRemoveCursor:
		return AddCursor(e.PriorCursor.CursorID, e.PriorCursor.Position, e.PriorCursor.Anchor)
	case KindMoveCursor:
		return MoveCursor(e.CursorID, e.NewPosition, e.OldPosition, e.NewAnchor, e.OldAnchor, e.NewStickyColumn, e.OldStickyColumn)
	case KindAddOverlay:
		return RemoveOverlay(OverlaySnapshot{
			OverlayID: e.OverlayID, Range: e.OverlayRange, Face: e.OverlayFace,
			Priority: e.OverlayPriority, Message: e.OverlayMessage,
		})
	case KindRemoveOverlay:
		return AddOverlay(e.PriorOverlay.OverlayID, e.PriorOverlay.Range, e.PriorOverlay.Face, e.PriorOverlay.Priority, e.PriorOverlay.Message)
	case KindBatch:
		inv := make([]Event, len(e.Events))
		for i, child := range e.Events {
			inv[len(e.Events)-1-i] = child.Invert()
		}
		return Event{Kind: KindBatch, Label: e.Label, Events: inv}
	}
	return Event{}
}
