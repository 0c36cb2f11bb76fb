package event

import "testing"

func TestInsertDeleteInvertRoundTrip(t *testing.T) {
	ins := Insert(4, "abc", 1)
	inv := ins.Invert()
	if inv.Kind != KindDelete {
		t.Fatalf("expected delete, got %v", inv.Kind)
	}
	if inv.Range != (ByteRange{Start: 4, End: 7}) || inv.DeletedText != "abc" {
		t.Fatalf("got %+v", inv)
	}
	if back := inv.Invert(); back.Kind != KindInsert || back.Position != 4 || back.Text != "abc" {
		t.Fatalf("double invert mismatch: %+v", back)
	}
}

func TestBatchFlattensNestedBatches(t *testing.T) {
	inner := Batch("inner", []Event{Insert(0, "a", 1), Insert(1, "b", 2)})
	outer := Batch("outer", []Event{inner, Insert(2, "c", 3)})
	if len(outer.Events) != 3 {
		t.Fatalf("expected flattened batch of 3 events, got %d", len(outer.Events))
	}
	for _, e := range outer.Events {
		if e.Kind == KindBatch {
			t.Fatal("batch should never nest")
		}
	}
}

func TestBatchInvertReversesOrder(t *testing.T) {
	b := Batch("multi", []Event{Insert(0, "a", 1), Insert(1, "b", 2)})
	inv := b.Invert()
	if len(inv.Events) != 2 {
		t.Fatalf("expected 2 inverse events")
	}
	// Original order inserted "a" then "b"; inverse must delete "b" first.
	if inv.Events[0].Range.Start != 1 || inv.Events[1].Range.Start != 0 {
		t.Fatalf("expected reversed order, got %+v", inv)
	}
}

func TestRemoveCursorInvertsToAddCursor(t *testing.T) {
	anchor := int64(5)
	rm := RemoveCursor(CursorSnapshot{CursorID: 3, Position: 10, Anchor: &anchor})
	add := rm.Invert()
	if add.Kind != KindAddCursor || add.CursorID != 3 || add.Position != 10 || *add.Anchor != 5 {
		t.Fatalf("got %+v", add)
	}
}

func TestLogAppendTruncatesRedoTail(t *testing.T) {
	l := NewLog()
	l.Append(Insert(0, "a", 1))
	l.Append(Insert(1, "b", 1))
	l.Undo()
	l.Append(Insert(1, "c", 1)) // should discard the undone "b" insert from redo tail
	if l.CanRedo() {
		t.Fatal("expected redo tail to be truncated by new append")
	}
	events := l.Events()
	if len(events) != 2 || events[1].Text != "c" {
		t.Fatalf("got %+v", events)
	}
}

func TestUndoRedoAreNoopsAtLogEnds(t *testing.T) {
	l := NewLog()
	if _, ok := l.Undo(); ok {
		t.Fatal("undo on empty log should be a no-op")
	}
	l.Append(Insert(0, "a", 1))
	if _, ok := l.Redo(); ok {
		t.Fatal("redo at head should be a no-op")
	}
}

func TestApplyEventsAsBatchIsOneLogEntry(t *testing.T) {
	l := NewLog()
	l.ApplyEventsAsBatch([]Event{Insert(3, "x", 1), Insert(1, "y", 2)}, "multi-cursor type")
	if len(l.Events()) != 1 {
		t.Fatalf("expected exactly one log entry for the batch, got %d", len(l.Events()))
	}
	// One undo should remove the whole batch in a single logical step.
	inv, ok := l.Undo()
	if !ok || inv.Kind != KindBatch {
		t.Fatalf("expected a batch inverse, got %+v ok=%v", inv, ok)
	}
	if len(l.Events()) != 0 {
		t.Fatalf("expected log empty after single undo of batch")
	}
}
