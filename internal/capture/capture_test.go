package capture

import "testing"

func TestDrawIsDeterministicForSameSequence(t *testing.T) {
	cells := []Cell{
		{X: 0, Y: 0, Grapheme: "h", Style: Style{Fg: "5;2"}},
		{X: 1, Y: 0, Grapheme: "i", Style: Style{Fg: "5;2"}},
		{X: 0, Y: 1, Grapheme: "!", Style: Style{Bold: true}},
	}

	a := New(80, 24)
	a.Draw(cells)
	outA := a.TakeBuffer()

	b := New(80, 24)
	b.Draw(cells)
	outB := b.TakeBuffer()

	if string(outA) != string(outB) {
		t.Fatalf("capture output not deterministic:\na=%q\nb=%q", outA, outB)
	}
}

func TestDrawCoalescesAdjacentSameStyleRun(t *testing.T) {
	b := New(80, 24)
	b.Draw([]Cell{
		{X: 0, Y: 0, Grapheme: "a", Style: Style{Fg: "5;1"}},
		{X: 1, Y: 0, Grapheme: "b", Style: Style{Fg: "5;1"}},
		{X: 2, Y: 0, Grapheme: "c", Style: Style{Fg: "5;1"}},
	})
	out := string(b.TakeBuffer())

	// Exactly one position escape (for the run's start) and one style
	// escape — same-style adjacent cells must not repeat either.
	posCount := countOccurrences(out, "\x1b[1;1H")
	if posCount != 1 {
		t.Fatalf("expected exactly one position escape for coalesced run, got %d in %q", posCount, out)
	}
	styleCount := countOccurrences(out, "38;5;1")
	if styleCount != 1 {
		t.Fatalf("expected exactly one style escape for coalesced run, got %d in %q", styleCount, out)
	}
}

func TestDrawEmitsNewStyleOnChange(t *testing.T) {
	b := New(80, 24)
	b.Draw([]Cell{
		{X: 0, Y: 0, Grapheme: "a", Style: Style{Fg: "5;1"}},
		{X: 1, Y: 0, Grapheme: "b", Style: Style{Fg: "5;2"}},
	})
	out := string(b.TakeBuffer())
	if countOccurrences(out, "\x1b[") < 2 {
		t.Fatalf("expected at least two escapes for differing styles, got %q", out)
	}
}

func TestResetStyleStateForcesFullRedraw(t *testing.T) {
	b := New(80, 24)
	b.Draw([]Cell{{X: 0, Y: 0, Grapheme: "a", Style: Style{Fg: "5;1"}}})
	_ = b.TakeBuffer()

	b.ResetStyleState()
	b.Draw([]Cell{{X: 0, Y: 0, Grapheme: "a", Style: Style{Fg: "5;1"}}})
	out := string(b.TakeBuffer())

	if countOccurrences(out, "\x1b[1;1H") != 1 {
		t.Fatalf("expected position escape to be re-emitted after reset, got %q", out)
	}
	if countOccurrences(out, "38;5;1") != 1 {
		t.Fatalf("expected style escape to be re-emitted after reset, got %q", out)
	}
}

func TestTakeBufferClearsAccumulatedOutput(t *testing.T) {
	b := New(80, 24)
	b.Draw([]Cell{{X: 0, Y: 0, Grapheme: "x"}})
	first := b.TakeBuffer()
	if len(first) == 0 {
		t.Fatal("expected non-empty buffer after draw")
	}
	second := b.TakeBuffer()
	if len(second) != 0 {
		t.Fatalf("expected empty buffer on second take, got %q", second)
	}
}

func TestResizeUpdatesSize(t *testing.T) {
	b := New(80, 24)
	b.Resize(100, 40)
	w, h := b.Size()
	if w != 100 || h != 40 {
		t.Fatalf("got %dx%d want 100x40", w, h)
	}
}

func countOccurrences(haystack, needle string) int {
	count := 0
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			count++
			i += len(needle) - 1
		}
	}
	return count
}
