package session

import "testing"

// TestS6FileLocationParsing is scenario S6 from spec.md §8.
func TestS6FileLocationParsing(t *testing.T) {
	cases := []struct {
		raw        string
		path       string
		line, col  *int
	}{
		{raw: "src/x.rs:42:10", path: "src/x.rs", line: intPtr(42), col: intPtr(10)},
		{raw: "/a/b:10", path: "/a/b", line: intPtr(10), col: nil},
		{raw: `C:\a\b.txt:3`, path: `C:\a\b.txt`, line: intPtr(3), col: nil},
		{raw: "foo:bar", path: "foo:bar", line: nil, col: nil},
	}

	for _, c := range cases {
		got := ParseFileLocation(c.raw)
		if got.Path != c.path {
			t.Errorf("%q: path = %q, want %q", c.raw, got.Path, c.path)
		}
		if !intPtrEqual(got.Line, c.line) {
			t.Errorf("%q: line = %v, want %v", c.raw, deref(got.Line), deref(c.line))
		}
		if !intPtrEqual(got.Column, c.col) {
			t.Errorf("%q: col = %v, want %v", c.raw, deref(got.Column), deref(c.col))
		}
	}
}

func TestParseFileLocationRemoteForm(t *testing.T) {
	got := ParseFileLocation("alice@build-host:/srv/app/main.go:88")
	if !got.Remote || got.User != "alice" || got.Host != "build-host" || got.Path != "/srv/app/main.go" {
		t.Fatalf("got %+v", got)
	}
	if got.Line == nil || *got.Line != 88 {
		t.Fatalf("expected line 88, got %v", deref(got.Line))
	}
}

func intPtr(n int) *int { return &n }

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func deref(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
