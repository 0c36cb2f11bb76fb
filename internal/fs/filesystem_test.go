package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOSReadWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	f := New()

	if err := f.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := f.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("got %q", data)
	}
}

func TestOSIsNotExist(t *testing.T) {
	f := New()
	_, err := f.ReadFile(filepath.Join(t.TempDir(), "missing.txt"))
	if !f.IsNotExist(err) {
		t.Fatalf("expected IsNotExist for missing file, got %v", err)
	}
}

func TestOSMkdirAllThenReadDir(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "a", "b")
	f := New()
	if err := f.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdirall: %v", err)
	}
	if err := os.WriteFile(filepath.Join(sub, "x.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	entries, err := f.ReadDir(sub)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "x.txt" {
		t.Fatalf("got %+v", entries)
	}
}
