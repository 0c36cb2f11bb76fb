// Package buffer wraps a persistent rope.Node with everything a text editor
// needs on top of raw bytes: a file path, a dirty flag, a lazily-built line
// index, UTF-8-aware boundaries, and file load/save.
package buffer

import (
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/fresh-editor/fresh/internal/rope"
)

// Filler is substituted for every absent gap byte when a Buffer's sparse
// regions are materialized (a single space renders gaps as blank lines in
// the viewport without special-casing them downstream).
const Filler = ' '

// chunkedLoadThreshold is the file size at or above which LoadFromFile
// reads in 64KiB chunks rather than in one read.
const chunkedLoadThreshold = 1 << 20 // 1 MiB
const loadChunkSize = 64 << 10       // 64 KiB

// Buffer owns a ChunkTree plus the bookkeeping an editor state needs.
type Buffer struct {
	tree      *rope.Node
	path      string
	modified  bool
	cache     *LineCache
}

// New returns an empty, untitled buffer.
func New() *Buffer {
	return &Buffer{tree: rope.New(), cache: newLineCache()}
}

// FromString returns a buffer seeded with s, not marked modified.
func FromString(s string) *Buffer {
	return &Buffer{tree: rope.FromSlice([]byte(s)), cache: newLineCache()}
}

// Path returns the buffer's associated file path, or "" if untitled.
func (b *Buffer) Path() string { return b.path }

// SetPath sets the buffer's associated file path without touching content.
func (b *Buffer) SetPath(p string) { b.path = p }

// Modified reports whether the buffer has unsaved edits.
func (b *Buffer) Modified() bool { return b.modified }

// Len returns the buffer's byte length.
func (b *Buffer) Len() int64 { return b.tree.Len() }

// Insert inserts text at pos, setting modified and invalidating the line
// cache. pos may exceed Len(), producing a gap (rope.Node.Insert semantics).
func (b *Buffer) Insert(pos int64, text []byte) {
	b.tree = b.tree.Insert(pos, text)
	b.modified = true
	b.cache.invalidate()
}

// Delete removes [start,end) from the buffer, setting modified and
// invalidating the line cache.
func (b *Buffer) Delete(start, end int64) {
	b.tree = b.tree.Remove(start, end)
	b.modified = true
	b.cache.invalidate()
}

// Slice reads [start,end), materializing any gaps as Filler bytes, and
// returns it as a string (lossy: invalid UTF-8 is tolerated, not rejected).
func (b *Buffer) Slice(start, end int64) string {
	return string(b.tree.Slice(start, end, Filler))
}

// Bytes materializes the whole buffer.
func (b *Buffer) Bytes() []byte {
	return b.tree.CollectBytes(Filler)
}

// ClearModified clears the dirty flag (called after a successful save).
func (b *Buffer) ClearModified() { b.modified = false }

// LineCount forces a full scan of the buffer and returns the exact line
// count. Documented as expensive for huge files — callers on a hot path
// should prefer ApproximateLineCount or DisplayLineNumber.
func (b *Buffer) LineCount() int {
	data := b.Bytes()
	b.cache.extendFully(data)
	return b.cache.lineCount()
}

// ApproximateLineCount returns the exact line count only if the cache has
// already been fully scanned (e.g. by a prior LineCount call); otherwise it
// returns (0, false) rather than forcing a scan.
func (b *Buffer) ApproximateLineCount() (int, bool) {
	if !b.cache.fullyScanned {
		return 0, false
	}
	return b.cache.lineCount(), true
}

// ensureScannedTo extends the line cache lazily to cover byte offset upTo,
// estimating how much further to scan when upTo lands beyond what's
// indexed so far.
func (b *Buffer) ensureScannedTo(upTo int64) {
	if b.cache.fullyScanned || b.cache.scannedUpTo >= upTo {
		return
	}
	data := b.Bytes()
	b.cache.extend(data, upTo)
}

// LineToByte returns the byte offset where line l begins. Lines beyond what
// has been scanned trigger a lazy scan extension.
func (b *Buffer) LineToByte(l int) int64 {
	if l < 0 {
		l = 0
	}
	for !b.cache.fullyScanned && l >= b.cache.lineCount() {
		// Estimate: each unindexed line needs at least 1 byte past the
		// last known start; extend generously to avoid repeated re-scans.
		want := b.cache.scannedUpTo + int64(l-b.cache.lineCount()+1)*64
		b.ensureScannedTo(want)
		if b.cache.scannedUpTo >= b.Len() {
			break
		}
	}
	if l >= b.cache.lineCount() {
		return b.Len()
	}
	return b.cache.starts[l]
}

// ByteToLine returns the 0-based line index containing byte offset pos.
func (b *Buffer) ByteToLine(pos int64) int {
	b.ensureScannedTo(pos + 1)
	for !b.cache.fullyScanned && b.cache.scannedUpTo <= pos {
		more := b.cache.scannedUpTo + loadChunkSize
		b.ensureScannedTo(more)
	}
	starts := b.cache.starts
	// Binary search for the last start <= pos.
	lo, hi := 0, len(starts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if starts[mid] <= pos {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// DisplayLineNumber is the renderer-facing line number for a byte offset:
// Absolute when the cache has scanned that far, Relative otherwise: the
// last indexed line plus the newlines counted between the scanned prefix
// and pos, computed without extending the cache, so opening a huge file
// never blocks on a full scan just to draw a line number.
type DisplayLineNumber struct {
	Absolute int
	Relative int
	IsAbsolute bool
}

func (b *Buffer) DisplayLineNumber(pos int64) DisplayLineNumber {
	if pos < b.cache.scannedUpTo || b.cache.fullyScanned {
		return DisplayLineNumber{Absolute: b.ByteToLine(pos), IsAbsolute: true}
	}
	// Not yet scanned: report lines past the last indexed one, counting
	// newlines in the unscanned gap between scannedUpTo and pos without
	// committing them to the cache.
	data := b.tree.Slice(b.cache.scannedUpTo, pos, Filler)
	k := 0
	for _, c := range data {
		if c == '\n' {
			k++
		}
	}
	return DisplayLineNumber{Relative: b.cache.lineCount() - 1 + k}
}

// FindNext performs a forward, wrap-around search for pattern starting at
// start, returning the byte offset of the first match or -1.
func (b *Buffer) FindNext(pattern string, start int64) int64 {
	if pattern == "" {
		return -1
	}
	data := b.Bytes()
	n := int64(len(data))
	if n == 0 {
		return -1
	}
	if start < 0 {
		start = 0
	}
	start %= n

	if idx := indexString(string(data[start:]), pattern); idx >= 0 {
		return start + int64(idx)
	}
	if idx := indexString(string(data[:start]), pattern); idx >= 0 {
		return int64(idx)
	}
	return -1
}

func indexString(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}

// NextCharBoundary returns the byte offset of the next UTF-8 rune boundary
// after pos (Len() at the end of the buffer).
func (b *Buffer) NextCharBoundary(pos int64) int64 {
	data := b.Bytes()
	if pos >= int64(len(data)) {
		return int64(len(data))
	}
	pos++
	for pos < int64(len(data)) && !utf8.RuneStart(data[pos]) {
		pos++
	}
	return pos
}

// PrevCharBoundary returns the byte offset of the UTF-8 rune boundary
// before pos (0 at the start of the buffer).
func (b *Buffer) PrevCharBoundary(pos int64) int64 {
	data := b.Bytes()
	if pos <= 0 {
		return 0
	}
	pos--
	for pos > 0 && !utf8.RuneStart(data[pos]) {
		pos--
	}
	return pos
}

// WordBoundary returns the start and end byte offsets of the word
// containing pos (a run of letters/digits/underscore, or a run of
// non-space punctuation, or a run of whitespace — whichever class pos
// falls in).
func (b *Buffer) WordBoundary(pos int64) (start, end int64) {
	data := b.Bytes()
	n := int64(len(data))
	if n == 0 {
		return 0, 0
	}
	if pos >= n {
		pos = n - 1
	}
	class := func(c byte) int {
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			return 0
		case isWordByte(c):
			return 1
		default:
			return 2
		}
	}
	c := class(data[pos])
	start, end = pos, pos
	for start > 0 && class(data[start-1]) == c {
		start--
	}
	for end < n && class(data[end]) == c {
		end++
	}
	return start, end
}

func isWordByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

// LoadFromFile loads path into a new, unmodified buffer, reading in 64KiB
// chunks once the file is at or above 1MiB so a single huge read never
// blocks the event loop for longer than one chunk.
func LoadFromFile(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	b := New()
	b.path = path

	if info.Size() < chunkedLoadThreshold {
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		b.tree = rope.FromSlice(data)
		b.modified = false
		return b, nil
	}

	var offset int64
	buf := make([]byte, loadChunkSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			b.tree = b.tree.Insert(offset, chunk)
			offset += int64(n)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}
	b.modified = false
	return b, nil
}

// SaveToFile serializes the buffer by iterating the tree and writing each
// piece (gaps as Filler), then clears the modified flag.
func (b *Buffer) SaveToFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	defer f.Close()

	w := &writeCounter{w: f}
	for _, p := range b.tree.Iter() {
		if p.IsGap() {
			filled := make([]byte, p.Gap)
			for i := range filled {
				filled[i] = Filler
			}
			if _, err := w.Write(filled); err != nil {
				return fmt.Errorf("save %s: %w", path, err)
			}
		} else {
			if _, err := w.Write(p.Data); err != nil {
				return fmt.Errorf("save %s: %w", path, err)
			}
		}
	}
	b.path = path
	b.modified = false
	return nil
}

type writeCounter struct {
	w io.Writer
	n int64
}

func (c *writeCounter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
