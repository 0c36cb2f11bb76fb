// Package capture implements the CaptureBackend described in spec.md §4.8:
// a terminal backend that, instead of writing to a real tty, accumulates
// style-coalesced escape sequences into a byte buffer for transmission to
// session clients. Grounded on the teacher's VTerm (internal/egg/vterm.go),
// which builds reconnect snapshots by hand-formatting the same family of
// escapes (`\x1b[H`, `\x1b[m`, `\x1b[?25l`) rather than going through a
// higher-level terminal library.
package capture

import (
	"bytes"
	"fmt"
)

// Style is the subset of SGR attributes a cell can carry. Fg and Bg are
// empty for "use terminal default", or an SGR color spec ("5;N" for
// 256-color, "2;R;G;B" for truecolor, or a bare 0-7/8-15 basic code).
type Style struct {
	Fg        string
	Bg        string
	Bold      bool
	Italic    bool
	Underline bool
}

func (s Style) equal(o Style) bool {
	return s.Fg == o.Fg && s.Bg == o.Bg && s.Bold == o.Bold && s.Italic == o.Italic && s.Underline == o.Underline
}

// sgr renders the full SGR escape for s, always resetting first so runs
// never inherit an attribute from whatever the client's own buffer held.
func (s Style) sgr() string {
	var parts []string
	parts = append(parts, "0")
	if s.Bold {
		parts = append(parts, "1")
	}
	if s.Italic {
		parts = append(parts, "3")
	}
	if s.Underline {
		parts = append(parts, "4")
	}
	if s.Fg != "" {
		parts = append(parts, "38;"+s.Fg)
	}
	if s.Bg != "" {
		parts = append(parts, "48;"+s.Bg)
	}
	out := "\x1b["
	for i, p := range parts {
		if i > 0 {
			out += ";"
		}
		out += p
	}
	return out + "m"
}

// Cell is one grid position's content for Draw.
type Cell struct {
	X, Y     int
	Grapheme string
	Style    Style
}

// Cursor is a terminal cursor position, 0-based.
type Cursor struct {
	X, Y   int
	Hidden bool
}

// Backend is the CaptureBackend: it mirrors a minimal cell-grid terminal
// but writes into an internal buffer instead of a real tty.
type Backend struct {
	width, height int
	cursor        Cursor

	buf bytes.Buffer

	// coalescing state: where the emulated cursor last was and what style
	// was last emitted, so adjacent same-style runs collapse into one SGR
	// escape instead of one per cell.
	havePos    bool
	lastX      int
	lastY      int
	haveStyle  bool
	lastStyle  Style
}

// New returns a Backend sized width x height.
func New(width, height int) *Backend {
	return &Backend{width: width, height: height}
}

// Size returns the backend's current dimensions.
func (b *Backend) Size() (width, height int) { return b.width, b.height }

// Resize changes the backend's dimensions. It does not itself emit any
// escape; callers that need a full repaint call ResetStyleState and redraw.
func (b *Backend) Resize(width, height int) {
	b.width = width
	b.height = height
}

// GetCursor returns the last cursor position set by SetCursor.
func (b *Backend) GetCursor() Cursor { return b.cursor }

// SetCursor records the client's visible cursor position and emits the
// positioning + visibility escapes.
func (b *Backend) SetCursor(c Cursor) {
	b.cursor = c
	fmt.Fprintf(&b.buf, "\x1b[%d;%dH", c.Y+1, c.X+1)
	if c.Hidden {
		b.buf.WriteString("\x1b[?25l")
	} else {
		b.buf.WriteString("\x1b[?25h")
	}
	b.havePos = false // any explicit cursor move breaks draw-position coalescing
}

// Draw appends cells, coalescing consecutive same-style, same-row, adjacent
// cells into a single style escape followed by their graphemes — writing a
// position escape only when the next cell isn't where the cursor already
// sits after the previous one.
func (b *Backend) Draw(cells []Cell) {
	for _, c := range cells {
		if !b.havePos || b.lastY != c.Y || b.lastX != c.X {
			fmt.Fprintf(&b.buf, "\x1b[%d;%dH", c.Y+1, c.X+1)
		}
		if !b.haveStyle || !b.lastStyle.equal(c.Style) {
			b.buf.WriteString(c.Style.sgr())
			b.haveStyle = true
			b.lastStyle = c.Style
		}
		b.buf.WriteString(c.Grapheme)
		b.havePos = true
		b.lastX = c.X + cellWidth(c.Grapheme)
		b.lastY = c.Y
	}
}

// cellWidth approximates the terminal column width consumed by a grapheme;
// the editor is responsible for wide-rune accounting upstream (buffer word
// boundaries already treat UTF-8 correctly), so this only handles the
// common single-column case plus an explicit empty cell.
func cellWidth(g string) int {
	if g == "" {
		return 0
	}
	return 1
}

// TakeBuffer returns the accumulated output and clears it. Position/style
// coalescing state survives the take — the next Draw still benefits from
// knowing where the emulated cursor last was, unless ResetStyleState was
// also called.
func (b *Backend) TakeBuffer() []byte {
	out := make([]byte, b.buf.Len())
	copy(out, b.buf.Bytes())
	b.buf.Reset()
	return out
}

// ResetStyleState invalidates the coalescer so the next Draw call emits a
// full style escape (and position escape) for every cell regardless of
// whether it matches the previously emitted state — used on client
// reconnect to force a complete redraw.
func (b *Backend) ResetStyleState() {
	b.haveStyle = false
	b.havePos = false
}
