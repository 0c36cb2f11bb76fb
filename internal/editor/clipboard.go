package editor

// ClipboardMode selects whether Clipboard reaches out to the OS clipboard
// or stays purely in-process — tests lock it to Internal so they never
// touch (or depend on) the host's real clipboard.
type ClipboardMode int

const (
	ModeSystem ClipboardMode = iota
	ModeInternalOnly
)

// SystemClipboard is the narrow interface to an OS clipboard; production
// wiring supplies a real implementation, tests supply a fake or nil.
type SystemClipboard interface {
	ReadText() (string, error)
	WriteText(string) error
}

// Clipboard wraps an internal string plus the system/internal-only mode
// switch described in spec.md §4.7.
type Clipboard struct {
	internal string
	mode     ClipboardMode
	system   SystemClipboard
}

// NewClipboard returns a clipboard in system mode when sys is non-nil,
// internal-only otherwise.
func NewClipboard(sys SystemClipboard) *Clipboard {
	mode := ModeInternalOnly
	if sys != nil {
		mode = ModeSystem
	}
	return &Clipboard{mode: mode, system: sys}
}

// SetMode overrides the clipboard's mode (tests use this to lock out the
// OS clipboard even when a SystemClipboard was supplied).
func (c *Clipboard) SetMode(m ClipboardMode) { c.mode = m }

// Write stores text, going through the system clipboard unless in
// internal-only mode (or no system clipboard was wired).
func (c *Clipboard) Write(text string) error {
	c.internal = text
	if c.mode == ModeSystem && c.system != nil {
		return c.system.WriteText(text)
	}
	return nil
}

// Read returns the current clipboard text, preferring the system clipboard
// unless in internal-only mode.
func (c *Clipboard) Read() (string, error) {
	if c.mode == ModeSystem && c.system != nil {
		if text, err := c.system.ReadText(); err == nil {
			c.internal = text
			return text, nil
		}
	}
	return c.internal, nil
}
