package editor

// PromptKind discriminates the modal UIs the Editor can have open. Grounded
// on the teacher's ModalType enum (internal/ui/modal.go), generalized from
// a chat-permission prompt to the editor's own modal surfaces.
type PromptKind int

const (
	PromptNone PromptKind = iota
	PromptCommand
	PromptFind
	PromptFileOpen
	PromptRename // spec.md §8 S3: a pending rename that never touches the buffer until committed
)

// Prompt is the Editor's single open modal, if any. While a prompt is
// open, Editor.HandleKey routes every keystroke to it instead of to the
// key-binding table (spec.md §4.7, step 1).
type Prompt struct {
	Kind     PromptKind
	Input    string
	Cursor   int // byte offset within Input
	Options  []string
	Selected int
	// OriginalText is the value PromptRename started from; Cancel restores
	// Input to it. Neither Cancel nor escape appends to the event log (S3).
	OriginalText string
}

// IsOpen reports whether a modal is currently capturing input.
func (p *Prompt) IsOpen() bool { return p != nil && p.Kind != PromptNone }

// OpenRename starts a rename prompt seeded with original, per scenario S3:
// typing in it never touches the buffer or the event log until committed.
func OpenRename(original string) *Prompt {
	return &Prompt{Kind: PromptRename, Input: original, OriginalText: original, Cursor: len(original)}
}

// Backspace removes the byte before Cursor.
func (p *Prompt) Backspace() {
	if p.Cursor == 0 {
		return
	}
	p.Input = p.Input[:p.Cursor-1] + p.Input[p.Cursor:]
	p.Cursor--
}

// Type inserts s at Cursor.
func (p *Prompt) Type(s string) {
	p.Input = p.Input[:p.Cursor] + s + p.Input[p.Cursor:]
	p.Cursor += len(s)
}

// Cancel discards the prompt's pending edits. The caller must not append
// any event for a canceled prompt — that is what keeps S3 true.
func (p *Prompt) Cancel() {
	p.Input = p.OriginalText
	p.Cursor = len(p.Input)
}
