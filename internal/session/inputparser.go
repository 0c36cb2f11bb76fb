package session

import "github.com/fresh-editor/fresh/internal/editor"

// Keystroke is one decoded input event: either a printable rune run (Text)
// or a named chord (Key), matching Editor.TypeRune / Editor.HandleKey.
type Keystroke struct {
	Text string
	Key  string
}

// ParseInput decodes a chunk of raw terminal input bytes from the data
// channel into Keystrokes. It recognizes C0 control codes (including
// ctrl+letter) and a handful of common CSI escape sequences; anything else
// printable is coalesced into Text runs so a pasted block becomes one
// TypeRune call instead of one per byte.
func ParseInput(data []byte) []Keystroke {
	var out []Keystroke
	var textRun []byte
	flush := func() {
		if len(textRun) > 0 {
			out = append(out, Keystroke{Text: string(textRun)})
			textRun = nil
		}
	}

	for i := 0; i < len(data); i++ {
		b := data[i]
		switch {
		case b == 0x1b && i+1 < len(data) && data[i+1] == '[':
			flush()
			seq, consumed := parseCSI(data[i:])
			if key, ok := csiKey[seq]; ok {
				out = append(out, Keystroke{Key: key})
			}
			i += consumed - 1
		case b == 0x7f || b == 0x08:
			flush()
			out = append(out, Keystroke{Key: "backspace"})
		case b == '\r' || b == '\n':
			flush()
			out = append(out, Keystroke{Key: "enter"})
		case b == 0x1b:
			flush()
			out = append(out, Keystroke{Key: "escape"})
		case b == 0x09:
			flush()
			out = append(out, Keystroke{Key: "tab"})
		case b >= 1 && b <= 26:
			flush()
			out = append(out, Keystroke{Key: "ctrl+" + string(rune('a'+b-1))})
		default:
			textRun = append(textRun, b)
		}
	}
	flush()
	return out
}

// parseCSI returns the raw escape sequence text (without ESC) and the
// number of bytes consumed, stopping at the first byte in 0x40-0x7e
// (the CSI final byte range).
func parseCSI(data []byte) (seq string, consumed int) {
	end := len(data)
	for i := 2; i < len(data); i++ {
		if data[i] >= 0x40 && data[i] <= 0x7e {
			end = i + 1
			break
		}
	}
	return string(data[1:end]), end
}

var csiKey = map[string]string{
	"[A": "up",
	"[B": "down",
	"[C": "right",
	"[D": "left",
	"[H": "home",
	"[F": "end",
	"[1~": "home",
	"[4~": "end",

	// xterm's modified-key encoding: CSI 1 ; <mod> <final>, mod 2 = shift.
	"[1;2A": "shift+up",
	"[1;2B": "shift+down",
	"[1;2C": "shift+right",
	"[1;2D": "shift+left",
	"[1;2H": "shift+home",
	"[1;2F": "shift+end",
}

// Apply routes a decoded keystroke into e.
func (k Keystroke) Apply(e *editor.Editor) {
	if k.Text != "" {
		e.TypeRune(k.Text)
		return
	}
	if k.Key != "" {
		e.HandleKey(k.Key)
	}
}
