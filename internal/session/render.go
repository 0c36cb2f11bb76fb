package session

import (
	"github.com/fresh-editor/fresh/internal/capture"
	"github.com/fresh-editor/fresh/internal/editorstate"
	"github.com/fresh-editor/fresh/internal/overlay"
)

// renderCells flattens one EditorState's visible viewport into a cell
// sequence for capture.Backend.Draw, applying overlay composition
// (spec.md §4.5) and highlighting every cursor's byte position.
func renderCells(s *editorstate.State) []capture.Cell {
	vp := s.Viewport
	width, height := vp.Width, vp.Height
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 24
	}

	cursorPositions := map[int64]bool{}
	for _, c := range s.Cursors.Iter() {
		cursorPositions[c.Position] = true
	}

	var cells []capture.Cell
	pos := vp.FirstVisibleByte
	total := s.Buffer.Len()

	for row := 0; row < height; row++ {
		col := 0
		for col < width && pos < total {
			b := s.Buffer.Slice(pos, pos+1)
			if b == "\n" {
				pos++
				break
			}
			style := composedToStyle(s.Overlays.ComposeAt(pos))
			if cursorPositions[pos] {
				style.Bg = "5;237"
			}
			cells = append(cells, capture.Cell{X: col, Y: row, Grapheme: b, Style: style})
			pos++
			col++
		}
		if pos >= total {
			break
		}
	}
	return cells
}

func composedToStyle(c overlay.ComposedStyle) capture.Style {
	return capture.Style{
		Fg:        c.Fg,
		Bg:        c.Bg,
		Underline: c.Underline != "",
	}
}
