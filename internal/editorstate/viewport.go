package editorstate

// Viewport tracks what part of a buffer is visible. It is presentational
// only — events never shift it, and it is not covered by undo/redo.
type Viewport struct {
	FirstVisibleByte int64
	ScrollColumn     int
	Width            int
	Height           int
}
