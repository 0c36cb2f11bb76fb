// Package overlay implements keyed, prioritized byte-range decorations
// (spec.md §3.5, §4.5): syntax highlighting, diagnostics, selections-as-
// overlays, and similar presentational spans layered on top of a buffer.
package overlay

import "sort"

// Face selects which visual channel an overlay paints.
type Face int

const (
	Fg Face = iota
	Bg
	Underline
	Style
)

// Overlay is one decoration over [Start,End) with a priority used to break
// ties when overlays overlap; higher wins per channel.
type Overlay struct {
	ID       string
	Start    int64
	End      int64
	Face     Face
	Value    string // color name / style name, interpretation is the renderer's concern
	Priority uint16
	Message  string
}

// Store holds all overlays for one buffer. It is purely additive: adding
// or removing an overlay never rewrites another.
type Store struct {
	overlays []Overlay
}

// New returns an empty overlay store.
func New() *Store { return &Store{} }

// Add inserts or replaces (by ID) an overlay.
func (s *Store) Add(o Overlay) {
	if o.ID != "" {
		for i, existing := range s.overlays {
			if existing.ID == o.ID {
				s.overlays[i] = o
				return
			}
		}
	}
	s.overlays = append(s.overlays, o)
}

// Remove deletes the overlay with the given id, if present, returning the
// removed overlay so callers can build an inverse event.
func (s *Store) Remove(id string) (Overlay, bool) {
	for i, o := range s.overlays {
		if o.ID == id {
			s.overlays = append(s.overlays[:i], s.overlays[i+1:]...)
			return o, true
		}
	}
	return Overlay{}, false
}

// All returns every overlay, in insertion order.
func (s *Store) All() []Overlay {
	out := make([]Overlay, len(s.overlays))
	copy(out, s.overlays)
	return out
}

// GetSpansForRange returns overlays overlapping [start,end), sorted by
// priority ascending (so the renderer can paint in order and let the last,
// highest-priority overlay win per channel).
func (s *Store) GetSpansForRange(start, end int64) []Overlay {
	var out []Overlay
	for _, o := range s.overlays {
		if o.Start < end && o.End > start {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}

// ComposedStyle is the resolved per-channel style at a single byte
// position, after applying priority-ordered composition.
type ComposedStyle struct {
	Fg, Bg, Underline, Style string
}

// ComposeAt resolves the winning overlay value per channel at pos: the
// highest-priority overlay covering pos wins that channel, independent of
// the other channels.
func (s *Store) ComposeAt(pos int64) ComposedStyle {
	var out ComposedStyle
	var bestFg, bestBg, bestUl, bestSt int = -1, -1, -1, -1
	for _, o := range s.overlays {
		if pos < o.Start || pos >= o.End {
			continue
		}
		switch o.Face {
		case Fg:
			if int(o.Priority) >= bestFg {
				bestFg = int(o.Priority)
				out.Fg = o.Value
			}
		case Bg:
			if int(o.Priority) >= bestBg {
				bestBg = int(o.Priority)
				out.Bg = o.Value
			}
		case Underline:
			if int(o.Priority) >= bestUl {
				bestUl = int(o.Priority)
				out.Underline = o.Value
			}
		case Style:
			if int(o.Priority) >= bestSt {
				bestSt = int(o.Priority)
				out.Style = o.Value
			}
		}
	}
	return out
}
