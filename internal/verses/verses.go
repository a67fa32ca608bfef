// Package verses holds a chapter's verse list and the active inclusive range.
package verses

import "github.com/verte-zerg/hifz/internal/model"

// Range is the ordered verse list of one chapter plus a clamped [Start, End] window.
type Range struct {
	list  []model.Verse
	start int
	end   int
}

// New returns a Range over list with the requested bounds, clamped.
func New(list []model.Verse, start, end int) *Range {
	r := &Range{list: list, start: 1, end: 1}
	r.SetRange(start, end)
	return r
}

// SetVerses replaces the verse list and re-clamps the current bounds.
func (r *Range) SetVerses(list []model.Verse) {
	r.list = list
	r.SetRange(r.start, r.end)
}

// SetRange applies new bounds. Each bound is clamped to [1, len]. If the result
// would invert the order, the bound that moved is pulled onto the other one.
// The applied bounds are returned.
func (r *Range) SetRange(start, end int) (int, int) {
	maxPos := len(r.list)
	if maxPos < 1 {
		maxPos = 1
	}
	start = clamp(start, 1, maxPos)
	end = clamp(end, 1, maxPos)
	if start > end {
		if end != r.end && start == r.start {
			end = start
		} else if start != r.start && end == r.end {
			start = end
		} else {
			end = start
		}
	}
	r.start, r.end = start, end
	return start, end
}

// SetStart moves only the start bound.
func (r *Range) SetStart(start int) (int, int) {
	return r.SetRange(start, r.end)
}

// SetEnd moves only the end bound.
func (r *Range) SetEnd(end int) (int, int) {
	return r.SetRange(r.start, end)
}

// Bounds returns the current inclusive bounds.
func (r *Range) Bounds() (int, int) {
	return r.start, r.end
}

// Verses returns the full verse list.
func (r *Range) Verses() []model.Verse {
	return r.list
}

// Len returns the number of verses in the chapter.
func (r *Range) Len() int {
	return len(r.list)
}

// Active returns the verses whose position lies within the bounds, in order.
// An empty result means there is nothing to play or quiz.
func (r *Range) Active() []model.Verse {
	out := make([]model.Verse, 0, r.end-r.start+1)
	for _, v := range r.list {
		if v.Position >= r.start && v.Position <= r.end {
			out = append(out, v)
		}
	}
	return out
}

// DefaultEnd is the end bound chosen when a chapter is first opened.
func DefaultEnd(verseCount int) int {
	if verseCount < 5 {
		return verseCount
	}
	return 5
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
