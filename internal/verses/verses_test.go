package verses

import (
	"testing"

	"github.com/verte-zerg/hifz/internal/model"
)

func makeVerses(n int) []model.Verse {
	out := make([]model.Verse, n)
	for i := range out {
		out[i] = model.Verse{ID: i + 1, Key: model.VerseKey(1, i+1), Position: i + 1, Text: "آية"}
	}
	return out
}

func TestSetRangeClampsToBounds(t *testing.T) {
	r := New(makeVerses(7), 1, 7)
	start, end := r.SetRange(-3, 40)
	if start != 1 || end != 7 {
		t.Fatalf("expected [1,7], got [%d,%d]", start, end)
	}
}

func TestSetRangeNeverInverts(t *testing.T) {
	r := New(makeVerses(10), 3, 6)

	start, end := r.SetStart(9)
	if start != 6 || end != 6 {
		t.Fatalf("moving start past end: expected [6,6], got [%d,%d]", start, end)
	}

	r.SetRange(3, 6)
	start, end = r.SetEnd(1)
	if start != 3 || end != 3 {
		t.Fatalf("moving end before start: expected [3,3], got [%d,%d]", start, end)
	}

	start, end = r.SetRange(8, 2)
	if start > end {
		t.Fatalf("range inverted: [%d,%d]", start, end)
	}
}

func TestActiveFiltersByPosition(t *testing.T) {
	r := New(makeVerses(7), 2, 4)
	active := r.Active()
	if len(active) != 3 {
		t.Fatalf("expected 3 active verses, got %d", len(active))
	}
	for i, v := range active {
		if v.Position != i+2 {
			t.Fatalf("unexpected position at %d: %d", i, v.Position)
		}
	}
}

func TestSetVersesReclamps(t *testing.T) {
	r := New(makeVerses(10), 4, 9)
	r.SetVerses(makeVerses(5))
	start, end := r.Bounds()
	if start != 4 || end != 5 {
		t.Fatalf("expected [4,5], got [%d,%d]", start, end)
	}
}

func TestEmptyListYieldsEmptyActive(t *testing.T) {
	r := New(nil, 1, 5)
	start, end := r.Bounds()
	if start != 1 || end != 1 {
		t.Fatalf("expected [1,1], got [%d,%d]", start, end)
	}
	if got := len(r.Active()); got != 0 {
		t.Fatalf("expected no active verses, got %d", got)
	}
}

func TestDefaultEnd(t *testing.T) {
	if DefaultEnd(7) != 5 {
		t.Fatalf("expected 5 for long chapter")
	}
	if DefaultEnd(3) != 3 {
		t.Fatalf("expected 3 for short chapter")
	}
}
