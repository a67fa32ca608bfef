package progress

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/verte-zerg/hifz/internal/model"
)

type memStore struct {
	data map[string]string
	sets int
}

func newMemStore() *memStore {
	return &memStore{data: map[string]string{}}
}

func (m *memStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) Set(_ context.Context, key, value string) error {
	m.sets++
	m.data[key] = value
	return nil
}

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time { return c.t }

func day(s string) time.Time {
	t, err := time.ParseInLocation(model.DateLayout, s, time.Local)
	if err != nil {
		panic(err)
	}
	return t.Add(10 * time.Hour)
}

func newTracker(t *testing.T, st *memStore, c *clock) *Tracker {
	t.Helper()
	tr := New(st, zaptest.NewLogger(t), c.now)
	if err := tr.Load(context.Background(), 3); err != nil {
		t.Fatalf("load: %v", err)
	}
	return tr
}

func TestMarkMemorizedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: day("2026-03-01")}
	tr := newTracker(t, newMemStore(), c)

	changed, err := tr.MarkMemorized(ctx, "1:1")
	if err != nil || !changed {
		t.Fatalf("expected first mark to change state, changed=%v err=%v", changed, err)
	}
	changed, err = tr.MarkMemorized(ctx, "1:1")
	if err != nil || changed {
		t.Fatalf("expected second mark to be a no-op, changed=%v err=%v", changed, err)
	}
	stats, _ := tr.Stats(ctx)
	if stats.Memorized != 1 {
		t.Fatalf("expected count 1, got %d", stats.Memorized)
	}
}

func TestToggleOffDoesNotDecrement(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: day("2026-03-01")}
	tr := newTracker(t, newMemStore(), c)

	if _, err := tr.Toggle(ctx, "2:255"); err != nil {
		t.Fatalf("toggle on: %v", err)
	}
	on, err := tr.Toggle(ctx, "2:255")
	if err != nil || on {
		t.Fatalf("expected toggle off, on=%v err=%v", on, err)
	}
	if tr.IsMemorized("2:255") {
		t.Fatalf("expected verse to be unmarked")
	}
	stats, _ := tr.Stats(ctx)
	if stats.Memorized != 1 {
		t.Fatalf("expected count to stay 1, got %d", stats.Memorized)
	}
	if _, err := tr.Toggle(ctx, "2:255"); err != nil {
		t.Fatalf("toggle on again: %v", err)
	}
	stats, _ = tr.Stats(ctx)
	if stats.Memorized != 2 {
		t.Fatalf("expected re-marking to count again, got %d", stats.Memorized)
	}
}

func TestRolloverKeepsStreakWhenGoalMet(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: day("2026-03-01")}
	st := newMemStore()
	tr := newTracker(t, st, c)
	for _, k := range []string{"1:1", "1:2", "1:3"} {
		if _, err := tr.MarkMemorized(ctx, k); err != nil {
			t.Fatalf("mark: %v", err)
		}
	}
	if !tr.GoalMet() {
		t.Fatalf("expected goal met")
	}

	c.t = day("2026-03-02")
	stats, err := tr.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := model.DailyStats{Date: "2026-03-02", Memorized: 0, Target: 3, Streak: 1, LastPractice: "2026-03-01"}
	if stats != want {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	var persisted model.DailyStats
	if err := json.Unmarshal([]byte(st.data[KeyDaily]), &persisted); err != nil {
		t.Fatalf("decode persisted: %v", err)
	}
	if persisted != want {
		t.Fatalf("rollover not persisted: %+v", persisted)
	}
}

func TestRolloverResetsStreakWhenGoalMissed(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: day("2026-03-01")}
	tr := newTracker(t, newMemStore(), c)
	if _, err := tr.MarkMemorized(ctx, "1:1"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	c.t = day("2026-03-02")
	stats, _ := tr.Stats(ctx)
	if stats.Streak != 0 {
		t.Fatalf("expected streak reset, got %d", stats.Streak)
	}
}

func TestRolloverResetsStreakAfterGap(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	prev := model.DailyStats{Date: "2026-03-01", Memorized: 5, Target: 3, Streak: 4}
	data, _ := json.Marshal(prev)
	st.data[KeyDaily] = string(data)

	c := &clock{t: day("2026-03-03")}
	tr := newTracker(t, st, c)
	stats, _ := tr.Stats(ctx)
	if stats.Streak != 0 || stats.LastPractice != "2026-03-01" || stats.Target != 3 {
		t.Fatalf("unexpected stats after gap: %+v", stats)
	}
}

func TestLoadRestoresMemorized(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	c := &clock{t: day("2026-03-01")}
	tr := newTracker(t, st, c)
	if _, err := tr.MarkMemorized(ctx, "112:1"); err != nil {
		t.Fatalf("mark: %v", err)
	}

	again := newTracker(t, st, c)
	if !again.IsMemorized("112:1") {
		t.Fatalf("expected memorized verse to survive reload")
	}
	if keys := again.MemorizedKeys(); len(keys) != 1 || keys[0] != "112:1" {
		t.Fatalf("unexpected keys: %v", keys)
	}
	stats, _ := again.Stats(ctx)
	if stats.Memorized != 1 {
		t.Fatalf("expected count to survive reload, got %d", stats.Memorized)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	fallback := model.DefaultPlaybackSettings()

	got, err := LoadPlayback(ctx, st, fallback)
	if err != nil || got != fallback {
		t.Fatalf("expected fallback, got %+v err=%v", got, err)
	}
	custom := fallback
	custom.ChapterID = 36
	custom.Repeats = 5
	if err := SavePlayback(ctx, st, custom); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err = LoadPlayback(ctx, st, fallback)
	if err != nil || got != custom {
		t.Fatalf("expected saved settings, got %+v err=%v", got, err)
	}
}

func TestRolloverFromStoredRecord(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	prev := model.DailyStats{Date: "2024-01-01", Memorized: 3, Target: 3, Streak: 2}
	data, _ := json.Marshal(prev)
	st.data[KeyDaily] = string(data)

	c := &clock{t: day("2024-01-02")}
	tr := newTracker(t, st, c)
	stats, err := tr.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := model.DailyStats{Date: "2024-01-02", Memorized: 0, Target: 3, Streak: 3, LastPractice: "2024-01-01"}
	if stats != want {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestSetTargetAndReset(t *testing.T) {
	st := newMemStore()
	c := &clock{t: day("2024-05-10")}
	tr := newTracker(t, st, c)
	ctx := context.Background()

	if err := tr.SetTarget(ctx, 0); err == nil {
		t.Fatalf("expected error for target 0")
	}
	if err := tr.SetTarget(ctx, 1); err != nil {
		t.Fatalf("set target: %v", err)
	}
	if _, err := tr.MarkMemorized(ctx, "2:255"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if !tr.GoalMet() {
		t.Fatalf("expected goal met with target 1")
	}

	if err := tr.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	stats, err := tr.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Memorized != 0 || stats.Target != 1 || stats.Streak != 0 {
		t.Fatalf("unexpected stats after reset: %+v", stats)
	}
	if tr.IsMemorized("2:255") || len(tr.MemorizedKeys()) != 0 {
		t.Fatalf("expected memorized set cleared")
	}
	if st.data[KeyMemorized] != "{}" {
		t.Fatalf("expected empty memorized blob, got %q", st.data[KeyMemorized])
	}
}
