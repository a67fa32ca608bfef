// Package progress tracks memorized verses, the daily goal and the practice streak.
package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/hifz/internal/model"
)

// Keys under which progress is persisted.
const (
	KeyMemorized = "memorized_verses"
	KeyDaily     = "quran_daily_stats"
)

// Store is the persistent key-value contract.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Tracker applies memorization events to persisted progress.
type Tracker struct {
	store Store
	log   *zap.Logger
	now   func() time.Time

	memorized map[string]bool
	daily     model.DailyStats
}

// New returns a Tracker. now may be nil to use the wall clock.
func New(store Store, log *zap.Logger, now func() time.Time) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		store:     store,
		log:       log,
		now:       now,
		memorized: map[string]bool{},
	}
}

// Load reads persisted progress and applies any pending date rollover.
// defaultTarget is used when no daily record exists yet.
func (t *Tracker) Load(ctx context.Context, defaultTarget int) error {
	raw, ok, err := t.store.Get(ctx, KeyMemorized)
	if err != nil {
		return fmt.Errorf("failed to read memorized verses: %w", err)
	}
	t.memorized = map[string]bool{}
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &t.memorized); err != nil {
			t.log.Warn("discarding unreadable memorized verses", zap.Error(err))
			t.memorized = map[string]bool{}
		}
	}

	raw, ok, err = t.store.Get(ctx, KeyDaily)
	if err != nil {
		return fmt.Errorf("failed to read daily stats: %w", err)
	}
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &t.daily); err != nil {
			t.log.Warn("discarding unreadable daily stats", zap.Error(err))
			ok = false
		}
	}
	if !ok || t.daily.Date == "" {
		if defaultTarget < 1 {
			defaultTarget = 1
		}
		t.daily = model.DailyStats{Date: t.today(), Target: defaultTarget}
		return t.saveDaily(ctx)
	}
	if t.daily.Target < 1 {
		t.daily.Target = defaultTarget
	}
	return t.rollover(ctx)
}

// MarkMemorized flags key as memorized. Today's count grows only on a
// false-to-true transition.
func (t *Tracker) MarkMemorized(ctx context.Context, key string) (bool, error) {
	if err := t.rollover(ctx); err != nil {
		return false, err
	}
	if t.memorized[key] {
		return false, nil
	}
	t.memorized[key] = true
	t.daily.Memorized++
	if err := t.saveMemorized(ctx); err != nil {
		return true, err
	}
	return true, t.saveDaily(ctx)
}

// Unmark clears the flag for key. Today's count is never decremented.
func (t *Tracker) Unmark(ctx context.Context, key string) error {
	if err := t.rollover(ctx); err != nil {
		return err
	}
	if !t.memorized[key] {
		return nil
	}
	delete(t.memorized, key)
	return t.saveMemorized(ctx)
}

// Toggle flips the flag for key and returns the new value.
func (t *Tracker) Toggle(ctx context.Context, key string) (bool, error) {
	if t.memorized[key] {
		return false, t.Unmark(ctx, key)
	}
	_, err := t.MarkMemorized(ctx, key)
	return true, err
}

// IsMemorized reports the flag for key.
func (t *Tracker) IsMemorized(key string) bool {
	return t.memorized[key]
}

// MemorizedKeys returns every memorized key, sorted.
func (t *Tracker) MemorizedKeys() []string {
	keys := make([]string, 0, len(t.memorized))
	for k, v := range t.memorized {
		if v {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Stats returns today's record after applying any rollover.
func (t *Tracker) Stats(ctx context.Context) (model.DailyStats, error) {
	err := t.rollover(ctx)
	return t.daily, err
}

// GoalMet reports whether today's count reached the target.
func (t *Tracker) GoalMet() bool {
	return t.daily.Memorized >= t.daily.Target
}

// SetTarget changes the daily target.
func (t *Tracker) SetTarget(ctx context.Context, target int) error {
	if target < 1 {
		return fmt.Errorf("target must be >= 1")
	}
	if err := t.rollover(ctx); err != nil {
		return err
	}
	t.daily.Target = target
	return t.saveDaily(ctx)
}

// Reset clears memorized verses and today's record.
func (t *Tracker) Reset(ctx context.Context) error {
	t.memorized = map[string]bool{}
	target := t.daily.Target
	if target < 1 {
		target = 1
	}
	t.daily = model.DailyStats{Date: t.today(), Target: target}
	if err := t.saveMemorized(ctx); err != nil {
		return err
	}
	return t.saveDaily(ctx)
}

// rollover starts a new daily record when the calendar date changed. The
// streak survives only when the previous record is from yesterday and met
// its target.
func (t *Tracker) rollover(ctx context.Context) error {
	today := t.today()
	if t.daily.Date == today {
		return nil
	}
	prev := t.daily
	next := model.DailyStats{
		Date:         today,
		Target:       prev.Target,
		LastPractice: prev.Date,
	}
	if prev.Date == t.yesterday() && prev.Memorized >= prev.Target {
		next.Streak = prev.Streak + 1
	}
	t.daily = next
	t.log.Debug("daily rollover", zap.String("from", prev.Date), zap.String("to", today), zap.Int("streak", next.Streak))
	return t.saveDaily(ctx)
}

func (t *Tracker) today() string {
	return t.now().Format(model.DateLayout)
}

func (t *Tracker) yesterday() string {
	return t.now().AddDate(0, 0, -1).Format(model.DateLayout)
}

func (t *Tracker) saveMemorized(ctx context.Context) error {
	data, err := json.Marshal(t.memorized)
	if err != nil {
		return fmt.Errorf("failed to encode memorized verses: %w", err)
	}
	if err := t.store.Set(ctx, KeyMemorized, string(data)); err != nil {
		return fmt.Errorf("failed to save memorized verses: %w", err)
	}
	return nil
}

func (t *Tracker) saveDaily(ctx context.Context) error {
	data, err := json.Marshal(t.daily)
	if err != nil {
		return fmt.Errorf("failed to encode daily stats: %w", err)
	}
	if err := t.store.Set(ctx, KeyDaily, string(data)); err != nil {
		return fmt.Errorf("failed to save daily stats: %w", err)
	}
	return nil
}
