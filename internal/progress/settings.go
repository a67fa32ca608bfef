package progress

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/verte-zerg/hifz/internal/model"
)

// Keys for persisted learner preferences.
const (
	KeyPlayback = "player_settings"
	KeyQuiz     = "quiz_settings"
)

// LoadPlayback returns the persisted playback settings, or fallback when none are stored.
func LoadPlayback(ctx context.Context, st Store, fallback model.PlaybackSettings) (model.PlaybackSettings, error) {
	out := fallback
	ok, err := loadJSON(ctx, st, KeyPlayback, &out)
	if err != nil || !ok {
		return fallback, err
	}
	return out, nil
}

// SavePlayback persists playback settings.
func SavePlayback(ctx context.Context, st Store, s model.PlaybackSettings) error {
	return saveJSON(ctx, st, KeyPlayback, s)
}

// LoadQuiz returns the persisted quiz settings, or fallback when none are stored.
func LoadQuiz(ctx context.Context, st Store, fallback model.QuizSettings) (model.QuizSettings, error) {
	out := fallback
	ok, err := loadJSON(ctx, st, KeyQuiz, &out)
	if err != nil || !ok {
		return fallback, err
	}
	return out, nil
}

// SaveQuiz persists quiz settings.
func SaveQuiz(ctx context.Context, st Store, s model.QuizSettings) error {
	return saveJSON(ctx, st, KeyQuiz, s)
}

func loadJSON(ctx context.Context, st Store, key string, v any) (bool, error) {
	raw, ok, err := st.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if !ok || raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func saveJSON(ctx context.Context, st Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := st.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}
