// Package model defines shared data structures.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Verse is one addressable unit of text with an optional recitation locator.
type Verse struct {
	ID       int
	Key      string // "chapter:position"
	Text     string
	Position int
	AudioURL string
}

// HasAudio reports whether the verse can be played.
func (v Verse) HasAudio() bool {
	return strings.TrimSpace(v.AudioURL) != ""
}

// VerseKey builds the "chapter:position" identifier.
func VerseKey(chapter, position int) string {
	return fmt.Sprintf("%d:%d", chapter, position)
}

// Chapter describes a chapter of the text.
type Chapter struct {
	ID         int
	NameSimple string
	NameArabic string
	VerseCount int
}

// Narrator is a reciter whose audio can be streamed.
type Narrator struct {
	ID   int
	Name string
}

// Narrators lists the built-in reciters.
var Narrators = []Narrator{
	{ID: 7, Name: "مشاري العفاسي"},
	{ID: 4, Name: "أبو بكر الشاطري"},
	{ID: 2, Name: "عبد الباسط عبد الصمد (مرتل)"},
}

// NarratorByID returns the narrator with the given id.
func NarratorByID(id int) (Narrator, bool) {
	for _, n := range Narrators {
		if n.ID == id {
			return n, true
		}
	}
	return Narrator{}, false
}

// PlaybackSettings configures a listening session.
type PlaybackSettings struct {
	ChapterID    int `json:"chapterId" validate:"gte=1,lte=114"`
	NarratorID   int `json:"narratorId" validate:"gte=1"`
	Repeats      int `json:"repeats" validate:"gte=1,lte=50"`
	DelaySeconds int `json:"delaySeconds" validate:"gte=0,lte=60"`
	Start        int `json:"start" validate:"gte=1"`
	End          int `json:"end" validate:"gtefield=Start"`
}

// Delay returns the configured pause between plays.
func (p PlaybackSettings) Delay() time.Duration {
	if p.DelaySeconds <= 0 {
		return 0
	}
	return time.Duration(p.DelaySeconds) * time.Second
}

// DefaultPlaybackSettings returns the first-run playback settings.
func DefaultPlaybackSettings() PlaybackSettings {
	return PlaybackSettings{
		ChapterID:    1,
		NarratorID:   7,
		Repeats:      3,
		DelaySeconds: 1,
		Start:        1,
		End:          7,
	}
}

// DailyStats tracks today's memorization count and the practice streak.
type DailyStats struct {
	Date         string `json:"date"`
	Memorized    int    `json:"ayahsMemorized"`
	Target       int    `json:"target"`
	Streak       int    `json:"streak"`
	LastPractice string `json:"lastPractice"`
}

// DateLayout is the calendar-date format used for DailyStats.
const DateLayout = "2006-01-02"

// QuizLevel controls question difficulty.
type QuizLevel string

// Quiz levels.
const (
	LevelEasy   QuizLevel = "easy"
	LevelMedium QuizLevel = "medium"
	LevelHard   QuizLevel = "hard"
)

// QuizScope selects which verses a question may be drawn from.
type QuizScope string

// Quiz scopes.
const (
	ScopeWard      QuizScope = "ward"
	ScopeChapter   QuizScope = "chapter"
	ScopeMemorized QuizScope = "memorized"
)

// QuestionKind discriminates question shapes.
type QuestionKind string

// Question kinds.
const (
	KindMultipleChoice QuestionKind = "mcq"
	KindReorder        QuestionKind = "reorder"
)

// QuizSettings holds the learner's quiz preferences.
type QuizSettings struct {
	Level QuizLevel    `json:"level" validate:"oneof=easy medium hard"`
	Scope QuizScope    `json:"scope" validate:"oneof=ward chapter memorized"`
	Kind  QuestionKind `json:"kind" validate:"oneof=mcq reorder"`
}

// DefaultQuizSettings returns the first-run quiz settings.
func DefaultQuizSettings() QuizSettings {
	return QuizSettings{Level: LevelMedium, Scope: ScopeWard, Kind: KindMultipleChoice}
}

// Question is a generated recall question.
// Options is set for multiple choice, Tokens for reorder.
type Question struct {
	Kind        QuestionKind
	Prompt      string
	Options     []string
	Tokens      []string
	Answer      string
	Explanation string
}

// QuestionRequest is what a question generator receives.
type QuestionRequest struct {
	ScopeLabel string
	Verses     []Verse
	Level      QuizLevel
	Kind       QuestionKind
}

// ListeningSession records a completed pass over a verse range.
type ListeningSession struct {
	StartedAt  time.Time
	EndedAt    time.Time
	ChapterID  int
	Start      int
	End        int
	Repeats    int
	NarratorID int
}

// QuizAttempt records one answered question.
type QuizAttempt struct {
	AnsweredAt time.Time
	Scope      QuizScope
	Level      QuizLevel
	Kind       QuestionKind
	VerseKey   string
	Correct    bool
	Fallback   bool
}

// Config holds the resolved runtime configuration.
type Config struct {
	Playback PlaybackSettings
	Quiz     QuizSettings
	Target   int `validate:"gte=1,lte=1000"`

	ContentBaseURL string        `validate:"required,url"`
	AudioBaseURL   string        `validate:"required,url"`
	ContentTimeout time.Duration `validate:"gt=0"`
	ContentRPS     float64       `validate:"gt=0"`
	CacheSize      int           `validate:"gte=1"`

	Provider         string        `validate:"oneof=gemini openai none"`
	Model            string        `validate:"required_unless=Provider none"`
	ProviderBaseURL  string        `validate:"omitempty,url"`
	APIKey           string        `validate:"required_unless=Provider none"`
	GeneratorTimeout time.Duration `validate:"gt=0"`

	AudioCommand string `validate:"required"`
	AudioArgs    []string

	LogPath string `validate:"required"`
	LogEnv  string `validate:"oneof=development production"`
}

// ReportConfig defines filters for the progress report.
type ReportConfig struct {
	Since *time.Time
	Last  int
}
