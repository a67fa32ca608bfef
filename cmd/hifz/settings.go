package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/hifz/internal/audio"
	"github.com/verte-zerg/hifz/internal/config"
	"github.com/verte-zerg/hifz/internal/content"
	"github.com/verte-zerg/hifz/internal/generator"
	"github.com/verte-zerg/hifz/internal/model"
)

const (
	defaultTarget      = 3
	defaultProvider    = generator.ProviderGemini
	defaultTrendWindow = 7
	defaultLogEnv      = "production"
	freshRangeEnd      = 5

	defaultGeneratorTimeout = 30 * time.Second
)

var defaultModels = map[string]string{
	generator.ProviderGemini: "gemini-2.5-flash",
	generator.ProviderOpenAI: "gpt-4o-mini",
}

// apiKeyEnv names the environment variable holding the provider key.
func apiKeyEnv(provider string) string {
	switch provider {
	case generator.ProviderOpenAI:
		return "OPENAI_API_KEY"
	default:
		return "GEMINI_API_KEY"
	}
}

// resolveConfig merges the config file with the flag values and the environment.
// Flag variables must already carry file values for unchanged flags.
func resolveConfig(fc config.FileConfig, getenv func(string) string) model.Config {
	playback := model.DefaultPlaybackSettings()
	playback.ChapterID = flagChapter
	playback.NarratorID = flagNarrator
	playback.Repeats = flagRepeats
	playback.DelaySeconds = flagDelay
	if playback.ChapterID != model.DefaultPlaybackSettings().ChapterID {
		playback.Start = 1
		playback.End = freshRangeEnd
	}

	quiz := model.DefaultQuizSettings()
	if fc.Quiz.Level != nil {
		quiz.Level = model.QuizLevel(*fc.Quiz.Level)
	}
	if fc.Quiz.Scope != nil {
		quiz.Scope = model.QuizScope(*fc.Quiz.Scope)
	}
	if fc.Quiz.Kind != nil {
		quiz.Kind = model.QuestionKind(*fc.Quiz.Kind)
	}

	cfg := model.Config{
		Playback:         playback,
		Quiz:             quiz,
		Target:           flagTarget,
		ContentBaseURL:   content.DefaultBaseURL,
		AudioBaseURL:     content.DefaultAudioBaseURL,
		ContentTimeout:   content.DefaultTimeout,
		ContentRPS:       content.DefaultRPS,
		CacheSize:        content.DefaultCacheSize,
		Provider:         flagProvider,
		GeneratorTimeout: defaultGeneratorTimeout,
		AudioCommand:     audio.DefaultCommand,
		AudioArgs:        audio.DefaultArgs,
		LogPath:          config.DefaultLogPath(),
		LogEnv:           defaultLogEnv,
	}

	c := fc.Content
	setString(&cfg.ContentBaseURL, c.BaseURL)
	setString(&cfg.AudioBaseURL, c.AudioBaseURL)
	if c.Timeout != nil {
		cfg.ContentTimeout = c.Timeout.Duration
	}
	if c.RPS != nil {
		cfg.ContentRPS = *c.RPS
	}
	if c.CacheSize != nil {
		cfg.CacheSize = *c.CacheSize
	}

	g := fc.Generator
	cfg.Model = defaultModels[cfg.Provider]
	setString(&cfg.Model, g.Model)
	setString(&cfg.ProviderBaseURL, g.BaseURL)
	if g.Timeout != nil {
		cfg.GeneratorTimeout = g.Timeout.Duration
	}
	if cfg.Provider != generator.ProviderNone {
		cfg.APIKey = getenv(apiKeyEnv(cfg.Provider))
	}

	setString(&cfg.AudioCommand, fc.Audio.Command)
	if fc.Audio.Args != nil {
		cfg.AudioArgs = fc.Audio.Args
	}

	setString(&cfg.LogEnv, fc.Log.Env)
	setString(&cfg.LogPath, fc.Log.Path)
	return cfg
}

// overridePlayback applies explicitly set flags on top of persisted settings.
// A chapter change resets the range; the TUI clamps it to the chapter length.
func overridePlayback(cmd *cobra.Command, saved, flags model.PlaybackSettings) model.PlaybackSettings {
	out := saved
	if cmd.Flags().Changed("chapter") && flags.ChapterID != saved.ChapterID {
		out.ChapterID = flags.ChapterID
		out.Start = 1
		out.End = freshRangeEnd
	}
	if cmd.Flags().Changed("narrator") {
		out.NarratorID = flags.NarratorID
	}
	if cmd.Flags().Changed("repeats") {
		out.Repeats = flags.Repeats
	}
	if cmd.Flags().Changed("delay") {
		out.DelaySeconds = flags.DelaySeconds
	}
	return out
}

func setString(target, value *string) {
	if value != nil {
		*target = *value
	}
}

func defaultConfigTemplate() string {
	return `# hifz configuration
# Uncomment values to override defaults.

[playback]
# chapter = 1
# narrator = 7
# repeats = 3
# delay = 1

[goal]
# target = 3

[quiz]
# level = "medium"    # easy, medium, hard
# scope = "ward"      # ward, chapter, memorized
# kind = "mcq"        # mcq, reorder

[content]
# base-url = "https://api.quran.com/api/v4"
# audio-base-url = "https://verses.quran.com/"
# timeout = "15s"
# rps = 5
# cache-size = 256

[generator]
# provider = "gemini"   # gemini, openai, none
# model = "gemini-2.5-flash"
# base-url = ""
# timeout = "30s"
# API keys are read from GEMINI_API_KEY or OPENAI_API_KEY,
# optionally via ~/.config/hifz/.env

[audio]
# command = "mpv"
# args = ["--no-video", "--really-quiet", "--no-terminal"]

[log]
# env = "production"   # production, development
# path = "~/.local/share/hifz/hifz.log"
`
}
