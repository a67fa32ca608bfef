// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Playback  PlaybackConfig  `toml:"playback"`
	Goal      GoalConfig      `toml:"goal"`
	Quiz      QuizConfig      `toml:"quiz"`
	Content   ContentConfig   `toml:"content"`
	Generator GeneratorConfig `toml:"generator"`
	Audio     AudioConfig     `toml:"audio"`
	Log       LogConfig       `toml:"log"`
}

// PlaybackConfig maps listening defaults.
type PlaybackConfig struct {
	Chapter  *int `toml:"chapter"`
	Narrator *int `toml:"narrator"`
	Repeats  *int `toml:"repeats"`
	Delay    *int `toml:"delay"`
}

// GoalConfig maps the daily goal.
type GoalConfig struct {
	Target *int `toml:"target"`
}

// QuizConfig maps quiz defaults.
type QuizConfig struct {
	Level *string `toml:"level"`
	Scope *string `toml:"scope"`
	Kind  *string `toml:"kind"`
}

// ContentConfig maps the verse/audio API client.
type ContentConfig struct {
	BaseURL      *string   `toml:"base-url"`
	AudioBaseURL *string   `toml:"audio-base-url"`
	Timeout      *Duration `toml:"timeout"`
	RPS          *float64  `toml:"rps"`
	CacheSize    *int      `toml:"cache-size"`
}

// GeneratorConfig maps the question generator.
type GeneratorConfig struct {
	Provider *string   `toml:"provider"`
	Model    *string   `toml:"model"`
	BaseURL  *string   `toml:"base-url"`
	Timeout  *Duration `toml:"timeout"`
}

// AudioConfig maps the external media player.
type AudioConfig struct {
	Command *string  `toml:"command"`
	Args    []string `toml:"args"`
}

// LogConfig maps logging.
type LogConfig struct {
	Env  *string `toml:"env"`
	Path *string `toml:"path"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
