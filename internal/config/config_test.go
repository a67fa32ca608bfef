package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/hifz/internal/model"
)

func validConfig() model.Config {
	return model.Config{
		Playback:         model.DefaultPlaybackSettings(),
		Quiz:             model.DefaultQuizSettings(),
		Target:           3,
		ContentBaseURL:   "https://api.quran.com/api/v4",
		AudioBaseURL:     "https://verses.quran.com/",
		ContentTimeout:   15 * time.Second,
		ContentRPS:       5,
		CacheSize:        64,
		Provider:         "none",
		GeneratorTimeout: 20 * time.Second,
		AudioCommand:     "mpv",
		LogPath:          "/tmp/hifz.log",
		LogEnv:           "development",
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("expected valid config: %v", err)
	}
}

func TestValidateReportsSetting(t *testing.T) {
	cfg := validConfig()
	cfg.Playback.Repeats = 0
	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "Playback.Repeats must be >= 1") {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg = validConfig()
	cfg.Provider = "gemini"
	err = Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "APIKey is required") {
		t.Fatalf("expected missing key error, got %v", err)
	}

	cfg = validConfig()
	cfg.Quiz.Scope = "everything"
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected invalid scope error")
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := `
[playback]
chapter = 36
repeats = 5

[content]
timeout = "30s"

[generator]
provider = "openai"
model = "gpt-4o-mini"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Playback.Chapter == nil || *cfg.Playback.Chapter != 36 {
		t.Fatalf("unexpected chapter: %v", cfg.Playback.Chapter)
	}
	if cfg.Playback.Delay != nil {
		t.Fatalf("unset value must stay nil")
	}
	if cfg.Content.Timeout == nil || cfg.Content.Timeout.Duration != 30*time.Second {
		t.Fatalf("unexpected timeout: %v", cfg.Content.Timeout)
	}
	if cfg.Generator.Provider == nil || *cfg.Generator.Provider != "openai" {
		t.Fatalf("unexpected provider: %v", cfg.Generator.Provider)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("missing file must not be an error: %v", err)
	}
	if cfg.Playback.Chapter != nil {
		t.Fatalf("expected empty config")
	}
}

func TestLoadConfigUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[playback]\nspeed = 2\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil || !strings.Contains(err.Error(), "playback.speed") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestDefaultPathsUseXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_DATA_HOME", "/data")
	if got := DefaultConfigPath(); got != filepath.Join("/cfg", "hifz", "config.toml") {
		t.Fatalf("unexpected config path %s", got)
	}
	if got := DefaultDBPath(); got != filepath.Join("/data", "hifz", "hifz.db") {
		t.Fatalf("unexpected db path %s", got)
	}
}
