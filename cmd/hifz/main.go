// Package main provides the CLI entrypoint for hifz.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/hifz/internal/audio"
	"github.com/verte-zerg/hifz/internal/config"
	"github.com/verte-zerg/hifz/internal/content"
	"github.com/verte-zerg/hifz/internal/generator"
	"github.com/verte-zerg/hifz/internal/logger"
	"github.com/verte-zerg/hifz/internal/model"
	"github.com/verte-zerg/hifz/internal/progress"
	"github.com/verte-zerg/hifz/internal/stats"
	"github.com/verte-zerg/hifz/internal/statsui"
	"github.com/verte-zerg/hifz/internal/store"
	"github.com/verte-zerg/hifz/internal/tui"
)

var (
	flagChapter  int
	flagNarrator int
	flagRepeats  int
	flagDelay    int
	flagTarget   int
	flagProvider string

	progressSince  string
	progressLast   int
	progressWindow int
	progressPlain  bool

	resetYes      bool
	resetSettings bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "hifz",
		Short:         "TUI Quran memorization companion",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runMemorizeCmd,
	}

	defaults := model.DefaultPlaybackSettings()
	rootCmd.Flags().IntVar(&flagChapter, "chapter", defaults.ChapterID, "chapter number (1-114)")
	rootCmd.Flags().IntVar(&flagNarrator, "narrator", defaults.NarratorID, "narrator id (see hifz chapters --narrators)")
	rootCmd.Flags().IntVar(&flagRepeats, "repeats", defaults.Repeats, "plays per verse")
	rootCmd.Flags().IntVar(&flagDelay, "delay", defaults.DelaySeconds, "seconds between plays")
	rootCmd.Flags().IntVar(&flagTarget, "target", defaultTarget, "verses to memorize per day")
	rootCmd.Flags().StringVar(&flagProvider, "provider", defaultProvider, "question provider: gemini, openai or none")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newChaptersCmd())
	rootCmd.AddCommand(newProgressCmd())
	rootCmd.AddCommand(newResetCmd())

	return rootCmd
}

func runMemorizeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := godotenv.Load(config.DefaultEnvPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logErrf("failed to read %s: %v\n", config.DefaultEnvPath(), err)
	}

	applyIntConfig(cmd, "chapter", &flagChapter, fileCfg.Playback.Chapter)
	applyIntConfig(cmd, "narrator", &flagNarrator, fileCfg.Playback.Narrator)
	applyIntConfig(cmd, "repeats", &flagRepeats, fileCfg.Playback.Repeats)
	applyIntConfig(cmd, "delay", &flagDelay, fileCfg.Playback.Delay)
	applyIntConfig(cmd, "target", &flagTarget, fileCfg.Goal.Target)
	applyStringConfig(cmd, "provider", &flagProvider, fileCfg.Generator.Provider)

	cfg := resolveConfig(fileCfg, os.Getenv)
	if cfg.Provider != generator.ProviderNone && cfg.APIKey == "" {
		logErrf("no API key for %s (set %s); using built-in questions\n", cfg.Provider, apiKeyEnv(cfg.Provider))
		cfg.Provider = generator.ProviderNone
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	log, err := logger.New(cfg.LogEnv, cfg.LogPath)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() {
		// Sync on a regular file; errors here are not actionable.
		_ = log.Sync()
	}()

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	ctx := context.Background()
	tracker := progress.New(st, log.Named("progress"), nil)
	if err := tracker.Load(ctx, cfg.Target); err != nil {
		return fmt.Errorf("failed to load progress: %w", err)
	}
	if cmd.Flags().Changed("target") {
		if err := tracker.SetTarget(ctx, cfg.Target); err != nil {
			return fmt.Errorf("failed to save target: %w", err)
		}
	}

	playbackSettings, err := progress.LoadPlayback(ctx, st, cfg.Playback)
	if err != nil {
		log.Warn("failed to load playback settings", zap.Error(err))
	}
	playbackSettings = overridePlayback(cmd, playbackSettings, cfg.Playback)
	quizSettings, err := progress.LoadQuiz(ctx, st, cfg.Quiz)
	if err != nil {
		log.Warn("failed to load quiz settings", zap.Error(err))
	}

	client, err := content.New(content.Options{
		BaseURL:      cfg.ContentBaseURL,
		AudioBaseURL: cfg.AudioBaseURL,
		Timeout:      cfg.ContentTimeout,
		RPS:          cfg.ContentRPS,
		CacheSize:    cfg.CacheSize,
	}, log.Named("content"))
	if err != nil {
		return fmt.Errorf("failed to create content client: %w", err)
	}

	player := audio.New(cfg.AudioCommand, cfg.AudioArgs, log.Named("audio"))
	if err := player.Available(); err != nil {
		logErrf("%v; recitation playback is disabled\n", err)
	}

	opts := tui.Options{
		Config:   cfg,
		Playback: playbackSettings,
		Quiz:     quizSettings,
		Content:  client,
		Store:    st,
		Tracker:  tracker,
		Player:   player,
		Log:      log,
	}
	gen, err := generator.New(ctx, generator.Config{
		Provider: cfg.Provider,
		Model:    cfg.Model,
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.ProviderBaseURL,
		Timeout:  cfg.GeneratorTimeout,
	}, log.Named("generator"))
	switch {
	case err == nil:
		opts.Questions = gen
		opts.Tafsir = gen
	case errors.Is(err, generator.ErrNotConfigured):
		log.Info("question generator disabled", zap.String("provider", cfg.Provider))
	default:
		logErrf("question generator unavailable: %v\n", err)
	}

	log.Info("starting",
		zap.Int("chapter", playbackSettings.ChapterID),
		zap.Int("narrator", playbackSettings.NarratorID),
		zap.String("provider", cfg.Provider))

	program := tea.NewProgram(tui.NewModel(opts), tea.WithAltScreen())
	player.OnEnded(func(handle uint64) {
		program.Send(tui.MediaEnded(handle))
	})
	_, runErr := program.Run()
	player.Stop()
	if runErr != nil {
		return fmt.Errorf("failed to run TUI: %w", runErr)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newChaptersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chapters",
		Short: "List chapters and narrators",
		Args:  cobra.NoArgs,
		RunE:  runChaptersCmd,
	}
	cmd.Flags().Bool("narrators", false, "list narrators instead of chapters")
	return cmd
}

func runChaptersCmd(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	if narrators, _ := cmd.Flags().GetBool("narrators"); narrators {
		for _, n := range model.Narrators {
			if _, err := fmt.Fprintf(out, "%3d  %s\n", n.ID, n.Name); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		}
		return nil
	}

	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg := resolveConfig(fileCfg, os.Getenv)
	client, err := content.New(content.Options{
		BaseURL:      cfg.ContentBaseURL,
		AudioBaseURL: cfg.AudioBaseURL,
		Timeout:      cfg.ContentTimeout,
		RPS:          cfg.ContentRPS,
		CacheSize:    cfg.CacheSize,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to create content client: %w", err)
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.ContentTimeout)
	defer cancel()
	chapters, err := client.Chapters(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch chapters: %w", err)
	}
	for _, ch := range chapters {
		if _, err := fmt.Fprintf(out, "%3d  %-20s %s (%d)\n", ch.ID, ch.NameSimple, ch.NameArabic, ch.VerseCount); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newProgressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show streak, daily goal and quiz accuracy",
		Args:  cobra.NoArgs,
		RunE:  runProgressCmd,
	}
	cmd.Flags().StringVar(&progressSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&progressLast, "last", 0, "limit to last N records")
	cmd.Flags().IntVar(&progressWindow, "window", defaultTrendWindow, "moving average window for the accuracy trend")
	cmd.Flags().BoolVar(&progressPlain, "plain", false, "print a text report instead of the interactive view")
	return cmd
}

func runProgressCmd(cmd *cobra.Command, _ []string) error {
	var sinceTime *time.Time
	if progressSince != "" {
		parsed, err := time.ParseInLocation(model.DateLayout, progressSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	if progressLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	reportCfg := model.ReportConfig{Since: sinceTime, Last: progressLast}

	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	target := defaultTarget
	if fileCfg.Goal.Target != nil {
		target = *fileCfg.Goal.Target
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	ctx := cmd.Context()
	tracker := progress.New(st, nil, nil)
	if err := tracker.Load(ctx, target); err != nil {
		return fmt.Errorf("failed to load progress: %w", err)
	}
	daily, err := tracker.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to load daily stats: %w", err)
	}
	memorized := len(tracker.MemorizedKeys())

	out := cmd.OutOrStdout()
	if !progressPlain && stats.ShouldUseColor(out) {
		m := statsui.NewModel(st, daily, memorized, reportCfg, progressWindow)
		if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
			return fmt.Errorf("failed to run progress TUI: %w", err)
		}
		return nil
	}

	report, err := stats.BuildReport(ctx, st, daily, memorized, reportCfg)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	useColor := stats.ShouldUseColor(out)
	if err := stats.RenderSummary(out, report, useColor); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderQuiz(out, report.Attempts, progressWindow, useColor); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear memorized verses and daily stats",
		Args:  cobra.NoArgs,
		RunE:  runResetCmd,
	}
	cmd.Flags().BoolVar(&resetYes, "yes", false, "confirm the reset")
	cmd.Flags().BoolVar(&resetSettings, "settings", false, "also forget saved playback and quiz settings")
	return cmd
}

func runResetCmd(cmd *cobra.Command, _ []string) error {
	if !resetYes {
		return fmt.Errorf("refusing to reset progress without --yes")
	}
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	ctx := cmd.Context()
	tracker := progress.New(st, nil, nil)
	if err := tracker.Load(ctx, defaultTarget); err != nil {
		return fmt.Errorf("failed to load progress: %w", err)
	}
	if err := tracker.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset progress: %w", err)
	}
	if resetSettings {
		if err := st.Delete(ctx, progress.KeyPlayback, progress.KeyQuiz); err != nil {
			return fmt.Errorf("failed to reset settings: %w", err)
		}
	}
	logErrln("Progress cleared.")
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
