// Package tui provides the Bubble Tea memorization interface.
package tui

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/verte-zerg/hifz/internal/model"
	"github.com/verte-zerg/hifz/internal/playback"
	progresspkg "github.com/verte-zerg/hifz/internal/progress"
	"github.com/verte-zerg/hifz/internal/quiz"
	"github.com/verte-zerg/hifz/internal/verses"
)

type screen int

const (
	screenDashboard screen = iota
	screenChapters
	screenMemorize
	screenQuiz
)

// Content is the verse source the interface reads from.
type Content interface {
	Chapters(ctx context.Context) ([]model.Chapter, error)
	Verses(ctx context.Context, chapterID, narratorID int) ([]model.Verse, error)
	VerseByKey(ctx context.Context, key string) (model.Verse, error)
}

// Store persists settings and practice history.
type Store interface {
	progresspkg.Store
	InsertListening(ctx context.Context, ls model.ListeningSession) (int64, error)
	InsertQuizAttempt(ctx context.Context, a model.QuizAttempt) (int64, error)
}

// Explainer returns commentary for a verse.
type Explainer interface {
	Explain(ctx context.Context, v model.Verse, chapterName string) (string, error)
}

// Options wires the model's collaborators. Questions and Tafsir may be nil.
type Options struct {
	Config    model.Config
	Playback  model.PlaybackSettings
	Quiz      model.QuizSettings
	Content   Content
	Store     Store
	Tracker   *progresspkg.Tracker
	Player    playback.Player
	Questions quiz.Generator
	Tafsir    Explainer
	Log       *zap.Logger
	Rand      *rand.Rand
	Now       func() time.Time
}

// Model implements the Bubble Tea memorization UI.
type Model struct {
	cfg       model.Config
	content   Content
	store     Store
	tracker   *progresspkg.Tracker
	questions quiz.Generator
	tafsir    Explainer
	log       *zap.Logger
	now       func() time.Time

	sched  *playback.Scheduler
	engine *quiz.Engine
	rng    *verses.Range

	settings model.PlaybackSettings
	daily    model.DailyStats

	chapters        []model.Chapter
	chaptersErr     string
	loadingChapters bool
	chapterCursor   int

	loadEpoch     uint64
	loadingVerses bool
	versesErr     string
	keepRange     bool
	cursor        int
	listenStarted time.Time

	tafsirEpoch   uint64
	tafsirKey     string
	tafsirText    string
	tafsirErr     string
	tafsirLoading bool

	poolCursor int
	status     string

	screen  screen
	width   int
	height  int
	spinner spinner.Model
	bar     progress.Model
	help    help.Model
	keys    keyMap
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89A3A"))
	correctStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	incorrectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	verseStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	selectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	boxStyle       = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
)

// NewModel constructs the memorization TUI model. The tracker must already be loaded.
func NewModel(opts Options) *Model {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	rnd := opts.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(now().UnixNano()))
	}
	cfg := opts.Config
	if cfg.ContentTimeout <= 0 {
		cfg.ContentTimeout = 15 * time.Second
	}
	if cfg.GeneratorTimeout <= 0 {
		cfg.GeneratorTimeout = 30 * time.Second
	}

	m := &Model{
		cfg:       cfg,
		content:   opts.Content,
		store:     opts.Store,
		tracker:   opts.Tracker,
		questions: opts.Questions,
		tafsir:    opts.Tafsir,
		log:       log,
		now:       now,
		settings:  opts.Playback,
		rng:       verses.New(nil, opts.Playback.Start, opts.Playback.End),
		engine:    quiz.New(opts.Quiz, rnd, log.Named("quiz")),
		keepRange: true,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(selectedStyle)),
		bar:       progress.New(progress.WithGradient("#8C6A1F", "#C89A3A"), progress.WithWidth(40)),
		help:      help.New(),
		keys:      defaultKeyMap(),
	}
	m.sched = playback.New(opts.Player, log.Named("playback"), opts.Playback.Repeats, opts.Playback.Delay())
	m.sched.OnComplete(m.recordListening)
	m.refreshDaily()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	m.loadingChapters = true
	return tea.Batch(m.loadChaptersCmd(), m.loadVersesCmd(), m.spinner.Tick)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.bar.Width = clampInt(msg.Width/2, 10, 60)
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case chaptersLoadedMsg:
		m.loadingChapters = false
		if msg.err != nil {
			m.chaptersErr = msg.err.Error()
			m.log.Warn("failed to load chapters", zap.Error(msg.err))
			return m, nil
		}
		m.chaptersErr = ""
		m.chapters = msg.chapters
		for i, ch := range m.chapters {
			if ch.ID == m.settings.ChapterID {
				m.chapterCursor = i
			}
		}
		return m, nil
	case versesLoadedMsg:
		m.handleVersesLoaded(msg)
		return m, nil
	case mediaEndedMsg:
		return m, delayCmd(m.sched.MediaEnded(msg.handle))
	case delayElapsedMsg:
		m.sched.Elapsed(msg.token)
		return m, nil
	case questionMsg:
		m.poolCursor = 0
		if err := m.engine.Deliver(msg.result); err != nil {
			if errors.Is(err, quiz.ErrStale) {
				m.log.Debug("dropped stale question", zap.String("ticket", msg.result.Ticket.ID))
			} else {
				m.log.Warn("question unavailable", zap.Error(err))
			}
		}
		return m, nil
	case tafsirMsg:
		if msg.epoch != m.tafsirEpoch {
			return m, nil
		}
		m.tafsirLoading = false
		if msg.err != nil {
			m.tafsirErr = "تعذر تحميل التفسير."
			m.log.Warn("tafsir failed", zap.String("verse", msg.key), zap.Error(msg.err))
			return m, nil
		}
		m.tafsirText = msg.text
		return m, nil
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.sched.Stop()
			return m, tea.Quit
		}
		m.status = ""
		switch m.screen {
		case screenChapters:
			return m.updateChapters(msg)
		case screenMemorize:
			return m.updateMemorize(msg)
		case screenQuiz:
			return m.updateQuiz(msg)
		default:
			return m.updateDashboard(msg)
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	var body string
	switch m.screen {
	case screenChapters:
		body = m.viewChapters()
	case screenMemorize:
		body = m.viewMemorize()
	case screenQuiz:
		body = m.viewQuiz()
	default:
		body = m.viewDashboard()
	}
	footer := m.renderFooter()
	if m.width == 0 || m.height == 0 {
		return body + "\n\n" + footer
	}
	content := lipgloss.NewStyle().Width(m.contentWidth()).Render(body)
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	footerHeight := lipgloss.Height(footer)
	bodyHeight := maxInt(1, m.height-footerHeight)
	top := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
	bottom := lipgloss.Place(m.width, footerHeight, lipgloss.Center, lipgloss.Bottom, footer)
	return top + "\n" + bottom
}

func (m *Model) renderFooter() string {
	lines := []string{}
	if m.status != "" {
		lines = append(lines, selectedStyle.Render(m.status))
	}
	lines = append(lines, m.help.View(m.keys.forScreen(m.screen)))
	return footerStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) contentWidth() int {
	w := int(float64(m.width) * 0.70)
	if w < 20 {
		w = minInt(m.width, 20)
	}
	return maxInt(1, w)
}

func (m *Model) refreshDaily() {
	stats, err := m.tracker.Stats(context.Background())
	if err != nil {
		m.log.Warn("failed to read daily stats", zap.Error(err))
	}
	m.daily = stats
}

func (m *Model) chapterName() string {
	for _, ch := range m.chapters {
		if ch.ID == m.settings.ChapterID {
			if ch.NameArabic != "" {
				return ch.NameArabic
			}
			return ch.NameSimple
		}
	}
	return ""
}

func (m *Model) saveSettings() {
	if err := progresspkg.SavePlayback(context.Background(), m.store, m.settings); err != nil {
		m.log.Warn("failed to save playback settings", zap.Error(err))
	}
}

func (m *Model) recordListening() {
	ended := m.now()
	started := m.listenStarted
	if started.IsZero() {
		started = ended
	}
	m.listenStarted = time.Time{}
	session := model.ListeningSession{
		StartedAt:  started,
		EndedAt:    ended,
		ChapterID:  m.settings.ChapterID,
		Start:      m.settings.Start,
		End:        m.settings.End,
		Repeats:    m.settings.Repeats,
		NarratorID: m.settings.NarratorID,
	}
	if _, err := m.store.InsertListening(context.Background(), session); err != nil {
		m.log.Warn("failed to save listening session", zap.Error(err))
	}
	m.status = "اكتمل الورد"
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
