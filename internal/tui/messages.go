package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/hifz/internal/model"
	"github.com/verte-zerg/hifz/internal/playback"
	"github.com/verte-zerg/hifz/internal/quiz"
)

type chaptersLoadedMsg struct {
	chapters []model.Chapter
	err      error
}

type versesLoadedMsg struct {
	epoch  uint64
	verses []model.Verse
	err    error
}

type mediaEndedMsg struct {
	handle uint64
}

type delayElapsedMsg struct {
	token uint64
}

type questionMsg struct {
	result quiz.Result
}

type tafsirMsg struct {
	epoch uint64
	key   string
	text  string
	err   error
}

// MediaEnded builds the message the audio player posts when a handle finishes.
func MediaEnded(handle uint64) tea.Msg {
	return mediaEndedMsg{handle: handle}
}

func delayCmd(d *playback.Delay) tea.Cmd {
	if d == nil {
		return nil
	}
	token := d.Token
	return tea.Tick(d.Duration, func(time.Time) tea.Msg {
		return delayElapsedMsg{token: token}
	})
}

func (m *Model) loadChaptersCmd() tea.Cmd {
	content := m.content
	timeout := m.cfg.ContentTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		chapters, err := content.Chapters(ctx)
		return chaptersLoadedMsg{chapters: chapters, err: err}
	}
}

func (m *Model) loadVersesCmd() tea.Cmd {
	m.loadEpoch++
	m.loadingVerses = true
	m.versesErr = ""
	epoch := m.loadEpoch
	content := m.content
	timeout := m.cfg.ContentTimeout
	chapterID, narratorID := m.settings.ChapterID, m.settings.NarratorID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		list, err := content.Verses(ctx, chapterID, narratorID)
		return versesLoadedMsg{epoch: epoch, verses: list, err: err}
	}
}

func (m *Model) resolveCmd(t quiz.Ticket) tea.Cmd {
	var (
		lookup  quiz.Lookup = m.content
		gen                 = m.questions
		log                 = m.log
		timeout             = m.cfg.ContentTimeout + m.cfg.GeneratorTimeout
	)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return questionMsg{result: quiz.Resolve(ctx, t, lookup, gen, log)}
	}
}

func (m *Model) tafsirCmd(v model.Verse) tea.Cmd {
	m.tafsirEpoch++
	m.tafsirKey = v.Key
	m.tafsirText = ""
	m.tafsirErr = ""
	m.tafsirLoading = true
	epoch := m.tafsirEpoch
	explainer := m.tafsir
	chapter := m.chapterName()
	timeout := m.cfg.GeneratorTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		text, err := explainer.Explain(ctx, v, chapter)
		return tafsirMsg{epoch: epoch, key: v.Key, text: text, err: err}
	}
}
