package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/hifz/internal/verses"
)

const chapterListHeight = 15

func (m *Model) updateChapters(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.screen = screenDashboard
	case key.Matches(msg, m.keys.Up):
		if m.chapterCursor > 0 {
			m.chapterCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.chapterCursor < len(m.chapters)-1 {
			m.chapterCursor++
		}
	case key.Matches(msg, m.keys.Enter):
		if m.chapterCursor < 0 || m.chapterCursor >= len(m.chapters) {
			return m, nil
		}
		ch := m.chapters[m.chapterCursor]
		m.screen = screenMemorize
		if ch.ID == m.settings.ChapterID && m.rng.Len() > 0 {
			return m, nil
		}
		m.settings.ChapterID = ch.ID
		m.settings.Start = 1
		m.settings.End = verses.DefaultEnd(ch.VerseCount)
		m.keepRange = false
		m.resetPlayback(nil)
		m.rng.SetVerses(nil)
		m.engine.Cancel()
		m.saveSettings()
		return m, m.loadVersesCmd()
	}
	return m, nil
}

func (m *Model) viewChapters() string {
	lines := []string{titleStyle.Render("السور"), ""}
	switch {
	case m.loadingChapters:
		lines = append(lines, m.spinner.View()+" جارٍ التحميل...")
		return strings.Join(lines, "\n")
	case m.chaptersErr != "":
		lines = append(lines, incorrectStyle.Render(m.chaptersErr))
		return strings.Join(lines, "\n")
	case len(m.chapters) == 0:
		lines = append(lines, pendingStyle.Render("لا توجد سور."))
		return strings.Join(lines, "\n")
	}
	from, to := listWindow(m.chapterCursor, len(m.chapters), chapterListHeight)
	for i := from; i < to; i++ {
		ch := m.chapters[i]
		row := fmt.Sprintf("%3d  %s  %s  (%d)", ch.ID, ch.NameArabic, ch.NameSimple, ch.VerseCount)
		switch {
		case i == m.chapterCursor:
			row = selectedStyle.Render("> " + row)
		case ch.ID == m.settings.ChapterID:
			row = verseStyle.Render("* " + row)
		default:
			row = pendingStyle.Render("  " + row)
		}
		lines = append(lines, row)
	}
	return strings.Join(lines, "\n")
}

// listWindow returns the [from, to) slice of n rows that keeps cursor visible.
func listWindow(cursor, n, height int) (int, int) {
	if n <= height {
		return 0, n
	}
	from := cursor - height/2
	if from < 0 {
		from = 0
	}
	if from+height > n {
		from = n - height
	}
	return from, from + height
}
