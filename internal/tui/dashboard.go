package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/verte-zerg/hifz/internal/model"
)

func (m *Model) updateDashboard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Memorize), key.Matches(msg, m.keys.Enter):
		m.screen = screenMemorize
	case key.Matches(msg, m.keys.Chapters):
		m.screen = screenChapters
		if len(m.chapters) == 0 && !m.loadingChapters {
			m.loadingChapters = true
			return m, m.loadChaptersCmd()
		}
	case key.Matches(msg, m.keys.Quiz):
		m.screen = screenQuiz
	case key.Matches(msg, m.keys.Target):
		m.setTarget(m.daily.Target - 1)
	case key.Matches(msg, m.keys.TargetUp):
		m.setTarget(m.daily.Target + 1)
	}
	return m, nil
}

func (m *Model) setTarget(target int) {
	if target < 1 {
		return
	}
	if err := m.tracker.SetTarget(context.Background(), target); err != nil {
		m.log.Warn("failed to save daily target", zap.Error(err))
	}
	m.refreshDaily()
}

func (m *Model) viewDashboard() string {
	d := m.daily
	ratio := 0.0
	if d.Target > 0 {
		ratio = float64(d.Memorized) / float64(d.Target)
	}
	if ratio > 1 {
		ratio = 1
	}
	goal := fmt.Sprintf("%d / %d", d.Memorized, d.Target)
	if m.tracker.GoalMet() {
		goal = correctStyle.Render(goal + "  ✓")
	}
	last := d.LastPractice
	if last == "" {
		last = "-"
	}

	narrator := ""
	if n, ok := model.NarratorByID(m.settings.NarratorID); ok {
		narrator = n.Name
	}
	chapter := m.chapterName()
	if chapter == "" {
		chapter = fmt.Sprintf("%d", m.settings.ChapterID)
	}

	cards := []string{
		card("الهدف اليومي", goal+"\n"+m.bar.ViewAs(ratio)),
		lipgloss.JoinHorizontal(lipgloss.Top,
			card("السلسلة", fmt.Sprintf("%d", d.Streak)),
			card("آخر تدريب", last),
			card("المحفوظ", fmt.Sprintf("%d", len(m.tracker.MemorizedKeys()))),
		),
		card("الورد", fmt.Sprintf("سورة %s  %d-%d\n%s", chapter, m.settings.Start, m.settings.End, narrator)),
	}
	lines := []string{titleStyle.Render("حفظ"), "", strings.Join(cards, "\n")}
	if m.chaptersErr != "" {
		lines = append(lines, "", incorrectStyle.Render("تعذر تحميل السور: "+m.chaptersErr))
	}
	return strings.Join(lines, "\n")
}

func card(label, value string) string {
	return boxStyle.Render(pendingStyle.Render(label) + "\n" + verseStyle.Bold(true).Render(value))
}
