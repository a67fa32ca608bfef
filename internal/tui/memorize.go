package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/verte-zerg/hifz/internal/model"
	"github.com/verte-zerg/hifz/internal/playback"
	"github.com/verte-zerg/hifz/internal/verses"
)

const (
	maxRepeats = 50
	maxDelay   = 60
)

func (m *Model) handleVersesLoaded(msg versesLoadedMsg) {
	if msg.epoch != m.loadEpoch {
		m.log.Debug("dropped stale verse list", zap.Uint64("epoch", msg.epoch))
		return
	}
	m.loadingVerses = false
	if msg.err != nil {
		m.versesErr = "تعذر تحميل الآيات."
		m.log.Warn("failed to load verses", zap.Int("chapter", m.settings.ChapterID), zap.Error(msg.err))
		return
	}
	m.rng.SetVerses(msg.verses)
	start, end := m.settings.Start, m.settings.End
	if !m.keepRange {
		start, end = 1, verses.DefaultEnd(len(msg.verses))
	}
	m.keepRange = true
	m.applyRange(start, end)
}

// applyRange clamps and installs a new active range, resetting playback.
func (m *Model) applyRange(start, end int) {
	start, end = m.rng.SetRange(start, end)
	m.settings.Start, m.settings.End = start, end
	m.resetPlayback(m.rng.Active())
	m.saveSettings()
}

func (m *Model) resetPlayback(list []model.Verse) {
	m.sched.SetVerses(list)
	m.cursor = 0
	m.listenStarted = time.Time{}
}

// drive runs a scheduler command and notes when a listening pass begins.
func (m *Model) drive(fn func()) {
	before := m.sched.Snapshot().Active()
	fn()
	snap := m.sched.Snapshot()
	if snap.Active() {
		m.cursor = snap.Index
		if !before && m.listenStarted.IsZero() {
			m.listenStarted = m.now()
		}
	}
}

func (m *Model) updateMemorize(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	active := m.rng.Active()
	switch {
	case key.Matches(msg, m.keys.Back):
		m.screen = screenDashboard
	case key.Matches(msg, m.keys.Toggle):
		m.drive(m.sched.Toggle)
	case key.Matches(msg, m.keys.Next):
		m.drive(m.sched.Next)
	case key.Matches(msg, m.keys.Prev):
		m.drive(m.sched.Prev)
	case key.Matches(msg, m.keys.Stop):
		m.sched.Stop()
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(active)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Enter):
		cursor := m.cursor
		m.drive(func() { m.sched.SelectVerse(cursor) })
		if cursor < len(active) && !active[cursor].HasAudio() {
			m.status = "لا يتوفر صوت لهذه الآية."
		}
	case key.Matches(msg, m.keys.Mark):
		m.toggleMemorized(active)
	case key.Matches(msg, m.keys.Tafsir):
		return m, m.requestTafsir(active)
	case key.Matches(msg, m.keys.Narrator):
		return m, m.nextNarrator()
	case key.Matches(msg, m.keys.StartDown):
		m.applyRange(m.settings.Start-1, m.settings.End)
	case key.Matches(msg, m.keys.StartUp):
		m.applyRange(m.settings.Start+1, m.settings.End)
	case key.Matches(msg, m.keys.EndDown):
		m.applyRange(m.settings.Start, m.settings.End-1)
	case key.Matches(msg, m.keys.EndUp):
		m.applyRange(m.settings.Start, m.settings.End+1)
	case key.Matches(msg, m.keys.Repeats):
		m.setRepeats(m.settings.Repeats - 1)
	case key.Matches(msg, m.keys.RepeatsUp):
		m.setRepeats(m.settings.Repeats + 1)
	case key.Matches(msg, m.keys.Delay):
		m.setDelay(m.settings.DelaySeconds - 1)
	case key.Matches(msg, m.keys.DelayUp):
		m.setDelay(m.settings.DelaySeconds + 1)
	}
	return m, nil
}

func (m *Model) toggleMemorized(active []model.Verse) {
	if m.cursor < 0 || m.cursor >= len(active) {
		return
	}
	v := active[m.cursor]
	wasMet := m.tracker.GoalMet()
	marked, err := m.tracker.Toggle(context.Background(), v.Key)
	if err != nil {
		m.log.Warn("failed to save memorized verse", zap.String("verse", v.Key), zap.Error(err))
		m.status = "تعذر حفظ التقدم."
		return
	}
	m.refreshDaily()
	switch {
	case marked && !wasMet && m.tracker.GoalMet():
		m.status = "أحسنت! تم تحقيق الهدف اليومي."
	case marked:
		m.status = "تم تسجيل الآية " + v.Key
	default:
		m.status = "أزيلت الآية " + v.Key + " من المحفوظ"
	}
}

func (m *Model) requestTafsir(active []model.Verse) tea.Cmd {
	if m.cursor < 0 || m.cursor >= len(active) {
		return nil
	}
	if m.tafsir == nil {
		m.status = "التفسير غير متاح دون مزود."
		return nil
	}
	v := active[m.cursor]
	if v.Key == m.tafsirKey && (m.tafsirLoading || m.tafsirText != "") {
		return nil
	}
	return m.tafsirCmd(v)
}

func (m *Model) nextNarrator() tea.Cmd {
	next := model.Narrators[0]
	for i, n := range model.Narrators {
		if n.ID == m.settings.NarratorID {
			next = model.Narrators[(i+1)%len(model.Narrators)]
			break
		}
	}
	m.settings.NarratorID = next.ID
	m.resetPlayback(nil)
	m.saveSettings()
	m.status = "القارئ: " + next.Name
	return m.loadVersesCmd()
}

func (m *Model) setRepeats(n int) {
	n = clampInt(n, 1, maxRepeats)
	if n == m.settings.Repeats {
		return
	}
	m.settings.Repeats = n
	m.sched.UpdateSettings(n, m.settings.Delay())
	m.saveSettings()
}

func (m *Model) setDelay(seconds int) {
	seconds = clampInt(seconds, 0, maxDelay)
	if seconds == m.settings.DelaySeconds {
		return
	}
	m.settings.DelaySeconds = seconds
	m.sched.UpdateSettings(m.settings.Repeats, m.settings.Delay())
	m.saveSettings()
}

func (m *Model) viewMemorize() string {
	chapter := m.chapterName()
	if chapter == "" {
		chapter = fmt.Sprintf("%d", m.settings.ChapterID)
	}
	narrator := ""
	if n, ok := model.NarratorByID(m.settings.NarratorID); ok {
		narrator = n.Name
	}
	lines := []string{
		titleStyle.Render(fmt.Sprintf("سورة %s  %d-%d", chapter, m.settings.Start, m.settings.End)),
		pendingStyle.Render(fmt.Sprintf("%s  التكرار %d  المهلة %ds", narrator, m.settings.Repeats, m.settings.DelaySeconds)),
		"",
	}
	switch {
	case m.loadingVerses:
		lines = append(lines, m.spinner.View()+" جارٍ تحميل الآيات...")
		return strings.Join(lines, "\n")
	case m.versesErr != "":
		lines = append(lines, incorrectStyle.Render(m.versesErr))
		return strings.Join(lines, "\n")
	}
	active := m.rng.Active()
	if len(active) == 0 {
		lines = append(lines, pendingStyle.Render("لا توجد آيات في هذا النطاق."))
		return strings.Join(lines, "\n")
	}

	snap := m.sched.Snapshot()
	lines = append(lines, m.renderPlaybackStatus(snap), "")
	width := m.contentWidth() - 4
	for i, v := range active {
		prefix := "  "
		switch {
		case snap.Active() && i == snap.Index:
			prefix = "▶ "
		case i == m.cursor:
			prefix = "> "
		}
		mark := " "
		if m.tracker.IsMemorized(v.Key) {
			mark = correctStyle.Render("✓")
		}
		style := pendingStyle
		if i == m.cursor {
			style = verseStyle
		}
		label := selectedStyle.Render(fmt.Sprintf("%s%s %3d ", prefix, mark, v.Position))
		lines = append(lines, label+wrapChunks(chunkText(v.Text, style), width))
	}
	if tafsir := m.renderTafsir(active); tafsir != "" {
		lines = append(lines, "", tafsir)
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderPlaybackStatus(snap playback.Snapshot) string {
	var state string
	switch snap.State {
	case playback.Playing:
		state = "يُتلى"
	case playback.RepeatPause, playback.AdvancePause:
		state = "انتظار"
	case playback.Completed:
		state = "اكتمل"
	default:
		state = "متوقف"
		if snap.Paused {
			state = "إيقاف مؤقت"
		}
	}
	done := snap.Repeats - snap.Remaining
	if snap.State == playback.Playing || snap.State == playback.RepeatPause {
		done++
	}
	done = clampInt(done, 0, snap.Repeats)
	return footerStyle.Render(fmt.Sprintf("%s  آية %d/%d  تكرار %d/%d", state, snap.Index+1, snap.Total, done, snap.Repeats))
}

func (m *Model) renderTafsir(active []model.Verse) string {
	if m.tafsirKey == "" || m.cursor >= len(active) || active[m.cursor].Key != m.tafsirKey {
		return ""
	}
	header := titleStyle.Render("التفسير " + m.tafsirKey)
	switch {
	case m.tafsirLoading:
		return header + "\n" + m.spinner.View()
	case m.tafsirErr != "":
		return header + "\n" + incorrectStyle.Render(m.tafsirErr)
	default:
		return header + "\n" + wrapChunks(chunkText(m.tafsirText, pendingStyle), m.contentWidth())
	}
}
