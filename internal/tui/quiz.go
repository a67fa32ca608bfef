package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/verte-zerg/hifz/internal/model"
	progresspkg "github.com/verte-zerg/hifz/internal/progress"
	"github.com/verte-zerg/hifz/internal/quiz"
)

var (
	levels = []model.QuizLevel{model.LevelEasy, model.LevelMedium, model.LevelHard}
	scopes = []model.QuizScope{model.ScopeWard, model.ScopeChapter, model.ScopeMemorized}
	kinds  = []model.QuestionKind{model.KindMultipleChoice, model.KindReorder}
)

var (
	levelNames = map[model.QuizLevel]string{model.LevelEasy: "سهل", model.LevelMedium: "متوسط", model.LevelHard: "صعب"}
	scopeNames = map[model.QuizScope]string{model.ScopeWard: "الورد", model.ScopeChapter: "السورة", model.ScopeMemorized: "المحفوظ"}
	kindNames  = map[model.QuestionKind]string{model.KindMultipleChoice: "اختيار من متعدد", model.KindReorder: "ترتيب الكلمات"}
)

func cycle[T comparable](values []T, current T) T {
	for i, v := range values {
		if v == current {
			return values[(i+1)%len(values)]
		}
	}
	return values[0]
}

func (m *Model) updateQuiz(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.engine.State() {
	case quiz.Generating:
		if key.Matches(msg, m.keys.Back) {
			m.engine.Cancel()
		}
		return m, nil
	case quiz.Question:
		return m.updateQuestion(msg)
	case quiz.Answered:
		switch {
		case key.Matches(msg, m.keys.Enter):
			return m, m.startQuiz()
		case key.Matches(msg, m.keys.Back):
			m.engine.Back()
		}
		return m, nil
	}

	settings := m.engine.Settings()
	switch {
	case key.Matches(msg, m.keys.Back):
		m.screen = screenDashboard
		return m, nil
	case key.Matches(msg, m.keys.Enter):
		return m, m.startQuiz()
	case key.Matches(msg, m.keys.Level):
		settings.Level = cycle(levels, settings.Level)
	case key.Matches(msg, m.keys.Scope):
		settings.Scope = cycle(scopes, settings.Scope)
	case key.Matches(msg, m.keys.Kind):
		settings.Kind = cycle(kinds, settings.Kind)
	default:
		return m, nil
	}
	m.engine.Configure(settings)
	if err := progresspkg.SaveQuiz(context.Background(), m.store, settings); err != nil {
		m.log.Warn("failed to save quiz settings", zap.Error(err))
	}
	return m, nil
}

func (m *Model) startQuiz() tea.Cmd {
	src := quiz.Sources{
		Ward:        m.rng.Active(),
		Chapter:     m.rng.Verses(),
		ChapterName: m.chapterName(),
		Memorized:   m.tracker.MemorizedKeys(),
	}
	ticket, err := m.engine.Start(src)
	if err != nil {
		if !errors.Is(err, quiz.ErrEmptyScope) && !errors.Is(err, quiz.ErrNoMemorized) {
			m.log.Warn("failed to start quiz", zap.Error(err))
		}
		return nil
	}
	return tea.Batch(m.resolveCmd(ticket), m.spinner.Tick)
}

func (m *Model) updateQuestion(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Back) {
		m.engine.Back()
		return m, nil
	}
	q := m.engine.Question()
	if q.Kind == model.KindReorder {
		m.updateReorder(msg)
		return m, nil
	}
	if i, ok := digit(msg); ok {
		if _, err := m.engine.Choose(i); err == nil {
			m.recordAttempt()
		}
	}
	return m, nil
}

func (m *Model) updateReorder(msg tea.KeyMsg) {
	pool := m.engine.Pool()
	switch {
	case key.Matches(msg, m.keys.Undo):
		m.engine.Undo()
	case key.Matches(msg, m.keys.Next), key.Matches(msg, m.keys.Down):
		if m.poolCursor < len(pool)-1 {
			m.poolCursor++
		}
	case key.Matches(msg, m.keys.Prev), key.Matches(msg, m.keys.Up):
		if m.poolCursor > 0 {
			m.poolCursor--
		}
	case key.Matches(msg, m.keys.Enter):
		if m.engine.CanSubmit() {
			if _, err := m.engine.Submit(); err == nil {
				m.recordAttempt()
			}
			return
		}
		_ = m.engine.Pick(m.poolCursor)
	default:
		if i, ok := digit(msg); ok {
			_ = m.engine.Pick(i)
		}
	}
	m.poolCursor = clampInt(m.poolCursor, 0, maxInt(0, len(m.engine.Pool())-1))
}

// digit maps keys 1-9 to zero-based indexes.
func digit(msg tea.KeyMsg) (int, bool) {
	if msg.Type != tea.KeyRunes || len(msg.Runes) != 1 {
		return 0, false
	}
	n, err := strconv.Atoi(string(msg.Runes))
	if err != nil || n < 1 {
		return 0, false
	}
	return n - 1, true
}

func (m *Model) recordAttempt() {
	attempt, ok := m.engine.Attempt()
	if !ok {
		return
	}
	attempt.AnsweredAt = m.now()
	if _, err := m.store.InsertQuizAttempt(context.Background(), attempt); err != nil {
		m.log.Warn("failed to save quiz attempt", zap.Error(err))
	}
}

func (m *Model) viewQuiz() string {
	s := m.engine.Settings()
	lines := []string{
		titleStyle.Render("الاختبار"),
		pendingStyle.Render(fmt.Sprintf("المستوى: %s  النطاق: %s  النوع: %s", levelNames[s.Level], scopeNames[s.Scope], kindNames[s.Kind])),
		"",
	}
	switch m.engine.State() {
	case quiz.Generating:
		lines = append(lines, m.spinner.View()+" جارٍ إعداد السؤال...")
	case quiz.Question, quiz.Answered:
		lines = append(lines, m.viewQuestion()...)
	default:
		if notice := m.engine.Notice(); notice != "" {
			lines = append(lines, incorrectStyle.Render(notice), "")
		}
		if m.questions == nil {
			lines = append(lines, pendingStyle.Render("لا يوجد مزود للأسئلة، ستُستخدم أسئلة محلية."))
		}
		lines = append(lines, verseStyle.Render("اضغط enter لبدء سؤال."))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) viewQuestion() []string {
	q := m.engine.Question()
	width := m.contentWidth()
	lines := []string{wrapChunks(chunkText(q.Prompt, verseStyle.Bold(true)), width), ""}
	if m.engine.Fallback() {
		lines = append([]string{pendingStyle.Render("سؤال احتياطي")}, lines...)
	}
	if q.Kind == model.KindReorder {
		lines = append(lines, m.viewReorder(width)...)
	} else {
		marks := m.engine.Marks()
		for i, opt := range q.Options {
			style := verseStyle
			switch marks[i] {
			case quiz.MarkCorrect:
				style = correctStyle
			case quiz.MarkWrong:
				style = incorrectStyle
			case quiz.MarkDimmed:
				style = pendingStyle
			}
			lines = append(lines, selectedStyle.Render(fmt.Sprintf("%d. ", i+1))+wrapChunks(chunkText(opt, style), width-4))
		}
	}
	if out := m.engine.Outcome(); out != nil {
		lines = append(lines, "")
		if out.Correct {
			lines = append(lines, correctStyle.Render("إجابة صحيحة"))
		} else {
			lines = append(lines, incorrectStyle.Render("إجابة خاطئة"), pendingStyle.Render("الصواب: ")+wrapChunks(chunkText(out.Answer, correctStyle), width))
		}
		if out.Explanation != "" {
			lines = append(lines, wrapChunks(chunkText(out.Explanation, pendingStyle), width))
		}
		lines = append(lines, "", footerStyle.Render("enter: سؤال آخر  esc: الإعدادات"))
	}
	return lines
}

func (m *Model) viewReorder(width int) []string {
	if out := m.engine.Outcome(); out != nil {
		return []string{wrapChunks(chunkResponse(out.Response, m.engine.Question().Answer), width)}
	}
	picked := strings.Join(m.engine.Picked(), " ")
	if picked == "" {
		picked = "…"
	}
	lines := []string{wrapChunks(chunkText(picked, verseStyle), width), ""}
	for i, tok := range m.engine.Pool() {
		row := fmt.Sprintf("%d. %s", i+1, tok)
		if i == m.poolCursor {
			row = selectedStyle.Render("> " + row)
		} else {
			row = pendingStyle.Render("  " + row)
		}
		lines = append(lines, row)
	}
	if m.engine.CanSubmit() {
		lines = append(lines, "", footerStyle.Render("enter: تأكيد الإجابة"))
	}
	return lines
}
