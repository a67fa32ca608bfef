// Package stats contains progress calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/verte-zerg/hifz/internal/model"
)

const sparkChars = " .:-=+*#%@"

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89A3A"))
	goodStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

// Accuracy returns correct answers, total answers and the correct ratio.
func Accuracy(attempts []model.QuizAttempt) (correct, total int, ratio float64) {
	for _, a := range attempts {
		total++
		if a.Correct {
			correct++
		}
	}
	if total > 0 {
		ratio = float64(correct) / float64(total)
	}
	return correct, total, ratio
}

// DailyAccuracy returns per-day accuracy percentages, oldest day first.
func DailyAccuracy(attempts []model.QuizAttempt) []float64 {
	type bucket struct{ correct, total int }
	days := map[string]*bucket{}
	for _, a := range attempts {
		key := a.AnsweredAt.Local().Format(model.DateLayout)
		b, ok := days[key]
		if !ok {
			b = &bucket{}
			days[key] = b
		}
		b.total++
		if a.Correct {
			b.correct++
		}
	}
	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]float64, len(keys))
	for i, k := range keys {
		b := days[k]
		out[i] = float64(b.correct) / float64(b.total) * 100
	}
	return out
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// ShouldUseColor reports whether w is a color-capable terminal.
func ShouldUseColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

func paint(style lipgloss.Style, s string, useColor bool) string {
	if !useColor {
		return s
	}
	return style.Render(s)
}

// RenderSummary prints the daily goal, streak and practice totals.
func RenderSummary(w io.Writer, r Report, useColor bool) error {
	goal := fmt.Sprintf("%d/%d", r.Daily.Memorized, r.Daily.Target)
	if r.Daily.Memorized >= r.Daily.Target {
		goal = paint(goodStyle, goal+" done", useColor)
	} else {
		goal = paint(warnStyle, goal, useColor)
	}
	last := r.Daily.LastPractice
	if last == "" {
		last = "-"
	}
	var listened time.Duration
	for _, s := range r.Listening {
		listened += s.EndedAt.Sub(s.StartedAt)
	}
	lines := []string{
		paint(titleStyle, "Summary", useColor),
		fmt.Sprintf("Today: %s", r.Daily.Date),
		fmt.Sprintf("Daily goal: %s", goal),
		fmt.Sprintf("Streak: %d", r.Daily.Streak),
		fmt.Sprintf("Last practice: %s", last),
		fmt.Sprintf("Memorized verses: %d", r.MemorizedTotal),
		fmt.Sprintf("Listening sessions: %d (%s)", len(r.Listening), listened.Round(time.Minute)),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderQuiz prints quiz accuracy per scope and question kind, plus a trend line.
func RenderQuiz(w io.Writer, attempts []model.QuizAttempt, window int, useColor bool) error {
	if _, err := fmt.Fprintln(w, paint(titleStyle, "Quiz", useColor)); err != nil {
		return err
	}
	if len(attempts) == 0 {
		_, err := fmt.Fprintln(w, "No quiz attempts found.")
		return err
	}
	type key struct {
		scope model.QuizScope
		kind  model.QuestionKind
	}
	groups := map[key][]model.QuizAttempt{}
	for _, a := range attempts {
		k := key{a.Scope, a.Kind}
		groups[k] = append(groups[k], a)
	}
	keys := make([]key, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].scope == keys[j].scope {
			return keys[i].kind < keys[j].kind
		}
		return keys[i].scope < keys[j].scope
	})

	headers := []string{"Scope", "Kind", "Accuracy", "Correct", "Total", "Fallback"}
	rows := make([][]string, 0, len(keys)+1)
	for _, k := range keys {
		group := groups[k]
		correct, total, ratio := Accuracy(group)
		fallback := 0
		for _, a := range group {
			if a.Fallback {
				fallback++
			}
		}
		rows = append(rows, []string{
			string(k.scope),
			string(k.kind),
			fmt.Sprintf("%.2f%%", ratio*100),
			fmt.Sprintf("%d", correct),
			fmt.Sprintf("%d", total),
			fmt.Sprintf("%d", fallback),
		})
	}
	correct, total, ratio := Accuracy(attempts)
	rows = append(rows, []string{"all", "", fmt.Sprintf("%.2f%%", ratio*100), fmt.Sprintf("%d", correct), fmt.Sprintf("%d", total), ""})

	rightAlign := map[int]bool{2: true, 3: true, 4: true, 5: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	trend := MovingAverage(DailyAccuracy(attempts), window)
	if len(trend) > 1 {
		if _, err := fmt.Fprintf(w, "Daily accuracy trend: %s\n", Sparkline(trend)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}
