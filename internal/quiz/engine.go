// Package quiz runs recall questions over a verse scope.
//
// Engine holds the quiz state machine and is only touched from the UI loop.
// The slow part, fetching and generating a question, is done by Resolve,
// which is safe to run on another goroutine; its Result is handed back with
// Deliver and dropped when a newer Start or Back superseded it.
package quiz

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verte-zerg/hifz/internal/model"
	"github.com/verte-zerg/hifz/internal/normalize"
)

// State is the engine phase.
type State int

// Engine states.
const (
	Config State = iota
	Generating
	Question
	Answered
)

func (s State) String() string {
	switch s {
	case Config:
		return "config"
	case Generating:
		return "generating"
	case Question:
		return "question"
	case Answered:
		return "answered"
	default:
		return "unknown"
	}
}

var (
	// ErrEmptyScope means the selected scope has no verses.
	ErrEmptyScope = errors.New("no verses in scope")
	// ErrNoMemorized means the history scope was chosen with nothing memorized.
	ErrNoMemorized = errors.New("no memorized verses")
	// ErrVerseUnavailable means the subject verse could not be fetched.
	ErrVerseUnavailable = errors.New("verse unavailable")
	// ErrStale means a result arrived for a superseded request.
	ErrStale = errors.New("stale quiz result")
	// ErrNotAnswerable means the current state or question kind rejects the action.
	ErrNotAnswerable = errors.New("question not answerable")
)

// User-facing notices.
const (
	NoticeEmptyScope    = "لم يتم العثور على آيات في هذا النطاق."
	NoticeNoMemorized   = "لا توجد آيات محفوظة بعد في سجلك."
	NoticeUnavailable   = "تعذر تحميل الآية المختارة."
	labelMemorized      = "جميع ما حفظته سابقاً"
	fallbackPrompt      = "ما هي الآية التالية لقوله تعالى: "
	fallbackDistractor  = "خيار خاطئ"
	fallbackExplanation = "راجع "
)

// Sources are the verse sets a scope can resolve to.
type Sources struct {
	Ward        []model.Verse
	Chapter     []model.Verse
	ChapterName string
	Memorized   []string
}

// Ticket identifies one question request.
type Ticket struct {
	Epoch    uint64
	ID       string
	Settings model.QuizSettings
	Label    string
	Subject  *model.Verse
	Key      string
}

// Result is the outcome of resolving a Ticket.
type Result struct {
	Ticket   Ticket
	Verse    model.Verse
	Question model.Question
	Fallback bool
	Err      error
}

// Mark is the display state of a multiple-choice option.
type Mark int

// Option marks.
const (
	MarkNone Mark = iota
	MarkCorrect
	MarkWrong
	MarkDimmed
)

// Outcome describes an answered question. Answer is set only when the
// response was wrong.
type Outcome struct {
	Correct     bool
	Response    string
	Answer      string
	Explanation string
}

type token struct {
	id   int
	text string
}

// Engine is the quiz state machine.
type Engine struct {
	rnd *rand.Rand
	log *zap.Logger

	settings model.QuizSettings
	state    State
	epoch    uint64
	notice   string

	ticket   Ticket
	verse    model.Verse
	question model.Question
	fallback bool

	selected int
	pool     []token
	picked   []token
	outcome  *Outcome
}

// New returns an engine in the Config state.
func New(settings model.QuizSettings, rnd *rand.Rand, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{rnd: rnd, log: log, settings: settings, selected: -1}
}

// State returns the current phase.
func (e *Engine) State() State { return e.state }

// Settings returns the configured level, scope and kind.
func (e *Engine) Settings() model.QuizSettings { return e.settings }

// Notice returns the last user-facing notice, if any.
func (e *Engine) Notice() string { return e.notice }

// Ticket returns the ticket of the current or last request.
func (e *Engine) Ticket() Ticket { return e.ticket }

// Question returns the active question.
func (e *Engine) Question() model.Question { return e.question }

// Verse returns the subject verse of the active question.
func (e *Engine) Verse() model.Verse { return e.verse }

// Fallback reports whether the active question was built locally.
func (e *Engine) Fallback() bool { return e.fallback }

// Outcome returns the answer outcome once Answered.
func (e *Engine) Outcome() *Outcome { return e.outcome }

// Configure replaces the settings and returns to Config.
func (e *Engine) Configure(s model.QuizSettings) {
	e.settings = s
	e.Back()
}

// Back discards the current question and returns to Config. Any in-flight
// request is invalidated.
func (e *Engine) Back() {
	e.epoch++
	e.state = Config
	e.clearQuestion()
}

// Cancel abandons an in-flight request. Other states are left alone.
func (e *Engine) Cancel() {
	if e.state != Generating {
		return
	}
	e.Back()
}

// Start resolves the scope, picks a subject and moves to Generating.
func (e *Engine) Start(src Sources) (Ticket, error) {
	e.notice = ""
	t := Ticket{Settings: e.settings}
	switch e.settings.Scope {
	case model.ScopeMemorized:
		if len(src.Memorized) == 0 {
			e.Back()
			e.notice = NoticeNoMemorized
			return Ticket{}, ErrNoMemorized
		}
		t.Label = labelMemorized
		t.Key = src.Memorized[e.rnd.Intn(len(src.Memorized))]
	case model.ScopeChapter:
		if len(src.Chapter) == 0 {
			e.Back()
			e.notice = NoticeEmptyScope
			return Ticket{}, ErrEmptyScope
		}
		t.Label = "سورة " + src.ChapterName
		v := src.Chapter[e.rnd.Intn(len(src.Chapter))]
		t.Subject, t.Key = &v, v.Key
	default:
		if len(src.Ward) == 0 {
			e.Back()
			e.notice = NoticeEmptyScope
			return Ticket{}, ErrEmptyScope
		}
		t.Label = "وردك اليومي من " + src.ChapterName
		v := src.Ward[e.rnd.Intn(len(src.Ward))]
		t.Subject, t.Key = &v, v.Key
	}
	e.epoch++
	e.clearQuestion()
	t.Epoch = e.epoch
	t.ID = uuid.NewString()
	e.ticket = t
	e.state = Generating
	e.log.Debug("quiz started", zap.String("ticket", t.ID), zap.String("verse", t.Key), zap.String("scope", string(t.Settings.Scope)))
	return t, nil
}

// Deliver installs a resolved question. Results for superseded tickets are
// rejected with ErrStale.
func (e *Engine) Deliver(r Result) error {
	if e.state != Generating || r.Ticket.Epoch != e.epoch {
		return ErrStale
	}
	if r.Err != nil {
		e.state = Config
		e.notice = NoticeUnavailable
		return r.Err
	}
	e.verse = r.Verse
	e.question = r.Question
	e.fallback = r.Fallback
	e.selected = -1
	e.picked = nil
	e.pool = nil
	if r.Question.Kind == model.KindReorder {
		e.pool = make([]token, len(r.Question.Tokens))
		for i, text := range r.Question.Tokens {
			e.pool[i] = token{id: i, text: text}
		}
		e.rnd.Shuffle(len(e.pool), func(i, j int) { e.pool[i], e.pool[j] = e.pool[j], e.pool[i] })
	}
	e.state = Question
	return nil
}

// Choose answers a multiple-choice question. The first choice is final.
func (e *Engine) Choose(i int) (Outcome, error) {
	if e.state != Question || e.question.Kind != model.KindMultipleChoice {
		return Outcome{}, ErrNotAnswerable
	}
	if i < 0 || i >= len(e.question.Options) {
		return Outcome{}, fmt.Errorf("option %d out of range", i)
	}
	e.selected = i
	return e.finish(e.question.Options[i]), nil
}

// Pick moves pool token i to the end of the ordered answer.
func (e *Engine) Pick(i int) error {
	if e.state != Question || e.question.Kind != model.KindReorder {
		return ErrNotAnswerable
	}
	if i < 0 || i >= len(e.pool) {
		return fmt.Errorf("token %d out of range", i)
	}
	tok := e.pool[i]
	e.pool = append(e.pool[:i:i], e.pool[i+1:]...)
	e.picked = append(e.picked, tok)
	return nil
}

// Undo returns the most recent pick to the pool.
func (e *Engine) Undo() bool {
	if e.state != Question || len(e.picked) == 0 {
		return false
	}
	tok := e.picked[len(e.picked)-1]
	e.picked = e.picked[:len(e.picked)-1]
	e.pool = append(e.pool, tok)
	return true
}

// Pool returns the unpicked tokens.
func (e *Engine) Pool() []string { return texts(e.pool) }

// Picked returns the ordered answer so far.
func (e *Engine) Picked() []string { return texts(e.picked) }

// CanSubmit reports whether a reorder answer is complete.
func (e *Engine) CanSubmit() bool {
	return e.state == Question && e.question.Kind == model.KindReorder && len(e.pool) == 0 && len(e.picked) > 0
}

// Submit scores a completed reorder answer.
func (e *Engine) Submit() (Outcome, error) {
	if !e.CanSubmit() {
		return Outcome{}, ErrNotAnswerable
	}
	return e.finish(strings.Join(texts(e.picked), " ")), nil
}

// Marks returns the display state of each option. Before an answer every
// option is MarkNone.
func (e *Engine) Marks() []Mark {
	marks := make([]Mark, len(e.question.Options))
	if e.state != Answered || e.selected < 0 {
		return marks
	}
	for i, opt := range e.question.Options {
		switch {
		case normalize.Equal(opt, e.question.Answer):
			marks[i] = MarkCorrect
		case i == e.selected:
			marks[i] = MarkWrong
		default:
			marks[i] = MarkDimmed
		}
	}
	return marks
}

// Selected returns the chosen option index, or -1.
func (e *Engine) Selected() int { return e.selected }

// Attempt builds a history record for the answered question.
func (e *Engine) Attempt() (model.QuizAttempt, bool) {
	if e.state != Answered || e.outcome == nil {
		return model.QuizAttempt{}, false
	}
	return model.QuizAttempt{
		Scope:    e.ticket.Settings.Scope,
		Level:    e.ticket.Settings.Level,
		Kind:     e.question.Kind,
		VerseKey: e.verse.Key,
		Correct:  e.outcome.Correct,
		Fallback: e.fallback,
	}, true
}

func (e *Engine) finish(response string) Outcome {
	out := Outcome{
		Correct:     normalize.Equal(response, e.question.Answer),
		Response:    response,
		Explanation: e.question.Explanation,
	}
	if !out.Correct {
		out.Answer = e.question.Answer
	}
	e.outcome = &out
	e.state = Answered
	return out
}

func (e *Engine) clearQuestion() {
	e.question = model.Question{}
	e.verse = model.Verse{}
	e.fallback = false
	e.selected = -1
	e.pool = nil
	e.picked = nil
	e.outcome = nil
}

func texts(toks []token) []string {
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.text
	}
	return out
}
