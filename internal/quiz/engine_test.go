package quiz

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/verte-zerg/hifz/internal/model"
)

type fakeGen struct {
	q   model.Question
	err error
	got model.QuestionRequest
}

func (g *fakeGen) Generate(_ context.Context, req model.QuestionRequest) (model.Question, error) {
	g.got = req
	return g.q, g.err
}

type fakeLookup struct {
	verses map[string]model.Verse
}

func (l fakeLookup) VerseByKey(_ context.Context, key string) (model.Verse, error) {
	v, ok := l.verses[key]
	if !ok {
		return model.Verse{}, errors.New("not found")
	}
	return v, nil
}

var fatiha3 = model.Verse{Key: "1:3", Position: 3, Text: "الرَّحْمَٰنِ الرَّحِيمِ"}

func newEngine(t *testing.T, s model.QuizSettings) *Engine {
	t.Helper()
	return New(s, rand.New(rand.NewSource(1)), zaptest.NewLogger(t))
}

func startAndDeliver(t *testing.T, e *Engine, src Sources, gen Generator, lookup Lookup) Result {
	t.Helper()
	ticket, err := e.Start(src)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if e.State() != Generating {
		t.Fatalf("expected generating, got %s", e.State())
	}
	res := Resolve(context.Background(), ticket, lookup, gen, zaptest.NewLogger(t))
	if err := e.Deliver(res); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	return res
}

func TestEmptyScope(t *testing.T) {
	e := newEngine(t, model.QuizSettings{Level: model.LevelEasy, Scope: model.ScopeWard, Kind: model.KindMultipleChoice})
	if _, err := e.Start(Sources{}); !errors.Is(err, ErrEmptyScope) {
		t.Fatalf("expected ErrEmptyScope, got %v", err)
	}
	if e.State() != Config || e.Notice() != NoticeEmptyScope {
		t.Fatalf("expected config with notice, got %s %q", e.State(), e.Notice())
	}

	e.Configure(model.QuizSettings{Level: model.LevelEasy, Scope: model.ScopeMemorized, Kind: model.KindMultipleChoice})
	if _, err := e.Start(Sources{Ward: []model.Verse{fatiha3}}); !errors.Is(err, ErrNoMemorized) {
		t.Fatalf("expected ErrNoMemorized, got %v", err)
	}
	if e.Notice() != NoticeNoMemorized {
		t.Fatalf("unexpected notice %q", e.Notice())
	}
}

func TestMultipleChoiceNormalizedScoring(t *testing.T) {
	gen := &fakeGen{q: model.Question{
		Kind:    model.KindMultipleChoice,
		Prompt:  "أكمل",
		Options: []string{"مالك يوم الدين", "الرَّحْمٰنِ الرَّحِيمِ", "إياك نعبد"},
		Answer:  "الرحمن الرحيم",
	}}
	e := newEngine(t, model.QuizSettings{Level: model.LevelMedium, Scope: model.ScopeWard, Kind: model.KindMultipleChoice})
	res := startAndDeliver(t, e, Sources{Ward: []model.Verse{fatiha3}, ChapterName: "الفاتحة"}, gen, nil)
	if res.Fallback {
		t.Fatalf("unexpected fallback")
	}
	if gen.got.ScopeLabel != "وردك اليومي من الفاتحة" || gen.got.Kind != model.KindMultipleChoice {
		t.Fatalf("unexpected request: %+v", gen.got)
	}

	out, err := e.Choose(1)
	if err != nil {
		t.Fatalf("choose: %v", err)
	}
	if !out.Correct || out.Answer != "" {
		t.Fatalf("expected correct outcome without answer reveal, got %+v", out)
	}
	if _, err := e.Choose(0); !errors.Is(err, ErrNotAnswerable) {
		t.Fatalf("second choice must be rejected, got %v", err)
	}
	marks := e.Marks()
	if marks[0] != MarkDimmed || marks[1] != MarkCorrect || marks[2] != MarkDimmed {
		t.Fatalf("unexpected marks: %v", marks)
	}
}

func TestMultipleChoiceWrongRevealsAnswer(t *testing.T) {
	gen := &fakeGen{q: model.Question{
		Kind:        model.KindMultipleChoice,
		Prompt:      "أكمل",
		Options:     []string{"مالك يوم الدين", "الرحمن الرحيم"},
		Answer:      "الرحمن الرحيم",
		Explanation: "الآية الثالثة",
	}}
	e := newEngine(t, model.QuizSettings{Scope: model.ScopeChapter, Kind: model.KindMultipleChoice})
	startAndDeliver(t, e, Sources{Chapter: []model.Verse{fatiha3}}, gen, nil)
	out, err := e.Choose(0)
	if err != nil {
		t.Fatalf("choose: %v", err)
	}
	if out.Correct || out.Answer != "الرحمن الرحيم" || out.Explanation != "الآية الثالثة" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	marks := e.Marks()
	if marks[0] != MarkWrong || marks[1] != MarkCorrect {
		t.Fatalf("unexpected marks: %v", marks)
	}
	attempt, ok := e.Attempt()
	if !ok || attempt.Correct || attempt.VerseKey != "1:3" {
		t.Fatalf("unexpected attempt: %+v", attempt)
	}
}

func reorderEngine(t *testing.T) *Engine {
	t.Helper()
	gen := &fakeGen{q: model.Question{
		Kind:   model.KindReorder,
		Prompt: "رتب الكلمات",
		Tokens: []string{"الرحيم", "الرحمن"},
		Answer: "الرحمن الرحيم",
	}}
	e := newEngine(t, model.QuizSettings{Scope: model.ScopeWard, Kind: model.KindReorder})
	startAndDeliver(t, e, Sources{Ward: []model.Verse{fatiha3}}, gen, nil)
	return e
}

func pickText(t *testing.T, e *Engine, text string) {
	t.Helper()
	for i, tok := range e.Pool() {
		if tok == text {
			if err := e.Pick(i); err != nil {
				t.Fatalf("pick: %v", err)
			}
			return
		}
	}
	t.Fatalf("token %q not in pool %v", text, e.Pool())
}

func TestReorderCorrectOrder(t *testing.T) {
	e := reorderEngine(t)
	if e.CanSubmit() {
		t.Fatalf("submit must wait for an empty pool")
	}
	pickText(t, e, "الرحمن")
	pickText(t, e, "الرحيم")
	out, err := e.Submit()
	if err != nil || !out.Correct {
		t.Fatalf("expected correct, got %+v err=%v", out, err)
	}
}

func TestReorderWrongOrder(t *testing.T) {
	e := reorderEngine(t)
	pickText(t, e, "الرحيم")
	pickText(t, e, "الرحمن")
	out, err := e.Submit()
	if err != nil || out.Correct {
		t.Fatalf("expected incorrect, got %+v err=%v", out, err)
	}
}

func TestReorderUndo(t *testing.T) {
	e := reorderEngine(t)
	pickText(t, e, "الرحيم")
	if !e.Undo() {
		t.Fatalf("expected undo to succeed")
	}
	if len(e.Pool()) != 2 || len(e.Picked()) != 0 {
		t.Fatalf("unexpected state after undo: pool=%v picked=%v", e.Pool(), e.Picked())
	}
	if e.Undo() {
		t.Fatalf("undo with nothing picked must fail")
	}
}

func TestGeneratorFailureFallsBack(t *testing.T) {
	gen := &fakeGen{err: errors.New("timeout")}
	e := newEngine(t, model.QuizSettings{Scope: model.ScopeWard, Kind: model.KindReorder})
	res := startAndDeliver(t, e, Sources{Ward: []model.Verse{fatiha3}, ChapterName: "الفاتحة"}, gen, nil)
	if !res.Fallback || !e.Fallback() {
		t.Fatalf("expected fallback question")
	}
	q := e.Question()
	if q.Kind != model.KindMultipleChoice || q.Options[0] != fatiha3.Text || q.Answer != fatiha3.Text {
		t.Fatalf("unexpected fallback question: %+v", q)
	}
	if !strings.HasPrefix(q.Options[1], "خيار خاطئ") {
		t.Fatalf("unexpected distractor %q", q.Options[1])
	}
	if e.State() != Question {
		t.Fatalf("expected question state, got %s", e.State())
	}
}

func TestMalformedQuestionFallsBack(t *testing.T) {
	gen := &fakeGen{q: model.Question{
		Kind:    model.KindMultipleChoice,
		Prompt:  "أكمل",
		Options: []string{"أ", "ب"},
		Answer:  "الرحمن الرحيم",
	}}
	e := newEngine(t, model.QuizSettings{Scope: model.ScopeWard, Kind: model.KindMultipleChoice})
	res := startAndDeliver(t, e, Sources{Ward: []model.Verse{fatiha3}}, gen, nil)
	if !res.Fallback {
		t.Fatalf("expected fallback when answer is not an option")
	}
}

func TestMemorizedScopeFetchesVerse(t *testing.T) {
	gen := &fakeGen{err: errors.New("offline")}
	lookup := fakeLookup{verses: map[string]model.Verse{"1:3": fatiha3}}
	e := newEngine(t, model.QuizSettings{Scope: model.ScopeMemorized, Kind: model.KindMultipleChoice})
	res := startAndDeliver(t, e, Sources{Memorized: []string{"1:3"}}, gen, lookup)
	if res.Verse.Key != "1:3" {
		t.Fatalf("expected fetched verse, got %+v", res.Verse)
	}
}

func TestMemorizedScopeLookupFailure(t *testing.T) {
	e := newEngine(t, model.QuizSettings{Scope: model.ScopeMemorized, Kind: model.KindMultipleChoice})
	ticket, err := e.Start(Sources{Memorized: []string{"9:9"}})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	res := Resolve(context.Background(), ticket, fakeLookup{}, &fakeGen{}, nil)
	if err := e.Deliver(res); !errors.Is(err, ErrVerseUnavailable) {
		t.Fatalf("expected ErrVerseUnavailable, got %v", err)
	}
	if e.State() != Config || e.Notice() != NoticeUnavailable {
		t.Fatalf("expected config with notice, got %s %q", e.State(), e.Notice())
	}
}

func TestStaleResultIgnored(t *testing.T) {
	gen := &fakeGen{err: errors.New("slow")}
	e := newEngine(t, model.QuizSettings{Scope: model.ScopeWard, Kind: model.KindMultipleChoice})
	src := Sources{Ward: []model.Verse{fatiha3}}
	first, err := e.Start(src)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := e.Start(src); err != nil {
		t.Fatalf("restart: %v", err)
	}
	stale := Resolve(context.Background(), first, nil, gen, nil)
	if err := e.Deliver(stale); !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
	if e.State() != Generating {
		t.Fatalf("stale result changed state to %s", e.State())
	}

	e.Back()
	if err := e.Deliver(stale); !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale after back, got %v", err)
	}
}

func TestValidateReorderTokens(t *testing.T) {
	q := model.Question{Kind: model.KindReorder, Prompt: "رتب", Tokens: []string{"الرحيم", "الرحمن"}, Answer: "الرَّحْمَٰنِ الرَّحِيمِ"}
	if err := Validate(q); err != nil {
		t.Fatalf("expected valid question: %v", err)
	}
	q.Tokens = []string{"الرحيم", "مالك"}
	if err := Validate(q); err == nil {
		t.Fatalf("expected mismatched tokens to fail")
	}
}

func TestCancelInvalidatesInFlight(t *testing.T) {
	e := newEngine(t, model.QuizSettings{Scope: model.ScopeWard, Kind: model.KindMultipleChoice})
	ticket, err := e.Start(Sources{Ward: []model.Verse{fatiha3}})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	e.Cancel()
	if e.State() != Config {
		t.Fatalf("expected config after cancel, got %s", e.State())
	}
	res := Resolve(context.Background(), ticket, nil, &fakeGen{err: errors.New("down")}, nil)
	if err := e.Deliver(res); !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
}
