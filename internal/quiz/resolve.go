package quiz

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/verte-zerg/hifz/internal/model"
	"github.com/verte-zerg/hifz/internal/normalize"
)

// Lookup fetches a single verse by key.
type Lookup interface {
	VerseByKey(ctx context.Context, key string) (model.Verse, error)
}

// Generator produces a question for a subject verse.
type Generator interface {
	Generate(ctx context.Context, req model.QuestionRequest) (model.Question, error)
}

const promptPreviewRunes = 30

// Resolve turns a ticket into a question. The subject verse is fetched first
// when the ticket only carries a key; failing that is reported as
// ErrVerseUnavailable. Any generator failure, or a question that does not
// validate, yields the local fallback question instead.
func Resolve(ctx context.Context, t Ticket, lookup Lookup, gen Generator, log *zap.Logger) Result {
	if log == nil {
		log = zap.NewNop()
	}
	res := Result{Ticket: t}
	if t.Subject != nil {
		res.Verse = *t.Subject
	} else {
		if lookup == nil {
			res.Err = fmt.Errorf("%w: no lookup for %s", ErrVerseUnavailable, t.Key)
			return res
		}
		v, err := lookup.VerseByKey(ctx, t.Key)
		if err != nil {
			res.Err = fmt.Errorf("%w: %s: %v", ErrVerseUnavailable, t.Key, err)
			return res
		}
		res.Verse = v
	}

	if gen != nil {
		q, err := gen.Generate(ctx, model.QuestionRequest{
			ScopeLabel: t.Label,
			Verses:     []model.Verse{res.Verse},
			Level:      t.Settings.Level,
			Kind:       t.Settings.Kind,
		})
		if err == nil {
			err = Validate(q)
		}
		if err == nil {
			res.Question = q
			return res
		}
		log.Warn("question generation failed, using fallback", zap.Error(err), zap.String("ticket", t.ID))
	}
	res.Question = FallbackQuestion(res.Verse, t.Label)
	res.Fallback = true
	return res
}

// FallbackQuestion builds the deterministic multiple-choice question whose
// correct option is the verse text itself.
func FallbackQuestion(v model.Verse, label string) model.Question {
	preview := []rune(v.Text)
	if len(preview) > promptPreviewRunes {
		preview = preview[:promptPreviewRunes]
	}
	return model.Question{
		Kind:   model.KindMultipleChoice,
		Prompt: fallbackPrompt + string(preview) + "...",
		Options: []string{
			v.Text,
			fallbackDistractor + " 1",
			fallbackDistractor + " 2",
			fallbackDistractor + " 3",
		},
		Answer:      v.Text,
		Explanation: fallbackExplanation + label,
	}
}

// Validate checks that a question can be answered correctly.
func Validate(q model.Question) error {
	if strings.TrimSpace(q.Prompt) == "" {
		return fmt.Errorf("question has no prompt")
	}
	if normalize.Normalize(q.Answer) == "" {
		return fmt.Errorf("question has no answer")
	}
	switch q.Kind {
	case model.KindMultipleChoice:
		if len(q.Options) < 2 {
			return fmt.Errorf("question has %d options", len(q.Options))
		}
		for _, opt := range q.Options {
			if normalize.Equal(opt, q.Answer) {
				return nil
			}
		}
		return fmt.Errorf("answer is not among the options")
	case model.KindReorder:
		if len(q.Tokens) < 2 {
			return fmt.Errorf("question has %d tokens", len(q.Tokens))
		}
		if !sameWords(strings.Join(q.Tokens, " "), q.Answer) {
			return fmt.Errorf("tokens do not compose the answer")
		}
		return nil
	default:
		return fmt.Errorf("unknown question kind %q", q.Kind)
	}
}

func sameWords(a, b string) bool {
	counts := map[string]int{}
	for _, w := range strings.Fields(normalize.Normalize(a)) {
		counts[w]++
	}
	for _, w := range strings.Fields(normalize.Normalize(b)) {
		counts[w]--
	}
	for _, n := range counts {
		if n != 0 {
			return false
		}
	}
	return true
}
