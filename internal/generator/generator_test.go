package generator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/verte-zerg/hifz/internal/model"
)

type scriptedBackend struct {
	replies []string
	errs    []error
	calls   []call
}

func (b *scriptedBackend) name() string { return "scripted" }

func (b *scriptedBackend) complete(_ context.Context, c call) (string, error) {
	i := len(b.calls)
	b.calls = append(b.calls, c)
	var err error
	if i < len(b.errs) {
		err = b.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(b.replies) {
		return b.replies[i], nil
	}
	return "", errors.New("no reply scripted")
}

var verse = model.Verse{Key: "1:3", Position: 3, Text: "الرَّحْمَٰنِ الرَّحِيمِ"}

func TestParseQuestionMultipleChoice(t *testing.T) {
	raw := "```json\n{\"type\":\"MCQ\",\"question\":\"أكمل\",\"options\":[\"الرحمن الرحيم\",\" \",\"مالك يوم الدين\"],\"answer\":\"الرحمن الرحيم\"}\n```"
	q, err := parseQuestion(raw, model.KindReorder)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if q.Kind != model.KindMultipleChoice {
		t.Fatalf("expected payload type to win, got %s", q.Kind)
	}
	if len(q.Options) != 2 {
		t.Fatalf("expected blank options dropped, got %v", q.Options)
	}
}

func TestParseQuestionReorderBuildsTokens(t *testing.T) {
	q, err := parseQuestion(`{"question":"رتب","answer":"الرحمن الرحيم"}`, model.KindReorder)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if q.Kind != model.KindReorder || len(q.Tokens) != 2 {
		t.Fatalf("unexpected question: %+v", q)
	}
}

func TestParseQuestionRejectsIncomplete(t *testing.T) {
	for _, raw := range []string{`not json`, `{"question":"","answer":"x"}`, `{"question":"q"}`} {
		if _, err := parseQuestion(raw, model.KindMultipleChoice); !errors.Is(err, ErrInvalidResponse) {
			t.Fatalf("expected ErrInvalidResponse for %q, got %v", raw, err)
		}
	}
}

func TestGenerateRendersPrompt(t *testing.T) {
	b := &scriptedBackend{replies: []string{`{"type":"reorder","question":"رتب","words":["الرحيم","الرحمن"],"answer":"الرحمن الرحيم"}`}}
	g := newWithBackend(b, time.Second, zaptest.NewLogger(t))
	q, err := g.Generate(context.Background(), model.QuestionRequest{
		ScopeLabel: "سورة الفاتحة",
		Verses:     []model.Verse{verse},
		Level:      model.LevelHard,
		Kind:       model.KindReorder,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(q.Tokens) != 2 {
		t.Fatalf("unexpected tokens: %v", q.Tokens)
	}
	prompt := b.calls[0].Prompt
	for _, want := range []string{"سورة الفاتحة", "hard", "[1:3]", "words"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if !b.calls[0].JSON {
		t.Fatalf("expected JSON mode for questions")
	}
}

func TestGenerateRetriesThenFails(t *testing.T) {
	b := &scriptedBackend{errs: []error{errors.New("503"), errors.New("503")}}
	g := newWithBackend(b, time.Second, zaptest.NewLogger(t))
	_, err := g.Generate(context.Background(), model.QuestionRequest{Verses: []model.Verse{verse}, Kind: model.KindMultipleChoice})
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
	if len(b.calls) != maxAttempts {
		t.Fatalf("expected %d attempts, got %d", maxAttempts, len(b.calls))
	}
}

func TestGenerateDoesNotRetryBlocked(t *testing.T) {
	b := &scriptedBackend{errs: []error{ErrContentBlocked}}
	g := newWithBackend(b, time.Second, zaptest.NewLogger(t))
	_, err := g.Generate(context.Background(), model.QuestionRequest{Verses: []model.Verse{verse}})
	if !errors.Is(err, ErrContentBlocked) || len(b.calls) != 1 {
		t.Fatalf("expected single blocked call, err=%v calls=%d", err, len(b.calls))
	}
}

func TestExplain(t *testing.T) {
	b := &scriptedBackend{replies: []string{"  صفتان من صفات الله تدلان على سعة رحمته.  "}}
	g := newWithBackend(b, time.Second, zaptest.NewLogger(t))
	text, err := g.Explain(context.Background(), verse, "الفاتحة")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if text != "صفتان من صفات الله تدلان على سعة رحمته." {
		t.Fatalf("unexpected text %q", text)
	}
	if b.calls[0].JSON {
		t.Fatalf("commentary must not request JSON")
	}
}

func TestNewNone(t *testing.T) {
	if _, err := New(context.Background(), Config{Provider: ProviderNone}, nil); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := New(context.Background(), Config{Provider: ProviderOpenAI}, nil); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured without key, got %v", err)
	}
}

func TestOpenAIBackend(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		content := `{"type":"mcq","question":"أكمل","options":["الرحمن الرحيم","مالك يوم الدين"],"answer":"الرحمن الرحيم"}`
		reply := map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(reply)
	}))
	t.Cleanup(srv.Close)

	g, err := New(context.Background(), Config{Provider: ProviderOpenAI, APIKey: "k", BaseURL: srv.URL + "/v1", Model: "test-model", Timeout: 5 * time.Second}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	q, err := g.Generate(context.Background(), model.QuestionRequest{ScopeLabel: "سورة الفاتحة", Verses: []model.Verse{verse}, Kind: model.KindMultipleChoice})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if q.Answer != "الرحمن الرحيم" || len(q.Options) != 2 {
		t.Fatalf("unexpected question: %+v", q)
	}
	if gotBody["model"] != "test-model" {
		t.Fatalf("unexpected request model: %v", gotBody["model"])
	}
	format, _ := gotBody["response_format"].(map[string]any)
	if format["type"] != "json_object" {
		t.Fatalf("expected json_object response format, got %v", gotBody["response_format"])
	}
}
