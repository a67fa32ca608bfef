// Package generator asks a language model for recall questions and short commentary.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/hifz/internal/model"
)

// Providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderNone   = "none"
)

var (
	// ErrNotConfigured means no provider is available.
	ErrNotConfigured = errors.New("question generator not configured")
	// ErrGenerationFailed means the provider call failed.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrInvalidResponse means the provider answered with an unusable payload.
	ErrInvalidResponse = errors.New("invalid generator response")
	// ErrContentBlocked means the provider refused to answer.
	ErrContentBlocked = errors.New("content blocked by provider")
)

const (
	maxAttempts  = 2
	retryBackoff = 400 * time.Millisecond
)

// Config selects and configures a provider.
type Config struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}

// call is a single completion request to a backend.
type call struct {
	System string
	Prompt string
	JSON   bool
}

type backend interface {
	name() string
	complete(ctx context.Context, c call) (string, error)
}

// Generator produces questions and commentary through a backend.
type Generator struct {
	backend  backend
	log      *zap.Logger
	timeout  time.Duration
	question *template.Template
	tafsir   *template.Template
}

// New builds a Generator for cfg.Provider. ProviderNone yields ErrNotConfigured.
func New(ctx context.Context, cfg Config, log *zap.Logger) (*Generator, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var (
		b   backend
		err error
	)
	switch cfg.Provider {
	case ProviderGemini:
		b, err = newGemini(ctx, cfg)
	case ProviderOpenAI:
		b, err = newOpenAI(cfg)
	case "", ProviderNone:
		return nil, ErrNotConfigured
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrNotConfigured, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return newWithBackend(b, cfg.Timeout, log), nil
}

func newWithBackend(b backend, timeout time.Duration, log *zap.Logger) *Generator {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Generator{
		backend:  b,
		log:      log,
		timeout:  timeout,
		question: template.Must(template.New("question").Parse(questionPrompt)),
		tafsir:   template.Must(template.New("tafsir").Parse(tafsirPrompt)),
	}
}

// Generate asks for one question about req.Verses.
func (g *Generator) Generate(ctx context.Context, req model.QuestionRequest) (model.Question, error) {
	if len(req.Verses) == 0 {
		return model.Question{}, fmt.Errorf("%w: no verses", ErrGenerationFailed)
	}
	prompt, err := render(g.question, req)
	if err != nil {
		return model.Question{}, err
	}
	raw, err := g.complete(ctx, call{System: questionSystem, Prompt: prompt, JSON: true})
	if err != nil {
		return model.Question{}, err
	}
	return parseQuestion(raw, req.Kind)
}

// Explain returns a short commentary for v.
func (g *Generator) Explain(ctx context.Context, v model.Verse, chapterName string) (string, error) {
	prompt, err := render(g.tafsir, struct {
		Verse   model.Verse
		Chapter string
	}{v, chapterName})
	if err != nil {
		return "", err
	}
	text, err := g.complete(ctx, call{System: tafsirSystem, Prompt: prompt})
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrInvalidResponse
	}
	return text, nil
}

func (g *Generator) complete(ctx context.Context, c call) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		start := time.Now()
		out, err := g.backend.complete(ctx, c)
		if err == nil {
			g.log.Debug("generator call", zap.String("provider", g.backend.name()), zap.Duration("took", time.Since(start)))
			return out, nil
		}
		lastErr = err
		if errors.Is(err, ErrContentBlocked) || ctx.Err() != nil {
			break
		}
		g.log.Warn("generator call failed", zap.String("provider", g.backend.name()), zap.Int("attempt", attempt), zap.Error(err))
		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
			case <-time.After(retryBackoff * time.Duration(attempt)):
			}
		}
	}
	if errors.Is(lastErr, ErrContentBlocked) {
		return "", lastErr
	}
	return "", fmt.Errorf("%w: %v", ErrGenerationFailed, lastErr)
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", t.Name(), err)
	}
	return buf.String(), nil
}

type questionPayload struct {
	Type        string   `json:"type"`
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Words       []string `json:"words"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation"`
}

func parseQuestion(raw string, want model.QuestionKind) (model.Question, error) {
	raw = stripFence(raw)
	var p questionPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return model.Question{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if strings.TrimSpace(p.Question) == "" || strings.TrimSpace(p.Answer) == "" {
		return model.Question{}, fmt.Errorf("%w: missing question or answer", ErrInvalidResponse)
	}
	kind := want
	switch strings.ToLower(strings.TrimSpace(p.Type)) {
	case "mcq", "multiple_choice", "multiple-choice":
		kind = model.KindMultipleChoice
	case "reorder", "order":
		kind = model.KindReorder
	}
	q := model.Question{
		Kind:        kind,
		Prompt:      strings.TrimSpace(p.Question),
		Answer:      strings.TrimSpace(p.Answer),
		Explanation: strings.TrimSpace(p.Explanation),
	}
	switch kind {
	case model.KindReorder:
		q.Tokens = nonEmpty(p.Words)
		if len(q.Tokens) == 0 {
			q.Tokens = strings.Fields(q.Answer)
		}
	default:
		q.Options = nonEmpty(p.Options)
	}
	return q, nil
}

func stripFence(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimPrefix(raw, "json")
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	return strings.TrimSpace(raw)
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
