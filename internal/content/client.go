// Package content fetches chapters, verse text and recitation audio from the quran.com v4 API.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/verte-zerg/hifz/internal/model"
)

// Defaults for the public API.
const (
	DefaultBaseURL      = "https://api.quran.com/api/v4"
	DefaultAudioBaseURL = "https://verses.quran.com/"
	DefaultTimeout      = 15 * time.Second
	DefaultRPS          = 5
	DefaultCacheSize    = 256

	audioPageSize = 50
	maxBodyBytes  = 8 << 20
)

var (
	// ErrVerseNotFound means a key did not resolve to a verse.
	ErrVerseNotFound = errors.New("verse not found")
	// ErrUnexpectedStatus means the API answered with a non-200 status.
	ErrUnexpectedStatus = errors.New("unexpected status")
)

// Options configures a Client.
type Options struct {
	BaseURL      string
	AudioBaseURL string
	Timeout      time.Duration
	RPS          float64
	CacheSize    int
	HTTPClient   *http.Client
}

// Client is a rate-limited, caching API client. It is safe for concurrent use.
type Client struct {
	http      *http.Client
	baseURL   string
	audioBase string
	limiter   *rate.Limiter
	cache     *lru.Cache[string, []byte]
	log       *zap.Logger
}

// New builds a Client, filling unset options with defaults.
func New(opts Options, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.AudioBaseURL == "" {
		opts.AudioBaseURL = DefaultAudioBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RPS <= 0 {
		opts.RPS = DefaultRPS
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	cache, err := lru.New[string, []byte](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}
	burst := int(opts.RPS)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		http:      httpClient,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		audioBase: strings.TrimRight(opts.AudioBaseURL, "/") + "/",
		limiter:   rate.NewLimiter(rate.Limit(opts.RPS), burst),
		cache:     cache,
		log:       log,
	}, nil
}

type chaptersResponse struct {
	Chapters []struct {
		ID          int    `json:"id"`
		NameSimple  string `json:"name_simple"`
		NameArabic  string `json:"name_arabic"`
		VersesCount int    `json:"verses_count"`
	} `json:"chapters"`
}

type versesResponse struct {
	Verses []struct {
		ID          int    `json:"id"`
		VerseKey    string `json:"verse_key"`
		TextUthmani string `json:"text_uthmani"`
	} `json:"verses"`
}

type audioResponse struct {
	AudioFiles []struct {
		VerseKey string `json:"verse_key"`
		URL      string `json:"url"`
	} `json:"audio_files"`
	Pagination struct {
		NextPage *int `json:"next_page"`
	} `json:"pagination"`
}

// Chapters lists every chapter.
func (c *Client) Chapters(ctx context.Context) ([]model.Chapter, error) {
	var resp chaptersResponse
	if err := c.getJSON(ctx, "/chapters?language=ar", &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch chapters: %w", err)
	}
	out := make([]model.Chapter, 0, len(resp.Chapters))
	for _, ch := range resp.Chapters {
		out = append(out, model.Chapter{
			ID:         ch.ID,
			NameSimple: ch.NameSimple,
			NameArabic: ch.NameArabic,
			VerseCount: ch.VersesCount,
		})
	}
	return out, nil
}

// Verses returns the chapter's verses with the narrator's audio attached.
// Text and audio are fetched concurrently; an audio failure is logged and
// yields verses without locators.
func (c *Client) Verses(ctx context.Context, chapterID, narratorID int) ([]model.Verse, error) {
	var (
		text  versesResponse
		audio map[string]string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		path := "/quran/verses/uthmani?chapter_number=" + strconv.Itoa(chapterID)
		if err := c.getJSON(gctx, path, &text); err != nil {
			return fmt.Errorf("failed to fetch verses: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		files, err := c.audioFiles(gctx, chapterID, narratorID)
		if err != nil {
			c.log.Warn("recitation unavailable", zap.Error(err), zap.Int("chapter", chapterID), zap.Int("narrator", narratorID))
			return nil
		}
		audio = files
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]model.Verse, 0, len(text.Verses))
	for _, v := range text.Verses {
		_, pos, ok := splitKey(v.VerseKey)
		if !ok {
			c.log.Warn("skipping verse with malformed key", zap.String("key", v.VerseKey))
			continue
		}
		out = append(out, model.Verse{
			ID:       v.ID,
			Key:      v.VerseKey,
			Text:     v.TextUthmani,
			Position: pos,
			AudioURL: audio[v.VerseKey],
		})
	}
	return out, nil
}

// VerseByKey fetches a single verse without audio.
func (c *Client) VerseByKey(ctx context.Context, key string) (model.Verse, error) {
	_, pos, ok := splitKey(key)
	if !ok {
		return model.Verse{}, fmt.Errorf("%w: malformed key %q", ErrVerseNotFound, key)
	}
	var resp versesResponse
	if err := c.getJSON(ctx, "/quran/verses/uthmani?verse_key="+url.QueryEscape(key), &resp); err != nil {
		return model.Verse{}, fmt.Errorf("failed to fetch verse %s: %w", key, err)
	}
	if len(resp.Verses) == 0 {
		return model.Verse{}, fmt.Errorf("%w: %s", ErrVerseNotFound, key)
	}
	v := resp.Verses[0]
	return model.Verse{ID: v.ID, Key: v.VerseKey, Text: v.TextUthmani, Position: pos}, nil
}

func (c *Client) audioFiles(ctx context.Context, chapterID, narratorID int) (map[string]string, error) {
	out := map[string]string{}
	page := 1
	for {
		path := fmt.Sprintf("/recitations/%d/by_chapter/%d?per_page=%d&page=%d", narratorID, chapterID, audioPageSize, page)
		var resp audioResponse
		if err := c.getJSON(ctx, path, &resp); err != nil {
			return nil, err
		}
		for _, f := range resp.AudioFiles {
			out[f.VerseKey] = c.audioURL(f.URL)
		}
		if resp.Pagination.NextPage == nil || *resp.Pagination.NextPage <= page {
			return out, nil
		}
		page = *resp.Pagination.NextPage
	}
}

func (c *Client) audioURL(raw string) string {
	switch {
	case raw == "":
		return ""
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
		return raw
	case strings.HasPrefix(raw, "//"):
		return "https:" + raw
	default:
		return c.audioBase + strings.TrimLeft(raw, "/")
	}
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	endpoint := c.baseURL + path
	body, ok := c.cache.Get(endpoint)
	if !ok {
		var err error
		body, err = c.fetch(ctx, endpoint)
		if err != nil {
			return err
		}
		c.cache.Add(endpoint, body)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, endpoint string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			// Best-effort response close.
			_ = cerr
		}
	}()
	c.log.Debug("content request", zap.String("url", endpoint), zap.Int("status", resp.StatusCode), zap.Duration("took", time.Since(start)))
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

func splitKey(key string) (int, int, bool) {
	chapter, position, found := strings.Cut(key, ":")
	if !found {
		return 0, 0, false
	}
	ch, err := strconv.Atoi(chapter)
	if err != nil || ch < 1 {
		return 0, 0, false
	}
	pos, err := strconv.Atoi(position)
	if err != nil || pos < 1 {
		return 0, 0, false
	}
	return ch, pos, true
}
