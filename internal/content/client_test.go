package content

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"go.uber.org/zap/zaptest"
)

func newTestServer(t *testing.T, audioStatus int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/chapters", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"chapters":[{"id":1,"name_simple":"Al-Fatihah","name_arabic":"الفاتحة","verses_count":7}]}`))
	})
	mux.HandleFunc("/quran/verses/uthmani", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch {
		case r.URL.Query().Get("chapter_number") == "1":
			_, _ = w.Write([]byte(`{"verses":[
				{"id":1,"verse_key":"1:1","text_uthmani":"بِسْمِ ٱللَّهِ ٱلرَّحْمَٰنِ ٱلرَّحِيمِ"},
				{"id":2,"verse_key":"1:2","text_uthmani":"ٱلْحَمْدُ لِلَّهِ رَبِّ ٱلْعَٰلَمِينَ"},
				{"id":3,"verse_key":"1:3","text_uthmani":"ٱلرَّحْمَٰنِ ٱلرَّحِيمِ"}]}`))
		case r.URL.Query().Get("verse_key") == "1:3":
			_, _ = w.Write([]byte(`{"verses":[{"id":3,"verse_key":"1:3","text_uthmani":"ٱلرَّحْمَٰنِ ٱلرَّحِيمِ"}]}`))
		default:
			_, _ = w.Write([]byte(`{"verses":[]}`))
		}
	})
	mux.HandleFunc("/recitations/7/by_chapter/1", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if audioStatus != http.StatusOK {
			w.WriteHeader(audioStatus)
			return
		}
		if r.URL.Query().Get("page") == "2" {
			_, _ = w.Write([]byte(`{"audio_files":[{"verse_key":"1:3","url":"//mirrors.example/001003.mp3"}],"pagination":{"next_page":null}}`))
			return
		}
		_, _ = w.Write([]byte(`{"audio_files":[
			{"verse_key":"1:1","url":"Alafasy/mp3/001001.mp3"},
			{"verse_key":"1:2","url":"https://cdn.example/001002.mp3"}],"pagination":{"next_page":2}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := New(Options{BaseURL: srv.URL, AudioBaseURL: "https://verses.example", RPS: 1000}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestChaptersCached(t *testing.T) {
	srv, hits := newTestServer(t, http.StatusOK)
	c := newTestClient(t, srv)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		chapters, err := c.Chapters(ctx)
		if err != nil {
			t.Fatalf("chapters: %v", err)
		}
		if len(chapters) != 1 || chapters[0].NameArabic != "الفاتحة" || chapters[0].VerseCount != 7 {
			t.Fatalf("unexpected chapters: %+v", chapters)
		}
	}
	if hits.Load() != 1 {
		t.Fatalf("expected a single request, got %d", hits.Load())
	}
}

func TestVersesWithAudio(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK)
	c := newTestClient(t, srv)
	verses, err := c.Verses(context.Background(), 1, 7)
	if err != nil {
		t.Fatalf("verses: %v", err)
	}
	if len(verses) != 3 {
		t.Fatalf("expected 3 verses, got %d", len(verses))
	}
	want := []string{
		"https://verses.example/Alafasy/mp3/001001.mp3",
		"https://cdn.example/001002.mp3",
		"https://mirrors.example/001003.mp3",
	}
	for i, v := range verses {
		if v.Position != i+1 {
			t.Fatalf("verse %d has position %d", i, v.Position)
		}
		if v.AudioURL != want[i] {
			t.Fatalf("verse %d audio: expected %s, got %s", i, want[i], v.AudioURL)
		}
	}
}

func TestVersesWithoutAudio(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusInternalServerError)
	c := newTestClient(t, srv)
	verses, err := c.Verses(context.Background(), 1, 7)
	if err != nil {
		t.Fatalf("audio failure must not fail verses: %v", err)
	}
	for _, v := range verses {
		if v.HasAudio() {
			t.Fatalf("expected no audio for %s", v.Key)
		}
	}
}

func TestVerseByKey(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK)
	c := newTestClient(t, srv)
	ctx := context.Background()

	v, err := c.VerseByKey(ctx, "1:3")
	if err != nil {
		t.Fatalf("verse by key: %v", err)
	}
	if v.Position != 3 || v.Key != "1:3" {
		t.Fatalf("unexpected verse: %+v", v)
	}
	if _, err := c.VerseByKey(ctx, "2:999"); !errors.Is(err, ErrVerseNotFound) {
		t.Fatalf("expected ErrVerseNotFound, got %v", err)
	}
	if _, err := c.VerseByKey(ctx, "bogus"); !errors.Is(err, ErrVerseNotFound) {
		t.Fatalf("expected ErrVerseNotFound for malformed key, got %v", err)
	}
}

func TestUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	c := newTestClient(t, srv)
	if _, err := c.Chapters(context.Background()); !errors.Is(err, ErrUnexpectedStatus) {
		t.Fatalf("expected ErrUnexpectedStatus, got %v", err)
	}
}
