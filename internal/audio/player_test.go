//go:build unix

package audio

import (
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestPlayReportsNaturalEnd(t *testing.T) {
	p := New("sh", []string{"-c", "exit 0"}, zaptest.NewLogger(t))
	ended := make(chan uint64, 1)
	p.OnEnded(func(h uint64) { ended <- h })

	if err := p.Play(42, "ignored"); err != nil {
		t.Fatalf("play: %v", err)
	}
	select {
	case h := <-ended:
		if h != 42 {
			t.Fatalf("expected handle 42, got %d", h)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for end")
	}
}

func TestStopSuppressesEnd(t *testing.T) {
	p := New("sleep", nil, zaptest.NewLogger(t))
	ended := make(chan uint64, 1)
	p.OnEnded(func(h uint64) { ended <- h })

	if err := p.Play(1, "5"); err != nil {
		t.Fatalf("play: %v", err)
	}
	if err := p.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := p.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	p.Stop()
	select {
	case h := <-ended:
		t.Fatalf("stopped handle %d must not be reported", h)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestPlayMissingCommand(t *testing.T) {
	p := New("hifz-no-such-player", nil, zaptest.NewLogger(t))
	if err := p.Available(); err == nil {
		t.Fatalf("expected missing command error")
	}
	if err := p.Play(1, "x"); err == nil {
		t.Fatalf("expected start error")
	}
}
