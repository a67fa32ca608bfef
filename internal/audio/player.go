// Package audio plays recitation URLs through an external media player process.
package audio

import (
	"fmt"
	"io"
	"os/exec"
	"sync"

	"go.uber.org/zap"
)

// DefaultCommand is the player used when none is configured.
const DefaultCommand = "mpv"

// DefaultArgs are passed before the URL to DefaultCommand.
var DefaultArgs = []string{"--no-video", "--really-quiet", "--no-terminal"}

// Player runs one external process at a time. When a process exits on its
// own, the ended callback receives the handle it was started with; processes
// ended by Stop or replaced by a newer Play are not reported.
type Player struct {
	command string
	args    []string
	log     *zap.Logger

	mu      sync.Mutex
	onEnded func(handle uint64)
	cmd     *exec.Cmd
	handle  uint64
}

// New returns a Player that runs command with args followed by the URL.
func New(command string, args []string, log *zap.Logger) *Player {
	if log == nil {
		log = zap.NewNop()
	}
	if command == "" {
		command = DefaultCommand
		args = DefaultArgs
	}
	return &Player{command: command, args: append([]string(nil), args...), log: log}
}

// OnEnded registers the callback for naturally finished playback. It is
// invoked from a background goroutine.
func (p *Player) OnEnded(fn func(handle uint64)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onEnded = fn
}

// Available reports whether the player command can be found.
func (p *Player) Available() error {
	if _, err := exec.LookPath(p.command); err != nil {
		return fmt.Errorf("audio player %q not found: %w", p.command, err)
	}
	return nil
}

// Play stops any current process and starts url under handle.
func (p *Player) Play(handle uint64, url string) error {
	p.Stop()

	cmd := exec.Command(p.command, append(append([]string(nil), p.args...), url)...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", p.command, err)
	}

	p.mu.Lock()
	p.cmd = cmd
	p.handle = handle
	p.mu.Unlock()

	go p.wait(cmd, handle)
	return nil
}

// Pause suspends the current process.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil || p.cmd.Process == nil {
		return nil
	}
	return suspend(p.cmd.Process)
}

// Resume continues a suspended process.
func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil || p.cmd.Process == nil {
		return fmt.Errorf("nothing to resume")
	}
	return resume(p.cmd.Process)
}

// Stop kills the current process without reporting it as ended.
func (p *Player) Stop() {
	p.mu.Lock()
	cmd := p.cmd
	p.cmd = nil
	p.handle = 0
	p.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return
	}
	if err := cmd.Process.Kill(); err != nil {
		// Best-effort kill; the process may already have exited.
		_ = err
	}
}

func (p *Player) wait(cmd *exec.Cmd, handle uint64) {
	err := cmd.Wait()

	p.mu.Lock()
	current := p.cmd == cmd && p.handle == handle
	if current {
		p.cmd = nil
		p.handle = 0
	}
	onEnded := p.onEnded
	p.mu.Unlock()

	if !current {
		return
	}
	if err != nil {
		p.log.Warn("media player exited with error", zap.Error(err), zap.Uint64("handle", handle))
	}
	if onEnded != nil {
		onEnded(handle)
	}
}
