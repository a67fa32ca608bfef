// Package playback sequences repeated recitation of a verse range.
//
// The Scheduler is a plain state machine driven from a single goroutine.
// It never sleeps: when a pause between plays is needed it hands the caller
// a Delay carrying a token, and the caller reports back through Elapsed once
// the timer fires. Tokens and media handles are never reused, so a timer or
// media notification that outlives the action that created it is ignored.
package playback

import (
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/hifz/internal/model"
)

// State is the scheduler's current phase.
type State int

// Scheduler states.
const (
	Idle State = iota
	Playing
	RepeatPause
	AdvancePause
	Completed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case RepeatPause:
		return "repeat-pause"
	case AdvancePause:
		return "advance-pause"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// Player drives the single media handle. Play starts url under the given
// handle id and must later report the handle as ended exactly once, unless
// Stop was called first.
type Player interface {
	Play(handle uint64, url string) error
	Pause() error
	Resume() error
	Stop()
}

// Delay asks the host to call Elapsed(Token) after Duration.
type Delay struct {
	Token    uint64
	Duration time.Duration
}

// Snapshot is a read-only view of the scheduler.
type Snapshot struct {
	State     State
	Paused    bool
	Index     int
	Remaining int
	Repeats   int
	Total     int
	Verse     *model.Verse
}

// Active reports whether playback is running or waiting between plays.
func (s Snapshot) Active() bool {
	return s.State == Playing || s.State == RepeatPause || s.State == AdvancePause
}

// Scheduler owns playback state for the active verse range.
type Scheduler struct {
	player Player
	log    *zap.Logger

	verses  []model.Verse
	repeats int
	delay   time.Duration

	state     State
	paused    bool
	index     int
	remaining int
	handle    uint64
	token     uint64
	seq       uint64

	onComplete func()
}

// New returns an idle scheduler.
func New(player Player, log *zap.Logger, repeats int, delay time.Duration) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	if repeats < 1 {
		repeats = 1
	}
	return &Scheduler{
		player:    player,
		log:       log,
		repeats:   repeats,
		delay:     delay,
		remaining: repeats,
	}
}

// OnComplete registers a hook invoked when the last verse finishes its final repeat.
func (s *Scheduler) OnComplete(fn func()) {
	s.onComplete = fn
}

// Snapshot returns the current state.
func (s *Scheduler) Snapshot() Snapshot {
	snap := Snapshot{
		State:     s.state,
		Paused:    s.paused,
		Index:     s.index,
		Remaining: s.remaining,
		Repeats:   s.repeats,
		Total:     len(s.verses),
	}
	if s.index >= 0 && s.index < len(s.verses) {
		v := s.verses[s.index]
		snap.Verse = &v
	}
	return snap
}

// SetVerses installs a new active range. Playback is reset to the first verse, idle.
func (s *Scheduler) SetVerses(list []model.Verse) {
	s.reset()
	s.verses = append([]model.Verse(nil), list...)
}

// UpdateSettings changes repeat count and delay. Outside Idle this resets
// playback to the first verse; while Idle it only adopts the new values.
func (s *Scheduler) UpdateSettings(repeats int, delay time.Duration) {
	if repeats < 1 {
		repeats = 1
	}
	if delay < 0 {
		delay = 0
	}
	s.repeats = repeats
	s.delay = delay
	if s.state != Idle {
		s.reset()
		return
	}
	if s.remaining > repeats || s.remaining < 1 {
		s.remaining = repeats
	}
}

// Play starts or resumes playback.
func (s *Scheduler) Play() {
	if len(s.verses) == 0 {
		return
	}
	switch s.state {
	case Playing, RepeatPause, AdvancePause:
		return
	case Completed:
		s.begin(0)
		return
	}
	if s.handle != 0 && s.paused {
		if err := s.player.Resume(); err != nil {
			s.log.Warn("resume failed, restarting verse", zap.Error(err), zap.Int("index", s.index))
			s.stopHandle()
			s.start(s.index)
			return
		}
		s.paused = false
		s.state = Playing
		return
	}
	if s.remaining < 1 {
		s.remaining = s.repeats
	}
	s.start(s.index)
}

// Pause halts playback. A pending delay is cancelled and its step committed,
// so a later Play starts the verse that would have played next.
func (s *Scheduler) Pause() {
	switch s.state {
	case Playing:
		if err := s.player.Pause(); err != nil {
			s.log.Warn("pause failed, stopping media", zap.Error(err))
			s.stopHandle()
		}
		s.state = Idle
		s.paused = s.handle != 0
	case RepeatPause:
		s.token = 0
		s.state = Idle
	case AdvancePause:
		s.token = 0
		s.index++
		s.remaining = s.repeats
		s.state = Idle
	}
}

// Toggle pauses when active and plays otherwise.
func (s *Scheduler) Toggle() {
	if s.Snapshot().Active() {
		s.Pause()
		return
	}
	s.Play()
}

// SelectVerse jumps to verse i of the active range and plays it with a fresh
// repeat counter. Verses without audio are ignored.
func (s *Scheduler) SelectVerse(i int) {
	if i < 0 || i >= len(s.verses) {
		return
	}
	if !s.verses[i].HasAudio() {
		s.log.Info("media unavailable", zap.String("verse", s.verses[i].Key))
		return
	}
	s.token = 0
	s.stopHandle()
	s.begin(i)
}

// Next selects the following verse. It does nothing on the last verse.
func (s *Scheduler) Next() {
	if s.index+1 >= len(s.verses) {
		return
	}
	s.SelectVerse(s.index + 1)
}

// Prev selects the preceding verse. It does nothing on the first verse.
func (s *Scheduler) Prev() {
	if s.index <= 0 {
		return
	}
	s.SelectVerse(s.index - 1)
}

// Stop cancels everything and returns to Idle at the current verse.
func (s *Scheduler) Stop() {
	s.token = 0
	s.stopHandle()
	s.state = Idle
	s.paused = false
}

// MediaEnded reports that the media for handle finished. It returns a Delay
// when the next step must wait.
func (s *Scheduler) MediaEnded(handle uint64) *Delay {
	if handle == 0 || handle != s.handle || s.state != Playing {
		return nil
	}
	s.handle = 0
	if s.remaining > 1 {
		s.remaining--
		if s.delay <= 0 {
			s.start(s.index)
			return nil
		}
		s.state = RepeatPause
		return s.schedule()
	}
	if s.index >= len(s.verses)-1 {
		s.remaining = 0
		s.state = Completed
		if s.onComplete != nil {
			s.onComplete()
		}
		return nil
	}
	if s.delay <= 0 {
		s.begin(s.index + 1)
		return nil
	}
	s.state = AdvancePause
	return s.schedule()
}

// Elapsed reports that the delay identified by token has finished.
func (s *Scheduler) Elapsed(token uint64) {
	if token == 0 || token != s.token {
		return
	}
	s.token = 0
	switch s.state {
	case RepeatPause:
		s.start(s.index)
	case AdvancePause:
		s.begin(s.index + 1)
	}
}

func (s *Scheduler) schedule() *Delay {
	s.seq++
	s.token = s.seq
	return &Delay{Token: s.token, Duration: s.delay}
}

func (s *Scheduler) begin(i int) {
	s.remaining = s.repeats
	s.start(i)
}

func (s *Scheduler) start(i int) {
	s.index = i
	s.paused = false
	v := s.verses[i]
	if !v.HasAudio() {
		s.log.Info("media unavailable", zap.String("verse", v.Key))
		s.state = Idle
		return
	}
	s.seq++
	handle := s.seq
	if err := s.player.Play(handle, v.AudioURL); err != nil {
		s.log.Error("failed to start media", zap.Error(err), zap.String("verse", v.Key))
		s.state = Idle
		return
	}
	s.handle = handle
	s.state = Playing
}

func (s *Scheduler) stopHandle() {
	if s.handle == 0 {
		return
	}
	s.player.Stop()
	s.handle = 0
	s.paused = false
}

func (s *Scheduler) reset() {
	s.token = 0
	s.stopHandle()
	s.state = Idle
	s.paused = false
	s.index = 0
	s.remaining = s.repeats
}
