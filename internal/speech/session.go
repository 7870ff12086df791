package speech

import (
	"log/slog"

	"github.com/Mavwarf/quizspeak/internal/voice"
)

// State is the session state.
type State int

const (
	Idle State = iota
	Starting
	Playing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Playing:
		return "playing"
	default:
		return "unknown"
	}
}

// Session owns the one active utterance. It is not safe for concurrent
// use: every method must run on the event loop that post feeds, and engine
// callbacks are routed through post tagged with their generation so a
// callback from a stopped utterance can never touch a newer one.
type Session struct {
	engine Engine
	post   func(func()) bool

	state State
	gen   uint64
	cur   *callbacks
}

type callbacks struct {
	onStart func()
	onEnd   func()
	onError func(error)
}

// NewSession returns an idle session. post must enqueue onto the loop
// that calls the session's methods.
func NewSession(engine Engine, post func(func()) bool) *Session {
	return &Session{engine: engine, post: post}
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// Active reports whether an utterance is starting or playing.
func (s *Session) Active() bool { return s.state != Idle }

// Generation identifies the most recently started utterance.
func (s *Session) Generation() uint64 { return s.gen }

// Start stops any current utterance, then submits u. Exactly one of onEnd
// or onError is eventually delivered for it, on the loop. If the engine
// refuses the utterance, onError is delivered before Start returns.
func (s *Session) Start(u voice.Utterance, onStart, onEnd func(), onError func(error)) {
	s.Stop()

	s.gen++
	gen := s.gen
	s.cur = &callbacks{onStart: onStart, onEnd: onEnd, onError: onError}
	s.state = Starting

	h := Handlers{
		OnStart: func() { s.post(func() { s.started(gen) }) },
		OnEnd:   func() { s.post(func() { s.finish(gen, nil) }) },
		OnError: func(err error) { s.post(func() { s.finish(gen, err) }) },
	}
	if err := s.engine.Speak(u, h); err != nil {
		s.finish(gen, err)
	}
}

// Stop cancels the current utterance and delivers its onEnd. Calling it
// while idle does nothing.
func (s *Session) Stop() {
	if s.state == Idle {
		return
	}
	gen := s.gen
	s.engine.Cancel()
	s.finish(gen, nil)
}

func (s *Session) started(gen uint64) {
	if gen != s.gen || s.state != Starting {
		slog.Debug("speech: dropping stale start", "gen", gen, "current", s.gen, "state", s.state)
		return
	}
	s.state = Playing
	if s.cur.onStart != nil {
		s.cur.onStart()
	}
}

func (s *Session) finish(gen uint64, err error) {
	if gen != s.gen || s.state == Idle {
		slog.Debug("speech: dropping stale completion", "gen", gen, "current", s.gen, "err", err)
		return
	}
	cb := s.cur
	s.state = Idle
	s.cur = nil

	if err != nil {
		slog.Warn("speech: playback error", "gen", gen, "err", err)
		if cb.onError != nil {
			cb.onError(err)
		}
		return
	}
	if cb.onEnd != nil {
		cb.onEnd()
	}
}
