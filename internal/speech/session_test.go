package speech

import (
	"errors"
	"testing"

	"github.com/Mavwarf/quizspeak/internal/eventloop"
	"github.com/Mavwarf/quizspeak/internal/voice"
)

// fakeEngine records requests; tests fire the handlers by hand.
type fakeEngine struct {
	spoken   []voice.Utterance
	handlers []Handlers
	cancels  int
	speakErr error
	speaking bool
}

func (f *fakeEngine) Speak(u voice.Utterance, h Handlers) error {
	if f.speakErr != nil {
		return f.speakErr
	}
	f.spoken = append(f.spoken, u)
	f.handlers = append(f.handlers, h)
	f.speaking = true
	return nil
}

func (f *fakeEngine) Cancel()                   { f.cancels++; f.speaking = false }
func (f *fakeEngine) Speaking() bool            { return f.speaking }
func (f *fakeEngine) Voices() []voice.Voice     { return nil }
func (f *fakeEngine) OnVoicesChanged(fn func()) {}

type recorder struct {
	starts, ends int
	errs         []error
}

func (r *recorder) start(s *Session, u voice.Utterance) {
	s.Start(u, func() { r.starts++ }, func() { r.ends++ }, func(err error) { r.errs = append(r.errs, err) })
}

func newTestSession() (*Session, *fakeEngine, *eventloop.Loop) {
	loop := eventloop.New()
	eng := &fakeEngine{}
	return NewSession(eng, loop.Post), eng, loop
}

func TestSessionLifecycle(t *testing.T) {
	s, eng, loop := newTestSession()
	var r recorder
	r.start(s, voice.Utterance{Text: "hello"})

	if s.State() != Starting {
		t.Fatalf("state = %v, want starting", s.State())
	}
	eng.handlers[0].OnStart()
	loop.RunPending()
	if s.State() != Playing || r.starts != 1 {
		t.Fatalf("after start: state = %v, starts = %d", s.State(), r.starts)
	}
	eng.handlers[0].OnEnd()
	loop.RunPending()
	if s.State() != Idle || r.ends != 1 || len(r.errs) != 0 {
		t.Errorf("after end: state = %v, ends = %d, errs = %v", s.State(), r.ends, r.errs)
	}
}

func TestSessionStopDeliversEndOnce(t *testing.T) {
	s, eng, loop := newTestSession()
	var r recorder
	r.start(s, voice.Utterance{Text: "hello"})
	eng.handlers[0].OnStart()
	loop.RunPending()

	s.Stop()
	if r.ends != 1 {
		t.Fatalf("ends after Stop = %d, want 1", r.ends)
	}
	if eng.cancels != 1 {
		t.Errorf("engine cancels = %d, want 1", eng.cancels)
	}

	// The engine's own report of the interruption arrives later and is stale.
	eng.handlers[0].OnError(ErrInterrupted)
	eng.handlers[0].OnEnd()
	loop.RunPending()
	s.Stop()

	if r.ends != 1 || len(r.errs) != 0 {
		t.Errorf("ends = %d, errs = %v; want exactly one end", r.ends, r.errs)
	}
	if s.State() != Idle {
		t.Errorf("state = %v, want idle", s.State())
	}
}

func TestSessionRestartIgnoresOldCallbacks(t *testing.T) {
	s, eng, loop := newTestSession()
	var first, second recorder
	first.start(s, voice.Utterance{Text: "one"})
	eng.handlers[0].OnStart()
	loop.RunPending()

	second.start(s, voice.Utterance{Text: "two"})
	if first.ends != 1 {
		t.Fatalf("first session ends = %d, want 1", first.ends)
	}
	if s.Generation() != 2 {
		t.Errorf("generation = %d, want 2", s.Generation())
	}

	eng.handlers[0].OnEnd()
	eng.handlers[0].OnStart()
	loop.RunPending()
	if s.State() != Starting || second.starts != 0 {
		t.Fatalf("stale callbacks leaked: state = %v, second starts = %d", s.State(), second.starts)
	}

	eng.handlers[1].OnStart()
	loop.RunPending()
	eng.handlers[1].OnEnd()
	loop.RunPending()
	if second.starts != 1 || second.ends != 1 || first.ends != 1 {
		t.Errorf("first ends = %d, second starts/ends = %d/%d", first.ends, second.starts, second.ends)
	}
}

func TestSessionSpeakRefused(t *testing.T) {
	s, eng, _ := newTestSession()
	eng.speakErr = errors.New("no audio device")
	var r recorder
	r.start(s, voice.Utterance{Text: "hello"})

	if len(r.errs) != 1 || r.ends != 0 {
		t.Fatalf("errs = %v, ends = %d; want one error", r.errs, r.ends)
	}
	if s.Active() {
		t.Error("session should be idle after a refused utterance")
	}
}

func TestSessionEngineError(t *testing.T) {
	s, eng, loop := newTestSession()
	var r recorder
	r.start(s, voice.Utterance{Text: "hello"})
	eng.handlers[0].OnError(errors.New("synthesis failed"))
	eng.handlers[0].OnEnd()
	loop.RunPending()

	if len(r.errs) != 1 || r.ends != 0 {
		t.Errorf("errs = %v, ends = %d; want one error and no end", r.errs, r.ends)
	}
}

func TestSessionStopIdleNoop(t *testing.T) {
	s, eng, _ := newTestSession()
	s.Stop()
	if eng.cancels != 0 {
		t.Errorf("Stop while idle cancelled the engine %d times", eng.cancels)
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{Idle: "idle", Starting: "starting", Playing: "playing", State(9): "unknown"} {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}
