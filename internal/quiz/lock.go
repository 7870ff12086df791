package quiz

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownEvent is returned for a media event the lock does not handle.
var ErrUnknownEvent = errors.New("quiz: unknown media event")

// Media events reported by the page.
const (
	EventEnded   = "ended"
	EventSeeking = "seeking"
	EventPlay    = "play"
)

// Directive tells the page what to do with the guarded audio element.
type Directive struct {
	Pause        bool     `json:"pause,omitempty"`
	HideControls bool     `json:"hide_controls,omitempty"`
	SeekTo       *float64 `json:"seek_to,omitempty"`
	Locked       bool     `json:"locked"`
}

// Lock guards one audio element: once it has played through, it cannot be
// scrubbed or replayed.
type Lock struct {
	mu     sync.Mutex
	played bool
}

// Ended records natural completion and hides the transport controls.
func (l *Lock) Ended() Directive {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.played = true
	return Directive{HideControls: true, Locked: true}
}

// Seeking snaps a completed element back to its end and pauses it.
func (l *Lock) Seeking(duration float64) Directive {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.played {
		return Directive{}
	}
	end := duration
	return Directive{Pause: true, SeekTo: &end, Locked: true}
}

// Play pauses a completed element immediately.
func (l *Lock) Play() Directive {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.played {
		return Directive{}
	}
	return Directive{Pause: true, Locked: true}
}

// Played reports whether the element has completed once.
func (l *Lock) Played() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.played
}

// Locks holds one Lock per audio element id for a page's lifetime.
type Locks struct {
	mu    sync.Mutex
	locks map[string]*Lock
}

func NewLocks() *Locks {
	return &Locks{locks: make(map[string]*Lock)}
}

// Get returns the lock for id, creating it on first use.
func (ls *Locks) Get(id string) *Lock {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	l, ok := ls.locks[id]
	if !ok {
		l = &Lock{}
		ls.locks[id] = l
	}
	return l
}

// Handle applies a media event to the lock for id.
func (ls *Locks) Handle(id, event string, duration float64) (Directive, error) {
	l := ls.Get(id)
	switch event {
	case EventEnded:
		return l.Ended(), nil
	case EventSeeking:
		return l.Seeking(duration), nil
	case EventPlay:
		return l.Play(), nil
	default:
		return Directive{}, fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}
}

// Reset forgets every lock; a freshly served page starts unlocked.
func (ls *Locks) Reset() {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	clear(ls.locks)
}
