package eventloop

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultFrameInterval approximates a 60 Hz display refresh.
const DefaultFrameInterval = 16 * time.Millisecond

// Timer is a handle to a scheduled callback.
type Timer interface {
	// Stop prevents the callback from running. It reports whether the call
	// stopped the timer; false means it already ran or was stopped.
	Stop() bool
}

// Scheduler is the host timing primitive. Callbacks always run as loop
// tasks, never on a timer goroutine.
type Scheduler interface {
	After(d time.Duration, fn func()) Timer
	Frame(fn func()) Timer
}

// clockScheduler schedules against the wall clock.
type clockScheduler struct {
	loop  *Loop
	frame time.Duration
}

// NewScheduler returns a wall-clock scheduler posting into loop. A
// non-positive frame interval uses DefaultFrameInterval.
func NewScheduler(loop *Loop, frame time.Duration) Scheduler {
	if frame <= 0 {
		frame = DefaultFrameInterval
	}
	return &clockScheduler{loop: loop, frame: frame}
}

func (s *clockScheduler) After(d time.Duration, fn func()) Timer {
	t := &clockTimer{}
	t.t = time.AfterFunc(d, func() {
		s.loop.Post(func() {
			if t.done.CompareAndSwap(false, true) {
				fn()
			}
		})
	})
	return t
}

func (s *clockScheduler) Frame(fn func()) Timer {
	return s.After(s.frame, fn)
}

type clockTimer struct {
	t    *time.Timer
	done atomic.Bool
}

func (t *clockTimer) Stop() bool {
	if !t.done.CompareAndSwap(false, true) {
		return false
	}
	t.t.Stop()
	return true
}

// Manual is a Scheduler driven explicitly by tests: time only moves on
// Advance and frames only fire on Tick. Fired callbacks are posted into the
// loop, so callers follow up with Loop.RunPending.
type Manual struct {
	loop *Loop

	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

// NewManual returns a manual scheduler posting into loop.
func NewManual(loop *Loop) *Manual {
	return &Manual{loop: loop}
}

type manualTimer struct {
	m     *Manual
	due   time.Duration
	frame bool
	fn    func()
	done  atomic.Bool
}

func (t *manualTimer) fire() {
	t.m.loop.Post(func() {
		if t.done.CompareAndSwap(false, true) {
			t.fn()
		}
	})
}

func (m *Manual) After(d time.Duration, fn func()) Timer {
	return m.add(&manualTimer{m: m, due: m.Now() + d, fn: fn})
}

func (m *Manual) Frame(fn func()) Timer {
	return m.add(&manualTimer{m: m, frame: true, fn: fn})
}

func (m *Manual) add(t *manualTimer) Timer {
	m.mu.Lock()
	m.timers = append(m.timers, t)
	m.mu.Unlock()
	return t
}

// Now returns the manual clock reading.
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward and fires every timeout now due, in
// due order. It returns the number fired.
func (m *Manual) Advance(d time.Duration) int {
	m.mu.Lock()
	m.now += d
	var due, keep []*manualTimer
	for _, t := range m.timers {
		if !t.frame && t.due <= m.now {
			due = append(due, t)
		} else {
			keep = append(keep, t)
		}
	}
	m.timers = keep
	m.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].due < due[j].due })
	for _, t := range due {
		t.fire()
	}
	return len(due)
}

// Tick fires every pending frame callback once and returns the number fired.
func (m *Manual) Tick() int {
	m.mu.Lock()
	var due, keep []*manualTimer
	for _, t := range m.timers {
		if t.frame {
			due = append(due, t)
		} else {
			keep = append(keep, t)
		}
	}
	m.timers = keep
	m.mu.Unlock()

	for _, t := range due {
		t.fire()
	}
	return len(due)
}

// Pending returns the number of scheduled timeouts and frame callbacks.
func (m *Manual) Pending() (timeouts, frames int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.timers {
		if t.frame {
			frames++
		} else {
			timeouts++
		}
	}
	return timeouts, frames
}

// Stop also cancels a callback that has fired but not yet run on the loop.
func (t *manualTimer) Stop() bool {
	if !t.done.CompareAndSwap(false, true) {
		return false
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	for i, other := range t.m.timers {
		if other == t {
			t.m.timers = append(t.m.timers[:i], t.m.timers[i+1:]...)
			break
		}
	}
	return true
}
