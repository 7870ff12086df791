// Package eventloop provides a single-goroutine task queue and the timing
// primitives (timeouts and frame callbacks) that feed it.
//
// All playback state is owned by tasks running on the loop, so there is no
// locking above this package: user input, engine callbacks and timers are
// turned into tasks and executed one at a time, in the order they were posted.
package eventloop

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrClosed is returned by Do once the loop has stopped running.
var ErrClosed = errors.New("eventloop: closed")

// Loop is a FIFO task queue drained by a single goroutine.
type Loop struct {
	mu     sync.Mutex
	tasks  []func()
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

// New returns an idle loop. Call Run to start draining it.
func New() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Post enqueues fn. It is safe from any goroutine, including from inside a
// running task; the posted task runs after the current one returns.
// Returns false if the loop is closed.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Do posts fn and blocks until it has run. It must not be called from a
// task, which would deadlock the loop.
func (l *Loop) Do(fn func()) error {
	ran := make(chan struct{})
	if !l.Post(func() {
		defer close(ran)
		fn()
	}) {
		return ErrClosed
	}
	select {
	case <-ran:
		return nil
	case <-l.done:
		select {
		case <-ran:
			return nil
		default:
			return ErrClosed
		}
	}
}

// Run drains the queue until ctx is cancelled. Pending tasks are discarded
// when the loop stops.
func (l *Loop) Run(ctx context.Context) error {
	defer l.close()
	for {
		l.RunPending()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// RunPending runs queued tasks on the calling goroutine until the queue is
// empty, including tasks posted while draining. It returns the number of
// tasks run. Tests use it to step the loop deterministically.
func (l *Loop) RunPending() int {
	n := 0
	for {
		l.mu.Lock()
		if len(l.tasks) == 0 {
			l.mu.Unlock()
			return n
		}
		fn := l.tasks[0]
		l.tasks[0] = nil
		l.tasks = l.tasks[1:]
		l.mu.Unlock()

		runTask(fn)
		n++
	}
}

// Closed reports whether the loop has stopped.
func (l *Loop) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *Loop) close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.tasks = nil
	l.mu.Unlock()
	close(l.done)
}

// runTask contains panics so one failing task never takes down the loop.
func runTask(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("eventloop: task panicked", "panic", r)
		}
	}()
	fn()
}
