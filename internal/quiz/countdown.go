// Package quiz hosts the quiz page collaborators of the speech controller:
// the auto-submitting countdown and the play-once audio lock.
package quiz

import (
	"fmt"
	"time"

	"github.com/Mavwarf/quizspeak/internal/eventloop"
)

// DefaultPrefix precedes the remaining time on the page.
const DefaultPrefix = "Temps restant: "

// Format renders remaining seconds as "prefix m:ss".
func Format(prefix string, remaining int) string {
	remaining = max(remaining, 0)
	return fmt.Sprintf("%s%d:%02d", prefix, remaining/60, remaining%60)
}

// Countdown decrements once per second and fires OnExpire exactly once
// when it reaches zero. Like the rest of the page state it is confined to
// the event loop.
type Countdown struct {
	Prefix string
	// OnTick receives the display text after each change, starting with
	// the initial value. It is not called for zero; OnExpire is.
	OnTick   func(display string, remaining int)
	OnExpire func()

	enabled   bool
	seconds   int
	remaining int
	timer     eventloop.Timer
	running   bool
	expired   bool
}

// NewCountdown returns a countdown of seconds. A disabled or non-positive
// countdown never starts.
func NewCountdown(enabled bool, seconds int) *Countdown {
	return &Countdown{
		Prefix:    DefaultPrefix,
		enabled:   enabled,
		seconds:   seconds,
		remaining: seconds,
	}
}

// Start renders the initial value and schedules the first tick. It
// reports whether the countdown is running.
func (c *Countdown) Start(sched eventloop.Scheduler) bool {
	if c.running || c.expired || !c.enabled || c.remaining <= 0 {
		return c.running
	}
	c.running = true
	c.render()
	c.schedule(sched)
	return true
}

func (c *Countdown) schedule(sched eventloop.Scheduler) {
	c.timer = sched.After(time.Second, func() { c.tick(sched) })
}

func (c *Countdown) tick(sched eventloop.Scheduler) {
	if !c.running {
		return
	}
	c.remaining--
	if c.remaining <= 0 {
		c.remaining = 0
		c.running = false
		c.expired = true
		c.timer = nil
		if c.OnExpire != nil {
			c.OnExpire()
		}
		return
	}
	c.render()
	c.schedule(sched)
}

// Stop halts the countdown without expiring it.
func (c *Countdown) Stop() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.running = false
}

func (c *Countdown) render() {
	if c.OnTick != nil {
		c.OnTick(c.Display(), c.remaining)
	}
}

// Display returns the current text.
func (c *Countdown) Display() string { return Format(c.Prefix, c.remaining) }

// Remaining returns the seconds left; never negative.
func (c *Countdown) Remaining() int { return c.remaining }

// Running reports whether ticks are scheduled.
func (c *Countdown) Running() bool { return c.running }

// Expired reports whether the countdown reached zero.
func (c *Countdown) Expired() bool { return c.expired }

// Seconds returns the configured duration.
func (c *Countdown) Seconds() int { return c.seconds }
