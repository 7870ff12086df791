package quiz

import (
	"errors"
	"testing"
	"time"

	"github.com/Mavwarf/quizspeak/internal/eventloop"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		remaining int
		want      string
	}{
		{65, "Temps restant: 1:05"},
		{64, "Temps restant: 1:04"},
		{600, "Temps restant: 10:00"},
		{9, "Temps restant: 0:09"},
		{-3, "Temps restant: 0:00"},
	}
	for _, tt := range tests {
		if got := Format(DefaultPrefix, tt.remaining); got != tt.want {
			t.Errorf("Format(%d) = %q, want %q", tt.remaining, got, tt.want)
		}
	}
}

func TestCountdownRunsToZero(t *testing.T) {
	loop := eventloop.New()
	sched := eventloop.NewManual(loop)

	c := NewCountdown(true, 65)
	var shown []string
	submits := 0
	c.OnTick = func(display string, remaining int) {
		if remaining <= 0 {
			t.Errorf("tick rendered non-positive remaining %d", remaining)
		}
		shown = append(shown, display)
	}
	c.OnExpire = func() { submits++ }

	if !c.Start(sched) {
		t.Fatal("Start = false")
	}
	if shown[0] != "Temps restant: 1:05" {
		t.Fatalf("initial display = %q", shown[0])
	}
	sched.Advance(time.Second)
	loop.RunPending()
	if shown[1] != "Temps restant: 1:04" {
		t.Errorf("after one tick = %q", shown[1])
	}

	for i := 0; i < 100; i++ {
		sched.Advance(time.Second)
		loop.RunPending()
	}
	if submits != 1 {
		t.Errorf("submits = %d, want exactly 1", submits)
	}
	if c.Remaining() != 0 || !c.Expired() || c.Running() {
		t.Errorf("remaining = %d, expired = %v, running = %v", c.Remaining(), c.Expired(), c.Running())
	}
	if len(shown) != 65 {
		t.Errorf("rendered %d values, want 65 (1:05 down to 0:01)", len(shown))
	}
	if c.Start(sched) {
		t.Error("an expired countdown restarted")
	}
}

func TestCountdownDisabled(t *testing.T) {
	sched := eventloop.NewManual(eventloop.New())
	if NewCountdown(false, 30).Start(sched) {
		t.Error("disabled countdown started")
	}
	if NewCountdown(true, 0).Start(sched) {
		t.Error("zero countdown started")
	}
	if timeouts, _ := sched.Pending(); timeouts != 0 {
		t.Errorf("scheduled %d ticks", timeouts)
	}
}

func TestCountdownStop(t *testing.T) {
	loop := eventloop.New()
	sched := eventloop.NewManual(loop)
	c := NewCountdown(true, 2)
	c.OnExpire = func() { t.Error("stopped countdown expired") }
	c.Start(sched)
	c.Stop()
	sched.Advance(5 * time.Second)
	loop.RunPending()
	if c.Remaining() != 2 {
		t.Errorf("remaining = %d, want 2", c.Remaining())
	}
}

func TestLockBeforeCompletion(t *testing.T) {
	var l Lock
	if d := l.Seeking(30); d.Pause || d.SeekTo != nil {
		t.Errorf("seek before completion = %+v, want allowed", d)
	}
	if d := l.Play(); d.Pause {
		t.Error("play before completion was paused")
	}
}

func TestLockAfterCompletion(t *testing.T) {
	var l Lock
	if d := l.Ended(); !d.HideControls || !d.Locked {
		t.Errorf("Ended = %+v", d)
	}
	d := l.Seeking(42.5)
	if !d.Pause || d.SeekTo == nil || *d.SeekTo != 42.5 {
		t.Errorf("seek after completion = %+v, want pause at end", d)
	}
	if d := l.Play(); !d.Pause {
		t.Error("replay was not paused")
	}
}

func TestLocksHandle(t *testing.T) {
	ls := NewLocks()
	if _, err := ls.Handle("audio-q", "ended", 10); err != nil {
		t.Fatal(err)
	}
	d, err := ls.Handle("audio-q", "play", 10)
	if err != nil || !d.Pause {
		t.Errorf("play = %+v, %v", d, err)
	}
	if d, _ := ls.Handle("other", "play", 10); d.Pause {
		t.Error("lock leaked to another element")
	}
	if _, err := ls.Handle("audio-q", "volumechange", 0); !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("err = %v, want ErrUnknownEvent", err)
	}
	ls.Reset()
	if ls.Get("audio-q").Played() {
		t.Error("Reset kept the lock")
	}
}
