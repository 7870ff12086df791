package eventlog

import (
	"context"
	"log/slog"

	"github.com/Mavwarf/quizspeak/internal/playback"
)

// recorderQueue bounds the records waiting to be written.
const recorderQueue = 256

// Recorder turns controller events into history records and writes them
// on its own goroutine, so a slow disk never stalls the event loop.
// Writing is best-effort: failures and overflow are logged and dropped.
type Recorder struct {
	store Store
	text  func(playback.TriggerID) string
	queue chan Record

	// Per-session details only present on the started event. The
	// controller runs one session at a time, so this holds at most one
	// entry.
	sessions map[string]Record
}

// NewRecorder returns a recorder writing to store. text resolves a
// trigger's spoken text.
func NewRecorder(store Store, text func(playback.TriggerID) string) *Recorder {
	return &Recorder{
		store:    store,
		text:     text,
		queue:    make(chan Record, recorderQueue),
		sessions: make(map[string]Record),
	}
}

// Observe is a controller subscriber. It must run on the controller's loop.
func (r *Recorder) Observe(ev playback.Event) {
	var rec Record
	switch ev.Kind {
	case playback.EventStarted:
		rec = Record{
			Time:      ev.Time,
			Kind:      KindStarted,
			Trigger:   string(ev.Trigger),
			SessionID: ev.SessionID,
			Voice:     ev.Voice,
			Locale:    ev.Locale,
		}
		if r.text != nil {
			rec.Text = r.text(ev.Trigger)
		}
		// A session cut short without a terminal event is superseded.
		clear(r.sessions)
		r.sessions[ev.SessionID] = rec
	case playback.EventEnded, playback.EventStopped, playback.EventErrored:
		if ev.SessionID == "" {
			// A cancelled retry or give-up never reached the engine.
			if ev.Kind != playback.EventErrored {
				return
			}
		}
		rec = r.sessions[ev.SessionID]
		delete(r.sessions, ev.SessionID)
		rec.Time = ev.Time
		rec.Kind = string(ev.Kind)
		rec.Trigger = string(ev.Trigger)
		rec.SessionID = ev.SessionID
		rec.Err = ev.Err
	default:
		return
	}

	select {
	case r.queue <- rec:
	default:
		slog.Warn("eventlog: queue full, dropping record", "kind", rec.Kind, "trigger", rec.Trigger)
	}
}

// Run writes queued records until ctx is cancelled, then drains what is
// left.
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case rec := <-r.queue:
			r.write(rec)
		case <-ctx.Done():
			for {
				select {
				case rec := <-r.queue:
					r.write(rec)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(rec Record) {
	if err := r.store.Log(rec); err != nil {
		slog.Warn("eventlog: write failed", "path", r.store.Path(), "err", err)
	}
}
