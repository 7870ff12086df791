// Package eventlog records playback history: which prompts were spoken,
// with which voice, and how each utterance ended.
package eventlog

import "time"

// Kinds recorded for an utterance.
const (
	KindStarted = "started"
	KindEnded   = "ended"
	KindStopped = "stopped"
	KindErrored = "errored"
)

// Record is one playback history entry.
type Record struct {
	Time      time.Time `json:"time"`
	Kind      string    `json:"kind"`
	Trigger   string    `json:"trigger"`
	SessionID string    `json:"session_id"`
	Voice     string    `json:"voice,omitempty"`
	Locale    string    `json:"locale,omitempty"`
	Text      string    `json:"text,omitempty"`
	Err       string    `json:"error,omitempty"`
}

// Phrase is a spoken text with the number of times it was started.
type Phrase struct {
	Text  string `json:"text"`
	Count int    `json:"count"`
}

// Store abstracts history storage.
type Store interface {
	Log(r Record) error

	Recent(n int) ([]Record, error)      // newest first, 0 = all
	Phrases(days int) ([]Phrase, error)  // most spoken first, 0 = all time
	Clean(days int) (int, error)         // remove entries older than days, return removed count
	Clear() error

	Path() string
	Close() error
}

// DayCutoff returns midnight N days ago (inclusive) in the local timezone.
// For days=1 it returns today at midnight, for days=7 it returns 6 days ago, etc.
func DayCutoff(days int) time.Time {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return today.AddDate(0, 0, -(days - 1))
}
