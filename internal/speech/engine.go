// Package speech wraps the host text-to-speech engine and owns the single
// speech session that may be audible at any time.
package speech

import (
	"errors"

	"github.com/Mavwarf/quizspeak/internal/audio"
	"github.com/Mavwarf/quizspeak/internal/voice"
)

var (
	// ErrUnsupported means no speech backend is available on this host.
	ErrUnsupported = errors.New("speech: not supported on this host")
	// ErrInterrupted is reported for an utterance cancelled before it finished.
	ErrInterrupted = errors.New("speech: interrupted")
)

// Handlers receive an utterance's lifecycle. Engines may invoke them from
// any goroutine. OnEnd and OnError are terminal; at most one of them fires.
type Handlers struct {
	OnStart func()
	OnEnd   func()
	OnError func(error)
}

func (h Handlers) start() {
	if h.OnStart != nil {
		h.OnStart()
	}
}

func (h Handlers) end() {
	if h.OnEnd != nil {
		h.OnEnd()
	}
}

func (h Handlers) fail(err error) {
	if h.OnError != nil {
		h.OnError(err)
	}
}

// Engine is the host speech engine. It holds at most one utterance:
// Speak replaces whatever was playing.
type Engine interface {
	Speak(u voice.Utterance, h Handlers) error
	Cancel()
	Speaking() bool
	// Voices returns the current catalog. It may be empty until the
	// engine has finished loading it, and may change between calls.
	Voices() []voice.Voice
	OnVoicesChanged(fn func())
}

// Metered is implemented by engines whose output can be analysed. Each
// call opens a fresh analyser; closing it detaches it from the output.
type Metered interface {
	OpenAnalyzer() audio.Analyzer
}
