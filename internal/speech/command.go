package speech

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Mavwarf/quizspeak/internal/voice"
)

const (
	// voiceListTimeout bounds how long the catalog query may run.
	voiceListTimeout = 15 * time.Second
	// killWait bounds how long a cancel waits for the process to exit.
	killWait = 2 * time.Second
)

// CommandEngine speaks through the host speech CLI (espeak-ng, say or
// PowerShell SAPI). Its voice catalog loads asynchronously and is empty
// until the first listing completes.
type CommandEngine struct {
	be backend

	mu        sync.Mutex
	cancel    context.CancelFunc
	exited    chan struct{}
	run       uint64
	speaking  bool
	voices    []voice.Voice
	listeners []func()
}

// NewCommandEngine detects the host backend and starts loading its voice
// catalog in the background. It wraps ErrUnsupported when no backend exists.
func NewCommandEngine() (*CommandEngine, error) {
	be, err := detectBackend()
	if err != nil {
		return nil, err
	}
	e := newCommandEngine(be)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), voiceListTimeout)
		defer cancel()
		if err := e.LoadVoices(ctx); err != nil {
			slog.Warn("speech: voice catalog unavailable", "backend", be.name, "err", err)
		}
	}()
	return e, nil
}

func newCommandEngine(be backend) *CommandEngine {
	return &CommandEngine{be: be}
}

// Backend names the detected speech CLI.
func (e *CommandEngine) Backend() string { return e.be.name }

// LoadVoices queries the backend for its voices and replaces the catalog.
// Listeners registered with OnVoicesChanged are notified if it changed.
func (e *CommandEngine) LoadVoices(ctx context.Context) error {
	c := e.be.voices
	out, err := exec.CommandContext(ctx, c.bin, c.args...).Output()
	if err != nil {
		return fmt.Errorf("speech: list %s voices: %w", e.be.name, err)
	}
	e.setVoices(e.be.parse(out))
	return nil
}

func (e *CommandEngine) setVoices(vs []voice.Voice) {
	e.mu.Lock()
	changed := !slices.Equal(e.voices, vs)
	e.voices = vs
	listeners := slices.Clone(e.listeners)
	e.mu.Unlock()

	if !changed {
		return
	}
	slog.Debug("speech: voice catalog changed", "backend", e.be.name, "voices", len(vs))
	for _, fn := range listeners {
		fn()
	}
}

func (e *CommandEngine) Voices() []voice.Voice {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.voices)
}

func (e *CommandEngine) OnVoicesChanged(fn func()) {
	e.mu.Lock()
	e.listeners = append(e.listeners, fn)
	e.mu.Unlock()
}

func (e *CommandEngine) Speaking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speaking
}

// Speak starts the backend process. OnStart fires once it is running;
// OnEnd or OnError fires when it exits. A cancelled utterance reports
// ErrInterrupted. A previous utterance is killed, and has exited, before
// the new process starts.
func (e *CommandEngine) Speak(u voice.Utterance, h Handlers) error {
	e.Cancel()

	c := e.be.speak(u)
	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, c.bin, c.args...)
	// Children of a killed shell may hold stderr open.
	cmd.WaitDelay = killWait
	if c.stdin != "" {
		cmd.Stdin = strings.NewReader(c.stdin)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("speech: start %s: %w", e.be.name, err)
	}

	exited := make(chan struct{})
	e.mu.Lock()
	e.run++
	run := e.run
	e.cancel = cancel
	e.exited = exited
	e.speaking = true
	e.mu.Unlock()

	h.start()
	go func() {
		defer close(exited)
		err := cmd.Wait()
		interrupted := ctx.Err() != nil
		cancel()

		e.mu.Lock()
		if e.run == run {
			e.speaking = false
			e.cancel = nil
			e.exited = nil
		}
		e.mu.Unlock()

		switch {
		case interrupted:
			h.fail(ErrInterrupted)
		case err != nil:
			h.fail(fmt.Errorf("speech: %s: %w: %s", e.be.name, err, strings.TrimSpace(stderr.String())))
		default:
			h.end()
		}
	}()
	return nil
}

// Cancel kills the running utterance, if any, and waits for its process
// to exit so two utterances are never audible together.
func (e *CommandEngine) Cancel() {
	e.mu.Lock()
	cancel, exited := e.cancel, e.exited
	e.cancel, e.exited = nil, nil
	e.speaking = false
	e.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	select {
	case <-exited:
	case <-time.After(killWait):
		slog.Warn("speech: process still running after cancel", "backend", e.be.name)
	}
}
