// Package playback implements the text-to-speech playback controller: the
// façade that binds trigger toggles to the single speech session, owns the
// level visualizer and renders every trigger's visual state.
//
// A Controller is confined to its event loop. Callers outside the loop
// reach it through eventloop.Loop.Do; subscribers are invoked on the loop.
package playback

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Mavwarf/quizspeak/internal/audio"
	"github.com/Mavwarf/quizspeak/internal/eventloop"
	"github.com/Mavwarf/quizspeak/internal/speech"
	"github.com/Mavwarf/quizspeak/internal/voice"
)

const (
	DefaultRetryDelay = 100 * time.Millisecond
	DefaultMaxRetries = 50
)

var (
	// ErrUnknownTrigger is returned by Toggle for an unregistered trigger.
	ErrUnknownTrigger = errors.New("playback: unknown trigger")
	// ErrDisposed is returned once the controller has been disposed.
	ErrDisposed = errors.New("playback: controller disposed")
	// ErrNoVoices is reported when the voice catalog stayed empty for
	// every retry.
	ErrNoVoices = errors.New("playback: voice catalog empty")
)

// EventKind names a controller event.
type EventKind string

const (
	EventStarted EventKind = "started"
	EventEnded   EventKind = "ended"
	EventStopped EventKind = "stopped"
	EventErrored EventKind = "errored"
	EventRetry   EventKind = "retry"
	EventLevel   EventKind = "level"
)

// Event reports a change to one trigger.
type Event struct {
	Kind      EventKind    `json:"kind"`
	Trigger   TriggerID    `json:"trigger"`
	SessionID string       `json:"session_id,omitempty"`
	Voice     string       `json:"voice,omitempty"`
	Locale    string       `json:"locale,omitempty"`
	Attempt   int          `json:"attempt,omitempty"`
	Err       string       `json:"error,omitempty"`
	State     TriggerState `json:"state"`
	Visual    Visual       `json:"visual"`
	Time      time.Time    `json:"time"`
}

// Snapshot is the controller state at one instant.
type Snapshot struct {
	Enabled   bool              `json:"enabled"`
	State     string            `json:"state"`
	Owner     TriggerID         `json:"owner,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	Retrying  TriggerID         `json:"retrying,omitempty"`
	Triggers  []TriggerSnapshot `json:"triggers"`
}

// TriggerSnapshot is one trigger within a Snapshot.
type TriggerSnapshot struct {
	ID     TriggerID    `json:"id"`
	State  TriggerState `json:"state"`
	Visual Visual       `json:"visual"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithLabels sets the accessible labels.
func WithLabels(l Labels) Option {
	return func(c *Controller) { c.labels = l }
}

// WithRetry sets the delay between voice catalog retries and how many are
// attempted before giving up.
func WithRetry(delay time.Duration, maxRetries int) Option {
	return func(c *Controller) {
		if delay > 0 {
			c.retryDelay = delay
		}
		if maxRetries > 0 {
			c.maxRetries = maxRetries
		}
	}
}

// WithRegistry shares an existing trigger registry.
func WithRegistry(r *Registry) Option {
	return func(c *Controller) { c.registry = r }
}

// Controller is the playback façade.
type Controller struct {
	loop     *eventloop.Loop
	sched    eventloop.Scheduler
	engine   speech.Engine
	selector *voice.Selector
	session  *speech.Session
	viz      *Visualizer
	registry *Registry

	labels     Labels
	retryDelay time.Duration
	maxRetries int

	disabled bool
	disposed bool

	owner     TriggerID
	sessionID string
	stopping  bool
	analyzer  audio.Analyzer
	pending   *pendingSpeak
	states    map[TriggerID]*TriggerState

	subs    map[int]func(Event)
	nextSub int
}

type pendingSpeak struct {
	trigger TriggerID
	attempt int
	timer   eventloop.Timer
}

// New returns a controller speaking through engine. A nil engine means the
// host has no speech support: the controller is returned disabled and
// every toggle is a logged no-op.
func New(loop *eventloop.Loop, sched eventloop.Scheduler, engine speech.Engine, selector *voice.Selector, opts ...Option) *Controller {
	c := &Controller{
		loop:       loop,
		sched:      sched,
		engine:     engine,
		selector:   selector,
		labels:     DefaultLabels(),
		retryDelay: DefaultRetryDelay,
		maxRetries: DefaultMaxRetries,
		states:     make(map[TriggerID]*TriggerState),
		subs:       make(map[int]func(Event)),
	}
	for _, o := range opts {
		o(c)
	}
	if c.registry == nil {
		c.registry = NewRegistry()
	}
	if c.selector == nil {
		c.selector = voice.NewSelector()
	}
	if engine == nil {
		slog.Warn("playback: speech synthesis unavailable, controller disabled")
		c.disabled = true
		return c
	}

	c.session = speech.NewSession(engine, loop.Post)
	c.viz = NewVisualizer(sched, func() bool { return c.session.State() == speech.Playing }, c.drawLevel)
	engine.OnVoicesChanged(func() { loop.Post(c.voicesChanged) })
	return c
}

// Enabled reports whether a speech engine is available.
func (c *Controller) Enabled() bool { return !c.disabled }

// Registry returns the trigger registry.
func (c *Controller) Registry() *Registry { return c.registry }

// Labels returns the accessible labels in use.
func (c *Controller) Labels() Labels { return c.labels }

// Toggle starts speech for id, or stops it if id already owns the session.
// Toggling another trigger stops the current session first. A trigger
// with no text is a logged no-op.
func (c *Controller) Toggle(id TriggerID) error {
	if c.disposed {
		return ErrDisposed
	}
	if c.disabled {
		slog.Warn("playback: toggle ignored, speech synthesis unavailable", "trigger", id)
		return nil
	}
	t, ok := c.registry.Get(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTrigger, id)
	}
	if strings.TrimSpace(t.Text) == "" {
		slog.Warn("playback: trigger has no text", "trigger", id)
		return nil
	}

	if p := c.pending; p != nil {
		c.cancelRetry()
		if p.trigger == id {
			return nil
		}
	}
	if c.session.Active() {
		same := c.owner == id
		c.stopSession()
		if same {
			return nil
		}
	}
	c.speak(t)
	return nil
}

// Stop ends any session or pending retry. It is a no-op when idle.
func (c *Controller) Stop() {
	if c.disabled || c.disposed {
		return
	}
	if c.pending != nil {
		c.cancelRetry()
	}
	c.stopSession()
}

// Dispose stops playback, drops every subscriber and ignores further
// engine notifications.
func (c *Controller) Dispose() {
	if c.disposed {
		return
	}
	c.Stop()
	c.disposed = true
	clear(c.subs)
}

// Subscribe registers fn for every event and returns a function that
// unregisters it.
func (c *Controller) Subscribe(fn func(Event)) (cancel func()) {
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() { delete(c.subs, id) }
}

// Snapshot returns the current state of the controller and every
// registered trigger.
func (c *Controller) Snapshot() Snapshot {
	s := Snapshot{
		Enabled:   !c.disabled,
		State:     speech.Idle.String(),
		Owner:     c.owner,
		SessionID: c.sessionID,
	}
	if c.session != nil {
		s.State = c.session.State().String()
	}
	if c.pending != nil {
		s.Retrying = c.pending.trigger
	}
	for _, t := range c.registry.All() {
		st := c.stateOf(t.ID)
		s.Triggers = append(s.Triggers, TriggerSnapshot{ID: t.ID, State: st, Visual: Render(st, c.labels)})
	}
	return s
}

// Visual renders the current visual of one trigger.
func (c *Controller) Visual(id TriggerID) Visual {
	return Render(c.stateOf(id), c.labels)
}

func (c *Controller) speak(t Trigger) {
	u, ok := c.selector.Select(t.Text, c.engine.Voices())
	if !ok {
		c.deferSpeak(t.ID)
		return
	}
	c.pending = nil

	sid := uuid.NewString()
	c.owner = t.ID
	c.sessionID = sid
	slog.Info("playback: speaking",
		"trigger", t.ID, "session", sid, "voice", u.Voice.Name, "locale", u.Locale, "chars", len(t.Text))

	c.session.Start(u,
		func() { c.started(t.ID, sid, u) },
		func() { c.finish(t.ID, sid, nil) },
		func(err error) { c.finish(t.ID, sid, err) },
	)
}

func (c *Controller) started(id TriggerID, sid string, u voice.Utterance) {
	if sid != c.sessionID {
		return
	}
	st := c.state(id)
	st.Playing = true
	st.Loading = true
	st.Level = 0
	c.emit(Event{Kind: EventStarted, Trigger: id, SessionID: sid, Voice: u.Voice.Name, Locale: u.Locale})

	c.analyzer = c.openAnalyzer()
	c.viz.StartFor(id, c.analyzer)
}

func (c *Controller) openAnalyzer() audio.Analyzer {
	if m, ok := c.engine.(speech.Metered); ok {
		return m.OpenAnalyzer()
	}
	return audio.Silent()
}

// finish clears the owner's visual state and releases the analyser. It
// runs for every terminal callback: natural end, stop and error.
func (c *Controller) finish(id TriggerID, sid string, err error) {
	if sid != c.sessionID {
		return
	}
	c.viz.Stop()
	if c.analyzer != nil {
		if cerr := c.analyzer.Close(); cerr != nil {
			slog.Debug("playback: closing analyser", "err", cerr)
		}
		c.analyzer = nil
	}
	*c.state(id) = TriggerState{}
	c.owner = ""
	c.sessionID = ""

	ev := Event{Trigger: id, SessionID: sid}
	switch {
	case err != nil:
		ev.Kind = EventErrored
		ev.Err = err.Error()
	case c.stopping:
		ev.Kind = EventStopped
	default:
		ev.Kind = EventEnded
	}
	c.emit(ev)
}

func (c *Controller) stopSession() {
	if !c.session.Active() {
		return
	}
	c.stopping = true
	c.session.Stop()
	c.stopping = false
}

func (c *Controller) deferSpeak(id TriggerID) {
	attempt := 1
	if c.pending != nil && c.pending.trigger == id {
		attempt = c.pending.attempt + 1
	}
	if attempt > c.maxRetries {
		c.pending = nil
		*c.state(id) = TriggerState{}
		slog.Warn("playback: no voices available, giving up", "trigger", id, "attempts", attempt-1)
		c.emit(Event{Kind: EventErrored, Trigger: id, Err: ErrNoVoices.Error()})
		return
	}

	p := &pendingSpeak{trigger: id, attempt: attempt}
	p.timer = c.sched.After(c.retryDelay, func() { c.retry(p) })
	c.pending = p
	c.state(id).Loading = true
	slog.Debug("playback: voice catalog empty, retrying", "trigger", id, "attempt", attempt, "delay", c.retryDelay)
	c.emit(Event{Kind: EventRetry, Trigger: id, Attempt: attempt})
}

func (c *Controller) retry(p *pendingSpeak) {
	if c.pending != p || c.disposed {
		return
	}
	t, ok := c.registry.Get(p.trigger)
	if !ok {
		c.pending = nil
		*c.state(p.trigger) = TriggerState{}
		return
	}
	c.speak(t)
}

func (c *Controller) cancelRetry() {
	p := c.pending
	p.timer.Stop()
	c.pending = nil
	*c.state(p.trigger) = TriggerState{}
	c.emit(Event{Kind: EventStopped, Trigger: p.trigger})
}

// voicesChanged retries a deferred speak as soon as the catalog changes.
func (c *Controller) voicesChanged() {
	if c.disposed || c.pending == nil {
		return
	}
	p := c.pending
	if !p.timer.Stop() {
		return
	}
	c.retry(p)
}

func (c *Controller) drawLevel(id TriggerID, level float64) {
	st := c.state(id)
	if st.Level == level {
		return
	}
	st.Level = level
	c.emit(Event{Kind: EventLevel, Trigger: id, SessionID: c.sessionID})
}

func (c *Controller) state(id TriggerID) *TriggerState {
	st, ok := c.states[id]
	if !ok {
		st = &TriggerState{}
		c.states[id] = st
	}
	return st
}

func (c *Controller) stateOf(id TriggerID) TriggerState {
	if st, ok := c.states[id]; ok {
		return *st
	}
	return TriggerState{}
}

func (c *Controller) emit(ev Event) {
	ev.State = c.stateOf(ev.Trigger)
	ev.Visual = Render(ev.State, c.labels)
	ev.Time = time.Now()
	for _, fn := range c.subs {
		fn(ev)
	}
}
