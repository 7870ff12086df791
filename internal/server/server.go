// Package server exposes the playback controller to the quiz page: it
// serves the prepared page and its script, accepts toggles over HTTP and
// websocket, and pushes every state change back to connected pages.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/Mavwarf/quizspeak/internal/eventloop"
	"github.com/Mavwarf/quizspeak/internal/metrics"
	"github.com/Mavwarf/quizspeak/internal/page"
	"github.com/Mavwarf/quizspeak/internal/playback"
	"github.com/Mavwarf/quizspeak/internal/quiz"
	"github.com/Mavwarf/quizspeak/internal/voice"
)

const (
	writeWait  = 10 * time.Second
	readWait   = 120 * time.Second
	// pingPeriod must stay below readWait so an idle page keeps its socket.
	pingPeriod = readWait * 9 / 10
)

// Options configure a Server.
type Options struct {
	// Page is the quiz HTML. Empty serves the built-in demo page.
	Page   string
	Labels playback.Labels

	TimerEnabled bool
	TimerSeconds int
	TimerPrefix  string
	FormID       string

	// Voices lists the engine catalog for /api/voices. Nil lists nothing.
	Voices func() []voice.Voice
	// OnTimerExpired runs on the event loop after the submit message has
	// been broadcast. It must not block.
	OnTimerExpired func(at time.Time)
	// OnLockRejected is called when a play-once element refuses a seek or
	// replay. It runs on the request goroutine.
	OnLockRejected func(id, event string)

	AllowAnyOrigin bool
	// PingInterval overrides the websocket keepalive period.
	PingInterval   time.Duration
}

// Server is the HTTP surface of one controller.
type Server struct {
	opts    Options
	loop    *eventloop.Loop
	sched   eventloop.Scheduler
	ctrl    *playback.Controller
	metrics *metrics.Metrics
	hub     *Hub
	locks   *quiz.Locks

	upgrader websocket.Upgrader
	static   http.Handler

	// Loop-confined.
	countdown *quiz.Countdown
	timerText string
}

func New(opts Options, loop *eventloop.Loop, sched eventloop.Scheduler, ctrl *playback.Controller, m *metrics.Metrics) *Server {
	if opts.TimerPrefix == "" {
		opts.TimerPrefix = quiz.DefaultPrefix
	}
	if opts.FormID == "" {
		opts.FormID = "question-form"
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = pingPeriod
	}
	return &Server{
		opts:    opts,
		loop:    loop,
		sched:   sched,
		ctrl:    ctrl,
		metrics: m,
		hub:     NewHub(),
		locks:   quiz.NewLocks(),
		static:  newStaticHandler(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only same-origin browsers may drive playback.
				if opts.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub { return s.hub }

// Observe is a controller subscriber forwarding every event to the pages.
func (s *Server) Observe(ev playback.Event) {
	s.hub.Broadcast(Message{Type: MsgEvent, Data: ev})
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/", s.handlePage)
	r.Handle("/static/*", http.StripPrefix("/static/", s.static))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", s.metrics.Handler())
	r.Get("/ws", s.handleWS)

	r.Route("/api", func(r chi.Router) {
		r.Get("/tts/state", s.handleState)
		r.Post("/tts/stop", s.handleStop)
		r.Post("/tts/{id}/toggle", s.handleToggle)
		r.Get("/voices", s.handleVoices)
		r.Post("/audio/{id}/{event}", s.handleAudio)
	})
	return r
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server: listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handlePage(w http.ResponseWriter, _ *http.Request) {
	src := s.opts.Page
	if src == "" {
		src = demoPage()
	}
	opts := page.Options{
		Labels:       s.opts.Labels,
		TimerEnabled: s.opts.TimerEnabled,
		TimerSeconds: s.opts.TimerSeconds,
		Script:       ScriptPath,
	}
	if s.opts.TimerEnabled && s.opts.TimerSeconds > 0 {
		opts.TimerText = quiz.Format(s.opts.TimerPrefix, s.opts.TimerSeconds)
	}
	out, triggers, err := page.Prepare(src, opts)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "page_error", err.Error())
		return
	}

	// A served page starts over: fresh triggers, a full countdown and
	// unlocked audio.
	if err := s.loop.Do(func() {
		s.ctrl.Stop()
		reg := s.ctrl.Registry()
		for _, t := range reg.All() {
			reg.Remove(t.ID)
		}
		reg.Register(triggers...)
		s.restartCountdown()
	}); err != nil {
		respondError(w, http.StatusServiceUnavailable, "unavailable", err.Error())
		return
	}
	s.locks.Reset()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, out)
}

type timerMessage struct {
	Display   string `json:"display"`
	Remaining int    `json:"remaining"`
}

type submitMessage struct {
	Form string `json:"form"`
}

// restartCountdown runs on the loop.
func (s *Server) restartCountdown() {
	if s.countdown != nil {
		s.countdown.Stop()
	}
	s.timerText = ""
	c := quiz.NewCountdown(s.opts.TimerEnabled, s.opts.TimerSeconds)
	c.Prefix = s.opts.TimerPrefix
	c.OnTick = func(display string, remaining int) {
		s.timerText = display
		s.hub.Broadcast(Message{Type: MsgTimer, Data: timerMessage{Display: display, Remaining: remaining}})
	}
	c.OnExpire = func() {
		s.timerText = quiz.Format(c.Prefix, 0)
		slog.Info("server: countdown expired, submitting", "form", s.opts.FormID)
		s.hub.Broadcast(Message{Type: MsgSubmit, Data: submitMessage{Form: s.opts.FormID}})
		if s.opts.OnTimerExpired != nil {
			s.opts.OnTimerExpired(time.Now())
		}
	}
	s.countdown = c
	c.Start(s.sched)
}

type stateResponse struct {
	playback.Snapshot
	Timer string `json:"timer,omitempty"`
	// Expired and Form tell a page that connects after the countdown ran
	// out to submit on its own; the submit broadcast may have missed it.
	Expired bool   `json:"expired,omitempty"`
	Form    string `json:"form,omitempty"`
}

func (s *Server) state() (stateResponse, error) {
	var resp stateResponse
	err := s.loop.Do(func() {
		resp = stateResponse{Snapshot: s.ctrl.Snapshot(), Timer: s.timerText}
		if s.countdown != nil && s.countdown.Expired() {
			resp.Expired = true
			resp.Form = s.opts.FormID
		}
	})
	return resp, err
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	resp, err := s.state()
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "unavailable", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

type toggleResponse struct {
	Trigger playback.TriggerID `json:"trigger"`
	Visual  playback.Visual    `json:"visual"`
}

func (s *Server) toggle(id playback.TriggerID) (toggleResponse, error) {
	var (
		resp      toggleResponse
		toggleErr error
	)
	if err := s.loop.Do(func() {
		toggleErr = s.ctrl.Toggle(id)
		resp = toggleResponse{Trigger: id, Visual: s.ctrl.Visual(id)}
	}); err != nil {
		return resp, err
	}
	return resp, toggleErr
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	id := playback.TriggerID(chi.URLParam(r, "id"))
	resp, err := s.toggle(id)
	if err != nil {
		status, code := toggleStatus(err)
		respondError(w, status, code, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func toggleStatus(err error) (int, string) {
	switch {
	case errors.Is(err, playback.ErrUnknownTrigger):
		return http.StatusNotFound, "unknown_trigger"
	case errors.Is(err, playback.ErrDisposed), errors.Is(err, eventloop.ErrClosed):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (s *Server) handleStop(w http.ResponseWriter, _ *http.Request) {
	if err := s.loop.Do(s.ctrl.Stop); err != nil {
		respondError(w, http.StatusServiceUnavailable, "unavailable", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVoices(w http.ResponseWriter, _ *http.Request) {
	voices := []voice.Voice{}
	if s.opts.Voices != nil {
		voices = append(voices, s.opts.Voices()...)
	}
	respondJSON(w, http.StatusOK, map[string]any{"voices": voices})
}

type audioRequest struct {
	Duration float64 `json:"duration"`
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	var req audioRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	id, event := chi.URLParam(r, "id"), chi.URLParam(r, "event")
	d, err := s.locks.Handle(id, event, req.Duration)
	if err != nil {
		respondError(w, http.StatusBadRequest, "unknown_event", err.Error())
		return
	}
	rejected := "false"
	if d.Pause || d.SeekTo != nil {
		rejected = "true"
		if s.opts.OnLockRejected != nil {
			s.opts.OnLockRejected(id, event)
		}
	}
	s.metrics.LockEvents.WithLabelValues(event, rejected).Inc()
	respondJSON(w, http.StatusOK, d)
}

// clientMessage is sent by the page over the websocket.
type clientMessage struct {
	Type    string             `json:"type"`
	Trigger playback.TriggerID `json:"trigger,omitempty"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// Register before the snapshot so no event falls between the two.
	c := s.hub.register()
	s.metrics.WSClients.Inc()
	defer s.metrics.WSClients.Dec()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer conn.Close()
		ticker := time.NewTicker(s.opts.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case msg, ok := <-c.send:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(msg); err != nil {
					return
				}
				s.metrics.WSMessages.WithLabelValues("outbound", msg.Type).Inc()
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	if snap, err := s.state(); err == nil {
		s.hub.send(c, Message{Type: MsgSnapshot, Data: snap})
	}

	conn.SetReadLimit(64 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(readWait))
		return nil
	})

	for {
		var m clientMessage
		if err := conn.ReadJSON(&m); err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(readWait))
		s.metrics.WSMessages.WithLabelValues("inbound", m.Type).Inc()
		switch m.Type {
		case "toggle":
			if _, err := s.toggle(m.Trigger); err != nil {
				slog.Warn("server: websocket toggle failed", "trigger", m.Trigger, "err", err)
			}
		case "stop":
			_ = s.loop.Do(s.ctrl.Stop)
		default:
			slog.Debug("server: ignoring websocket message", "type", m.Type)
		}
	}

	s.hub.unregister(c)
	<-writerDone
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
