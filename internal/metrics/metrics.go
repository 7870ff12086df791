// Package metrics exposes playback and transport counters to Prometheus.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Mavwarf/quizspeak/internal/playback"
)

// Metrics groups the instruments of one server.
type Metrics struct {
	reg *prometheus.Registry

	ActivePlayback  prometheus.Gauge
	PlaybackEvents  *prometheus.CounterVec
	SessionDuration prometheus.Histogram
	WSMessages      *prometheus.CounterVec
	WSClients       prometheus.Gauge
	LockEvents      *prometheus.CounterVec

	mu      sync.Mutex
	started map[string]time.Time // session id -> start
}

// New registers the instruments on a fresh registry, alongside the Go
// runtime and process collectors.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		ActivePlayback: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "playback_active",
			Help:      "1 while an utterance is audible.",
		}),
		PlaybackEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_events_total",
			Help:      "Playback controller events by kind.",
		}, []string{"kind"}),
		SessionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "playback_duration_seconds",
			Help:      "Time from engine start to the end of an utterance.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		}),
		WSMessages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		WSClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_clients",
			Help:      "Connected page websockets.",
		}),
		LockEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_lock_events_total",
			Help:      "Play-once lock events by event and whether they were rejected.",
		}, []string{"event", "rejected"}),
		started: make(map[string]time.Time),
	}
}

// Observe records a controller event. Level events are ignored.
func (m *Metrics) Observe(ev playback.Event) {
	if ev.Kind == playback.EventLevel {
		return
	}
	m.PlaybackEvents.WithLabelValues(string(ev.Kind)).Inc()

	m.mu.Lock()
	defer m.mu.Unlock()
	switch ev.Kind {
	case playback.EventStarted:
		m.started[ev.SessionID] = ev.Time
		m.ActivePlayback.Set(1)
	case playback.EventEnded, playback.EventStopped, playback.EventErrored:
		if start, ok := m.started[ev.SessionID]; ok {
			m.SessionDuration.Observe(ev.Time.Sub(start).Seconds())
			delete(m.started, ev.SessionID)
		}
		if len(m.started) == 0 {
			m.ActivePlayback.Set(0)
		}
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
