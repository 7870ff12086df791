package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Mavwarf/quizspeak/internal/audio"
	"github.com/Mavwarf/quizspeak/internal/config"
	"github.com/Mavwarf/quizspeak/internal/eventlog"
	"github.com/Mavwarf/quizspeak/internal/eventloop"
	"github.com/Mavwarf/quizspeak/internal/metrics"
	"github.com/Mavwarf/quizspeak/internal/mqtt"
	"github.com/Mavwarf/quizspeak/internal/paths"
	"github.com/Mavwarf/quizspeak/internal/playback"
	"github.com/Mavwarf/quizspeak/internal/server"
	"github.com/Mavwarf/quizspeak/internal/speech"
)

// disposeAndStop disposes ctrl on its loop and only then stops the loop,
// so the engine is cancelled while the loop can still run the task.
func disposeAndStop(loop *eventloop.Loop, ctrl *playback.Controller, stop context.CancelFunc) error {
	defer stop()
	return loop.Do(ctrl.Dispose)
}

// openStore opens the configured history store. It returns nil for "off".
func openStore(cfg config.Config) (eventlog.Store, error) {
	switch cfg.Storage.Backend {
	case config.StorageOff:
		return nil, nil
	case config.StorageFile:
		path := cfg.Storage.Path
		if path == "" {
			path = paths.HistoryLogPath()
		}
		return eventlog.NewFileStore(path), nil
	default:
		path := cfg.Storage.Path
		if path == "" {
			path = paths.HistoryPath()
		}
		s, err := eventlog.NewSQLiteStore(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

func serveCmd(cfg config.Config) error {
	slog.Info("quizspeak starting", "version", version, "engine", cfg.Speech.Engine)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var pageHTML string
	if cfg.Server.Page != "" {
		data, err := os.ReadFile(cfg.Server.Page)
		if err != nil {
			return fmt.Errorf("reading page: %w", err)
		}
		pageHTML = string(data)
	}

	engine, err := newEngine(cfg)
	if err != nil {
		if !errors.Is(err, errDisabled) && !errors.Is(err, speech.ErrUnsupported) {
			return err
		}
		slog.Warn("speech unavailable, triggers will be inert", "err", err)
		engine = nil
	}

	loop := eventloop.New()
	sched := eventloop.NewScheduler(loop, frameInterval(cfg))
	ctrl := playback.New(loop, sched, engine, cfg.Selector(), controllerOptions(cfg)...)
	m := metrics.New("quizspeak")

	var pub *mqtt.Publisher
	if cfg.MQTT.Broker != "" {
		pub = mqtt.NewPublisher(mqtt.Options{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Topic:    cfg.MQTT.Topic,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			QoS:      byte(cfg.MQTT.QoS),
		})
	}

	store, err := openStore(cfg)
	if err != nil {
		slog.Warn("playback history unavailable", "backend", cfg.Storage.Backend, "err", err)
		store = nil
	}
	var rec *eventlog.Recorder
	if store != nil {
		defer store.Close()
		rec = eventlog.NewRecorder(store, func(id playback.TriggerID) string {
			t, _ := ctrl.Registry().Get(id)
			return t.Text
		})
	}

	opts := server.Options{
		Page:         pageHTML,
		Labels:       playback.Labels{Play: cfg.Labels.Play, Stop: cfg.Labels.Stop},
		TimerEnabled: cfg.Timer.Enabled,
		TimerSeconds: cfg.Timer.Seconds,
		TimerPrefix:  cfg.Timer.Prefix,
		FormID:       cfg.Timer.FormID,
	}
	opts.OnTimerExpired = func(at time.Time) {
		if pub != nil {
			pub.TimerExpired(at)
		}
		go func() {
			if err := audio.PlayCue(ctx, "timeup", cfg.Speech.Volume); err != nil {
				slog.Debug("timeup cue not played", "err", err)
			}
		}()
	}
	opts.OnLockRejected = func(id, event string) {
		slog.Debug("play-once lock rejected", "audio", id, "event", event)
		go func() { _ = audio.PlayCue(ctx, "locked", cfg.Speech.Volume) }()
	}
	if engine != nil {
		opts.Voices = engine.Voices
	}
	srv := server.New(opts, loop, sched, ctrl, m)

	// The loop is not running yet, so subscribing here is race-free.
	ctrl.Subscribe(m.Observe)
	ctrl.Subscribe(srv.Observe)
	if rec != nil {
		ctrl.Subscribe(rec.Observe)
	}
	if pub != nil {
		ctrl.Subscribe(pub.Observe)
	}

	// The loop outlives the signal context: Dispose still has to reach
	// the engine once the server is down.
	loopCtx, stopLoop := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = loop.Run(loopCtx)
	}()
	if rec != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec.Run(ctx)
		}()
	}
	if pub != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := pub.Run(ctx); err != nil {
				slog.Warn("mqtt publisher stopped", "err", err)
			}
		}()
	}

	err = srv.Run(ctx, cfg.Server.Listen)
	slog.Info("shutdown signal received, draining...")
	if derr := disposeAndStop(loop, ctrl, stopLoop); derr != nil {
		slog.Warn("controller not disposed", "err", derr)
	}
	cancel()
	wg.Wait()
	slog.Info("quizspeak stopped")
	return err
}
