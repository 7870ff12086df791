package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/Mavwarf/quizspeak/internal/config"
	"github.com/Mavwarf/quizspeak/internal/playback"
	"github.com/Mavwarf/quizspeak/internal/speech"
	"github.com/Mavwarf/quizspeak/internal/voice"
)

// errDisabled is returned by newEngine for speech.engine "off".
var errDisabled = errors.New("speech disabled by configuration")

// newEngine builds the configured speech engine. "auto" prefers OpenAI
// when a key is set and falls back to the system engine.
func newEngine(cfg config.Config) (speech.Engine, error) {
	switch cfg.Speech.Engine {
	case config.EngineOff:
		return nil, errDisabled
	case config.EngineOpenAI:
		return newOpenAIEngine(cfg)
	case config.EngineSystem:
		return newSystemEngine()
	}

	if cfg.OpenAI.APIKey != "" {
		e, err := newOpenAIEngine(cfg)
		if err == nil {
			return e, nil
		}
		slog.Warn("openai engine unavailable, trying system engine", "err", err)
	}
	return newSystemEngine()
}

// Both constructors return a nil interface on error, never a typed nil.
func newSystemEngine() (speech.Engine, error) {
	e, err := speech.NewCommandEngine()
	if err != nil {
		return nil, err
	}
	slog.Debug("using system speech engine", "backend", e.Backend())
	return e, nil
}

func newOpenAIEngine(cfg config.Config) (speech.Engine, error) {
	opts := speech.OpenAIOptions{
		Endpoint: cfg.OpenAI.Endpoint,
		APIKey:   cfg.OpenAI.APIKey,
		Model:    cfg.OpenAI.Model,
		Locales:  []string{cfg.Language.Primary.Locale, cfg.Language.Fallback.Locale},
	}
	if cfg.OpenAI.Cache {
		c, err := voice.OpenCache("")
		if err != nil {
			slog.Warn("voice cache unavailable", "err", err)
		} else {
			opts.Cache = c
		}
	}
	e, err := speech.NewOpenAIEngine(opts)
	if err != nil {
		return nil, err
	}
	slog.Debug("using openai speech engine", "model", cfg.OpenAI.Model)
	return e, nil
}

func controllerOptions(cfg config.Config) []playback.Option {
	return []playback.Option{
		playback.WithLabels(playback.Labels{Play: cfg.Labels.Play, Stop: cfg.Labels.Stop}),
		playback.WithRetry(time.Duration(cfg.Speech.RetryDelayMS)*time.Millisecond, cfg.Speech.MaxVoiceRetries),
	}
}

func frameInterval(cfg config.Config) time.Duration {
	return time.Duration(cfg.Speech.FrameIntervalMS) * time.Millisecond
}

func voicesCmd(cfg config.Config) error {
	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}
	if ce, ok := engine.(*speech.CommandEngine); ok {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := ce.LoadVoices(ctx); err != nil {
			return err
		}
	}

	voices := engine.Voices()
	if len(voices) == 0 {
		fmt.Println("No voices found.")
		return nil
	}
	sort.SliceStable(voices, func(i, j int) bool { return voices[i].Locale < voices[j].Locale })

	sel := cfg.Selector()
	marker := ""
	if len(sel.Primary.Markers) > 0 {
		marker = sel.Primary.Markers[0]
	}
	primary, _ := sel.Select(marker, voices)
	fallback, _ := sel.Select("", voices)
	for _, v := range voices {
		mark := ""
		switch v.ID {
		case primary.Voice.ID:
			mark = "  <- " + sel.Primary.Name
		case fallback.Voice.ID:
			mark = "  <- " + sel.Fallback.Name
		}
		local := ""
		if v.LocalService {
			local = "local"
		}
		fmt.Fprintf(os.Stdout, "%-32s %-8s %-5s%s\n", v.Name, v.Locale, local, mark)
	}
	return nil
}
