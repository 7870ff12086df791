package speech

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/Mavwarf/quizspeak/internal/audio"
	"github.com/Mavwarf/quizspeak/internal/voice"
)

// OpenAIOptions configures the cloud engine.
type OpenAIOptions struct {
	Endpoint string
	APIKey   string
	Model    string
	// Locales advertised for every voice. The cloud voices are
	// multilingual, so the catalog lists each voice once per locale.
	Locales []string
	Cache   *voice.Cache
}

// OpenAIEngine synthesises through the OpenAI speech API and plays the
// result locally. Its output can be metered.
type OpenAIEngine struct {
	opts     OpenAIOptions
	generate func(ctx context.Context, u voice.Utterance) ([]byte, error)
	play     func(ctx context.Context, pcm []byte, volume float64, tap func() audio.Tap) error

	cacheMu sync.Mutex // guards opts.Cache

	mu       sync.Mutex
	cancel   context.CancelFunc
	run      uint64
	speaking bool
	meter    *audio.Meter
}

// NewOpenAIEngine wraps ErrUnsupported when no API key is configured.
func NewOpenAIEngine(opts OpenAIOptions) (*OpenAIEngine, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: openai api key not set", ErrUnsupported)
	}
	if opts.Endpoint == "" {
		opts.Endpoint = voice.SpeechEndpoint
	}
	if opts.Model == "" {
		opts.Model = "tts-1"
	}
	if len(opts.Locales) == 0 {
		opts.Locales = []string{"en-US", "fr-FR"}
	}
	e := &OpenAIEngine{opts: opts, play: audio.Play}
	e.generate = func(ctx context.Context, u voice.Utterance) ([]byte, error) {
		return voice.Generate(ctx, e.opts.Endpoint, e.opts.APIKey, e.opts.Model, u)
	}
	return e, nil
}

func (e *OpenAIEngine) Voices() []voice.Voice {
	var vs []voice.Voice
	for _, loc := range e.opts.Locales {
		for _, name := range voice.OpenAIVoices {
			vs = append(vs, voice.Voice{
				ID:     name,
				Name:   fmt.Sprintf("%s (%s)", name, loc),
				Locale: voice.NormalizeLocale(loc),
			})
		}
	}
	return vs
}

// OnVoicesChanged never fires: the catalog is static.
func (e *OpenAIEngine) OnVoicesChanged(func()) {}

func (e *OpenAIEngine) Speaking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speaking
}

// Speak synthesises (or reuses a cached rendition of) u and plays it.
// OnStart fires when audio output begins.
func (e *OpenAIEngine) Speak(u voice.Utterance, h Handlers) error {
	ctx, cancel := context.WithCancel(context.Background())

	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	e.run++
	run := e.run
	e.cancel = cancel
	e.speaking = true
	e.mu.Unlock()

	go func() {
		defer cancel()
		err := e.speak(ctx, u, h)

		e.mu.Lock()
		if e.run == run {
			e.speaking = false
			e.cancel = nil
		}
		e.mu.Unlock()

		switch {
		case ctx.Err() != nil:
			h.fail(ErrInterrupted)
		case err != nil:
			h.fail(err)
		default:
			h.end()
		}
	}()
	return nil
}

func (e *OpenAIEngine) speak(ctx context.Context, u voice.Utterance, h Handlers) error {
	wav, err := e.synthesize(ctx, u)
	if err != nil {
		return err
	}
	pcm, err := audio.DecodeWAV(wav)
	if err != nil {
		return fmt.Errorf("speech: decode openai audio: %w", err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	h.start()
	return e.play(ctx, pcm, u.Volume, e.tap)
}

func (e *OpenAIEngine) synthesize(ctx context.Context, u voice.Utterance) ([]byte, error) {
	c := e.opts.Cache
	if c != nil {
		e.cacheMu.Lock()
		path, ok := c.Lookup(u)
		e.cacheMu.Unlock()
		if ok {
			if wav, err := os.ReadFile(path); err == nil {
				return wav, nil
			}
		}
	}
	wav, err := e.generate(ctx, u)
	if err != nil {
		return nil, err
	}
	if c != nil {
		e.cacheMu.Lock()
		err := c.Add(u, wav)
		e.cacheMu.Unlock()
		if err != nil {
			slog.Warn("speech: cache write failed", "err", err)
		}
	}
	return wav, nil
}

// Cancel stops synthesis or playback in progress.
func (e *OpenAIEngine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.speaking = false
}

// OpenAnalyzer attaches a fresh meter to the playback output, replacing
// any previous one.
func (e *OpenAIEngine) OpenAnalyzer() audio.Analyzer {
	m := audio.NewMeter()
	e.mu.Lock()
	e.meter = m
	e.mu.Unlock()
	return &attachedMeter{Meter: m, e: e}
}

func (e *OpenAIEngine) tap() audio.Tap {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.meter == nil {
		return nil
	}
	return e.meter
}

type attachedMeter struct {
	*audio.Meter
	e    *OpenAIEngine
	once sync.Once
}

func (a *attachedMeter) Close() error {
	a.once.Do(func() {
		a.e.mu.Lock()
		if a.e.meter == a.Meter {
			a.e.meter = nil
		}
		a.e.mu.Unlock()
	})
	return a.Meter.Close()
}
