package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/Mavwarf/quizspeak/internal/paths"
	"github.com/Mavwarf/quizspeak/internal/voice"
)

// Engine names accepted by speech.engine.
const (
	EngineAuto   = "auto"   // openai when a key is set, else the system engine
	EngineSystem = "system" // espeak-ng / say / SAPI
	EngineOpenAI = "openai"
	EngineOff    = "off"
)

// Storage backends accepted by storage.backend.
const (
	StorageSQLite = "sqlite"
	StorageFile   = "file"
	StorageOff    = "off"
)

// Speech holds engine selection and prosody.
type Speech struct {
	Engine          string  `json:"engine"`
	Rate            float64 `json:"rate"`
	Pitch           float64 `json:"pitch"`
	Volume          float64 `json:"volume"`
	RetryDelayMS    int     `json:"retry_delay_ms"`
	MaxVoiceRetries int     `json:"max_voice_retries"`
	FrameIntervalMS int     `json:"frame_interval_ms"`
}

// Languages is the binary classification used to pick a voice.
type Languages struct {
	Primary  voice.Language `json:"primary"`
	Fallback voice.Language `json:"fallback"`
}

// Labels are the accessible labels of the trigger buttons.
type Labels struct {
	Play string `json:"play"`
	Stop string `json:"stop"`
}

// Server configures the HTTP surface.
type Server struct {
	Listen string `json:"listen"`
	// Page is an HTML file to serve as the quiz page. Empty serves the
	// built-in demo page.
	Page string `json:"page,omitempty"`
}

// Timer configures the countdown.
type Timer struct {
	Enabled bool   `json:"enabled"`
	Seconds int    `json:"seconds"`
	Prefix  string `json:"prefix"`
	FormID  string `json:"form_id"`
}

// OpenAI configures the cloud speech engine.
type OpenAI struct {
	APIKey   string `json:"api_key,omitempty"`
	Model    string `json:"model"`
	Endpoint string `json:"endpoint,omitempty"`
	Cache    bool   `json:"cache"`
}

// MQTT configures the state mirror. An empty broker disables it.
type MQTT struct {
	Broker   string `json:"broker,omitempty"`
	Topic    string `json:"topic"`
	ClientID string `json:"client_id"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	QoS      int    `json:"qos"`
}

// Storage configures playback history.
type Storage struct {
	Backend string `json:"backend"`
	Path    string `json:"path,omitempty"` // empty = default location for the backend
}

// Logging configures the slog handler.
type Logging struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Config holds the full configuration.
type Config struct {
	Speech   Speech    `json:"speech"`
	Language Languages `json:"language"`
	Labels   Labels    `json:"labels"`
	Server   Server    `json:"server"`
	Timer    Timer     `json:"timer"`
	OpenAI   OpenAI    `json:"openai"`
	MQTT     MQTT      `json:"mqtt"`
	Storage  Storage   `json:"storage"`
	Logging  Logging   `json:"logging"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Speech: Speech{
			Engine:          EngineAuto,
			Rate:            voice.DefaultRate,
			Pitch:           voice.DefaultPitch,
			Volume:          voice.DefaultVolume,
			RetryDelayMS:    100,
			MaxVoiceRetries: 50,
			FrameIntervalMS: 16,
		},
		Language: Languages{
			Primary:  voice.English(),
			Fallback: voice.French(),
		},
		Labels: Labels{
			Play: "Écouter le texte",
			Stop: "Arrêter la lecture",
		},
		Server: Server{Listen: "127.0.0.1:8080"},
		Timer: Timer{
			Prefix: "Temps restant: ",
			FormID: "question-form",
		},
		OpenAI: OpenAI{Model: "tts-1", Cache: true},
		MQTT: MQTT{
			Topic:    "quizspeak",
			ClientID: "quizspeak",
		},
		Storage: Storage{Backend: StorageSQLite},
		Logging: Logging{Level: "info", Format: "text"},
	}
}

// UnmarshalJSON sets defaults then decodes the JSON structure.
// Go's json.Unmarshal merges into existing struct fields, so only
// values present in JSON override the defaults.
func (c *Config) UnmarshalJSON(data []byte) error {
	*c = Default()
	type Alias Config
	return json.Unmarshal(data, (*Alias)(c))
}

// Validate reports every out-of-range setting.
func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	s := c.Speech
	if !slices.Contains([]string{EngineAuto, EngineSystem, EngineOpenAI, EngineOff}, s.Engine) {
		bad("speech.engine %q: want auto, system, openai or off", s.Engine)
	}
	if s.Rate <= 0 || s.Rate > 10 {
		bad("speech.rate %v: want 0 < rate <= 10", s.Rate)
	}
	if s.Pitch < 0 || s.Pitch > 2 {
		bad("speech.pitch %v: want 0..2", s.Pitch)
	}
	if s.Volume < 0 || s.Volume > 1 {
		bad("speech.volume %v: want 0..1", s.Volume)
	}
	if s.RetryDelayMS <= 0 {
		bad("speech.retry_delay_ms %d: must be positive", s.RetryDelayMS)
	}
	if s.MaxVoiceRetries <= 0 {
		bad("speech.max_voice_retries %d: must be positive", s.MaxVoiceRetries)
	}
	if s.FrameIntervalMS <= 0 {
		bad("speech.frame_interval_ms %d: must be positive", s.FrameIntervalMS)
	}
	for name, l := range map[string]voice.Language{"primary": c.Language.Primary, "fallback": c.Language.Fallback} {
		if l.Locale == "" || l.Prefix == "" {
			bad("language.%s: locale and prefix are required", name)
		}
	}
	if c.Server.Listen == "" {
		bad("server.listen is required")
	}
	if c.Timer.Seconds < 0 {
		bad("timer.seconds %d: must not be negative", c.Timer.Seconds)
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		bad("mqtt.qos %d: want 0, 1 or 2", c.MQTT.QoS)
	}
	if !slices.Contains([]string{StorageSQLite, StorageFile, StorageOff}, c.Storage.Backend) {
		bad("storage.backend %q: want sqlite, file or off", c.Storage.Backend)
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Logging.Level) {
		bad("logging.level %q: want debug, info, warn or error", c.Logging.Level)
	}
	if !slices.Contains([]string{"text", "json"}, c.Logging.Format) {
		bad("logging.format %q: want text or json", c.Logging.Format)
	}
	return errors.Join(errs...)
}

// Selector builds the voice selector described by the config.
func (c Config) Selector() *voice.Selector {
	return &voice.Selector{
		Primary:  c.Language.Primary,
		Fallback: c.Language.Fallback,
		Rate:     c.Speech.Rate,
		Pitch:    c.Speech.Pitch,
		Volume:   c.Speech.Volume,
	}
}

// Load reads and parses a config file. It tries, in order:
//  1. explicitPath (if non-empty)
//  2. quizspeak-config.json next to the running binary
//  3. ~/.config/quizspeak/quizspeak-config.json
//
// With no explicit path and no file found it returns Default(). The
// OPENAI_API_KEY environment variable fills an empty openai.api_key.
func Load(explicitPath string) (Config, error) {
	cfg, err := load(explicitPath)
	if err != nil {
		return Config{}, err
	}
	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return cfg, nil
}

func load(explicitPath string) (Config, error) {
	if explicitPath != "" {
		return readConfig(explicitPath)
	}

	// Next to binary
	exe, err := os.Executable()
	if err == nil {
		p := filepath.Join(filepath.Dir(exe), paths.ConfigFileName)
		if _, err := os.Stat(p); err == nil {
			return readConfig(p)
		}
	}

	// User config directory
	if p := paths.UserConfigPath(); p != "" {
		if _, err := os.Stat(p); err == nil {
			return readConfig(p)
		}
	}

	return Default(), nil
}

func readConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}
