package main

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Mavwarf/quizspeak/internal/config"
	"github.com/Mavwarf/quizspeak/internal/eventlog"
	"github.com/Mavwarf/quizspeak/internal/playback"
	"github.com/Mavwarf/quizspeak/internal/speech"
)

func TestParseArgs(t *testing.T) {
	o, rest, err := parseArgs([]string{"-c", "q.json", "serve", "--listen", ":9000", "-e", "off"})
	if err != nil {
		t.Fatal(err)
	}
	if o.configPath != "q.json" || o.listen != ":9000" || o.engine != "off" {
		t.Errorf("options = %+v", o)
	}
	if len(rest) != 1 || rest[0] != "serve" {
		t.Errorf("rest = %v", rest)
	}
}

func TestParseArgsMissingValue(t *testing.T) {
	if _, _, err := parseArgs([]string{"serve", "--config"}); err == nil {
		t.Error("expected error for --config without a value")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q.json")
	writeFile(t, path, `{"server": {"listen": "127.0.0.1:1"}}`)

	cfg, err := loadConfig(options{configPath: path, listen: ":9000", engine: "off"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Listen != ":9000" || cfg.Speech.Engine != config.EngineOff {
		t.Errorf("listen = %q engine = %q", cfg.Server.Listen, cfg.Speech.Engine)
	}

	if _, err := loadConfig(options{configPath: path, engine: "loud"}); err == nil {
		t.Error("expected validation error for unknown engine")
	}
}

func TestParseDays(t *testing.T) {
	if d, err := parseDays("all"); err != nil || d != 0 {
		t.Errorf("all = %d, %v", d, err)
	}
	if d, err := parseDays("7"); err != nil || d != 7 {
		t.Errorf("7 = %d, %v", d, err)
	}
	for _, bad := range []string{"0", "-1", "week"} {
		if _, err := parseDays(bad); err == nil {
			t.Errorf("parseDays(%q) should fail", bad)
		}
	}
}

func TestNewEngineOffAndMissingKey(t *testing.T) {
	cfg := config.Default()
	cfg.Speech.Engine = config.EngineOff
	if e, err := newEngine(cfg); !errors.Is(err, errDisabled) || e != nil {
		t.Errorf("off = %v, %v", e, err)
	}

	cfg.Speech.Engine = config.EngineOpenAI
	cfg.OpenAI.APIKey = ""
	if e, err := newEngine(cfg); !errors.Is(err, speech.ErrUnsupported) || e != nil {
		t.Errorf("openai without key = %v, %v", e, err)
	}
}

func TestOpenStore(t *testing.T) {
	cfg := config.Default()

	cfg.Storage.Backend = config.StorageOff
	if s, err := openStore(cfg); err != nil || s != nil {
		t.Errorf("off = %v, %v", s, err)
	}

	cfg.Storage.Backend = config.StorageFile
	cfg.Storage.Path = filepath.Join(t.TempDir(), "history.log")
	s, err := openStore(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*eventlog.FileStore); !ok || s.Path() != cfg.Storage.Path {
		t.Errorf("file store = %T at %q", s, s.Path())
	}

	cfg.Storage.Backend = config.StorageSQLite
	cfg.Storage.Path = filepath.Join(t.TempDir(), "history.db")
	s, err = openStore(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, ok := s.(*eventlog.SQLiteStore); !ok {
		t.Errorf("sqlite store = %T", s)
	}
}

func TestFormatRecord(t *testing.T) {
	noColor = true
	defer func() { noColor = false }()

	r := eventlog.Record{
		Time:    time.Date(2026, 3, 1, 9, 30, 0, 0, time.Local),
		Kind:    eventlog.KindStarted,
		Trigger: "tts-1",
		Voice:   "Daniel",
		Locale:  "en-US",
		Text:    "Welcome to the listening test",
	}
	got := formatRecord(r)
	for _, want := range []string{"2026-03-01 09:30:00", "started", "tts-1", "Daniel (en-US)", `"Welcome to the listening test"`} {
		if !strings.Contains(got, want) {
			t.Errorf("formatRecord = %q, missing %q", got, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("Écouter", 10); got != "Écouter" {
		t.Errorf("short = %q", got)
	}
	if got := truncate("Arrêter la lecture", 7); got != "Arrête…" {
		t.Errorf("long = %q", got)
	}
}

func TestDescribeEvent(t *testing.T) {
	noColor = true
	defer func() { noColor = false }()

	cases := map[playback.EventKind]string{
		playback.EventStarted: "speaking with Thomas (fr-FR)",
		playback.EventEnded:   "done",
		playback.EventStopped: "stopped",
		playback.EventErrored: "error: boom",
		playback.EventLevel:   "",
	}
	for kind, want := range cases {
		ev := playback.Event{Kind: kind, Voice: "Thomas", Locale: "fr-FR", Err: "boom"}
		got := describeEvent(ev)
		if want == "" && got != "" || !strings.Contains(got, want) {
			t.Errorf("%s: got %q, want %q", kind, got, want)
		}
	}
}
