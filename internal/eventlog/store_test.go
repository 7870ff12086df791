package eventlog

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Compile-time interface checks.
var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*FileStore)(nil)
)

func tempSQLiteStore(t *testing.T) Store {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func tempFileStore(t *testing.T) Store {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "history.log"))
}

// eachStore runs fn against both implementations.
func eachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("sqlite", func(t *testing.T) { fn(t, tempSQLiteStore(t)) })
	t.Run("file", func(t *testing.T) { fn(t, tempFileStore(t)) })
}

func TestStoreLogAndRecent(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		now := time.Now().Truncate(time.Second)
		recs := []Record{
			{Time: now, Kind: KindStarted, Trigger: "tts-1", SessionID: "a", Voice: "Microsoft Hortense Desktop", Locale: "fr-FR", Text: `Dites "bonjour"`},
			{Time: now.Add(time.Second), Kind: KindErrored, Trigger: "tts-1", SessionID: "a", Err: "speech: espeak: exit status 1"},
			{Time: now.Add(2 * time.Second), Kind: KindStarted, Trigger: "tts-2", SessionID: "b", Text: "Welcome"},
		}
		for _, r := range recs {
			if err := s.Log(r); err != nil {
				t.Fatal(err)
			}
		}

		got, err := s.Recent(2)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 || got[0].SessionID != "b" || got[1].Kind != KindErrored {
			t.Fatalf("Recent(2) = %+v", got)
		}
		if got[1].Err != recs[1].Err {
			t.Errorf("error = %q", got[1].Err)
		}

		all, _ := s.Recent(0)
		if len(all) != 3 {
			t.Fatalf("Recent(0) = %d records", len(all))
		}
		first := all[2]
		if first.Voice != recs[0].Voice || first.Text != recs[0].Text || first.Locale != "fr-FR" {
			t.Errorf("round trip = %+v", first)
		}
		if !first.Time.Equal(now) {
			t.Errorf("time = %v, want %v", first.Time, now)
		}
	})
}

func TestStorePhrases(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		for _, text := range []string{"b", "a", "b", ""} {
			s.Log(Record{Kind: KindStarted, Text: text})
		}
		s.Log(Record{Kind: KindEnded, Text: "a"})
		s.Log(Record{Time: time.Now().AddDate(0, 0, -30), Kind: KindStarted, Text: "old"})

		got, err := s.Phrases(7)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 || got[0] != (Phrase{Text: "b", Count: 2}) || got[1] != (Phrase{Text: "a", Count: 1}) {
			t.Errorf("Phrases(7) = %+v", got)
		}
		all, _ := s.Phrases(0)
		if len(all) != 3 {
			t.Errorf("Phrases(0) = %+v", all)
		}
	})
}

func TestStoreCleanAndClear(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		s.Log(Record{Time: time.Now().AddDate(0, 0, -10), Kind: KindStarted, SessionID: "old"})
		s.Log(Record{Kind: KindStarted, SessionID: "new"})

		n, err := s.Clean(7)
		if err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Errorf("Clean removed %d, want 1", n)
		}
		got, _ := s.Recent(0)
		if len(got) != 1 || got[0].SessionID != "new" {
			t.Errorf("after Clean = %+v", got)
		}

		if err := s.Clear(); err != nil {
			t.Fatal(err)
		}
		got, _ = s.Recent(0)
		if len(got) != 0 {
			t.Errorf("after Clear = %+v", got)
		}
	})
}

func TestFileStoreMissingFile(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "none.log"))
	if got, err := s.Recent(0); err != nil || len(got) != 0 {
		t.Errorf("Recent = %v, %v", got, err)
	}
	if n, err := s.Clean(1); err != nil || n != 0 {
		t.Errorf("Clean = %d, %v", n, err)
	}
	if err := s.Clear(); err != nil {
		t.Errorf("Clear = %v", err)
	}
	if _, err := os.Stat(s.Path()); !os.IsNotExist(err) {
		t.Error("read-only calls created the file")
	}
}

func TestParseRecordsSkipsGarbage(t *testing.T) {
	content := "not a line\n" +
		"2026-01-02T15:04:05Z  kind=ended  trigger=tts-3  session=x\n" +
		"2026-01-02T15:04:06Z  trigger=tts-3\n"
	got := ParseRecords(content)
	if len(got) != 1 || got[0].Trigger != "tts-3" || got[0].Kind != KindEnded {
		t.Errorf("ParseRecords = %+v", got)
	}
}

func TestDayCutoff(t *testing.T) {
	c := DayCutoff(1)
	now := time.Now()
	if c.Day() != now.Day() || c.Hour() != 0 {
		t.Errorf("DayCutoff(1) = %v", c)
	}
	if d := DayCutoff(7); now.Sub(d) < 6*24*time.Hour {
		t.Errorf("DayCutoff(7) = %v", d)
	}
}
