package voice

import (
	"os"
	"path/filepath"
	"testing"
)

func TestKey(t *testing.T) {
	u := Utterance{Text: "hello world", Voice: Voice{ID: "nova"}, Rate: 0.9}
	if Key(u) != Key(u) {
		t.Error("Key not deterministic")
	}
	if len(Key(u)) != 16 {
		t.Errorf("Key length = %d, want 16", len(Key(u)))
	}

	other := u
	other.Voice.ID = "alloy"
	if Key(u) == Key(other) {
		t.Error("different voices should produce different keys")
	}
	other = u
	other.Rate = 1.0
	if Key(u) == Key(other) {
		t.Error("different rates should produce different keys")
	}
}

func TestCacheAddLookupClear(t *testing.T) {
	dir := t.TempDir()
	c, err := OpenCache(dir)
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	u := Utterance{Text: "hello", Voice: Voice{ID: "nova"}, Rate: 0.9}

	if _, ok := c.Lookup(u); ok {
		t.Error("Lookup should miss on an empty cache")
	}

	wavData := []byte("RIFF....fake wav data")
	if err := c.Add(u, wavData); err != nil {
		t.Fatalf("Add: %v", err)
	}
	path, ok := c.Lookup(u)
	if !ok {
		t.Fatal("Lookup should hit after Add")
	}
	if want := filepath.Join(dir, Key(u)+".wav"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != string(wavData) {
		t.Errorf("cached data = %q, %v", data, err)
	}

	// Reopen from disk.
	c2, err := OpenCache(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	entry, ok := c2.Entries[Key(u)]
	if !ok {
		t.Fatal("entry missing after reopen")
	}
	if entry.Text != "hello" || entry.Voice != "nova" || entry.Size != int64(len(wavData)) {
		t.Errorf("entry = %+v", entry)
	}

	if n := c2.Clear(); n != 1 {
		t.Errorf("Clear = %d, want 1", n)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("WAV file should be removed by Clear")
	}
}

func TestCacheLookupMissingFile(t *testing.T) {
	dir := t.TempDir()
	c, _ := OpenCache(dir)
	u := Utterance{Text: "gone", Voice: Voice{ID: "nova"}}
	if err := c.Add(u, []byte("x")); err != nil {
		t.Fatal(err)
	}
	os.Remove(filepath.Join(dir, Key(u)+".wav"))
	if _, ok := c.Lookup(u); ok {
		t.Error("Lookup should miss when the WAV was deleted")
	}
}

func TestOpenCacheCorruptIndex(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, indexFileName), []byte("{not json"), 0644)
	if _, err := OpenCache(dir); err == nil {
		t.Error("expected error for corrupt index")
	}
}
