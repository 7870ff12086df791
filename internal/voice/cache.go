package voice

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Mavwarf/quizspeak/internal/paths"
)

const (
	cacheDirName  = "voice-cache"
	indexFileName = "voice-cache.json"
)

// CacheEntry describes a single synthesized WAV on disk.
type CacheEntry struct {
	Text      string    `json:"text"`
	Voice     string    `json:"voice"`
	Hash      string    `json:"hash"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Cache stores synthesized utterances so a prompt replayed by many
// test-takers is only generated once.
type Cache struct {
	Dir     string
	Entries map[string]CacheEntry // hash -> entry
}

// CacheDir returns the voice cache directory path.
func CacheDir() string {
	return filepath.Join(paths.DataDir(), cacheDirName)
}

// OpenCache loads or creates the cache index in dir. An empty dir uses
// CacheDir.
func OpenCache(dir string) (*Cache, error) {
	if dir == "" {
		dir = CacheDir()
	}
	c := &Cache{
		Dir:     dir,
		Entries: make(map[string]CacheEntry),
	}

	data, err := os.ReadFile(filepath.Join(dir, indexFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("reading voice cache index: %w", err)
	}
	if err := json.Unmarshal(data, &c.Entries); err != nil {
		return nil, fmt.Errorf("parsing voice cache index: %w", err)
	}
	return c, nil
}

// Lookup returns the WAV path cached for u, if any.
func (c *Cache) Lookup(u Utterance) (string, bool) {
	entry, ok := c.Entries[Key(u)]
	if !ok {
		return "", false
	}
	wavPath := filepath.Join(c.Dir, entry.Hash+".wav")
	if _, err := os.Stat(wavPath); err != nil {
		return "", false
	}
	return wavPath, true
}

// Add writes the WAV for u and updates the index.
func (c *Cache) Add(u Utterance, wavData []byte) error {
	hash := Key(u)
	if err := os.MkdirAll(c.Dir, paths.DirPerm); err != nil {
		return fmt.Errorf("creating voice cache dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(c.Dir, hash+".wav"), wavData, paths.FilePerm); err != nil {
		return fmt.Errorf("writing voice file: %w", err)
	}

	c.Entries[hash] = CacheEntry{
		Text:      u.Text,
		Voice:     u.Voice.ID,
		Hash:      hash,
		Size:      int64(len(wavData)),
		CreatedAt: time.Now(),
	}
	return c.save()
}

// Clear deletes all cached WAV files and the index, returning the number
// of entries removed.
func (c *Cache) Clear() int {
	count := len(c.Entries)
	for hash := range c.Entries {
		_ = os.Remove(filepath.Join(c.Dir, hash+".wav"))
	}
	c.Entries = make(map[string]CacheEntry)
	_ = os.Remove(filepath.Join(c.Dir, indexFileName))
	return count
}

func (c *Cache) save() error {
	data, err := json.MarshalIndent(c.Entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling voice cache index: %w", err)
	}
	return paths.AtomicWrite(filepath.Join(c.Dir, indexFileName), data)
}

// Key returns a truncated SHA-256 (16 hex chars) over everything that
// changes the synthesized audio: voice, rate and text.
func Key(u Utterance) string {
	h := sha256.Sum256([]byte(u.Voice.ID + "\x00" + strconv.FormatFloat(u.Rate, 'f', 2, 64) + "\x00" + u.Text))
	return fmt.Sprintf("%x", h[:8])
}
