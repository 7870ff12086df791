package eventlog

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Mavwarf/quizspeak/internal/paths"
)

// FileStore implements Store using a flat, append-only log file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a store appending to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Log(r Record) error {
	if r.Time.IsZero() {
		r.Time = time.Now()
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), paths.DirPerm); err != nil {
		return err
	}
	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, paths.FilePerm)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = fmt.Fprintln(file, FormatLine(r))
	return err
}

func (f *FileStore) read() ([]Record, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return ParseRecords(string(data)), nil
}

func (f *FileStore) Recent(n int) ([]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	records, err := f.read()
	if err != nil {
		return nil, err
	}
	slices.Reverse(records)
	if n > 0 && len(records) > n {
		records = records[:n]
	}
	return records, nil
}

func (f *FileStore) Phrases(days int) ([]Phrase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	records, err := f.read()
	if err != nil {
		return nil, err
	}
	var cutoff time.Time
	if days > 0 {
		cutoff = DayCutoff(days)
	}

	counts := map[string]int{}
	for _, r := range records {
		if r.Kind != KindStarted || r.Text == "" || r.Time.Before(cutoff) {
			continue
		}
		counts[r.Text]++
	}
	phrases := make([]Phrase, 0, len(counts))
	for text, n := range counts {
		phrases = append(phrases, Phrase{Text: text, Count: n})
	}
	sort.Slice(phrases, func(i, j int) bool {
		if phrases[i].Count != phrases[j].Count {
			return phrases[i].Count > phrases[j].Count
		}
		return phrases[i].Text < phrases[j].Text
	})
	return phrases, nil
}

// Clean rewrites the log keeping only lines from the last days.
func (f *FileStore) Clean(days int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := DayCutoff(days)
	var kept []string
	removed := 0
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		if ts, ok := ExtractTimestamp(line); ok && ts.Before(cutoff) {
			removed++
			continue
		}
		if line != "" {
			kept = append(kept, line)
		}
	}
	if removed == 0 {
		return 0, nil
	}
	out := strings.Join(kept, "\n")
	if out != "" {
		out += "\n"
	}
	return removed, paths.AtomicWrite(f.path, []byte(out))
}

func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Close() error { return nil }
