package eventlog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Mavwarf/quizspeak/internal/paths"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) a SQLite database at path and creates
// its tables and indexes.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), paths.DirPerm); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer; the recorder goroutine is the only caller of Log.
	db.SetMaxOpenConns(1)

	// Set PRAGMAs before any DDL.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite pragma: %w", err)
		}
	}

	ddl := `
CREATE TABLE IF NOT EXISTS playback (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp   TEXT    NOT NULL,
    kind        TEXT    NOT NULL,
    trigger_id  TEXT    NOT NULL DEFAULT '',
    session_id  TEXT    NOT NULL DEFAULT '',
    voice       TEXT    NOT NULL DEFAULT '',
    locale      TEXT    NOT NULL DEFAULT '',
    text        TEXT    NOT NULL DEFAULT '',
    error       TEXT    NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_playback_timestamp ON playback(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_playback_session   ON playback(session_id);
`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Log(r Record) error {
	if r.Time.IsZero() {
		r.Time = time.Now()
	}
	_, err := s.db.Exec(
		`INSERT INTO playback (timestamp, kind, trigger_id, session_id, voice, locale, text, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Time.Format(time.RFC3339), r.Kind, r.Trigger, r.SessionID, r.Voice, r.Locale, r.Text, r.Err,
	)
	return err
}

func (s *SQLiteStore) Recent(n int) ([]Record, error) {
	query := `SELECT timestamp, kind, trigger_id, session_id, voice, locale, text, error
		FROM playback ORDER BY id DESC`
	var args []any
	if n > 0 {
		query += ` LIMIT ?`
		args = append(args, n)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var ts string
		if err := rows.Scan(&ts, &r.Kind, &r.Trigger, &r.SessionID, &r.Voice, &r.Locale, &r.Text, &r.Err); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			continue
		}
		r.Time = t
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) Phrases(days int) ([]Phrase, error) {
	query := `SELECT text, COUNT(*) AS cnt FROM playback
		WHERE kind = ? AND text != ''`
	args := []any{KindStarted}
	if days > 0 {
		query += ` AND timestamp >= ?`
		args = append(args, DayCutoff(days).Format(time.RFC3339))
	}
	query += ` GROUP BY text ORDER BY cnt DESC, text`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var phrases []Phrase
	for rows.Next() {
		var p Phrase
		if err := rows.Scan(&p.Text, &p.Count); err != nil {
			return nil, err
		}
		phrases = append(phrases, p)
	}
	return phrases, rows.Err()
}

func (s *SQLiteStore) Clean(days int) (int, error) {
	cutoff := DayCutoff(days).Format(time.RFC3339)
	res, err := s.db.Exec(`DELETE FROM playback WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *SQLiteStore) Clear() error {
	_, err := s.db.Exec(`DELETE FROM playback`)
	return err
}

func (s *SQLiteStore) Path() string {
	return s.path
}
