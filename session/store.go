// Package session persists the top-level inputs of an interpreter in SQLite
// so that a later run can replay them and rebuild its definitions.
package session

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `CREATE TABLE IF NOT EXISTS entries (
	id         INTEGER PRIMARY KEY,
	session    TEXT NOT NULL,
	source     TEXT NOT NULL,
	created_at TEXT NOT NULL
)`

// Entry is one recorded input.
type Entry struct {
	ID        int64
	Session   string
	Source    string
	CreatedAt string
}

type Store struct {
	db      *sql.DB
	path    string
	mu      sync.Mutex // protects session
	session string
}

// Open opens (or creates) the database at path and starts a new session.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	log.Printf("opened session database: %s", path)
	return &Store{db: db, path: path, session: uuid.NewString()}, nil
}

// Session returns the identifier new entries are recorded under.
func (s *Store) Session() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Record appends source under the current session.
func (s *Store) Record(source string) error {
	_, err := s.db.Exec(
		"INSERT INTO entries (session, source, created_at) VALUES (?, ?, ?)",
		s.Session(), source, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record: %w", err)
	}
	return nil
}

// Entries lists every recorded entry in insertion order.
func (s *Store) Entries() ([]Entry, error) {
	rows, err := s.db.Query("SELECT id, session, source, created_at FROM entries ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Session, &e.Source, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	return entries, nil
}

// Replay calls fn with each recorded source in insertion order and stops at
// the first error fn returns.
func (s *Store) Replay(fn func(source string) error) error {
	entries, err := s.Entries()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := fn(e.Source); err != nil {
			return fmt.Errorf("replay entry %d: %w", e.ID, err)
		}
	}
	return nil
}

// Clear deletes every entry and starts a new session.
func (s *Store) Clear() error {
	if _, err := s.db.Exec("DELETE FROM entries"); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	s.mu.Lock()
	s.session = uuid.NewString()
	s.mu.Unlock()
	log.Printf("cleared session database: %s", s.path)
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
