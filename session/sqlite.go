package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/oppositecube/jarvis/core"
)

// SQLiteStore is a durable SessionStore backed by a single SQLite file.
// Sessions survive daemon restarts; the event history is stored as one JSON
// row per event ordered by insertion id. WAL journaling keeps concurrent
// reader/writer behavior sane for a single-process assistant.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path, ensuring the parent
// directory exists, and initializes the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open db at %s: %w", path, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db at %s: %w", path, err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			state TEXT NOT NULL DEFAULT '{}',
			metadata TEXT NOT NULL DEFAULT '{}',
			created_at INTEGER NOT NULL DEFAULT (unixepoch()),
			updated_at INTEGER NOT NULL DEFAULT (unixepoch())
		);

		CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			event_id TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at INTEGER NOT NULL DEFAULT (unixepoch())
		);
		CREATE INDEX IF NOT EXISTS idx_events_session_id ON events(session_id, id);
	`)
	return err
}

// Create inserts (or resets) a session row with empty state.
func (s *SQLiteStore) Create(sessionID string) (*core.Session, error) {
	now := time.Now().Unix()
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, state, metadata, created_at, updated_at) VALUES (?, '{}', '{}', ?, ?)
		 ON CONFLICT(id) DO UPDATE SET state='{}', metadata='{}', updated_at=excluded.updated_at`,
		sessionID, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session %s: %w", sessionID, err)
	}

	if _, err := s.db.Exec(`DELETE FROM events WHERE session_id = ?`, sessionID); err != nil {
		return nil, fmt.Errorf("failed to clear events for session %s: %w", sessionID, err)
	}

	return core.NewSession(sessionID), nil
}

// Get loads a session with its full event history, lazily creating the row if
// it does not exist yet.
func (s *SQLiteStore) Get(sessionID string) (*core.Session, error) {
	var (
		stateJSON, metaJSON  string
		createdAt, updatedAt int64
	)

	err := s.db.QueryRow(
		`SELECT state, metadata, created_at, updated_at FROM sessions WHERE id = ?`, sessionID,
	).Scan(&stateJSON, &metaJSON, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return s.Create(sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}

	sess := core.NewSession(sessionID)
	sess.Created = time.Unix(createdAt, 0)
	sess.Updated = time.Unix(updatedAt, 0)

	if err := json.Unmarshal([]byte(stateJSON), &sess.State); err != nil {
		return nil, fmt.Errorf("failed to decode state for session %s: %w", sessionID, err)
	}
	if err := json.Unmarshal([]byte(metaJSON), &sess.Metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata for session %s: %w", sessionID, err)
	}

	rows, err := s.db.Query(`SELECT payload FROM events WHERE session_id = ? ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load events for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var ev core.Event
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return nil, fmt.Errorf("failed to decode event for session %s: %w", sessionID, err)
		}
		sess.Events = append(sess.Events, ev)
	}

	return sess, rows.Err()
}

// AppendEvent serializes and inserts one event row for the session.
func (s *SQLiteStore) AppendEvent(sessionID string, ev core.Event) error {
	if err := s.ensureSession(sessionID); err != nil {
		return err
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", ev.ID, err)
	}

	_, err = s.db.Exec(
		`INSERT INTO events (session_id, event_id, payload) VALUES (?, ?, ?)`,
		sessionID, ev.ID, string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to append event %s: %w", ev.ID, err)
	}

	_, err = s.db.Exec(`UPDATE sessions SET updated_at = ? WHERE id = ?`, time.Now().Unix(), sessionID)
	return err
}

// ApplyDelta merges a key/value delta into the persisted session state inside
// a transaction (read-modify-write of the state JSON column).
func (s *SQLiteStore) ApplyDelta(sessionID string, delta map[string]interface{}) error {
	if len(delta) == 0 {
		return nil
	}

	if err := s.ensureSession(sessionID); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var stateJSON string
	if err := tx.QueryRow(`SELECT state FROM sessions WHERE id = ?`, sessionID).Scan(&stateJSON); err != nil {
		return fmt.Errorf("failed to load state for session %s: %w", sessionID, err)
	}

	state := map[string]interface{}{}
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		return fmt.Errorf("failed to decode state for session %s: %w", sessionID, err)
	}

	for k, v := range delta {
		state[k] = v
	}

	merged, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode state for session %s: %w", sessionID, err)
	}

	if _, err := tx.Exec(
		`UPDATE sessions SET state = ?, updated_at = ? WHERE id = ?`,
		string(merged), time.Now().Unix(), sessionID,
	); err != nil {
		return fmt.Errorf("failed to store state for session %s: %w", sessionID, err)
	}

	return tx.Commit()
}

// ensureSession lazily inserts the session row if missing.
func (s *SQLiteStore) ensureSession(sessionID string) error {
	now := time.Now().Unix()
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, created_at, updated_at) VALUES (?, ?, ?) ON CONFLICT(id) DO NOTHING`,
		sessionID, now, now,
	)
	return err
}
