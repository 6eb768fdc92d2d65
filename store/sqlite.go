package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS requests (
			request_id TEXT PRIMARY KEY,
			session_id TEXT,
			model TEXT,
			voice_id TEXT,
			started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			ended_at DATETIME,
			outcome TEXT,
			error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_requests_session ON requests(session_id, started_at)`,
		`CREATE TABLE IF NOT EXISTS events (
			event_id TEXT PRIMARY KEY,
			request_id TEXT NOT NULL,
			ts INTEGER NOT NULL,
			type TEXT NOT NULL,
			payload TEXT,
			FOREIGN KEY (request_id) REFERENCES requests(request_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_request ON events(request_id, ts)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateRequest records a new request.
func (s *SQLiteStore) CreateRequest(ctx context.Context, req *Request) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO requests (request_id, session_id, model, voice_id, started_at) VALUES (?, ?, ?, ?, ?)`,
		req.RequestID, req.SessionID, req.Model, req.VoiceID, req.StartedAt)
	return err
}

// FinishRequest marks a request terminal with its outcome.
func (s *SQLiteStore) FinishRequest(ctx context.Context, requestID, outcome, errMsg string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE requests SET ended_at = ?, outcome = ?, error = ? WHERE request_id = ?`,
		time.Now(), outcome, errMsg, requestID)
	return err
}

// GetRequest retrieves a request by ID.
func (s *SQLiteStore) GetRequest(ctx context.Context, requestID string) (*Request, error) {
	var req Request
	var endedAt sql.NullTime
	var outcome, errMsg sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT request_id, session_id, model, voice_id, started_at, ended_at, outcome, error
		 FROM requests WHERE request_id = ?`, requestID).
		Scan(&req.RequestID, &req.SessionID, &req.Model, &req.VoiceID, &req.StartedAt, &endedAt, &outcome, &errMsg)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if endedAt.Valid {
		req.EndedAt = &endedAt.Time
	}
	req.Outcome = outcome.String
	req.Error = errMsg.String
	return &req, nil
}

// CreateEvent records one lifecycle event.
func (s *SQLiteStore) CreateEvent(ctx context.Context, event *Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (event_id, request_id, ts, type, payload) VALUES (?, ?, ?, ?, ?)`,
		event.EventID, event.RequestID, event.Ts, event.Type, string(event.Payload))
	return err
}

// GetEvents returns a request's events ordered by timestamp.
func (s *SQLiteStore) GetEvents(ctx context.Context, requestID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_id, request_id, ts, type, payload FROM events
		 WHERE request_id = ? ORDER BY ts ASC LIMIT ?`, requestID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var payload sql.NullString
		if err := rows.Scan(&ev.EventID, &ev.RequestID, &ev.Ts, &ev.Type, &payload); err != nil {
			return nil, err
		}
		if payload.Valid {
			ev.Payload = []byte(payload.String)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
