package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"orsi/internal/api"
	"orsi/internal/config"
)

const defaultListLimit = 200

// Store manages journal persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	SessionID string
	Filename  string
	Kinds     []api.EventKind
	Since     time.Time
	// Limit caps the number of newest events returned; zero uses the default.
	Limit int
}

// SessionSummary aggregates the events of one console session.
type SessionSummary struct {
	SessionID string    `json:"sessionId"`
	Events    int       `json:"events"`
	FirstAt   time.Time `json:"firstAt"`
	LastAt    time.Time `json:"lastAt"`
}

// Open initializes or connects to the journal database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.JournalPath())
}

// OpenPath opens the journal at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends an event and returns its identifier. A zero At is stamped
// with the current time.
func (s *Store) Record(ctx context.Context, event api.Event) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("journal is closed")
	}
	if strings.TrimSpace(event.SessionID) == "" {
		return 0, errors.New("event session id is required")
	}
	if strings.TrimSpace(string(event.Kind)) == "" {
		return 0, errors.New("event kind is required")
	}
	at := event.At
	if at.IsZero() {
		at = time.Now()
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO events (session_id, kind, folder, filename, detail, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		event.SessionID,
		string(event.Kind),
		nullableString(string(event.Folder)),
		nullableString(event.Filename),
		nullableString(event.Detail),
		at.UTC().Format(timestampLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// List returns the newest events matching filter in chronological order.
func (s *Store) List(ctx context.Context, filter Filter) ([]api.Event, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.SessionID != "" {
		clauses = append(clauses, "session_id = ?")
		args = append(args, filter.SessionID)
	}
	if filter.Filename != "" {
		clauses = append(clauses, "filename = ?")
		args = append(args, filter.Filename)
	}
	if len(filter.Kinds) > 0 {
		placeholders := make([]string, len(filter.Kinds))
		for i, kind := range filter.Kinds {
			placeholders[i] = "?"
			args = append(args, string(kind))
		}
		clauses = append(clauses, "kind IN ("+strings.Join(placeholders, ", ")+")")
	}
	if !filter.Since.IsZero() {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, filter.Since.UTC().Format(timestampLayout))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := "SELECT " + eventColumns + " FROM events"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []api.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

// Sessions summarizes recorded sessions, most recent first.
func (s *Store) Sessions(ctx context.Context, limit int) ([]SessionSummary, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT session_id, COUNT(1), MIN(created_at), MAX(created_at)
         FROM events
         GROUP BY session_id
         ORDER BY MAX(id) DESC
         LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SessionSummary
	for rows.Next() {
		var (
			summary  SessionSummary
			firstRaw string
			lastRaw  string
		)
		if err := rows.Scan(&summary.SessionID, &summary.Events, &firstRaw, &lastRaw); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		summary.FirstAt = parseTime(firstRaw)
		summary.LastAt = parseTime(lastRaw)
		sessions = append(sessions, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// Prune removes events recorded before cutoff and returns how many were deleted.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM events WHERE created_at < ?", cutoff.UTC().Format(timestampLayout))
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return res.RowsAffected()
}
