package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"appscout/internal/core"

	"github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("session not found")

// Store is the SQLite-backed session store
type Store struct {
	db   *sql.DB
	path string
}

// SessionSummary is the listing view of a stored session
type SessionSummary struct {
	ID              string             `json:"id"`
	Status          core.SessionStatus `json:"status"`
	Country         string             `json:"country"`
	KeywordCount    int                `json:"keywordCount"`
	ClusterCount    int                `json:"clusterCount"`
	Recommendations int                `json:"recommendations"`
	Error           string             `json:"error,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

// NewStore opens (creating if needed) appscout.db under dataDir
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "appscout.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{
		db:   db,
		path: dbPath,
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

func (s *Store) initialize() error {
	sessionsTable := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		country TEXT,
		keyword_count INTEGER,
		cluster_count INTEGER,
		recommendation_count INTEGER,
		error TEXT,
		data TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	);`

	index := `CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions (updated_at);`

	for _, stmt := range []string{sessionsTable, index} {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Path returns the database file location
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts or replaces a session
func (s *Store) Save(ctx context.Context, session *core.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	query := `
	INSERT OR REPLACE INTO sessions
	(id, status, country, keyword_count, cluster_count, recommendation_count, error, data, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		session.ID,
		string(session.Status),
		session.Country,
		len(session.Keywords),
		len(session.Clusters),
		len(session.Recommendations),
		session.Error,
		string(data),
		session.CreatedAt.UTC(),
		session.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.ID, err)
	}
	return nil
}

// Get loads a full session
func (s *Store) Get(ctx context.Context, id string) (*core.Session, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM sessions WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	var session core.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return &session, nil
}

// List returns session summaries, most recently updated first. limit <= 0 means no limit.
func (s *Store) List(ctx context.Context, limit int) ([]SessionSummary, error) {
	query := `
	SELECT id, status, country, keyword_count, cluster_count, recommendation_count, error, created_at, updated_at
	FROM sessions
	ORDER BY updated_at DESC, id ASC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	summaries := []SessionSummary{}
	for rows.Next() {
		var sum SessionSummary
		var status string
		var country, errText sql.NullString
		if err := rows.Scan(&sum.ID, &status, &country, &sum.KeywordCount, &sum.ClusterCount,
			&sum.Recommendations, &errText, &sum.CreatedAt, &sum.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sum.Status = core.SessionStatus(status)
		sum.Country = country.String
		sum.Error = errText.String
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// Delete removes a session
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CleanupOld deletes sessions not updated within maxAge and reports how many went
func (s *Store) CleanupOld(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup sessions: %w", err)
	}
	return res.RowsAffected()
}
