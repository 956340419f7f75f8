package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/diagnosis/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/diagnosis/internal/platform/timeouts"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/domain/wizard"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/storage"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Store provides SQLite-backed session persistence.
type Store struct {
	sqlDB *sql.DB
}

var _ storage.Store = (*Store)(nil)

// Open opens and migrates a session store at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(ctx, sqlDB, migrationFS, "migrations"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Healthy reports whether the database still answers a ping.
func (s *Store) Healthy() bool {
	if s == nil || s.sqlDB == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.HealthCheck)
	defer cancel()
	return s.sqlDB.PingContext(ctx) == nil
}

// GetSession loads a session by id.
func (s *Store) GetSession(ctx context.Context, id string) (storage.Session, bool, error) {
	if s == nil || s.sqlDB == nil {
		return storage.Session{}, false, fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.Session{}, false, fmt.Errorf("session id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, wizard_json, submitted, created_at, updated_at, expires_at
		 FROM wizard_sessions
		 WHERE id = ?`,
		id,
	)

	var (
		session    storage.Session
		wizardJSON []byte
		submitted  int64
		createdAt  int64
		updatedAt  int64
		expiresAt  int64
	)
	if err := row.Scan(&session.ID, &wizardJSON, &submitted, &createdAt, &updatedAt, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Session{}, false, nil
		}
		return storage.Session{}, false, fmt.Errorf("get session: %w", err)
	}
	var state wizard.State
	if err := json.Unmarshal(wizardJSON, &state); err != nil {
		return storage.Session{}, false, fmt.Errorf("decode wizard state: %w", err)
	}
	session.Wizard = state
	session.Submitted = submitted != 0
	session.CreatedAt = unixMillisToTime(createdAt)
	session.UpdatedAt = unixMillisToTime(updatedAt)
	session.ExpiresAt = unixMillisToTime(expiresAt)
	return session, true, nil
}

// PutSession upserts a session.
func (s *Store) PutSession(ctx context.Context, session storage.Session) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	session.ID = strings.TrimSpace(session.ID)
	if session.ID == "" {
		return fmt.Errorf("session id is required")
	}
	if session.ExpiresAt.IsZero() {
		return fmt.Errorf("session expiry is required")
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = time.Now().UTC()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = session.UpdatedAt
	}
	wizardJSON, err := json.Marshal(session.Wizard)
	if err != nil {
		return fmt.Errorf("encode wizard state: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO wizard_sessions (id, wizard_json, submitted, created_at, updated_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		    wizard_json = excluded.wizard_json,
		    submitted = excluded.submitted,
		    updated_at = excluded.updated_at,
		    expires_at = excluded.expires_at`,
		session.ID,
		wizardJSON,
		boolToInt(session.Submitted),
		timeToUnixMillis(session.CreatedAt),
		timeToUnixMillis(session.UpdatedAt),
		timeToUnixMillis(session.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

// DeleteSession removes a session by id.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("session id is required")
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM wizard_sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes every session whose expiry is at or before now.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM wizard_sessions WHERE expires_at <= ?`, timeToUnixMillis(now))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count expired sessions: %w", err)
	}
	return n, nil
}

func boolToInt(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

func timeToUnixMillis(value time.Time) int64 {
	if value.IsZero() {
		return 0
	}
	return value.UTC().UnixMilli()
}

func unixMillisToTime(value int64) time.Time {
	if value <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(value).UTC()
}
