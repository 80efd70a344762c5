// Package sqlite provides a durable SessionStore backed by SQLite, one row
// per session.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/halcyonhq/halcyon/pkg/cryptox"
	"github.com/halcyonhq/halcyon/pkg/sessions/sqlite/migrations"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "modernc.org/sqlite"
)

// Store holds session rows for many logical sessions. Bind a single session
// with Session(id).
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at dsn.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Session writes from concurrent requests serialize on the row; WAL keeps
	// readers from blocking behind them.
	if _, err := db.ExecContext(context.Background(), `PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ApplyMigrations applies any pending migrations using the embedded
// migration files compiled into the binary.
func (s *Store) ApplyMigrations() error {
	driver, err := sqlitemigrate.WithInstance(s.db, &sqlitemigrate.Config{})
	if err != nil {
		return err
	}

	src, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return err
	}

	instance, err := migrate.NewWithInstance("iofs", src, "", driver)
	if err != nil {
		return err
	}

	if err := instance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// NewSessionID mints an unguessable session identifier. Hand the identifier
// to the client (for example in a cookie); only its fingerprint is ever
// persisted.
func NewSessionID() (string, error) {
	return cryptox.GenerateToken(cryptox.TokenSize256)
}

// Session binds a SessionStore view to one session identifier. Rows are
// keyed by the identifier's SHA-256 fingerprint so a leaked database does
// not yield usable session identifiers.
func (s *Store) Session(id string) *Session {
	return &Session{
		store: s,
		key:   cryptox.FingerprintToken(id),
	}
}

// Session is the per-session view implementing halsdk.SessionStore.
type Session struct {
	store *Store
	key   string
}

func (s *Session) Load(ctx context.Context) (map[string]any, error) {
	var raw string
	err := s.store.db.QueryRowContext(ctx,
		`SELECT data FROM sessions WHERE id = ?`, s.key,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (s *Session) Save(ctx context.Context, data map[string]any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}

	_, err = s.store.db.ExecContext(ctx,
		`INSERT INTO sessions (id, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		s.key, string(raw), time.Now().Unix(),
	)
	return err
}

func (s *Session) Clear(ctx context.Context) error {
	_, err := s.store.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, s.key)
	return err
}
