// /internal/storage/storage.go
package storage

import (
	"context"
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"schedule-bot/internal/apperr"
	"schedule-bot/pkg/logx"
)

//go:embed schema.sql
var schemaSQL string

const (
	ownerListLimit = 50
	guildListLimit = 100
)

type Config struct {
	Path        string
	BusyTimeout time.Duration
}

// Store is the SQLite-backed record store for schedules and reminders.
// Every method is atomic on its own; callers never see a transaction.
type Store struct {
	db  *sqlx.DB
	log logx.Logger
	now func() time.Time
}

type Option func(*Store)

// WithClock replaces time.Now for created/updated stamps and the reminder
// "must be in the future" check.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens (creating if needed) the database at cfg.Path and applies the
// schema.
func Open(ctx context.Context, cfg Config, log logx.Logger, opts ...Option) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	return open(ctx, "file:"+cfg.Path+"?"+pragmas(cfg.BusyTimeout, true), log, opts...)
}

// OpenInMemory returns a private database that lives as long as the Store.
func OpenInMemory(ctx context.Context, log logx.Logger, opts ...Option) (*Store, error) {
	return open(ctx, "file::memory:?"+pragmas(0, false), log, opts...)
}

func pragmas(busy time.Duration, wal bool) string {
	if busy <= 0 {
		busy = 5 * time.Second
	}
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy.Milliseconds()))
	if wal {
		q.Add("_pragma", "journal_mode(WAL)")
	}
	return q.Encode()
}

func open(ctx context.Context, dsn string, log logx.Logger, opts ...Option) (*Store, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, apperr.Storage("open", err)
	}
	// One connection: SQLite serialises writers anyway, and an in-memory
	// database exists only on the connection that created it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{
		db:  db,
		log: log.With(logx.String("component", "storage")),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return apperr.Storage("migrate", err)
		}
	}
	s.log.Debug("schema ready")
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return apperr.Storage("ping", s.db.PingContext(ctx))
}

func (s *Store) Close() error {
	return s.db.Close()
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms) }
