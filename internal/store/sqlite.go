// ABOUTME: SQLite implementation of the bazaar ledger store using modernc.org/sqlite
// ABOUTME: Provides asset/listing/balance persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements ledger persistence using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS principals (
			principal_id TEXT PRIMARY KEY,
			display_name TEXT NOT NULL,
			status       TEXT NOT NULL,
			created_at   TEXT NOT NULL,
			last_seen    TEXT,

			CHECK (status IN ('pending', 'approved', 'revoked'))
		);

		CREATE INDEX IF NOT EXISTS idx_principals_status ON principals(status);

		CREATE TABLE IF NOT EXISTS roles (
			principal_id TEXT NOT NULL,
			role         TEXT NOT NULL,
			created_at   TEXT NOT NULL,

			PRIMARY KEY (principal_id, role),
			CHECK (role IN ('admin', 'creator', 'seller', 'buyer'))
		);

		CREATE INDEX IF NOT EXISTS idx_roles_principal ON roles(principal_id);

		CREATE TABLE IF NOT EXISTS counters (
			name  TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS assets (
			asset_id   INTEGER PRIMARY KEY,
			owner      TEXT NOT NULL,
			token_uri  TEXT NOT NULL,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_assets_owner ON assets(owner);

		CREATE TABLE IF NOT EXISTS listings (
			asset_id   INTEGER PRIMARY KEY,
			price      INTEGER NOT NULL,
			seller     TEXT NOT NULL,
			listed     INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL,

			FOREIGN KEY (asset_id) REFERENCES assets(asset_id),
			CHECK (price >= 0)
		);

		CREATE INDEX IF NOT EXISTS idx_listings_listed ON listings(listed);

		CREATE TABLE IF NOT EXISTS balances (
			principal_id TEXT PRIMARY KEY,
			amount       INTEGER NOT NULL,
			updated_at   TEXT NOT NULL,

			CHECK (amount >= 0)
		);

		CREATE TABLE IF NOT EXISTS payouts (
			payout_id    TEXT PRIMARY KEY,
			principal_id TEXT NOT NULL,
			amount       INTEGER NOT NULL,
			created_at   TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_payouts_principal ON payouts(principal_id);

		CREATE TABLE IF NOT EXISTS treasury (
			name   TEXT PRIMARY KEY,
			amount INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS market_events (
			event_id     TEXT PRIMARY KEY,
			event_type   TEXT NOT NULL,
			actor        TEXT NOT NULL,
			asset_id     INTEGER,
			amount       INTEGER,
			counterparty TEXT,
			ts           TEXT NOT NULL,
			detail_json  TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_events_ts ON market_events(ts);
		CREATE INDEX IF NOT EXISTS idx_events_asset ON market_events(asset_id);

		CREATE TABLE IF NOT EXISTS secrets (
			name        TEXT PRIMARY KEY,
			secret_hash TEXT NOT NULL,
			created_at  TEXT NOT NULL
		);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Seed the token counter. First issued identifier is 1: the mint
	// transaction increments before reading, matching the original
	// contract's counter semantics.
	seed := `INSERT OR IGNORE INTO counters (name, value) VALUES ('token_id', 0);
		INSERT OR IGNORE INTO treasury (name, amount) VALUES ('total_received', 0);
		INSERT OR IGNORE INTO treasury (name, amount) VALUES ('total_withdrawn', 0);`
	if _, err := s.db.Exec(seed); err != nil {
		return err
	}

	return nil
}

// Close releases the underlying database handle
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// withTx runs fn inside a transaction, committing on nil and rolling back
// on error. Settlement operations rely on this for all-or-nothing effects.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
