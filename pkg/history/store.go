// Package history persists finished transactions in SQLite so they can be
// replayed by the get-old-transactions role.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/arc-language/upkgd/pkg/core"

	_ "modernc.org/sqlite"
)

// fixed width so that started_at sorts as text
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// ErrClosed is returned by operations on a closed store
var ErrClosed = errors.New("history: store closed")

// Store implements backend.History on top of SQLite
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

// Open opens or creates the history database at path. The parent directory
// is created if needed. ":memory:" gives a private in-memory store.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	// one connection keeps ":memory:" a single database
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping history database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		role TEXT NOT NULL,
		backend TEXT NOT NULL,
		transaction_flags INTEGER NOT NULL,
		parameters TEXT NOT NULL,
		exit TEXT NOT NULL,
		error TEXT NOT NULL,
		started_at TEXT NOT NULL,
		duration_ms INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_started_at ON transactions(started_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record stores one finished transaction, replacing any earlier record with
// the same id
func (s *Store) Record(ctx context.Context, tx core.Transaction) error {
	if tx.ID == "" {
		return errors.New("history: transaction id is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	query := `
	INSERT INTO transactions (id, role, backend, transaction_flags, parameters, exit, error, started_at, duration_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		role = excluded.role,
		backend = excluded.backend,
		transaction_flags = excluded.transaction_flags,
		parameters = excluded.parameters,
		exit = excluded.exit,
		error = excluded.error,
		started_at = excluded.started_at,
		duration_ms = excluded.duration_ms
	`
	_, err := s.db.ExecContext(ctx, query,
		tx.ID,
		tx.Role.String(),
		tx.Backend,
		int64(tx.TransactionFlags),
		tx.Parameters,
		tx.Exit.String(),
		tx.Error,
		tx.Started.UTC().Format(timeFormat),
		tx.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("record transaction %s: %w", tx.ID, err)
	}
	return nil
}

// List returns up to limit transactions, newest first. A limit of zero or
// less returns all of them.
func (s *Store) List(ctx context.Context, limit int) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	query := `
	SELECT id, role, backend, transaction_flags, parameters, exit, error, started_at, duration_ms
	FROM transactions
	ORDER BY started_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		var (
			tx         core.Transaction
			role, exit string
			flags      int64
			started    string
			durationMS int64
		)
		if err := rows.Scan(&tx.ID, &role, &tx.Backend, &flags, &tx.Parameters, &exit, &tx.Error, &started, &durationMS); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Role = core.RoleFromString(role)
		tx.Exit = core.ExitFromString(exit)
		tx.TransactionFlags = core.Bitfield(flags)
		tx.Duration = time.Duration(durationMS) * time.Millisecond
		if t, err := time.Parse(timeFormat, started); err == nil {
			tx.Started = t
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

// Close closes the database. It is safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
