// Package universe maintains the tradingsymbol → instrument-token mapping in
// SQLite. The Kite instrument dump is ~80k rows refreshed once per day, so
// lookups go through the database rather than holding the dump in memory.
package universe

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"premarketdash/pkg/kiteconnect"

	_ "github.com/mattn/go-sqlite3"
)

// ErrUnknownSymbol is returned when a symbol has no row in the universe.
var ErrUnknownSymbol = errors.New("universe: unknown symbol")

// Store is the SQLite-backed instrument universe.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path with WAL mode.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("universe: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS instruments (
			symbol       TEXT    NOT NULL,
			exchange     TEXT    NOT NULL,
			token        INTEGER NOT NULL,
			name         TEXT,
			segment      TEXT,
			type         TEXT,
			refreshed_at INTEGER NOT NULL,
			PRIMARY KEY (exchange, symbol)
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("universe: schema: %w", err)
	}

	log.Printf("[universe] opened database at %s", path)
	return &Store{db: db}, nil
}

// DB exposes the handle for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Replace swaps the whole universe for one exchange in a single transaction.
// Readers see either the old or the new set, never a partial one.
func (s *Store) Replace(ctx context.Context, exchange string, instruments []kiteconnect.Instrument) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("universe: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM instruments WHERE exchange = ?`, exchange); err != nil {
		return fmt.Errorf("universe: clear %s: %w", exchange, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO instruments (symbol, exchange, token, name, segment, type, refreshed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("universe: prepare: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	inserted := 0
	for _, ins := range instruments {
		if ins.Exchange != exchange {
			continue
		}
		if _, err := stmt.ExecContext(ctx, ins.Tradingsymbol, ins.Exchange, ins.InstrumentToken,
			ins.Name, ins.Segment, ins.InstrumentType, now); err != nil {
			return fmt.Errorf("universe: insert %s: %w", ins.Tradingsymbol, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("universe: commit: %w", err)
	}
	log.Printf("[universe] replaced %s universe: %d instruments", exchange, inserted)
	return nil
}

// Token resolves a tradingsymbol on an exchange to its instrument token.
func (s *Store) Token(ctx context.Context, exchange, symbol string) (int, error) {
	var token int
	err := s.db.QueryRowContext(ctx,
		`SELECT token FROM instruments WHERE exchange = ? AND symbol = ?`,
		exchange, symbol).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s:%s", ErrUnknownSymbol, exchange, symbol)
	}
	if err != nil {
		return 0, fmt.Errorf("universe: lookup %s:%s: %w", exchange, symbol, err)
	}
	return token, nil
}

// EquitySymbols lists the plain equity symbols on an exchange, sorted.
func (s *Store) EquitySymbols(ctx context.Context, exchange string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol FROM instruments WHERE exchange = ? AND type = 'EQ' AND segment = ? ORDER BY symbol`,
		exchange, exchange)
	if err != nil {
		return nil, fmt.Errorf("universe: equity symbols: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

// Count returns how many instruments are stored for an exchange.
func (s *Store) Count(ctx context.Context, exchange string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM instruments WHERE exchange = ?`, exchange).Scan(&n)
	return n, err
}

// RefreshedAt returns the most recent refresh time for an exchange, zero
// when the universe is empty.
func (s *Store) RefreshedAt(ctx context.Context, exchange string) (time.Time, error) {
	var unix sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(refreshed_at) FROM instruments WHERE exchange = ?`, exchange).Scan(&unix)
	if err != nil {
		return time.Time{}, err
	}
	if !unix.Valid {
		return time.Time{}, nil
	}
	return time.Unix(unix.Int64, 0), nil
}
