package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const chipsSchema = `
CREATE TABLE IF NOT EXISTS chips (
	player     TEXT PRIMARY KEY,
	chips      BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresLedger stores chip balances in Postgres via a pgx pool.
type PostgresLedger struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to the database, verifies the connection and ensures
// the chips table exists.
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresLedger, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, chipsSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create chips table: %w", err)
	}
	return &PostgresLedger{pool: pool}, nil
}

// LoadChips implements Ledger.
func (p *PostgresLedger) LoadChips(ctx context.Context, player string) (int64, bool, error) {
	var chips int64
	err := p.pool.QueryRow(ctx, `SELECT chips FROM chips WHERE player = $1`, player).Scan(&chips)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to load chips for %s: %w", player, err)
	}
	return chips, true, nil
}

// SaveChips implements Ledger.
func (p *PostgresLedger) SaveChips(ctx context.Context, player string, chips int64) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO chips (player, chips, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (player) DO UPDATE SET chips = EXCLUDED.chips, updated_at = now()`,
		player, chips)
	if err != nil {
		return fmt.Errorf("failed to save chips for %s: %w", player, err)
	}
	return nil
}

// Close implements Ledger.
func (p *PostgresLedger) Close() {
	p.pool.Close()
}
