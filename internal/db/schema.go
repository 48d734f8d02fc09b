package db

import (
	"context"
	"fmt"
)

// Amounts are integer cents; timestamps are unix milliseconds.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS balances (
		account_id  TEXT PRIMARY KEY,
		deposit     BIGINT NOT NULL DEFAULT 0,
		trading     BIGINT NOT NULL DEFAULT 0,
		locked      BIGINT NOT NULL DEFAULT 0,
		total       BIGINT NOT NULL DEFAULT 0,
		trade_count BIGINT NOT NULL DEFAULT 0,
		created_at  BIGINT NOT NULL,
		updated_at  BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS trades (
		id               TEXT PRIMARY KEY,
		account_id       TEXT NOT NULL,
		pair             TEXT NOT NULL,
		side             TEXT NOT NULL,
		amount           BIGINT NOT NULL,
		stop_loss        TEXT,
		take_profit      TEXT,
		duration_minutes INTEGER NOT NULL,
		seq              BIGINT NOT NULL,
		placed_at        BIGINT NOT NULL,
		settle_at        BIGINT NOT NULL,
		status           TEXT NOT NULL,
		result           TEXT NOT NULL,
		payout           BIGINT,
		closed_at        BIGINT
	)`,
	`CREATE INDEX IF NOT EXISTS trades_open_due ON trades (status, settle_at)`,
	`CREATE INDEX IF NOT EXISTS trades_account ON trades (account_id, placed_at)`,
	`CREATE TABLE IF NOT EXISTS deposit_requests (
		id         TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		asset      TEXT NOT NULL,
		amount     BIGINT NOT NULL,
		address    TEXT NOT NULL,
		created_at BIGINT NOT NULL,
		expires_at BIGINT NOT NULL,
		status     TEXT NOT NULL,
		decided_at BIGINT
	)`,
	`CREATE INDEX IF NOT EXISTS deposit_requests_account ON deposit_requests (account_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS withdrawal_requests (
		id          TEXT PRIMARY KEY,
		account_id  TEXT NOT NULL,
		asset       TEXT NOT NULL,
		destination TEXT NOT NULL,
		amount      BIGINT NOT NULL,
		created_at  BIGINT NOT NULL,
		status      TEXT NOT NULL,
		decided_at  BIGINT
	)`,
	`CREATE INDEX IF NOT EXISTS withdrawal_requests_account ON withdrawal_requests (account_id, created_at)`,
}

func (d *DB) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i, err)
		}
	}
	return nil
}
