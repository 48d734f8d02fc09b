// Package db is the durable record store behind the ledger, trade book and
// request workflow. SQLite is the default backend; Postgres is reached
// through pgx's database/sql driver. Queries are written with ? placeholders
// and rebound per dialect.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

type DB struct {
	sql     *sql.DB
	dialect Dialect
}

func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	var (
		d       *DB
		sqlConn *sql.DB
		err     error
	)
	switch Dialect(strings.ToLower(strings.TrimSpace(driver))) {
	case DialectSQLite, "sqlite3", "":
		sqlConn, err = sql.Open("sqlite3", sqliteDSN(dsn))
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// one writer; per-account locks above keep logical ordering
		sqlConn.SetMaxOpenConns(1)
		d = &DB{sql: sqlConn, dialect: DialectSQLite}
	case DialectPostgres, "pgx":
		sqlConn, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		sqlConn.SetMaxOpenConns(20)
		sqlConn.SetMaxIdleConns(2)
		sqlConn.SetConnMaxIdleTime(30 * time.Second)
		sqlConn.SetConnMaxLifetime(5 * time.Minute)
		d = &DB{sql: sqlConn, dialect: DialectPostgres}
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlConn.PingContext(pingCtx); err != nil {
		sqlConn.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return d, nil
}

func sqliteDSN(dsn string) string {
	if dsn == "" {
		dsn = "edge.db"
	}
	if strings.Contains(dsn, "?") {
		return dsn
	}
	return dsn + "?_busy_timeout=5000&_foreign_keys=on"
}

func (d *DB) Dialect() Dialect { return d.dialect }

func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) Ping(ctx context.Context) error { return d.sql.PingContext(ctx) }

func (d *DB) ExecContext(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return d.sql.ExecContext(ctx, Rebind(d.dialect, q), args...)
}

func (d *DB) QueryContext(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return d.sql.QueryContext(ctx, Rebind(d.dialect, q), args...)
}

func (d *DB) QueryRowContext(ctx context.Context, q string, args ...any) *sql.Row {
	return d.sql.QueryRowContext(ctx, Rebind(d.dialect, q), args...)
}

// Tx is a transaction that rebinds placeholders for its dialect.
type Tx struct {
	tx      *sql.Tx
	dialect Dialect
}

func (t *Tx) ExecContext(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, Rebind(t.dialect, q), args...)
}

func (t *Tx) QueryContext(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, Rebind(t.dialect, q), args...)
}

func (t *Tx) QueryRowContext(ctx context.Context, q string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, Rebind(t.dialect, q), args...)
}

const maxTxAttempts = 3

// WithTx runs fn in a transaction, committing when fn returns nil. Postgres
// transactions run serializable and are retried on serialization failure.
func (d *DB) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	var opts *sql.TxOptions
	if d.dialect == DialectPostgres {
		opts = &sql.TxOptions{Isolation: sql.LevelSerializable}
	}
	var err error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err = d.runTx(ctx, opts, fn)
		if err == nil || !isSerializationFailure(err) {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * 10 * time.Millisecond)
	}
	return fmt.Errorf("transaction failed after %d attempts: %w", maxTxAttempts, err)
}

func (d *DB) runTx(ctx context.Context, opts *sql.TxOptions, fn func(tx *Tx) error) error {
	sqlTx, err := d.sql.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer sqlTx.Rollback()
	if err := fn(&Tx{tx: sqlTx, dialect: d.dialect}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

// Rebind turns ? placeholders into $1..$n for Postgres. Question marks
// inside single-quoted literals are left alone.
func Rebind(dialect Dialect, q string) string {
	if dialect != DialectPostgres || !strings.Contains(q, "?") {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(q); i++ {
		c := q[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// NullString maps an optional text column.
func NullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
