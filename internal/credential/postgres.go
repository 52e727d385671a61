package credential

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgxQuerier is the subset of *pgxpool.Pool used here.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresKV stores entries in the credentials table.
type PostgresKV struct {
	pool pgxQuerier
}

// NewPostgresKV returns a Postgres-backed KV.
func NewPostgresKV(pool pgxQuerier) *PostgresKV {
	return &PostgresKV{pool: pool}
}

func (p *PostgresKV) Get(ctx context.Context, key string) (string, bool, error) {
	const query = `SELECT value FROM credentials WHERE key=$1`

	var value string
	if err := p.pool.QueryRow(ctx, query, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (p *PostgresKV) Set(ctx context.Context, key, value string) error {
	const query = `
        INSERT INTO credentials (key, value)
        VALUES ($1, $2)
        ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, updated_at=NOW()`

	_, err := p.pool.Exec(ctx, query, key, value)
	return err
}

func (p *PostgresKV) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	const query = `DELETE FROM credentials WHERE key = ANY($1)`

	_, err := p.pool.Exec(ctx, query, keys)
	return err
}

func (p *PostgresKV) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}
