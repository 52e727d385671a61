package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/storefront/internal/domain"
)

// ErrAccountNotFound is returned when no account matches.
var ErrAccountNotFound = errors.New("account not found")

// AccountRepository defines persistence access for accounts of both domains.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	Update(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, d domain.Domain, email string) (*domain.Account, error)
}

// pgxConn is the subset of *pgxpool.Pool the repository needs.
type pgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type accountRepository struct {
	pool pgxConn
}

// NewAccountRepository returns a Postgres-backed implementation.
func NewAccountRepository(pool pgxConn) AccountRepository {
	return &accountRepository{pool: pool}
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	const query = `
        INSERT INTO accounts (id, domain, email, password_hash, status, is_vendor)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		account.ID,
		account.Domain,
		account.Email,
		account.PasswordHash,
		account.Status,
		account.IsVendor,
	).Scan(&account.CreatedAt, &account.UpdatedAt)
}

func (r *accountRepository) Update(ctx context.Context, account *domain.Account) error {
	const query = `
        UPDATE accounts SET email=$1, password_hash=$2, status=$3, is_vendor=$4, updated_at=NOW()
        WHERE id=$5`

	cmd, err := r.pool.Exec(ctx, query,
		account.Email,
		account.PasswordHash,
		account.Status,
		account.IsVendor,
		account.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	const query = `
        SELECT id, domain, email, password_hash, status, is_vendor, created_at, updated_at
        FROM accounts WHERE id=$1`

	return scanAccount(r.pool.QueryRow(ctx, query, id))
}

func (r *accountRepository) GetByEmail(ctx context.Context, d domain.Domain, email string) (*domain.Account, error) {
	const query = `
        SELECT id, domain, email, password_hash, status, is_vendor, created_at, updated_at
        FROM accounts WHERE domain=$1 AND email=$2`

	return scanAccount(r.pool.QueryRow(ctx, query, d, email))
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	if err := row.Scan(
		&account.ID,
		&account.Domain,
		&account.Email,
		&account.PasswordHash,
		&account.Status,
		&account.IsVendor,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}
