package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"interview-hub/internal/domain"
)

// ErrDuplicate indica una violacion de unicidad (por ejemplo, email ya registrado).
var ErrDuplicate = errors.New("duplicate record")

// AccountRepository define el contrato de persistencia para usuarios y mentores.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	ListByRole(ctx context.Context, role string) ([]domain.Account, error)
}

// PgAccountRepository implementa AccountRepository usando pgxpool.
type PgAccountRepository struct {
	pool *pgxpool.Pool
}

func NewPgAccountRepository(pool *pgxpool.Pool) *PgAccountRepository {
	return &PgAccountRepository{pool: pool}
}

func (r *PgAccountRepository) Create(ctx context.Context, account domain.Account) error {
	const query = `
		INSERT INTO accounts (id, email, display_name, role, expertise, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		account.ID,
		account.Email,
		account.DisplayName,
		account.Role,
		account.Expertise,
		account.PasswordHash,
		account.CreatedAt,
	)
	return mapWriteError(err)
}

func (r *PgAccountRepository) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	const query = `
		SELECT id, email, display_name, role, expertise, password_hash, created_at
		FROM accounts
		WHERE email = $1
	`
	var a domain.Account
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&a.ID,
		&a.Email,
		&a.DisplayName,
		&a.Role,
		&a.Expertise,
		&a.PasswordHash,
		&a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Account{}, err
	}
	return a, err
}

func (r *PgAccountRepository) ListByRole(ctx context.Context, role string) ([]domain.Account, error) {
	const query = `
		SELECT id, email, display_name, role, expertise, created_at
		FROM accounts
		WHERE role = $1
		ORDER BY display_name ASC, email ASC
	`
	rows, err := r.pool.Query(ctx, query, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0)
	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(&a.ID, &a.Email, &a.DisplayName, &a.Role, &a.Expertise, &a.CreatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// mapWriteError traduce la violacion de unicidad de Postgres (23505) a ErrDuplicate.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}
