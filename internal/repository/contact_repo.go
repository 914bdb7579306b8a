package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"interview-hub/internal/domain"
)

type ContactRepository interface {
	Create(ctx context.Context, submission domain.ContactSubmission) error
	ListRecent(ctx context.Context, limit int) ([]domain.ContactSubmission, error)
}

type PgContactRepository struct {
	pool *pgxpool.Pool
}

func NewPgContactRepository(pool *pgxpool.Pool) *PgContactRepository {
	return &PgContactRepository{pool: pool}
}

func (r *PgContactRepository) Create(ctx context.Context, s domain.ContactSubmission) error {
	const query = `
		INSERT INTO contact_submissions (id, name, email, subject, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query, s.ID, s.Name, s.Email, s.Subject, s.Message, s.CreatedAt)
	return err
}

func (r *PgContactRepository) ListRecent(ctx context.Context, limit int) ([]domain.ContactSubmission, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT id, name, email, subject, message, created_at
		FROM contact_submissions
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ContactSubmission, 0)
	for rows.Next() {
		var s domain.ContactSubmission
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.Subject, &s.Message, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
