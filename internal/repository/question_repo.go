package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"interview-hub/internal/domain"
)

type QuestionFilter struct {
	Category   string
	Difficulty string
	Limit      int
}

type QuestionRepository interface {
	Create(ctx context.Context, q domain.Question) error
	GetByID(ctx context.Context, id string) (domain.Question, error)
	List(ctx context.Context, filter QuestionFilter) ([]domain.Question, error)
	Update(ctx context.Context, q domain.Question) error
	Delete(ctx context.Context, id string) error
	Similar(ctx context.Context, embedding pgvector.Vector, excludeID string, k int) ([]domain.Question, error)
}

type PgQuestionRepository struct {
	pool *pgxpool.Pool
}

func NewPgQuestionRepository(pool *pgxpool.Pool) *PgQuestionRepository {
	return &PgQuestionRepository{pool: pool}
}

const questionColumns = `id, title, body, category, difficulty, tags, created_at, updated_at`

func (r *PgQuestionRepository) Create(ctx context.Context, q domain.Question) error {
	const query = `
		INSERT INTO questions (id, title, body, category, difficulty, tags, embedding, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		q.ID,
		q.Title,
		q.Body,
		q.Category,
		q.Difficulty,
		q.Tags,
		q.Embedding,
		q.CreatedAt,
		q.UpdatedAt,
	)
	return err
}

func (r *PgQuestionRepository) GetByID(ctx context.Context, id string) (domain.Question, error) {
	const query = `
		SELECT ` + questionColumns + `, embedding
		FROM questions
		WHERE id = $1
	`
	var q domain.Question
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&q.ID,
		&q.Title,
		&q.Body,
		&q.Category,
		&q.Difficulty,
		&q.Tags,
		&q.CreatedAt,
		&q.UpdatedAt,
		&q.Embedding,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, err
	}
	return q, err
}

func (r *PgQuestionRepository) List(ctx context.Context, filter QuestionFilter) ([]domain.Question, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	// Filtros vacios se ignoran con la comparacion contra ''.
	const query = `
		SELECT ` + questionColumns + `
		FROM questions
		WHERE ($1 = '' OR category = $1)
		  AND ($2 = '' OR difficulty = $2)
		ORDER BY created_at DESC
		LIMIT $3
	`
	return r.query(ctx, query, filter.Category, filter.Difficulty, limit)
}

func (r *PgQuestionRepository) Update(ctx context.Context, q domain.Question) error {
	const query = `
		UPDATE questions
		SET title = $2, body = $3, category = $4, difficulty = $5, tags = $6, embedding = COALESCE($7, embedding), updated_at = $8
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		q.ID,
		q.Title,
		q.Body,
		q.Category,
		q.Difficulty,
		q.Tags,
		q.Embedding,
		q.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgQuestionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Similar ordena por distancia coseno (<=>) contra el embedding dado.
func (r *PgQuestionRepository) Similar(ctx context.Context, embedding pgvector.Vector, excludeID string, k int) ([]domain.Question, error) {
	if k <= 0 {
		k = 5
	}
	const query = `
		SELECT ` + questionColumns + `
		FROM questions
		WHERE id <> $1 AND embedding IS NOT NULL
		ORDER BY embedding <=> $2
		LIMIT $3
	`
	return r.query(ctx, query, excludeID, embedding, k)
}

func (r *PgQuestionRepository) query(ctx context.Context, query string, args ...any) ([]domain.Question, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Question, 0)
	for rows.Next() {
		var q domain.Question
		err := rows.Scan(
			&q.ID,
			&q.Title,
			&q.Body,
			&q.Category,
			&q.Difficulty,
			&q.Tags,
			&q.CreatedAt,
			&q.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}
