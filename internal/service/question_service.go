package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"interview-hub/internal/domain"
	"interview-hub/internal/llm"
	"interview-hub/internal/repository"
)

type QuestionInput struct {
	Title      string
	Body       string
	Category   string
	Difficulty string
	Tags       []string
}

// QuestionService administra el banco de preguntas. El embedding es best-effort:
// sin LLM la pregunta se guarda igual y no participa en Similar.
type QuestionService struct {
	logger    *zap.Logger
	questions repository.QuestionRepository
	embedder  llm.Embedder
}

func NewQuestionService(logger *zap.Logger, questions repository.QuestionRepository, embedder llm.Embedder) *QuestionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuestionService{logger: logger, questions: questions, embedder: embedder}
}

func (s *QuestionService) Create(ctx context.Context, input QuestionInput) (domain.Question, error) {
	if s.questions == nil {
		return domain.Question{}, errors.New("question service not configured")
	}
	q, err := normalizeQuestion(input)
	if err != nil {
		return domain.Question{}, err
	}
	now := time.Now().UTC()
	q.ID = uuid.NewString()
	q.CreatedAt = now
	q.UpdatedAt = now
	q.Embedding = s.embed(ctx, q)

	if err := s.questions.Create(ctx, q); err != nil {
		return domain.Question{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return q, nil
}

func (s *QuestionService) Get(ctx context.Context, id string) (domain.Question, error) {
	if s.questions == nil {
		return domain.Question{}, errors.New("question service not configured")
	}
	q, err := s.questions.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Question{}, mapNotFound(err)
	}
	return q, nil
}

func (s *QuestionService) List(ctx context.Context, category, difficulty string) ([]domain.Question, error) {
	if s.questions == nil {
		return nil, errors.New("question service not configured")
	}
	difficulty = strings.ToLower(strings.TrimSpace(difficulty))
	if difficulty != "" && !isValidDifficulty(difficulty) {
		return nil, fmt.Errorf("%w: unknown difficulty %q", ErrValidation, difficulty)
	}
	return s.questions.List(ctx, repository.QuestionFilter{
		Category:   strings.ToLower(strings.TrimSpace(category)),
		Difficulty: difficulty,
	})
}

func (s *QuestionService) Update(ctx context.Context, id string, input QuestionInput) (domain.Question, error) {
	if s.questions == nil {
		return domain.Question{}, errors.New("question service not configured")
	}
	current, err := s.questions.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Question{}, mapNotFound(err)
	}
	q, err := normalizeQuestion(input)
	if err != nil {
		return domain.Question{}, err
	}
	q.ID = current.ID
	q.CreatedAt = current.CreatedAt
	q.UpdatedAt = time.Now().UTC()
	q.Embedding = s.embed(ctx, q)

	if err := s.questions.Update(ctx, q); err != nil {
		return domain.Question{}, mapNotFound(err)
	}
	return q, nil
}

func (s *QuestionService) Delete(ctx context.Context, id string) error {
	if s.questions == nil {
		return errors.New("question service not configured")
	}
	return mapNotFound(s.questions.Delete(ctx, strings.TrimSpace(id)))
}

// Similar devuelve hasta k preguntas cercanas por distancia coseno.
func (s *QuestionService) Similar(ctx context.Context, id string, k int) ([]domain.Question, error) {
	q, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if k <= 0 || k > 20 {
		k = 5
	}
	if q.Embedding == nil {
		return []domain.Question{}, nil
	}
	return s.questions.Similar(ctx, *q.Embedding, q.ID, k)
}

func (s *QuestionService) embed(ctx context.Context, q domain.Question) *pgvector.Vector {
	if s.embedder == nil {
		return nil
	}
	vec, err := s.embedder.CreateEmbedding(ctx, q.Title+"\n\n"+q.Body)
	if err != nil {
		s.logger.Warn("question embedding failed", zap.String("question_id", q.ID), zap.Error(err))
		return nil
	}
	v := pgvector.NewVector(vec)
	return &v
}

func normalizeQuestion(input QuestionInput) (domain.Question, error) {
	q := domain.Question{
		Title:      strings.TrimSpace(input.Title),
		Body:       strings.TrimSpace(input.Body),
		Category:   strings.ToLower(strings.TrimSpace(input.Category)),
		Difficulty: strings.ToLower(strings.TrimSpace(input.Difficulty)),
	}
	if q.Title == "" || q.Body == "" {
		return domain.Question{}, fmt.Errorf("%w: title and body are required", ErrValidation)
	}
	if q.Difficulty == "" {
		q.Difficulty = domain.DifficultyMedium
	}
	if !isValidDifficulty(q.Difficulty) {
		return domain.Question{}, fmt.Errorf("%w: unknown difficulty %q", ErrValidation, q.Difficulty)
	}
	q.Tags = make([]string, 0, len(input.Tags))
	seen := make(map[string]bool, len(input.Tags))
	for _, tag := range input.Tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		q.Tags = append(q.Tags, tag)
	}
	return q, nil
}

func isValidDifficulty(d string) bool {
	switch d {
	case domain.DifficultyEasy, domain.DifficultyMedium, domain.DifficultyHard:
		return true
	}
	return false
}

func mapNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
