package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"interview-hub/internal/domain"
	"interview-hub/internal/llm"
)

const feedbackPromptTemplate = `You are a senior technical interviewer reviewing a candidate's answer.

Question:
%s

Candidate answer:
%s

Reply ONLY with a JSON object of the form:
{"score": <integer 0-10>, "strengths": [<string>], "improvements": [<string>], "summary": <string>}`

type FeedbackInput struct {
	QuestionID string
	Question   string
	Answer     string
}

// FeedbackService pide al LLM una evaluacion de la respuesta del candidato.
type FeedbackService struct {
	logger    *zap.Logger
	llm       llm.LLMClient
	questions *QuestionService
}

func NewFeedbackService(logger *zap.Logger, client llm.LLMClient, questions *QuestionService) *FeedbackService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedbackService{logger: logger, llm: client, questions: questions}
}

func (s *FeedbackService) Evaluate(ctx context.Context, input FeedbackInput) (domain.Feedback, error) {
	if s.llm == nil {
		return domain.Feedback{}, errors.New("feedback service not configured")
	}
	answer := strings.TrimSpace(input.Answer)
	if answer == "" {
		return domain.Feedback{}, fmt.Errorf("%w: answer is required", ErrValidation)
	}

	question := strings.TrimSpace(input.Question)
	if id := strings.TrimSpace(input.QuestionID); id != "" && s.questions != nil {
		q, err := s.questions.Get(ctx, id)
		if err != nil {
			return domain.Feedback{}, err
		}
		question = q.Title + "\n\n" + q.Body
	}
	if question == "" {
		return domain.Feedback{}, fmt.Errorf("%w: question or questionId is required", ErrValidation)
	}

	raw, err := s.llm.Generate(ctx, fmt.Sprintf(feedbackPromptTemplate, question, answer))
	if err != nil {
		s.logger.Warn("feedback generation failed", zap.Error(err))
		return domain.Feedback{}, fmt.Errorf("llm generate: %w", err)
	}
	return parseFeedback(raw), nil
}

// parseFeedback intenta el JSON estructurado y, si no, devuelve el texto libre en Summary.
func parseFeedback(raw string) domain.Feedback {
	cleaned := cleanLLMJSONResponse(raw)
	candidates := []string{cleaned}
	if obj := extractFirstJSONObject(cleaned); obj != "" && obj != cleaned {
		candidates = append(candidates, obj)
	}

	for _, c := range candidates {
		var parsed struct {
			Score        *float64 `json:"score"`
			Strengths    []string `json:"strengths"`
			Improvements []string `json:"improvements"`
			Summary      string   `json:"summary"`
		}
		if err := json.Unmarshal([]byte(c), &parsed); err != nil || parsed.Score == nil {
			continue
		}
		score := int(*parsed.Score + 0.5)
		if score < 0 {
			score = 0
		}
		if score > 10 {
			score = 10
		}
		fb := domain.Feedback{
			Score:        score,
			Strengths:    nonEmpty(parsed.Strengths),
			Improvements: nonEmpty(parsed.Improvements),
			Summary:      strings.TrimSpace(parsed.Summary),
			Structured:   true,
		}
		return fb
	}

	return domain.Feedback{
		Strengths:    []string{},
		Improvements: []string{},
		Summary:      strings.TrimSpace(raw),
	}
}

func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}
