package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"interview-hub/internal/config"
	"interview-hub/internal/db"
	"interview-hub/internal/domain"
	"interview-hub/internal/llm"
	"interview-hub/internal/repository"
	"interview-hub/internal/service"
)

// Scenario: el vecino mas cercano de Anchor debe ser Related y no Distractor.
type Scenario struct {
	Name       string
	Anchor     service.QuestionInput
	Related    service.QuestionInput
	Distractor service.QuestionInput
}

func main() {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Fatalf("db pool: %v", err)
	}
	defer pool.Close()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	llmClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMEmbeddingModel, logger)
	questionRepo := repository.NewPgQuestionRepository(pool)
	questions := service.NewQuestionService(logger, questionRepo, llmClient)

	scenarios := []Scenario{
		{
			Name:       "Concurrency",
			Anchor:     service.QuestionInput{Title: "Explain Go channels", Body: "How do buffered and unbuffered channels differ?", Category: "go"},
			Related:    service.QuestionInput{Title: "Goroutine synchronization", Body: "When would you use a channel instead of a mutex?", Category: "go"},
			Distractor: service.QuestionInput{Title: "CSS specificity", Body: "How does the browser resolve conflicting selectors?", Category: "frontend"},
		},
		{
			Name:       "Databases",
			Anchor:     service.QuestionInput{Title: "Database indexes", Body: "How does a B-tree index speed up lookups?", Category: "sql"},
			Related:    service.QuestionInput{Title: "Query planning", Body: "Why might Postgres ignore an index on a filtered column?", Category: "sql"},
			Distractor: service.QuestionInput{Title: "Behavioral: conflict", Body: "Tell me about a disagreement with a teammate.", Category: "behavioral"},
		},
	}

	passed := 0
	for _, sc := range scenarios {
		fmt.Printf("=== %s ===\n", sc.Name)
		ok, err := runScenario(ctx, questions, sc)
		switch {
		case err != nil:
			fmt.Printf("FAIL [%s] %v\n\n", sc.Name, err)
		case ok:
			fmt.Printf("PASS [%s]\n\n", sc.Name)
			passed++
		default:
			fmt.Printf("FAIL [%s] nearest neighbor was not the related question\n\n", sc.Name)
		}
	}

	fmt.Printf("Checks: %d/%d passed\n", passed, len(scenarios))
	if passed != len(scenarios) {
		os.Exit(1)
	}
}

func runScenario(ctx context.Context, questions *service.QuestionService, sc Scenario) (bool, error) {
	var created []domain.Question
	defer func() {
		for _, q := range created {
			_ = questions.Delete(context.Background(), q.ID)
		}
	}()

	for _, in := range []service.QuestionInput{sc.Anchor, sc.Related, sc.Distractor} {
		q, err := questions.Create(ctx, in)
		if err != nil {
			return false, fmt.Errorf("create %q: %w", in.Title, err)
		}
		if q.Embedding == nil {
			return false, fmt.Errorf("question %q stored without embedding", in.Title)
		}
		created = append(created, q)
	}

	runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	nearest, err := questions.Similar(runCtx, created[0].ID, 1)
	if err != nil {
		return false, err
	}
	if len(nearest) == 0 {
		return false, nil
	}
	fmt.Printf("nearest: %s\n", nearest[0].Title)
	return nearest[0].ID == created[1].ID, nil
}
