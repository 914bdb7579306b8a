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
	"interview-hub/internal/llm"
	"interview-hub/internal/service"
)

const (
	colorGreen = "\033[32m"
	colorCyan  = "\033[36m"
	colorRed   = "\033[31m"
	colorReset = "\033[0m"
)

func main() {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	llmClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMEmbeddingModel, logger)
	feedback := service.NewFeedbackService(logger, llmClient, nil)

	var results []Result
	for _, sc := range defaultScenarios() {
		fmt.Printf("%s[%s]%s %s\n", colorCyan, sc.Name, colorReset, sc.Question)

		runCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
		fb, err := feedback.Evaluate(runCtx, service.FeedbackInput{Question: sc.Question, Answer: sc.Answer})
		cancel()
		if err != nil {
			log.Fatalf("evaluate %q: %v", sc.Name, err)
		}

		res := grade(sc, fb)
		results = append(results, res)

		color := colorGreen
		if !res.Passed() {
			color = colorRed
		}
		fmt.Printf("%sscore=%d expected=[%d,%d] structured=%t%s\n", color, fb.Score, sc.MinScore, sc.MaxScore, fb.Structured, colorReset)
		for _, issue := range res.Issues {
			fmt.Printf("  - %s\n", issue)
		}
		fmt.Printf("  %s\n\n", fb.Summary)
	}

	passed, total := summarize(results)
	fmt.Printf("==== %d/%d escenarios calibrados ====\n", passed, total)
	if passed != total {
		os.Exit(1)
	}
}
