package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"interview-hub/internal/config"
	"interview-hub/internal/db"
	"interview-hub/internal/email"
	apihttp "interview-hub/internal/http"
	"interview-hub/internal/llm"
	"interview-hub/internal/metrics"
	"interview-hub/internal/realtime"
	"interview-hub/internal/repository"
	"interview-hub/internal/service"
	"interview-hub/internal/storage"
	"interview-hub/internal/ws"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	chatRepo := repository.NewPgChatMessageRepository(pool)
	accountRepo := repository.NewPgAccountRepository(pool)
	contactRepo := repository.NewPgContactRepository(pool)
	questionRepo := repository.NewPgQuestionRepository(pool)

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := client.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory rate limits", zap.Error(err))
			_ = client.Close()
		} else {
			redisClient = client
			defer redisClient.Close()
		}
		cancel()
	}
	contactLimiter := service.NewRateLimiter(redisClient, "contact:rl:", 10*time.Minute, 3)
	notifyLimiter := service.NewRateLimiter(redisClient, "chatnotify:rl:", 15*time.Minute, 1)

	store, err := storage.NewLocalStore(cfg.UploadDir, "/uploads")
	if err != nil {
		logger.Fatal("upload dir", zap.Error(err))
	}

	llmClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMEmbeddingModel, logger)
	m := metrics.New()
	router := realtime.NewRouter(logger)
	m.ObserveRouter(router.Stats)

	var offline service.OfflineNotifier
	if cfg.ChatEmailNotify {
		offline = service.NewEmailNotifier(logger, emailSender, notifyLimiter, cfg.PublicBaseURL)
	}

	deliverySvc := service.NewDeliveryService(logger, chatRepo, router, offline, m)
	conversationSvc := service.NewConversationService(chatRepo)
	attachmentSvc := service.NewAttachmentService(logger, store, deliverySvc, m, cfg.UploadMaxBytes)
	accountSvc := service.NewAccountService(logger, accountRepo, emailSender, cfg.PublicBaseURL+"/login")
	contactSvc := service.NewContactService(logger, contactRepo, emailSender, contactLimiter, cfg.ContactInbox)
	questionSvc := service.NewQuestionService(logger, questionRepo, llmClient)
	feedbackSvc := service.NewFeedbackService(logger, llmClient, questionSvc)

	liveHandler := ws.NewHandler(logger, router, deliverySvc, m, ws.Options{
		MessagesPerSecond: cfg.WSMessagesPerSec,
		Burst:             cfg.WSBurst,
	})

	engine := apihttp.NewRouter(logger, apihttp.Handlers{
		Chat:       apihttp.NewChatHandler(logger, deliverySvc, conversationSvc, attachmentSvc),
		Accounts:   apihttp.NewAccountHandler(logger, accountSvc),
		Content:    apihttp.NewContentHandler(logger, contactSvc, questionSvc, feedbackSvc),
		Live:       liveHandler,
		Metrics:    m.Handler(),
		UploadsDir: store.Dir(),
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}
