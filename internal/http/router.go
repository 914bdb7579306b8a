package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers agrupa lo que el router necesita montar.
type Handlers struct {
	Chat       *ChatHandler
	Accounts   *AccountHandler
	Content    *ContentHandler
	Live       http.Handler
	Metrics    http.Handler
	UploadsDir string
}

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(logger *zap.Logger, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(zapLoggerMiddleware(logger), gin.Recovery())

	// Respuestas no JSON: websocket, adjuntos estaticos y metricas.
	if h.Live != nil {
		r.GET("/ws", gin.WrapH(h.Live))
	}
	if h.UploadsDir != "" {
		r.Static("/uploads", h.UploadsDir)
	}
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics))
	}

	api := r.Group("", jsonContentTypeMiddleware())
	api.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if h.Chat != nil {
		api.GET("/history/:roomId", h.Chat.GetHistory)
		api.POST("/send", h.Chat.SendMessage)
		api.POST("/upload", h.Chat.Upload)
		api.GET("/conversations", h.Chat.ListConversations)
		api.POST("/read", h.Chat.MarkRead)
	}

	if h.Accounts != nil {
		api.POST("/users", h.Accounts.CreateUser)
		api.POST("/mentors", h.Accounts.CreateMentor)
		api.GET("/mentors", h.Accounts.ListMentors)
		api.POST("/auth/login", h.Accounts.Login)
	}

	if h.Content != nil {
		api.POST("/contact", h.Content.SubmitContact)
		api.GET("/contact", h.Content.ListContacts)

		questions := api.Group("/questions")
		questions.POST("", h.Content.CreateQuestion)
		questions.GET("", h.Content.ListQuestions)
		questions.GET("/:id", h.Content.GetQuestion)
		questions.PUT("/:id", h.Content.UpdateQuestion)
		questions.DELETE("/:id", h.Content.DeleteQuestion)
		questions.GET("/:id/similar", h.Content.SimilarQuestions)

		api.POST("/feedback", h.Content.Evaluate)
	}

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
