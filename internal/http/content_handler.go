package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"interview-hub/internal/service"
)

// ContentHandler agrupa contacto, banco de preguntas y feedback del LLM.
type ContentHandler struct {
	logger    *zap.Logger
	contacts  *service.ContactService
	questions *service.QuestionService
	feedback  *service.FeedbackService
}

func NewContentHandler(
	logger *zap.Logger,
	contacts *service.ContactService,
	questions *service.QuestionService,
	feedback *service.FeedbackService,
) *ContentHandler {
	return &ContentHandler{
		logger:    logger,
		contacts:  contacts,
		questions: questions,
		feedback:  feedback,
	}
}

// SubmitContact maneja POST /contact.
func (h *ContentHandler) SubmitContact(c *gin.Context) {
	var req struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Subject string `json:"subject"`
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	sub, err := h.contacts.Submit(c.Request.Context(), service.ContactInput{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		respondError(c, h.logger, "submit contact", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "id": sub.ID})
}

// ListContacts maneja GET /contact?limit=N.
func (h *ContentHandler) ListContacts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	subs, err := h.contacts.ListRecent(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.logger, "list contacts", err)
		return
	}
	c.JSON(http.StatusOK, subs)
}

type questionRequest struct {
	Title      string   `json:"title"`
	Body       string   `json:"body"`
	Category   string   `json:"category"`
	Difficulty string   `json:"difficulty"`
	Tags       []string `json:"tags"`
}

func (r questionRequest) input() service.QuestionInput {
	return service.QuestionInput{
		Title:      r.Title,
		Body:       r.Body,
		Category:   r.Category,
		Difficulty: r.Difficulty,
		Tags:       r.Tags,
	}
}

// CreateQuestion maneja POST /questions.
func (h *ContentHandler) CreateQuestion(c *gin.Context) {
	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	q, err := h.questions.Create(c.Request.Context(), req.input())
	if err != nil {
		respondError(c, h.logger, "create question", err)
		return
	}
	c.JSON(http.StatusCreated, q)
}

// ListQuestions maneja GET /questions?category=&difficulty=.
func (h *ContentHandler) ListQuestions(c *gin.Context) {
	list, err := h.questions.List(c.Request.Context(), c.Query("category"), c.Query("difficulty"))
	if err != nil {
		respondError(c, h.logger, "list questions", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *ContentHandler) GetQuestion(c *gin.Context) {
	q, err := h.questions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "get question", err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (h *ContentHandler) UpdateQuestion(c *gin.Context) {
	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	q, err := h.questions.Update(c.Request.Context(), c.Param("id"), req.input())
	if err != nil {
		respondError(c, h.logger, "update question", err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (h *ContentHandler) DeleteQuestion(c *gin.Context) {
	if err := h.questions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, "delete question", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SimilarQuestions maneja GET /questions/:id/similar?k=N.
func (h *ContentHandler) SimilarQuestions(c *gin.Context) {
	k, _ := strconv.Atoi(c.Query("k"))
	list, err := h.questions.Similar(c.Request.Context(), c.Param("id"), k)
	if err != nil {
		respondError(c, h.logger, "similar questions", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Evaluate maneja POST /feedback.
func (h *ContentHandler) Evaluate(c *gin.Context) {
	var req struct {
		QuestionID string `json:"questionId"`
		Question   string `json:"question"`
		Answer     string `json:"answer"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	fb, err := h.feedback.Evaluate(c.Request.Context(), service.FeedbackInput{
		QuestionID: req.QuestionID,
		Question:   req.Question,
		Answer:     req.Answer,
	})
	if err != nil {
		respondError(c, h.logger, "evaluate answer", err)
		return
	}
	c.JSON(http.StatusOK, fb)
}
