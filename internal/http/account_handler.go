package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"interview-hub/internal/service"
)

// AccountHandler mantiene dependencias para endpoints de usuarios y mentores.
type AccountHandler struct {
	logger   *zap.Logger
	accounts *service.AccountService
}

func NewAccountHandler(logger *zap.Logger, accounts *service.AccountService) *AccountHandler {
	return &AccountHandler{logger: logger, accounts: accounts}
}

type createAccountRequest struct {
	Email       string   `json:"email" binding:"required"`
	DisplayName string   `json:"displayName"`
	Expertise   []string `json:"expertise"`
}

// CreateUser maneja POST /users.
func (h *AccountHandler) CreateUser(c *gin.Context) {
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid create user request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	account, err := h.accounts.CreateUser(c.Request.Context(), service.CreateAccountInput{
		Email:       req.Email,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		respondError(c, h.logger, "create user", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": account})
}

// CreateMentor maneja POST /mentors.
func (h *AccountHandler) CreateMentor(c *gin.Context) {
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid create mentor request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	account, err := h.accounts.CreateMentor(c.Request.Context(), service.CreateAccountInput{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Expertise:   req.Expertise,
	})
	if err != nil {
		respondError(c, h.logger, "create mentor", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"mentor": account})
}

// ListMentors maneja GET /mentors.
func (h *AccountHandler) ListMentors(c *gin.Context) {
	mentors, err := h.accounts.ListMentors(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "list mentors", err)
		return
	}
	c.JSON(http.StatusOK, mentors)
}

// Login maneja POST /auth/login. Solo valida credenciales; no emite sesiones.
func (h *AccountHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	account, err := h.accounts.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, "login", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": account})
}
