package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"interview-hub/internal/service"
)

const (
	// multipartOverhead deja margen para los campos de texto y los boundaries del form.
	multipartOverhead = 1 << 20
	deliverTimeout    = 10 * time.Second
)

// ChatHandler expone el camino HTTP del chat: historial, envio, adjuntos e indice.
type ChatHandler struct {
	logger        *zap.Logger
	delivery      *service.DeliveryService
	conversations *service.ConversationService
	attachments   *service.AttachmentService
}

func NewChatHandler(
	logger *zap.Logger,
	delivery *service.DeliveryService,
	conversations *service.ConversationService,
	attachments *service.AttachmentService,
) *ChatHandler {
	return &ChatHandler{
		logger:        logger,
		delivery:      delivery,
		conversations: conversations,
		attachments:   attachments,
	}
}

// GetHistory maneja GET /history/:roomId?limit=N.
func (h *ChatHandler) GetHistory(c *gin.Context) {
	limit := service.DefaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	msgs, err := h.conversations.History(c.Request.Context(), c.Param("roomId"), limit)
	if err != nil {
		respondError(c, h.logger, "load history", err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// SendMessage maneja POST /send.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req struct {
		RoomID         string `json:"roomId"`
		Content        string `json:"content"`
		SenderEmail    string `json:"senderEmail"`
		RecipientEmail string `json:"recipientEmail"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid send request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ctx, cancel := detachedContext(c)
	defer cancel()

	receipt, err := h.delivery.Deliver(ctx, service.PathHTTP, service.SendInput{
		RoomID:         req.RoomID,
		Content:        req.Content,
		SenderEmail:    req.SenderEmail,
		RecipientEmail: req.RecipientEmail,
	})
	if err != nil {
		respondError(c, h.logger, "send message", err)
		return
	}
	c.JSON(http.StatusCreated, receipt.Message)
}

// Upload maneja POST /upload (multipart: file, roomId, senderEmail, recipientEmail, content).
func (h *ChatHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.attachments.MaxBytes()+multipartOverhead)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	file, err := header.Open()
	if err != nil {
		h.logger.Error("open upload failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	defer file.Close()

	ctx, cancel := detachedContext(c)
	defer cancel()

	res, err := h.attachments.Upload(ctx, service.UploadInput{
		RoomID:         c.PostForm("roomId"),
		SenderEmail:    c.PostForm("senderEmail"),
		RecipientEmail: c.PostForm("recipientEmail"),
		Content:        c.PostForm("content"),
		FileName:       header.Filename,
		DeclaredType:   header.Header.Get("Content-Type"),
		Size:           header.Size,
		File:           file,
	})
	if err != nil {
		respondError(c, h.logger, "upload attachment", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"messageId": res.MessageID,
		"fileUrl":   res.FileURL,
		"fileId":    res.FileID,
	})
}

// ListConversations maneja GET /conversations?mentorEmail=E.
func (h *ChatHandler) ListConversations(c *gin.Context) {
	list, err := h.conversations.ListConversations(c.Request.Context(), c.Query("mentorEmail"))
	if err != nil {
		respondError(c, h.logger, "list conversations", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// MarkRead maneja POST /read.
func (h *ChatHandler) MarkRead(c *gin.Context) {
	var req struct {
		RoomID      string `json:"roomId"`
		MentorEmail string `json:"mentorEmail"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	updated, err := h.conversations.MarkRead(c.Request.Context(), req.RoomID, req.MentorEmail)
	if err != nil {
		respondError(c, h.logger, "mark read", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "updated": updated})
}

// detachedContext: si el cliente corta la conexion, la escritura en curso igual termina.
func detachedContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(c.Request.Context()), deliverTimeout)
}
