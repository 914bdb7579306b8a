package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"interview-hub/internal/domain"
	"interview-hub/internal/email"
)

const offlineNotifyTimeout = 15 * time.Second

// EmailNotifier manda un correo "tienes un mensaje nuevo" cuando el mentor no esta conectado.
// Limitado por destinatario; los fallos solo se registran.
type EmailNotifier struct {
	logger   *zap.Logger
	sender   email.Sender
	limiter  RateLimiter
	baseURL  string
	dispatch func(func())
}

func NewEmailNotifier(logger *zap.Logger, sender email.Sender, limiter RateLimiter, baseURL string) *EmailNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailNotifier{
		logger:   logger,
		sender:   sender,
		limiter:  limiter,
		baseURL:  strings.TrimRight(baseURL, "/"),
		dispatch: func(f func()) { go f() },
	}
}

func (n *EmailNotifier) NotifyOffline(msg domain.ChatMessage) {
	if n == nil || n.sender == nil {
		return
	}
	recipient := domain.NormalizeEmail(msg.RecipientEmail)
	if recipient == "" {
		return
	}
	if n.limiter != nil && !n.limiter.Allow(recipient) {
		n.logger.Debug("offline notify throttled", zap.String("recipient", recipient))
		return
	}
	n.dispatch(func() { n.send(recipient, msg) })
}

func (n *EmailNotifier) send(recipient string, msg domain.ChatMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), offlineNotifyTimeout)
	defer cancel()

	preview := msg.Content
	if r := []rune(preview); len(r) > 140 {
		preview = string(r[:140]) + "…"
	}
	link := n.baseURL + "/mentor/chat?room=" + msg.RoomID

	err := n.sender.Send(ctx, email.Message{
		To:      recipient,
		Subject: fmt.Sprintf("New message from %s", msg.SenderEmail),
		Text:    fmt.Sprintf("%s wrote:\n\n%s\n\nReply here: %s\n", msg.SenderEmail, preview, link),
	})
	if err != nil {
		n.logger.Warn("offline notify email failed",
			zap.Bool("delivery_gap", true),
			zap.String("room_id", msg.RoomID),
			zap.String("recipient", recipient),
			zap.Error(err),
		)
	}
}
