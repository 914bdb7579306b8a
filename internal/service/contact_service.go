package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"interview-hub/internal/domain"
	"interview-hub/internal/email"
	"interview-hub/internal/repository"
)

const (
	contactMinMessage = 10
	contactMaxMessage = 5000
	contactMaxLinks   = 3
	contactMaxName    = 120
	contactMaxSubject = 200
)

var linkPattern = regexp.MustCompile(`(?i)(https?://|www\.)`)

type ContactInput struct {
	Name    string
	Email   string
	Subject string
	Message string
}

// ContactService recibe el formulario publico de contacto y avisa al buzon configurado.
type ContactService struct {
	logger   *zap.Logger
	contacts repository.ContactRepository
	sender   email.Sender
	limiter  RateLimiter
	inbox    string
}

func NewContactService(logger *zap.Logger, contacts repository.ContactRepository, sender email.Sender, limiter RateLimiter, inbox string) *ContactService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limiter == nil {
		limiter = NewMemoryRateLimiter(10*time.Minute, 3)
	}
	return &ContactService{
		logger:   logger,
		contacts: contacts,
		sender:   sender,
		limiter:  limiter,
		inbox:    strings.TrimSpace(inbox),
	}
}

func (s *ContactService) Submit(ctx context.Context, input ContactInput) (domain.ContactSubmission, error) {
	if s.contacts == nil {
		return domain.ContactSubmission{}, errors.New("contact service not configured")
	}

	sub := domain.ContactSubmission{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(input.Name),
		Email:     domain.NormalizeEmail(input.Email),
		Subject:   strings.TrimSpace(input.Subject),
		Message:   strings.TrimSpace(input.Message),
		CreatedAt: time.Now().UTC(),
	}
	if err := validateContact(sub); err != nil {
		return domain.ContactSubmission{}, err
	}
	if !s.limiter.Allow(sub.Email) {
		return domain.ContactSubmission{}, ErrRateLimited
	}

	if err := s.contacts.Create(ctx, sub); err != nil {
		return domain.ContactSubmission{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	if s.sender != nil && s.inbox != "" {
		subject := sub.Subject
		if subject == "" {
			subject = "(no subject)"
		}
		err := s.sender.Send(ctx, email.Message{
			To:      s.inbox,
			Subject: "Contact form: " + subject,
			Text:    fmt.Sprintf("From: %s <%s>\n\n%s\n", sub.Name, sub.Email, sub.Message),
		})
		if err != nil {
			s.logger.Warn("contact inbox email failed", zap.Error(err), zap.String("contact_id", sub.ID))
		}
	}
	return sub, nil
}

func (s *ContactService) ListRecent(ctx context.Context, limit int) ([]domain.ContactSubmission, error) {
	if s.contacts == nil {
		return nil, errors.New("contact service not configured")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.contacts.ListRecent(ctx, limit)
}

func validateContact(sub domain.ContactSubmission) error {
	switch {
	case sub.Name == "":
		return fmt.Errorf("%w: name is required", ErrValidation)
	case utf8.RuneCountInString(sub.Name) > contactMaxName:
		return fmt.Errorf("%w: name is too long", ErrValidation)
	case !isValidEmail(sub.Email):
		return fmt.Errorf("%w: invalid email", ErrValidation)
	case utf8.RuneCountInString(sub.Subject) > contactMaxSubject:
		return fmt.Errorf("%w: subject is too long", ErrValidation)
	}

	n := utf8.RuneCountInString(sub.Message)
	if n < contactMinMessage || n > contactMaxMessage {
		return fmt.Errorf("%w: message must be between %d and %d characters", ErrValidation, contactMinMessage, contactMaxMessage)
	}
	if len(linkPattern.FindAllStringIndex(sub.Message, -1)) > contactMaxLinks {
		return fmt.Errorf("%w: too many links", ErrValidation)
	}
	return nil
}
