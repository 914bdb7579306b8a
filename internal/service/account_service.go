package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"interview-hub/internal/domain"
	"interview-hub/internal/email"
	"interview-hub/internal/repository"
)

const (
	temporaryPasswordLength   = 12
	temporaryPasswordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnpqrstuvwxyz23456789"
)

// AccountService coordina reglas de negocio para usuarios y mentores.
type AccountService struct {
	logger      *zap.Logger
	accounts    repository.AccountRepository
	emailSender email.Sender
	loginURL    string
}

func NewAccountService(logger *zap.Logger, accounts repository.AccountRepository, emailSender email.Sender, loginURL string) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		logger:      logger,
		accounts:    accounts,
		emailSender: emailSender,
		loginURL:    loginURL,
	}
}

type CreateAccountInput struct {
	Email       string
	DisplayName string
	Expertise   []string
}

func (s *AccountService) CreateUser(ctx context.Context, input CreateAccountInput) (domain.Account, error) {
	if s.accounts == nil {
		return domain.Account{}, errors.New("account service not configured")
	}
	account, err := s.newAccount(input, domain.RoleUser)
	if err != nil {
		return domain.Account{}, err
	}
	if err := s.create(ctx, account); err != nil {
		return domain.Account{}, err
	}
	return account, nil
}

// CreateMentor genera una contraseña temporal, guarda su hash y envia las credenciales.
// El envio es best-effort: si falla, la cuenta queda creada y se registra el error.
func (s *AccountService) CreateMentor(ctx context.Context, input CreateAccountInput) (domain.Account, error) {
	if s.accounts == nil {
		return domain.Account{}, errors.New("account service not configured")
	}
	account, err := s.newAccount(input, domain.RoleMentor)
	if err != nil {
		return domain.Account{}, err
	}

	password, err := generateTemporaryPassword()
	if err != nil {
		return domain.Account{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Account{}, err
	}
	account.PasswordHash = string(hash)

	if err := s.create(ctx, account); err != nil {
		return domain.Account{}, err
	}

	if s.emailSender != nil {
		err := s.emailSender.Send(ctx, email.Message{
			To:      account.Email,
			Subject: "Your mentor account",
			Text: fmt.Sprintf(
				"Hi %s,\n\nYour mentor account is ready.\nEmail: %s\nTemporary password: %s\n\nSign in at %s and change it.\n",
				displayNameOrEmail(account), account.Email, password, s.loginURL,
			),
		})
		if err != nil {
			s.logger.Warn("send mentor credentials failed", zap.Error(err), zap.String("email", account.Email))
		}
	}
	return account, nil
}

func (s *AccountService) Authenticate(ctx context.Context, emailAddr, password string) (domain.Account, error) {
	if s.accounts == nil {
		return domain.Account{}, errors.New("account service not configured")
	}

	emailAddr = domain.NormalizeEmail(emailAddr)
	password = strings.TrimSpace(password)
	if emailAddr == "" || password == "" {
		return domain.Account{}, ErrInvalidCredentials
	}
	account, err := s.accounts.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, ErrInvalidCredentials
		}
		return domain.Account{}, err
	}
	if account.PasswordHash == "" {
		return domain.Account{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return domain.Account{}, ErrInvalidCredentials
	}
	return account, nil
}

func (s *AccountService) ListMentors(ctx context.Context) ([]domain.Account, error) {
	if s.accounts == nil {
		return nil, errors.New("account service not configured")
	}
	return s.accounts.ListByRole(ctx, domain.RoleMentor)
}

func (s *AccountService) newAccount(input CreateAccountInput, role string) (domain.Account, error) {
	emailAddr := domain.NormalizeEmail(input.Email)
	if !isValidEmail(emailAddr) {
		return domain.Account{}, ErrInvalidEmail
	}
	expertise := make([]string, 0, len(input.Expertise))
	for _, e := range input.Expertise {
		if e = strings.TrimSpace(e); e != "" {
			expertise = append(expertise, e)
		}
	}
	return domain.Account{
		ID:          uuid.NewString(),
		Email:       emailAddr,
		DisplayName: strings.TrimSpace(input.DisplayName),
		Role:        role,
		Expertise:   expertise,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

func (s *AccountService) create(ctx context.Context, account domain.Account) error {
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

func displayNameOrEmail(a domain.Account) string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.Email
}

func isValidEmail(addr string) bool {
	if addr == "" || strings.ContainsAny(addr, " <>") {
		return false
	}
	parsed, err := mail.ParseAddress(addr)
	return err == nil && parsed.Address == addr && strings.Contains(addr[strings.LastIndex(addr, "@"):], ".")
}

func generateTemporaryPassword() (string, error) {
	out := make([]byte, temporaryPasswordLength)
	max := big.NewInt(int64(len(temporaryPasswordAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = temporaryPasswordAlphabet[n.Int64()]
	}
	return string(out), nil
}
