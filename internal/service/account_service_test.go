package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"interview-hub/internal/domain"
	"interview-hub/internal/repository"
)

type mockAccountRepo struct {
	byEmail map[string]domain.Account
}

func newMockAccountRepo() *mockAccountRepo {
	return &mockAccountRepo{byEmail: make(map[string]domain.Account)}
}

func (m *mockAccountRepo) Create(_ context.Context, a domain.Account) error {
	if _, ok := m.byEmail[a.Email]; ok {
		return repository.ErrDuplicate
	}
	m.byEmail[a.Email] = a
	return nil
}

func (m *mockAccountRepo) GetByEmail(_ context.Context, email string) (domain.Account, error) {
	a, ok := m.byEmail[email]
	if !ok {
		return domain.Account{}, pgx.ErrNoRows
	}
	return a, nil
}

func (m *mockAccountRepo) ListByRole(_ context.Context, role string) ([]domain.Account, error) {
	var out []domain.Account
	for _, a := range m.byEmail {
		if a.Role == role {
			out = append(out, a)
		}
	}
	return out, nil
}

func TestCreateUser(t *testing.T) {
	svc := NewAccountService(zap.NewNop(), newMockAccountRepo(), nil, "")

	a, err := svc.CreateUser(context.Background(), CreateAccountInput{Email: " Ana@X.com ", DisplayName: " Ana "})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if a.Email != "ana@x.com" || a.DisplayName != "Ana" || a.Role != domain.RoleUser || a.ID == "" {
		t.Fatalf("unexpected account %+v", a)
	}

	if _, err := svc.CreateUser(context.Background(), CreateAccountInput{Email: "ana@x.com"}); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	for _, bad := range []string{"", "ana", "ana@", "ana@x", "Ana <ana@x.com>"} {
		if _, err := svc.CreateUser(context.Background(), CreateAccountInput{Email: bad}); !errors.Is(err, ErrInvalidEmail) {
			t.Fatalf("expected ErrInvalidEmail for %q, got %v", bad, err)
		}
	}
}

func TestCreateMentorSendsCredentials(t *testing.T) {
	repo := newMockAccountRepo()
	sender := &mockEmailSender{}
	svc := NewAccountService(zap.NewNop(), repo, sender, "https://hub.dev/login")

	a, err := svc.CreateMentor(context.Background(), CreateAccountInput{
		Email:       "mentor@y.com",
		DisplayName: "Marta",
		Expertise:   []string{" go ", "", "system design"},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if a.Role != domain.RoleMentor || len(a.Expertise) != 2 {
		t.Fatalf("unexpected mentor %+v", a)
	}
	if sender.count() != 1 {
		t.Fatalf("expected credentials email")
	}

	body := sender.sent[0].Text
	idx := strings.Index(body, "Temporary password: ")
	if idx < 0 {
		t.Fatalf("expected password in email, got %q", body)
	}
	password := body[idx+len("Temporary password: ") : idx+len("Temporary password: ")+temporaryPasswordLength]

	stored := repo.byEmail["mentor@y.com"]
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(password)); err != nil {
		t.Fatalf("expected stored hash to match emailed password")
	}

	got, err := svc.Authenticate(context.Background(), "MENTOR@y.com", password)
	if err != nil || got.Email != "mentor@y.com" {
		t.Fatalf("expected authentication to succeed, got %v", err)
	}
}

func TestCreateMentorEmailFailureStillCreates(t *testing.T) {
	repo := newMockAccountRepo()
	svc := NewAccountService(zap.NewNop(), repo, &mockEmailSender{err: errors.New("smtp down")}, "")
	if _, err := svc.CreateMentor(context.Background(), CreateAccountInput{Email: "m@y.com"}); err != nil {
		t.Fatalf("expected best-effort email, got %v", err)
	}
	if _, ok := repo.byEmail["m@y.com"]; !ok {
		t.Fatalf("expected mentor persisted")
	}
}

func TestAuthenticateRejects(t *testing.T) {
	repo := newMockAccountRepo()
	svc := NewAccountService(zap.NewNop(), repo, nil, "")
	_, _ = svc.CreateUser(context.Background(), CreateAccountInput{Email: "nopass@x.com"})
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	repo.byEmail["m@y.com"] = domain.Account{Email: "m@y.com", Role: domain.RoleMentor, PasswordHash: string(hash)}

	cases := []struct{ email, password string }{
		{"", "x"},
		{"m@y.com", ""},
		{"unknown@y.com", "secret123"},
		{"nopass@x.com", "anything"},
		{"m@y.com", "wrong"},
	}
	for _, tc := range cases {
		if _, err := svc.Authenticate(context.Background(), tc.email, tc.password); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials for %+v, got %v", tc, err)
		}
	}

	mentors, _ := svc.ListMentors(context.Background())
	if len(mentors) != 1 {
		t.Fatalf("expected 1 mentor, got %d", len(mentors))
	}
}

func TestGenerateTemporaryPassword(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		p, err := generateTemporaryPassword()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(p) != temporaryPasswordLength {
			t.Fatalf("unexpected length %d", len(p))
		}
		if seen[p] {
			t.Fatalf("expected random passwords")
		}
		seen[p] = true
	}
}
