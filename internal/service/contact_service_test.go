package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"interview-hub/internal/domain"
)

type mockContactRepo struct {
	created []domain.ContactSubmission
	err     error
}

func (m *mockContactRepo) Create(_ context.Context, s domain.ContactSubmission) error {
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, s)
	return nil
}

func (m *mockContactRepo) ListRecent(_ context.Context, limit int) ([]domain.ContactSubmission, error) {
	if len(m.created) > limit {
		return m.created[:limit], nil
	}
	return m.created, nil
}

func validContact() ContactInput {
	return ContactInput{
		Name:    "Ana",
		Email:   "Ana@X.com",
		Subject: "Mock interviews",
		Message: "Do you offer system design sessions?",
	}
}

func TestContactSubmit(t *testing.T) {
	repo := &mockContactRepo{}
	sender := &mockEmailSender{}
	svc := NewContactService(zap.NewNop(), repo, sender, nil, "inbox@hub.dev")

	sub, err := svc.Submit(context.Background(), validContact())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sub.Email != "ana@x.com" || sub.ID == "" {
		t.Fatalf("unexpected submission %+v", sub)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected submission persisted")
	}
	if sender.count() != 1 || sender.sent[0].To != "inbox@hub.dev" || !strings.Contains(sender.sent[0].Subject, "Mock interviews") {
		t.Fatalf("expected inbox notification, got %+v", sender.sent)
	}
}

func TestContactValidation(t *testing.T) {
	cases := map[string]func(*ContactInput){
		"missing name":  func(in *ContactInput) { in.Name = " " },
		"bad email":     func(in *ContactInput) { in.Email = "nope" },
		"short message": func(in *ContactInput) { in.Message = "hi" },
		"long message":  func(in *ContactInput) { in.Message = strings.Repeat("a", 5001) },
		"too many links": func(in *ContactInput) {
			in.Message = "see http://a.com https://b.com www.c.com http://d.com"
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			repo := &mockContactRepo{}
			svc := NewContactService(zap.NewNop(), repo, nil, nil, "")
			in := validContact()
			mutate(&in)
			if _, err := svc.Submit(context.Background(), in); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if len(repo.created) != 0 {
				t.Fatalf("expected nothing persisted")
			}
		})
	}
}

func TestContactRateLimited(t *testing.T) {
	svc := NewContactService(zap.NewNop(), &mockContactRepo{}, nil, NewMemoryRateLimiter(10*time.Minute, 3), "")
	for i := 0; i < 3; i++ {
		if _, err := svc.Submit(context.Background(), validContact()); err != nil {
			t.Fatalf("expected submission %d allowed, got %v", i, err)
		}
	}
	if _, err := svc.Submit(context.Background(), validContact()); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestContactStorageAndEmailFailures(t *testing.T) {
	svc := NewContactService(zap.NewNop(), &mockContactRepo{err: errors.New("db down")}, nil, nil, "")
	if _, err := svc.Submit(context.Background(), validContact()); !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}

	svc = NewContactService(zap.NewNop(), &mockContactRepo{}, &mockEmailSender{err: errors.New("smtp")}, nil, "inbox@hub.dev")
	if _, err := svc.Submit(context.Background(), validContact()); err != nil {
		t.Fatalf("expected inbox email to be best-effort, got %v", err)
	}
}
