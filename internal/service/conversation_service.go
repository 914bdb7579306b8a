package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"interview-hub/internal/domain"
	"interview-hub/internal/repository"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

// ClampHistoryLimit deja el limite en [1, MaxHistoryLimit].
func ClampHistoryLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}

// ConversationService cubre las lecturas del chat: historial, marcado de leidos e indice de conversaciones.
type ConversationService struct {
	messages repository.ChatMessageRepository
}

func NewConversationService(messages repository.ChatMessageRepository) *ConversationService {
	return &ConversationService{messages: messages}
}

func (s *ConversationService) History(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error) {
	if s.messages == nil {
		return nil, errors.New("conversation service not configured")
	}
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return nil, fmt.Errorf("%w: missing roomId", ErrValidation)
	}
	msgs, err := s.messages.History(ctx, roomID, ClampHistoryLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return msgs, nil
}

// MarkRead devuelve cuantas filas cambiaron; una segunda llamada devuelve 0.
func (s *ConversationService) MarkRead(ctx context.Context, roomID, mentorEmail string) (int64, error) {
	if s.messages == nil {
		return 0, errors.New("conversation service not configured")
	}
	roomID = strings.TrimSpace(roomID)
	mentor := domain.NormalizeEmail(mentorEmail)
	if roomID == "" || mentor == "" {
		return 0, fmt.Errorf("%w: roomId and mentorEmail are required", ErrValidation)
	}
	n, err := s.messages.MarkRead(ctx, roomID, mentor)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return n, nil
}

// ListConversations resume la ultima actividad por sala, ordenada por lastAt descendente.
// Con mentorEmail agrupa las salas donde participa; sin el, lista las salas directas.
func (s *ConversationService) ListConversations(ctx context.Context, mentorEmail string) ([]domain.ConversationSummary, error) {
	if s.messages == nil {
		return nil, errors.New("conversation service not configured")
	}
	mentor := domain.NormalizeEmail(mentorEmail)

	var (
		rows []domain.ChatMessage
		err  error
	)
	if mentor != "" {
		rows, err = s.messages.ListForMentor(ctx, mentor)
	} else {
		rows, err = s.messages.ListDirectRooms(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return summarize(rows, mentor), nil
}

func summarize(rows []domain.ChatMessage, mentor string) []domain.ConversationSummary {
	byRoom := make(map[string]*domain.ConversationSummary)
	for _, m := range rows {
		sum, ok := byRoom[m.RoomID]
		if !ok {
			sum = &domain.ConversationSummary{RoomID: m.RoomID}
			if party, isDirect := domain.DirectRoomParty(m.RoomID); isDirect && mentor == "" {
				sum.OtherEmail = party
			}
			byRoom[m.RoomID] = sum
		}

		if !m.CreatedAt.Before(sum.LastAt) {
			sum.LastAt = m.CreatedAt
			sum.LastContent = m.Content
			if mentor != "" {
				sum.OtherEmail = otherParty(m, mentor)
			}
		}

		if !m.ReadByMentor && addressedToMentor(m, mentor, sum.OtherEmail) {
			sum.UnreadCount++
		}
	}

	out := make([]domain.ConversationSummary, 0, len(byRoom))
	for _, sum := range byRoom {
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastAt.Equal(out[j].LastAt) {
			return out[i].RoomID < out[j].RoomID
		}
		return out[i].LastAt.After(out[j].LastAt)
	})
	return out
}

func otherParty(m domain.ChatMessage, mentor string) string {
	if domain.NormalizeEmail(m.SenderEmail) != mentor {
		return m.SenderEmail
	}
	if domain.NormalizeEmail(m.RecipientEmail) != mentor {
		return m.RecipientEmail
	}
	return m.SenderEmail
}

// addressedToMentor: con mentor conocido compara el destinatario; en salas directas sin
// mentor cuenta lo que envio la otra parte (email completo o su parte local).
func addressedToMentor(m domain.ChatMessage, mentor, party string) bool {
	if mentor != "" {
		return domain.NormalizeEmail(m.RecipientEmail) == mentor
	}
	return partyMatches(m.SenderEmail, party)
}

func partyMatches(email, party string) bool {
	email = domain.NormalizeEmail(email)
	party = domain.NormalizeEmail(party)
	if email == "" || party == "" {
		return false
	}
	if email == party {
		return true
	}
	local, _, found := strings.Cut(email, "@")
	return found && local == party
}
