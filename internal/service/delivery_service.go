package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"interview-hub/internal/domain"
	"interview-hub/internal/metrics"
	"interview-hub/internal/realtime"
	"interview-hub/internal/repository"
)

// DeliveryState es la etapa alcanzada por un mensaje dentro del pipeline.
type DeliveryState string

const (
	StateReceived     DeliveryState = "received"
	StateValidated    DeliveryState = "validated"
	StatePersisted    DeliveryState = "persisted"
	StateBroadcast    DeliveryState = "broadcast"
	StateNotifyMentor DeliveryState = "notify_mentor"
	StateDone         DeliveryState = "done"
	StateNotifyFailed DeliveryState = "notify_failed"
)

// DeliveryPath identifica el canal de entrada del mensaje.
type DeliveryPath string

const (
	PathLive DeliveryPath = "live"
	PathHTTP DeliveryPath = "http"
)

// Broadcaster es la parte del Router que usa el pipeline.
type Broadcaster interface {
	BroadcastToRoom(roomID string, evt realtime.Event) realtime.Fanout
	NotifyMentor(mentorEmail string, evt realtime.Event) realtime.Fanout
}

// OfflineNotifier avisa por otro medio cuando nadie observa el canal del destinatario.
// No debe bloquear.
type OfflineNotifier interface {
	NotifyOffline(msg domain.ChatMessage)
}

type SendInput struct {
	RoomID         string
	Content        string
	SenderEmail    string
	RecipientEmail string
	Attachment     *domain.Attachment
}

// Receipt resume una entrega: el mensaje persistido, la etapa final y los fanouts.
type Receipt struct {
	Message domain.ChatMessage
	State   DeliveryState
	Room    realtime.Fanout
	Mentor  realtime.Fanout
}

// DeliveryService ordena persistir, difundir a la sala y avisar al mentor.
type DeliveryService struct {
	logger      *zap.Logger
	messages    repository.ChatMessageRepository
	broadcaster Broadcaster
	offline     OfflineNotifier
	metrics     *metrics.Metrics
	rooms       *roomSequencer
	now         func() time.Time
}

func NewDeliveryService(logger *zap.Logger, messages repository.ChatMessageRepository, broadcaster Broadcaster, offline OfflineNotifier, m *metrics.Metrics) *DeliveryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeliveryService{
		logger:      logger,
		messages:    messages,
		broadcaster: broadcaster,
		offline:     offline,
		metrics:     m,
		rooms:       newRoomSequencer(),
		now:         time.Now,
	}
}

// Deliver corre el pipeline completo. Los errores posibles son ErrValidation y ErrStorage;
// un fallo de entrega en vivo nunca es error, solo queda en el Receipt y en el log.
func (s *DeliveryService) Deliver(ctx context.Context, path DeliveryPath, in SendInput) (Receipt, error) {
	receipt := Receipt{State: StateReceived}
	if s.messages == nil {
		return receipt, errors.New("delivery service not configured")
	}

	msg, err := s.validate(in)
	if err != nil {
		return receipt, err
	}
	receipt.State = StateValidated

	stored, room, err := s.persistAndBroadcast(ctx, msg)
	if err != nil {
		s.metrics.DeliveryFailed("persist")
		s.logger.Error("persist chat message failed",
			zap.String("path", string(path)),
			zap.String("room_id", msg.RoomID),
			zap.String("sender", msg.SenderEmail),
			zap.Error(err),
		)
		return receipt, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	receipt.Message = stored
	receipt.Room = room
	receipt.State = StatePersisted
	s.metrics.MessagePersisted(string(path))

	receipt.State = StateBroadcast
	if receipt.Room.Failed > 0 {
		s.metrics.DeliveryFailed("broadcast")
		s.logGap(stored, "room broadcast skipped subscribers", receipt.Room)
	}

	receipt.State = StateNotifyMentor
	if s.broadcaster != nil {
		receipt.Mentor = s.broadcaster.NotifyMentor(stored.RecipientEmail, realtime.Event{
			Name: realtime.EventNotify,
			Data: domain.MentorNotification{
				RoomID:      stored.RoomID,
				LastContent: stored.Content,
				CreatedAt:   stored.CreatedAt,
				From:        stored.SenderEmail,
			},
		})
	}
	if receipt.Mentor.Failed > 0 {
		receipt.State = StateNotifyFailed
		s.metrics.DeliveryFailed("notify")
		s.logGap(stored, "mentor notify failed", receipt.Mentor)
		return receipt, nil
	}
	if receipt.Mentor.Delivered == 0 && s.offline != nil {
		s.offline.NotifyOffline(stored)
	}

	receipt.State = StateDone
	return receipt, nil
}

// persistAndBroadcast corre bajo el lock de la sala; el unlock va en defer para que un
// panic del store o de un suscriptor no deje la sala bloqueada.
func (s *DeliveryService) persistAndBroadcast(ctx context.Context, msg domain.ChatMessage) (domain.ChatMessage, realtime.Fanout, error) {
	now := s.now()
	slot := s.rooms.acquire(msg.RoomID, now)
	defer s.rooms.release(slot)

	msg.CreatedAt = slot.next(now)
	stored, err := s.messages.Append(ctx, msg)
	if err != nil {
		return domain.ChatMessage{}, realtime.Fanout{}, err
	}
	slot.commit(stored.CreatedAt)

	var room realtime.Fanout
	if s.broadcaster != nil {
		room = s.broadcaster.BroadcastToRoom(stored.RoomID, realtime.Event{Name: realtime.EventMessage, Data: stored})
	}
	return stored, room, nil
}

func (s *DeliveryService) validate(in SendInput) (domain.ChatMessage, error) {
	roomID := strings.TrimSpace(in.RoomID)
	sender := strings.TrimSpace(in.SenderEmail)
	recipient := strings.TrimSpace(in.RecipientEmail)
	content := strings.TrimSpace(in.Content)

	var missing []string
	if roomID == "" {
		missing = append(missing, "roomId")
	}
	if content == "" && in.Attachment == nil {
		missing = append(missing, "content")
	}
	if sender == "" {
		missing = append(missing, "senderEmail")
	}
	if recipient == "" {
		missing = append(missing, "recipientEmail")
	}
	if len(missing) > 0 {
		return domain.ChatMessage{}, fmt.Errorf("%w: missing %s", ErrValidation, strings.Join(missing, ", "))
	}

	return domain.ChatMessage{
		ID:             uuid.NewString(),
		RoomID:         roomID,
		SenderEmail:    sender,
		RecipientEmail: recipient,
		Content:        content,
		Attachment:     in.Attachment,
		ReadByMentor:   false,
	}, nil
}

func (s *DeliveryService) logGap(msg domain.ChatMessage, reason string, out realtime.Fanout) {
	s.logger.Warn(reason,
		zap.Bool("delivery_gap", true),
		zap.String("room_id", msg.RoomID),
		zap.String("message_id", msg.ID),
		zap.String("recipient", msg.RecipientEmail),
		zap.Int("delivered", out.Delivered),
		zap.Int("failed", out.Failed),
	)
}

// slotIdle: un slot sin uso durante este tiempo se descarta. Al recrearlo, next parte del
// reloj actual, que ya supera al ultimo createdAt de la sala salvo un salto atras del reloj
// mayor a slotIdle. La memoria queda acotada por las salas activas en la ultima ventana.
const slotIdle = time.Minute

// roomSequencer serializa persistir+difundir por sala y mantiene createdAt
// estrictamente creciente dentro de cada sala.
type roomSequencer struct {
	mu        sync.Mutex
	slots     map[string]*roomSlot
	lastSweep time.Time
}

type roomSlot struct {
	mu   sync.Mutex
	last time.Time
	// refs cuenta quien tiene o espera el slot; se protege con roomSequencer.mu.
	refs int
}

func newRoomSequencer() *roomSequencer {
	return &roomSequencer{slots: make(map[string]*roomSlot)}
}

// acquire devuelve el slot de la sala ya bloqueado. Cada slotIdle barre los slots ociosos.
func (q *roomSequencer) acquire(roomID string, now time.Time) *roomSlot {
	q.mu.Lock()
	if now.Sub(q.lastSweep) >= slotIdle {
		q.sweepLocked(now)
	}
	slot, ok := q.slots[roomID]
	if !ok {
		slot = &roomSlot{}
		q.slots[roomID] = slot
	}
	slot.refs++
	q.mu.Unlock()

	slot.mu.Lock()
	return slot
}

func (q *roomSequencer) release(slot *roomSlot) {
	slot.mu.Unlock()
	q.mu.Lock()
	slot.refs--
	q.mu.Unlock()
}

// sweepLocked requiere q.mu. Un slot con refs == 0 no tiene duenio ni espera, asi que
// leer last es seguro.
func (q *roomSequencer) sweepLocked(now time.Time) {
	q.lastSweep = now
	cutoff := now.Add(-slotIdle)
	for id, slot := range q.slots {
		if slot.refs == 0 && slot.last.Before(cutoff) {
			delete(q.slots, id)
		}
	}
}

func (q *roomSequencer) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.slots)
}

// next trunca a microsegundos (precision de timestamptz) y avanza si no supera al anterior.
func (s *roomSlot) next(now time.Time) time.Time {
	ts := now.UTC().Truncate(time.Microsecond)
	if !ts.After(s.last) {
		ts = s.last.Add(time.Microsecond)
	}
	return ts
}

func (s *roomSlot) commit(ts time.Time) {
	if ts.After(s.last) {
		s.last = ts
	}
}
