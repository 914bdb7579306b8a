package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"interview-hub/internal/domain"
)

// ChatMessageRepository es el almacen durable de mensajes de chat, agrupados por sala.
type ChatMessageRepository interface {
	Append(ctx context.Context, msg domain.ChatMessage) (domain.ChatMessage, error)
	History(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error)
	MarkRead(ctx context.Context, roomID, recipientEmail string) (int64, error)
	ListForMentor(ctx context.Context, mentorEmail string) ([]domain.ChatMessage, error)
	ListDirectRooms(ctx context.Context) ([]domain.ChatMessage, error)
}

type PgChatMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgChatMessageRepository(pool *pgxpool.Pool) *PgChatMessageRepository {
	return &PgChatMessageRepository{pool: pool}
}

const chatMessageColumns = `id, room_id, sender_email, recipient_email, content, attachment, created_at, read_by_mentor`

// Append inserta el mensaje; seq (BIGSERIAL) desempata created_at iguales por orden de insercion.
func (r *PgChatMessageRepository) Append(ctx context.Context, msg domain.ChatMessage) (domain.ChatMessage, error) {
	const query = `
		INSERT INTO chat_messages (id, room_id, sender_email, recipient_email, content, attachment, created_at, read_by_mentor)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	var attachment []byte
	if msg.Attachment != nil {
		raw, err := json.Marshal(msg.Attachment)
		if err != nil {
			return domain.ChatMessage{}, fmt.Errorf("marshal attachment: %w", err)
		}
		attachment = raw
	}

	_, err := r.pool.Exec(ctx, query,
		msg.ID,
		msg.RoomID,
		msg.SenderEmail,
		msg.RecipientEmail,
		msg.Content,
		attachment,
		msg.CreatedAt,
		msg.ReadByMentor,
	)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	return msg, nil
}

// History devuelve los ultimos limit mensajes de la sala, del mas viejo al mas nuevo.
func (r *PgChatMessageRepository) History(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error) {
	const query = `
		SELECT ` + chatMessageColumns + `
		FROM (
			SELECT ` + chatMessageColumns + `, seq
			FROM chat_messages
			WHERE room_id = $1
			ORDER BY created_at DESC, seq DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC, seq ASC
	`
	return r.query(ctx, query, roomID, limit)
}

// MarkRead marca como leidos los mensajes de la sala dirigidos al destinatario. Idempotente.
func (r *PgChatMessageRepository) MarkRead(ctx context.Context, roomID, recipientEmail string) (int64, error) {
	const query = `
		UPDATE chat_messages
		SET read_by_mentor = TRUE
		WHERE room_id = $1
		  AND lower(recipient_email) = $2
		  AND read_by_mentor = FALSE
	`
	tag, err := r.pool.Exec(ctx, query, roomID, domain.NormalizeEmail(recipientEmail))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PgChatMessageRepository) ListForMentor(ctx context.Context, mentorEmail string) ([]domain.ChatMessage, error) {
	const query = `
		SELECT ` + chatMessageColumns + `
		FROM chat_messages
		WHERE lower(sender_email) = $1 OR lower(recipient_email) = $1
		ORDER BY created_at ASC, seq ASC
	`
	return r.query(ctx, query, domain.NormalizeEmail(mentorEmail))
}

func (r *PgChatMessageRepository) ListDirectRooms(ctx context.Context) ([]domain.ChatMessage, error) {
	const query = `
		SELECT ` + chatMessageColumns + `
		FROM chat_messages
		WHERE room_id LIKE $1
		ORDER BY created_at ASC, seq ASC
	`
	return r.query(ctx, query, domain.DirectRoomPrefix+"%")
}

func (r *PgChatMessageRepository) query(ctx context.Context, query string, args ...any) ([]domain.ChatMessage, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]domain.ChatMessage, 0)
	for rows.Next() {
		var msg domain.ChatMessage
		var attachment []byte

		err = rows.Scan(
			&msg.ID,
			&msg.RoomID,
			&msg.SenderEmail,
			&msg.RecipientEmail,
			&msg.Content,
			&attachment,
			&msg.CreatedAt,
			&msg.ReadByMentor,
		)
		if err != nil {
			return nil, err
		}
		if len(attachment) > 0 {
			var a domain.Attachment
			if err := json.Unmarshal(attachment, &a); err != nil {
				return nil, fmt.Errorf("decode attachment for message %s: %w", msg.ID, err)
			}
			msg.Attachment = &a
		}
		messages = append(messages, msg)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}
