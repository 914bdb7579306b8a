package domain

import (
	"strings"
	"time"
)

// DirectRoomPrefix marca las salas de mensaje directo; el resto del id identifica a la otra parte.
const DirectRoomPrefix = "dm:"

// ChatMessage es la unidad durable de conversacion. Solo ReadByMentor cambia despues de persistir.
type ChatMessage struct {
	ID             string      `json:"id"`
	RoomID         string      `json:"roomId"`
	SenderEmail    string      `json:"senderEmail"`
	RecipientEmail string      `json:"recipientEmail"`
	Content        string      `json:"content"`
	Attachment     *Attachment `json:"attachment,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	ReadByMentor   bool        `json:"readByMentor"`
}

// Attachment describe un archivo subido y referenciado por un mensaje.
type Attachment struct {
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
	FileType string `json:"fileType"`
	FileURL  string `json:"fileUrl"`
	FileID   string `json:"fileId"`
}

// MentorNotification es el aviso liviano que recibe el canal del mentor.
type MentorNotification struct {
	RoomID      string    `json:"roomId"`
	LastContent string    `json:"lastContent"`
	CreatedAt   time.Time `json:"createdAt"`
	From        string    `json:"from"`
}

// ConversationSummary se deriva del historial; no se persiste.
type ConversationSummary struct {
	RoomID      string    `json:"roomId"`
	OtherEmail  string    `json:"otherEmail"`
	LastContent string    `json:"lastContent"`
	LastAt      time.Time `json:"lastAt"`
	UnreadCount int       `json:"unreadCount"`
}

// NormalizeEmail deja el email en la forma usada como clave de canal.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DirectRoomParty decodifica la otra parte de una sala "dm:<party>".
func DirectRoomParty(roomID string) (string, bool) {
	if !strings.HasPrefix(roomID, DirectRoomPrefix) {
		return "", false
	}
	party := strings.TrimSpace(strings.TrimPrefix(roomID, DirectRoomPrefix))
	if party == "" {
		return "", false
	}
	return party, true
}
