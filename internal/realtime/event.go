package realtime

import "errors"

// Nombres de eventos del canal en vivo.
const (
	EventJoin     = "join"
	EventJoined   = "joined"
	EventWatch    = "watch"
	EventWatching = "watching"
	EventLeave    = "leave"
	EventMessage  = "message"
	EventNotify   = "notify"
	EventTyping   = "typing"
	EventError    = "error"
)

var (
	ErrEmptyRoom         = errors.New("room id is required")
	ErrEmptyMentorEmail  = errors.New("mentor email is required")
	ErrNilSubscriber     = errors.New("nil subscriber")
	ErrSubscriberClosed  = errors.New("subscriber closed")
	ErrSubscriberBacklog = errors.New("subscriber backlog full")
)

// Event es el sobre {"event": ..., "data": ...} que viaja por el socket.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data,omitempty"`
}

// Subscriber es una conexion viva capaz de recibir eventos. Send no debe bloquear.
type Subscriber interface {
	ID() string
	Send(evt Event) error
}

type JoinedPayload struct {
	RoomID string `json:"roomId"`
}

type WatchingPayload struct {
	MentorEmail string `json:"mentorEmail"`
}

type TypingPayload struct {
	RoomID    string `json:"roomId"`
	UserEmail string `json:"userEmail"`
	Typing    bool   `json:"typing"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Fanout resume una entrega best-effort: cuantos suscriptores la recibieron y cuantos fallaron.
type Fanout struct {
	Delivered int
	Failed    int
}
