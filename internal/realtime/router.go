package realtime

import (
	"strings"
	"sync"

	"go.uber.org/zap"
)

// MentorChannel devuelve la clave del canal de notificaciones de un email.
func MentorChannel(email string) string {
	return "mentor:" + strings.ToLower(strings.TrimSpace(email))
}

type membership struct {
	room    string
	channel string
}

// Router mantiene en memoria quien escucha cada sala y cada canal de mentor.
// Una conexion pertenece como mucho a una sala y a un canal a la vez.
type Router struct {
	logger *zap.Logger

	mu       sync.RWMutex
	rooms    map[string]map[string]Subscriber // roomID -> subID -> sub
	channels map[string]map[string]Subscriber // mentor:<email> -> subID -> sub
	members  map[string]*membership           // subID -> membership
}

func NewRouter(logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		logger:   logger,
		rooms:    make(map[string]map[string]Subscriber),
		channels: make(map[string]map[string]Subscriber),
		members:  make(map[string]*membership),
	}
}

// Join suscribe la conexion a roomID, saliendo antes de la sala anterior, y confirma con "joined".
func (r *Router) Join(sub Subscriber, roomID string) error {
	if sub == nil {
		return ErrNilSubscriber
	}
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return ErrEmptyRoom
	}

	r.mu.Lock()
	m := r.membershipLocked(sub)
	if m.room != "" && m.room != roomID {
		removeLocked(r.rooms, m.room, sub.ID())
	}
	m.room = roomID
	addLocked(r.rooms, roomID, sub)
	r.mu.Unlock()

	return sub.Send(Event{Name: EventJoined, Data: JoinedPayload{RoomID: roomID}})
}

// Watch suscribe la conexion al canal del mentor, reemplazando un watch previo.
func (r *Router) Watch(sub Subscriber, mentorEmail string) error {
	if sub == nil {
		return ErrNilSubscriber
	}
	email := strings.ToLower(strings.TrimSpace(mentorEmail))
	if email == "" {
		return ErrEmptyMentorEmail
	}
	channel := MentorChannel(email)

	r.mu.Lock()
	m := r.membershipLocked(sub)
	if m.channel != "" && m.channel != channel {
		removeLocked(r.channels, m.channel, sub.ID())
	}
	m.channel = channel
	addLocked(r.channels, channel, sub)
	r.mu.Unlock()

	return sub.Send(Event{Name: EventWatching, Data: WatchingPayload{MentorEmail: email}})
}

// Leave quita la conexion de todas las suscripciones. Es idempotente.
func (r *Router) Leave(sub Subscriber) {
	if sub == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[sub.ID()]
	if !ok {
		return
	}
	if m.room != "" {
		removeLocked(r.rooms, m.room, sub.ID())
	}
	if m.channel != "" {
		removeLocked(r.channels, m.channel, sub.ID())
	}
	delete(r.members, sub.ID())
}

// BroadcastToRoom entrega evt a cada suscriptor actual de la sala. Sin replay ni reintentos.
func (r *Router) BroadcastToRoom(roomID string, evt Event) Fanout {
	return r.deliver(r.snapshot(r.rooms, roomID, ""), evt)
}

// NotifyMentor entrega evt a cada conexion que observa el canal del email.
func (r *Router) NotifyMentor(mentorEmail string, evt Event) Fanout {
	return r.deliver(r.snapshot(r.channels, MentorChannel(mentorEmail), ""), evt)
}

// BroadcastTyping reenvia el indicador de escritura a los pares de la sala, nunca al emisor.
func (r *Router) BroadcastTyping(roomID string, sender Subscriber, payload TypingPayload) Fanout {
	exclude := ""
	if sender != nil {
		exclude = sender.ID()
	}
	payload.RoomID = roomID
	return r.deliver(r.snapshot(r.rooms, roomID, exclude), Event{Name: EventTyping, Data: payload})
}

func (r *Router) RoomSize(roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[roomID])
}

func (r *Router) MentorWatchers(mentorEmail string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels[MentorChannel(mentorEmail)])
}

// RoomOf devuelve la sala actual de la conexion.
func (r *Router) RoomOf(sub Subscriber) (string, bool) {
	if sub == nil {
		return "", false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.members[sub.ID()]
	if !ok || m.room == "" {
		return "", false
	}
	return m.room, true
}

// Stats alimenta los gauges chat_router_subscribers, chat_active_rooms y chat_active_channels.
func (r *Router) Stats() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return map[string]int{
		"subscribers":     len(r.members),
		"active_rooms":    len(r.rooms),
		"active_channels": len(r.channels),
	}
}

func (r *Router) membershipLocked(sub Subscriber) *membership {
	m, ok := r.members[sub.ID()]
	if !ok {
		m = &membership{}
		r.members[sub.ID()] = m
	}
	return m
}

func (r *Router) snapshot(index map[string]map[string]Subscriber, key, exclude string) []Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := index[key]
	out := make([]Subscriber, 0, len(set))
	for id, sub := range set {
		if id == exclude {
			continue
		}
		out = append(out, sub)
	}
	return out
}

// deliver escribe fuera del lock; un suscriptor caido solo se cuenta y se registra.
func (r *Router) deliver(subs []Subscriber, evt Event) Fanout {
	var out Fanout
	for _, sub := range subs {
		if err := sub.Send(evt); err != nil {
			out.Failed++
			r.logger.Debug("subscriber delivery skipped",
				zap.String("subscriber", sub.ID()),
				zap.String("event", evt.Name),
				zap.Error(err),
			)
			continue
		}
		out.Delivered++
	}
	return out
}

func addLocked(index map[string]map[string]Subscriber, key string, sub Subscriber) {
	set, ok := index[key]
	if !ok {
		set = make(map[string]Subscriber)
		index[key] = set
	}
	set[sub.ID()] = sub
}

func removeLocked(index map[string]map[string]Subscriber, key, id string) {
	set, ok := index[key]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(index, key)
	}
}
