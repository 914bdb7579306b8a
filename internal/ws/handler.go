package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"interview-hub/internal/metrics"
	"interview-hub/internal/realtime"
	"interview-hub/internal/service"
)

const (
	CodeStorage     = "storage_error"
	CodeRateLimited = "rate_limited"

	defaultDeliverTimeout = 10 * time.Second
)

// Rooms es la parte del Router que usa el canal en vivo.
type Rooms interface {
	Join(sub realtime.Subscriber, roomID string) error
	Watch(sub realtime.Subscriber, mentorEmail string) error
	Leave(sub realtime.Subscriber)
	RoomOf(sub realtime.Subscriber) (string, bool)
	BroadcastTyping(roomID string, sender realtime.Subscriber, payload realtime.TypingPayload) realtime.Fanout
}

type Deliverer interface {
	Deliver(ctx context.Context, path service.DeliveryPath, in service.SendInput) (service.Receipt, error)
}

type Options struct {
	// MessagesPerSecond y Burst limitan los eventos entrantes por conexion. 0 desactiva.
	MessagesPerSecond float64
	Burst             int
	DeliverTimeout    time.Duration
}

// Handler atiende GET /ws: una goroutine lectora por conexion mas su escritor.
type Handler struct {
	logger   *zap.Logger
	rooms    Rooms
	delivery Deliverer
	metrics  *metrics.Metrics
	opts     Options
	upgrader websocket.Upgrader
}

func NewHandler(logger *zap.Logger, rooms Rooms, delivery Deliverer, m *metrics.Metrics, opts Options) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DeliverTimeout <= 0 {
		opts.DeliverTimeout = defaultDeliverTimeout
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	return &Handler{
		logger:   logger,
		rooms:    rooms,
		delivery: delivery,
		metrics:  m,
		opts:     opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:   4096,
			WriteBufferSize:  4096,
			HandshakeTimeout: 10 * time.Second,
			CheckOrigin:      func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := newConnection(conn)
	h.metrics.ConnectionOpened()
	h.logger.Debug("live connection opened", zap.String("conn_id", c.ID()))

	go c.writeLoop()
	h.readLoop(c)

	h.rooms.Leave(c)
	c.Close()
	h.metrics.ConnectionClosed()
	h.logger.Debug("live connection closed", zap.String("conn_id", c.ID()))
}

type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (h *Handler) readLoop(c *Connection) {
	c.conn.SetReadLimit(maxFrameBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	var limiter *rate.Limiter
	if h.opts.MessagesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(h.opts.MessagesPerSecond), h.opts.Burst)
	}

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				h.logger.Debug("live connection read failed", zap.String("conn_id", c.ID()), zap.Error(err))
			}
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil || frame.Event == "" {
			h.logger.Warn("malformed live frame dropped", zap.String("conn_id", c.ID()))
			continue
		}
		if limiter != nil && !limiter.Allow() {
			h.sendError(c, CodeRateLimited, "too many events, slow down")
			continue
		}
		h.dispatch(c, frame)
	}
}

// dispatch procesa un evento aislado: un panic se recupera y la conexion sigue viva.
func (h *Handler) dispatch(c *Connection, frame inboundFrame) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("live event handler panic",
				zap.String("conn_id", c.ID()),
				zap.String("event", frame.Event),
				zap.Any("panic", r),
			)
		}
	}()

	var err error
	switch frame.Event {
	case realtime.EventJoin:
		err = h.handleJoin(c, frame.Data)
	case realtime.EventWatch:
		err = h.handleWatch(c, frame.Data)
	case realtime.EventMessage:
		h.handleMessage(c, frame.Data)
	case realtime.EventTyping:
		err = h.handleTyping(c, frame.Data)
	case realtime.EventLeave:
		h.rooms.Leave(c)
	default:
		err = fmt.Errorf("unknown event %q", frame.Event)
	}
	if err != nil {
		h.logger.Warn("live event dropped",
			zap.String("conn_id", c.ID()),
			zap.String("event", frame.Event),
			zap.Error(err),
		)
	}
}

func (h *Handler) handleJoin(c *Connection, data json.RawMessage) error {
	var req struct {
		RoomID    string `json:"roomId"`
		UserEmail string `json:"userEmail"`
	}
	if err := decode(data, &req); err != nil {
		return err
	}
	return h.rooms.Join(c, req.RoomID)
}

func (h *Handler) handleWatch(c *Connection, data json.RawMessage) error {
	var req struct {
		MentorEmail string `json:"mentorEmail"`
	}
	if err := decode(data, &req); err != nil {
		return err
	}
	return h.rooms.Watch(c, req.MentorEmail)
}

func (h *Handler) handleTyping(c *Connection, data json.RawMessage) error {
	var req struct {
		RoomID    string `json:"roomId"`
		UserEmail string `json:"userEmail"`
		Typing    bool   `json:"typing"`
	}
	if err := decode(data, &req); err != nil {
		return err
	}
	roomID := strings.TrimSpace(req.RoomID)
	if roomID == "" {
		roomID, _ = h.rooms.RoomOf(c)
	}
	if roomID == "" {
		return realtime.ErrEmptyRoom
	}
	h.rooms.BroadcastTyping(roomID, c, realtime.TypingPayload{UserEmail: req.UserEmail, Typing: req.Typing})
	return nil
}

// handleMessage no depende del ciclo de vida del socket: si el cliente se va a mitad
// de camino el mensaje se persiste igual.
func (h *Handler) handleMessage(c *Connection, data json.RawMessage) {
	var req struct {
		RoomID         string `json:"roomId"`
		Content        string `json:"content"`
		SenderEmail    string `json:"senderEmail"`
		RecipientEmail string `json:"recipientEmail"`
	}
	if err := decode(data, &req); err != nil {
		h.logger.Warn("live message dropped", zap.String("conn_id", c.ID()), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.opts.DeliverTimeout)
	defer cancel()

	_, err := h.delivery.Deliver(ctx, service.PathLive, service.SendInput{
		RoomID:         req.RoomID,
		Content:        req.Content,
		SenderEmail:    req.SenderEmail,
		RecipientEmail: req.RecipientEmail,
	})
	switch {
	case err == nil:
	case errors.Is(err, service.ErrValidation):
		h.logger.Warn("live message dropped",
			zap.String("conn_id", c.ID()),
			zap.String("room_id", req.RoomID),
			zap.Error(err),
		)
	default:
		h.logger.Error("live message not persisted",
			zap.String("conn_id", c.ID()),
			zap.String("room_id", req.RoomID),
			zap.String("sender", req.SenderEmail),
			zap.Error(err),
		)
		h.sendError(c, CodeStorage, "message could not be saved, please retry")
	}
}

func (h *Handler) sendError(c *Connection, code, message string) {
	err := c.Send(realtime.Event{
		Name: realtime.EventError,
		Data: realtime.ErrorPayload{Code: code, Message: message},
	})
	if err != nil {
		h.logger.Debug("error event not delivered", zap.String("conn_id", c.ID()), zap.Error(err))
	}
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
