package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"interview-hub/internal/realtime"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameBytes  = 64 << 10
	sendBufferSize = 64
)

// Connection envuelve un *websocket.Conn con un unico goroutine escritor.
// Send nunca bloquea: si el buffer esta lleno el evento se descarta.
type Connection struct {
	id        string
	conn      *websocket.Conn
	writeCh   chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newConnection(conn *websocket.Conn) *Connection {
	return &Connection{
		id:      uuid.NewString(),
		conn:    conn,
		writeCh: make(chan []byte, sendBufferSize),
		done:    make(chan struct{}),
	}
}

func (c *Connection) ID() string {
	return c.id
}

func (c *Connection) Send(evt realtime.Event) error {
	select {
	case <-c.done:
		return realtime.ErrSubscriberClosed
	default:
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	select {
	case c.writeCh <- data:
		return nil
	case <-c.done:
		return realtime.ErrSubscriberClosed
	default:
		return realtime.ErrSubscriberBacklog
	}
}

// writeLoop es el unico que escribe en el socket; tambien manda los pings.
func (c *Connection) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case data := <-c.writeCh:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}
