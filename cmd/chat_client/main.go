package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"interview-hub/internal/domain"
	"interview-hub/internal/realtime"
)

// Cliente de terminal para el canal en vivo. Une una sala, envia cada linea como
// mensaje y muestra lo que llega. "/typing" avisa escritura y "/quit" sale.
func main() {
	_ = godotenv.Load()

	server := flag.String("server", envOr("CHAT_SERVER", "ws://localhost:8080/ws"), "websocket endpoint")
	room := flag.String("room", "", "room id, e.g. dm:user@example.com")
	from := flag.String("from", "", "sender email")
	to := flag.String("to", "", "recipient email")
	watch := flag.String("watch", "", "mentor email to watch for notifications")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	if *room == "" && *watch == "" {
		log.Fatal("either -room or -watch is required")
	}
	if _, err := url.Parse(*server); err != nil {
		log.Fatalf("invalid server url: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(*server, nil)
	if err != nil {
		logger.Fatal("dial failed", zap.String("server", *server), zap.Error(err))
	}
	defer conn.Close()

	if *watch != "" {
		send(conn, realtime.EventWatch, map[string]string{"mentorEmail": *watch})
	}
	if *room != "" {
		send(conn, realtime.EventJoin, map[string]string{"roomId": *room, "userEmail": *from})
	}

	go readLoop(conn, logger)

	reader := bufio.NewReader(os.Stdin)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == "/quit":
			send(conn, realtime.EventLeave, nil)
			return
		case line == "/typing":
			send(conn, realtime.EventTyping, realtime.TypingPayload{RoomID: *room, UserEmail: *from, Typing: true})
		default:
			if *room == "" {
				fmt.Println("join a room with -room to send messages")
				continue
			}
			send(conn, realtime.EventMessage, map[string]string{
				"roomId":         *room,
				"content":        line,
				"senderEmail":    *from,
				"recipientEmail": *to,
			})
		}
	}
}

type incoming struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func readLoop(conn *websocket.Conn, logger *zap.Logger) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			logger.Info("connection closed", zap.Error(err))
			os.Exit(0)
		}
		var evt incoming
		if err := json.Unmarshal(raw, &evt); err != nil {
			logger.Warn("unreadable frame", zap.Error(err))
			continue
		}
		fmt.Println(render(evt))
	}
}

func render(evt incoming) string {
	switch evt.Event {
	case realtime.EventMessage:
		var msg domain.ChatMessage
		if err := json.Unmarshal(evt.Data, &msg); err == nil {
			line := fmt.Sprintf("[%s] %s: %s", msg.CreatedAt.Local().Format(time.Kitchen), msg.SenderEmail, msg.Content)
			if msg.Attachment != nil {
				line += " (" + msg.Attachment.FileURL + ")"
			}
			return line
		}
	case realtime.EventNotify:
		var n domain.MentorNotification
		if err := json.Unmarshal(evt.Data, &n); err == nil {
			return fmt.Sprintf("** new message in %s from %s: %s", n.RoomID, n.From, n.LastContent)
		}
	case realtime.EventTyping:
		var p realtime.TypingPayload
		if err := json.Unmarshal(evt.Data, &p); err == nil && p.Typing {
			return fmt.Sprintf("%s is typing...", p.UserEmail)
		}
	case realtime.EventError:
		var p realtime.ErrorPayload
		if err := json.Unmarshal(evt.Data, &p); err == nil {
			return fmt.Sprintf("error %s: %s", p.Code, p.Message)
		}
	}
	return fmt.Sprintf("%s %s", evt.Event, string(evt.Data))
}

func send(conn *websocket.Conn, event string, data any) {
	if err := conn.WriteJSON(realtime.Event{Name: event, Data: data}); err != nil {
		log.Fatalf("send %s: %v", event, err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
