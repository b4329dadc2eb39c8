package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"go-fulfillment-ws/internal/event"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

var (
	ErrHubStopped = errors.New("websocket hub stopped")
	ErrHubBusy    = errors.New("websocket hub busy, message dropped")
)

// writeWait bounds one broadcast round; clients that cannot take the
// message in time are disconnected.
const writeWait = 5 * time.Second

// Client is the part of a websocket connection the hub writes to.
// *websocket.Conn satisfies it.
type Client interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type Hub struct {
	clients    map[Client]bool
	register   chan Client
	unregister chan Client
	broadcast  chan []byte
	done       chan struct{}
	writeWait  time.Duration
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[Client]bool),
		register:   make(chan Client),
		unregister: make(chan Client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
		writeWait:  writeWait,
	}
}

// Run owns the client set until ctx is cancelled, then closes every
// remaining connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				c.Close()
				delete(h.clients, c)
			}
			return

		case c := <-h.register:
			h.clients[c] = true
			log.Printf("ws: client connected (%d online)", len(h.clients))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.Close()
			}

		case message := <-h.broadcast:
			deadline := time.Now().Add(h.writeWait)
			for c := range h.clients {
				if err := write(c, message, deadline); err != nil {
					log.Printf("ws: dropping client: %v", err)
					c.Close()
					delete(h.clients, c)
				}
			}
		}
	}
}

func write(c Client, message []byte, deadline time.Time) error {
	if err := c.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.WriteMessage(websocket.TextMessage, message)
}

func (h *Hub) Register(c Client) error {
	select {
	case h.register <- c:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

func (h *Hub) Unregister(c Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast queues message for every client without waiting. When the
// queue is full the message is dropped with ErrHubBusy.
func (h *Hub) Broadcast(ctx context.Context, message []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}
	select {
	case h.broadcast <- message:
		return nil
	default:
		return ErrHubBusy
	}
}

// Publish pushes an event envelope to every connected client.
func (h *Hub) Publish(ctx context.Context, env event.Envelope) error {
	msg, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return h.Broadcast(ctx, msg)
}

// Upgrade rejects plain HTTP requests on the websocket route.
func Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return c.SendStatus(fiber.StatusUpgradeRequired)
}

// Handler registers each connection and keeps it open until the client
// goes away. Incoming messages are ignored.
func (h *Hub) Handler() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		if err := h.Register(c); err != nil {
			c.Close()
			return
		}
		defer h.Unregister(c)

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	})
}
