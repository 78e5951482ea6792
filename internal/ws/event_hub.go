package ws

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Event is one journal change pushed to a user's open dashboards.
type Event struct {
	Type     string      `json:"type"`     // trade.created, trade.updated, trade.deleted, account.updated
	Resource interface{} `json:"resource,omitempty"`
	At       time.Time   `json:"at"`
}

type notification struct {
	userID  string
	payload []byte
}

// EventHub fans journal events out to every connection a user has open. A
// user may watch from several tabs or devices at once, so clients are kept
// per user as a set.
type EventHub struct {
	register   chan *eventClient
	unregister chan *eventClient
	notify     chan notification
	clients    map[string]map[*eventClient]struct{}
}

func NewEventHub() *EventHub {
	return &EventHub{
		register:   make(chan *eventClient),
		unregister: make(chan *eventClient),
		notify:     make(chan notification, 256),
		clients:    make(map[string]map[*eventClient]struct{}),
	}
}

func (h *EventHub) Run() {
	for {
		select {
		case client := <-h.register:
			set, ok := h.clients[client.userID]
			if !ok {
				set = make(map[*eventClient]struct{})
				h.clients[client.userID] = set
			}
			set[client] = struct{}{}
		case client := <-h.unregister:
			if set, ok := h.clients[client.userID]; ok {
				if _, ok := set[client]; ok {
					delete(set, client)
					close(client.send)
					if len(set) == 0 {
						delete(h.clients, client.userID)
					}
				}
			}
		case msg := <-h.notify:
			for client := range h.clients[msg.userID] {
				select {
				case client.send <- msg.payload:
				default:
					client.conn.Close()
					delete(h.clients[msg.userID], client)
				}
			}
		}
	}
}

// Publish queues an event for every open connection of one user. Safe to call
// with a nil hub so handlers need no wiring in tests.
func (h *EventHub) Publish(userID string, event Event) {
	if h == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	h.notify <- notification{userID: userID, payload: data}
}

type eventClient struct {
	hub    *EventHub
	conn   *websocket.Conn
	send   chan []byte
	userID string
}

func newEventClient(hub *EventHub, conn *websocket.Conn, userID string) *eventClient {
	return &eventClient{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 64),
		userID: userID,
	}
}

func (c *eventClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *eventClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
