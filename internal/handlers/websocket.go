package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"fortune-wheel-backend/internal/models"
)

const (
	MsgStateUpdate = "STATE_UPDATE"
	MsgSpinStarted = "SPIN_STARTED"
	MsgGameResult  = "GAME_RESULT"
	MsgBetError    = "BET_ERROR"
	MsgPong        = "PONG"

	writeWait = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type Client struct {
	Account string
	Conn    *websocket.Conn

	writeMu sync.Mutex
}

func (c *Client) send(msg *Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteJSON(msg)
}

// WebSocketHub fans engine events out to connected clients. It implements
// services.Broadcaster; broadcasting never blocks the caller.
type WebSocketHub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	done       chan struct{}
	log        *slog.Logger
}

func NewWebSocketHub(log *slog.Logger) *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 100),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run serves the hub until ctx is cancelled, then closes every connection.
func (hub *WebSocketHub) Run(ctx context.Context) {
	defer close(hub.done)

	for {
		select {
		case <-ctx.Done():
			for client := range hub.clients {
				client.Conn.Close()
				delete(hub.clients, client)
			}
			return

		case client := <-hub.register:
			hub.clients[client] = struct{}{}
			hub.log.Debug("client registered", "account", client.Account, "clients", len(hub.clients))

		case client := <-hub.unregister:
			if _, ok := hub.clients[client]; ok {
				delete(hub.clients, client)
				hub.log.Debug("client unregistered", "account", client.Account, "clients", len(hub.clients))
			}

		case message := <-hub.broadcast:
			hub.broadcastMessage(message)
		}
	}
}

func (hub *WebSocketHub) broadcastMessage(message *Message) {
	for client := range hub.clients {
		if err := client.send(message); err != nil {
			hub.log.Debug("dropping client after write error", "account", client.Account, "error", err)
			client.Conn.Close()
			delete(hub.clients, client)
		}
	}
}

func (hub *WebSocketHub) publish(msgType string, data interface{}) {
	msg := &Message{Type: msgType, Data: data, Timestamp: time.Now().Unix()}
	select {
	case hub.broadcast <- msg:
	case <-hub.done:
	default:
		hub.log.Warn("broadcast queue full, dropping message", "type", msgType)
	}
}

func (hub *WebSocketHub) BroadcastState(state *models.RoundState) {
	hub.publish(MsgStateUpdate, state)
}

func (hub *WebSocketHub) BroadcastSpinStarted(receipt *models.BetReceipt) {
	hub.publish(MsgSpinStarted, receipt)
}

func (hub *WebSocketHub) BroadcastResult(result *models.GameResult) {
	hub.publish(MsgGameResult, result)
}

func (hub *WebSocketHub) BroadcastError(message string) {
	hub.publish(MsgBetError, gin.H{"message": message})
}

type WebSocketHandler struct {
	engine WheelService
	hub    *WebSocketHub
	log    *slog.Logger
}

func NewWebSocketHandler(engine WheelService, hub *WebSocketHub, log *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{engine: engine, hub: hub, log: log}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("failed to upgrade to websocket", "error", err)
		return
	}

	client := &Client{
		Account: c.GetString("account"),
		Conn:    conn,
	}

	select {
	case h.hub.register <- client:
	case <-h.hub.done:
		conn.Close()
		return
	}

	defer func() {
		select {
		case h.hub.unregister <- client:
		case <-h.hub.done:
		}
		conn.Close()
	}()

	h.sendState(client)

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn("websocket error", "error", err)
			}
			break
		}

		h.handleMessage(client, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(client *Client, msg *Message) {
	switch msg.Type {
	case "PING":
		client.send(&Message{Type: MsgPong, Timestamp: time.Now().Unix()})
	case "GET_STATE":
		h.sendState(client)
	}
}

func (h *WebSocketHandler) sendState(client *Client) {
	msg := &Message{
		Type:      MsgStateUpdate,
		Data:      h.engine.State(decimal.NewFromInt(1)),
		Timestamp: time.Now().Unix(),
	}
	if err := client.send(msg); err != nil {
		h.log.Debug("failed to send state", "error", err)
	}
}
