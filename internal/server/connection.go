package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/gravitas-games/millworks/internal/network"
	"github.com/gravitas-games/millworks/pkg/models"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	// Commands per second a client may issue
	commandRate  = 20
	commandBurst = 40
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	// WebSocket connection
	ws *websocket.Conn

	// Server reference
	server *Server

	// Player information (set after authentication)
	player *models.Player

	// Buffered channel for outbound messages
	send chan []byte

	// Is connection authenticated
	authenticated bool
	joined        bool

	chatLimiter    *rate.Limiter
	commandLimiter *rate.Limiter

	logger    *slog.Logger
	closeOnce sync.Once
}

// NewConnection creates a new connection
func NewConnection(ws *websocket.Conn, server *Server) *Connection {
	return &Connection{
		ws:             ws,
		server:         server,
		send:           make(chan []byte, 256),
		chatLimiter:    newChatLimiter(server.config.Chat.RateLimit),
		commandLimiter: rate.NewLimiter(rate.Limit(commandRate), commandBurst),
		logger:         server.logger,
	}
}

// newChatLimiter allows perMinute messages per minute with a matching burst.
func newChatLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
}

// Handle manages the connection lifecycle
func (c *Connection) Handle() {
	c.logger = c.logger.With("player", c.player.ID, "username", c.player.Username)

	// Set up connection parameters
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Start read and write pumps
	go c.writePump()
	c.readPump() // Blocking
}

// readPump pumps messages from the WebSocket connection to the server
func (c *Connection) readPump() {
	defer c.Close()

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			break
		}
		c.player.LastSeen = time.Now()

		var clientMsg network.ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			c.logger.Debug("failed to parse client message", "error", err)
			c.SendError(network.ErrCodeInvalidMessage, "Failed to parse message")
			continue
		}

		c.handleMessage(&clientMsg)
	}
}

// writePump pumps messages from the send channel to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Warn("websocket write error", "error", err)
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.server.ctx.Done():
			// Server shutting down
			return
		}
	}
}

// handleMessage routes messages to appropriate handlers
func (c *Connection) handleMessage(msg *network.ClientMessage) {
	c.logger.Debug("received message", "type", msg.Type)

	if !c.authenticated || c.player == nil {
		c.SendError(network.ErrCodeNotAuthenticated, "Connection not authenticated")
		return
	}

	switch msg.Type {
	case network.MsgTypeJoin:
		c.handleJoin()
		return
	case network.MsgTypeLeave:
		c.handleLeave()
		return
	case network.MsgTypePing:
		c.handlePing()
		return
	case network.MsgTypeChat:
		c.handleChat(msg.Payload)
		return
	}

	if !c.joined {
		c.SendError(network.ErrCodeNotJoined, "Join the session first")
		return
	}
	if !c.commandLimiter.Allow() {
		c.SendError(network.ErrCodeRateLimited, "Too many commands")
		return
	}
	session := c.server.session

	switch msg.Type {
	case network.MsgTypeStatus:
		c.SendMessage(session.ProductionStatus())

	case network.MsgTypeDeliver:
		var req network.DeliverPayload
		if c.decode(msg.Payload, &req) {
			c.SendMessage(session.Deliver(c.player, req))
		}

	case network.MsgTypeCollect:
		var req network.CollectPayload
		if c.decode(msg.Payload, &req) {
			c.SendMessage(session.Collect(c.player, req))
		}

	case network.MsgTypeRoute:
		var req network.RoutePayload
		if c.decode(msg.Payload, &req) {
			c.SendMessage(session.Route(req))
		}

	default:
		c.logger.Debug("unknown message type", "type", msg.Type)
		c.SendError(network.ErrCodeUnknownType, "Unknown message type")
	}
}

func (c *Connection) decode(payload json.RawMessage, v any) bool {
	if err := json.Unmarshal(payload, v); err != nil {
		c.SendError(network.ErrCodeInvalidMessage, fmt.Sprintf("Invalid payload: %v", err))
		return false
	}
	return true
}

// handleJoin handles player join requests
func (c *Connection) handleJoin() {
	session := c.server.session

	c.player.Connected = true
	c.player.ConnectedAt = time.Now()
	c.player.SessionID = session.ID

	if err := session.AddPlayer(c.player, c); err != nil {
		c.logger.Warn("failed to add player to session", "error", err)
		c.SendError(network.ErrCodeSessionFull, "Failed to join session")
		return
	}
	c.joined = true

	c.SendMessage(&network.ServerMessage{
		Type: network.MsgTypeWelcome,
		Payload: network.WelcomePayload{
			PlayerID:      c.player.ID,
			Username:      c.player.Username,
			SessionID:     session.ID,
			SessionStatus: session.GetStatus(),
		},
	})
	c.SendMessage(session.ProductionStatus())

	session.BroadcastExcept(c, &network.ServerMessage{
		Type: network.MsgTypePlayerJoined,
		Payload: network.PlayerJoinedPayload{
			PlayerID: c.player.ID,
			Username: c.player.Username,
		},
	})
}

// handleLeave handles player leave requests
func (c *Connection) handleLeave() {
	if c.player == nil || !c.server.session.RemovePlayer(c.player.ID) {
		return
	}
	c.joined = false
	c.player.Connected = false

	c.server.session.BroadcastMessage(&network.ServerMessage{
		Type: network.MsgTypePlayerLeft,
		Payload: network.PlayerLeftPayload{
			PlayerID: c.player.ID,
			Username: c.player.Username,
		},
	})
}

// handleChat handles chat messages
func (c *Connection) handleChat(payload json.RawMessage) {
	if !c.joined {
		c.SendError(network.ErrCodeNotJoined, "Join the session first")
		return
	}

	var chatMsg network.ChatPayload
	if err := json.Unmarshal(payload, &chatMsg); err != nil {
		c.SendError(network.ErrCodeInvalidMessage, "Invalid chat message")
		return
	}
	if max := c.server.config.Chat.MaxMessageLength; max > 0 && utf8.RuneCountInString(chatMsg.Message) > max {
		c.SendError(network.ErrCodeTooLong, fmt.Sprintf("Chat messages are limited to %d characters", max))
		return
	}
	if !c.chatLimiter.Allow() {
		c.SendError(network.ErrCodeRateLimited, "Slow down")
		return
	}

	c.server.session.BroadcastMessage(&network.ServerMessage{
		Type: network.MsgTypeChatBroadcast,
		Payload: network.ChatBroadcastPayload{
			PlayerID:  c.player.ID,
			Username:  c.player.Username,
			Message:   chatMsg.Message,
			Timestamp: time.Now().Unix(),
		},
	})
}

// handlePing handles ping requests
func (c *Connection) handlePing() {
	c.SendMessage(&network.ServerMessage{
		Type:    network.MsgTypePong,
		Payload: map[string]interface{}{"timestamp": time.Now().Unix()},
	})
}

// SendMessage sends a message to the client
func (c *Connection) SendMessage(msg *network.ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("failed to marshal message", "type", msg.Type, "error", err)
		return
	}

	select {
	case c.send <- data:
	default:
		c.logger.Warn("send buffer full, dropping message", "type", msg.Type)
	}
}

// SendError sends an error message to the client
func (c *Connection) SendError(code, message string) {
	c.SendMessage(network.NewError(code, message))
}

// Close closes the connection
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		if c.authenticated && c.player != nil {
			c.handleLeave()
		}
		close(c.send)
		c.ws.Close()
	})
}
