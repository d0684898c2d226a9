package network

import (
	"encoding/json"

	"github.com/gravitas-games/millworks/pkg/hexcore/hex"
)

// Message types - Client → Server
const (
	MsgTypeJoin    = "join"
	MsgTypeLeave   = "leave"
	MsgTypeChat    = "chat"
	MsgTypePing    = "ping"
	MsgTypeStatus  = "status"
	MsgTypeDeliver = "deliver"
	MsgTypeCollect = "collect"
	MsgTypeRoute   = "route"
)

// Message types - Server → Client
const (
	MsgTypeWelcome          = "welcome"
	MsgTypePlayerJoined     = "player_joined"
	MsgTypePlayerLeft       = "player_left"
	MsgTypeChatBroadcast    = "chat"
	MsgTypeSessionStatus    = "session_status"
	MsgTypeProductionStatus = "production_status"
	MsgTypeDelivered        = "delivered"
	MsgTypeCollected        = "collected"
	MsgTypeRouteResult      = "route"
	MsgTypeError            = "error"
	MsgTypePong             = "pong"
)

// Error codes
const (
	ErrCodeInvalidMessage   = "invalid_message"
	ErrCodeUnknownType      = "unknown_message_type"
	ErrCodeNotAuthenticated = "not_authenticated"
	ErrCodeNotJoined        = "not_joined"
	ErrCodeRateLimited      = "rate_limited"
	ErrCodeTooLong          = "message_too_long"
	ErrCodeSessionFull      = "session_full"
	ErrCodeUnknownBuilding  = "unknown_building"
	ErrCodeForbidden        = "forbidden"
	ErrCodeRejected         = "rejected"
)

// ClientMessage represents any message from client to server
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ServerMessage represents any message from server to client
type ServerMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// --- Client Message Payloads ---

// ChatPayload is sent by client to send a chat message
type ChatPayload struct {
	Message string `json:"message"`
}

// DeliverPayload puts items into a building's input
type DeliverPayload struct {
	Building string `json:"building"`
	Item     string `json:"item"`
	Quantity int    `json:"quantity"`
}

// CollectPayload withdraws finished goods from a building's output
type CollectPayload struct {
	Building string `json:"building"`
	Max      int    `json:"max"`
}

// RoutePayload asks for the road path from a building to its warehouse
type RoutePayload struct {
	Building string `json:"building"`
}

// --- Server Message Payloads ---

// WelcomePayload is sent to client after successful connection
type WelcomePayload struct {
	PlayerID      string        `json:"player_id"`
	Username      string        `json:"username"`
	SessionID     string        `json:"session_id"`
	SessionStatus SessionStatus `json:"session_status"`
}

// PlayerJoinedPayload notifies clients when a player joins
type PlayerJoinedPayload struct {
	PlayerID string `json:"player_id"`
	Username string `json:"username"`
}

// PlayerLeftPayload notifies clients when a player leaves
type PlayerLeftPayload struct {
	PlayerID string `json:"player_id"`
	Username string `json:"username"`
}

// ChatBroadcastPayload broadcasts a chat message to all clients
type ChatBroadcastPayload struct {
	PlayerID  string `json:"player_id"`
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"` // Unix timestamp
}

// DeliveredPayload reports how many units a building accepted
type DeliveredPayload struct {
	Building string `json:"building"`
	Item     string `json:"item"`
	Accepted int    `json:"accepted"`
}

// CollectedPayload reports units withdrawn from a building
type CollectedPayload struct {
	Building string `json:"building"`
	Item     string `json:"item"`
	Quantity int    `json:"quantity"`
}

// RouteResultPayload carries a road path; Cells is empty when unreachable
type RouteResultPayload struct {
	Building string      `json:"building"`
	Cells    []hex.Axial `json:"cells"`
}

// SessionStatus represents the current session state
type SessionStatus struct {
	State       string `json:"state"`
	PlayerCount int    `json:"player_count"`
	MaxPlayers  int    `json:"max_players"`
	ServerTick  int64  `json:"server_tick"`
	Uptime      int64  `json:"uptime"`
}

// ErrorPayload contains error information
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewError builds an error message
func NewError(code, message string) *ServerMessage {
	return &ServerMessage{
		Type:    MsgTypeError,
		Payload: ErrorPayload{Code: code, Message: message},
	}
}
