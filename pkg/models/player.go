package models

import "time"

// Player represents an authenticated player
type Player struct {
	// From JWT claims
	ID          string `json:"id"`          // Converted from int64 user_id
	Username    string `json:"username"`    // JWT claim
	Email       string `json:"email"`       // JWT claim
	Permissions int64  `json:"permissions"` // JWT claim: bitwise permission flags
	Activated   int64  `json:"activated"`   // JWT claim: activation timestamp or ban status
	AuthMethod  string `json:"auth_method"` // JWT claim: "password" or "oauth"

	// Connection state
	Connected   bool      `json:"connected"`
	ConnectedAt time.Time `json:"connected_at"`
	LastSeen    time.Time `json:"last_seen"`

	// Session state
	SessionID string `json:"session_id"`
}

// Permission flags carried in the permissions claim
const (
	PermOperate int64 = 1 << iota // deliver to and collect from own buildings
	PermAdmin                     // act on any building
)

// IsActive checks if the player account is activated and not banned
func (p *Player) IsActive() bool {
	// activated > 0 means activated
	// activated == 0 means not activated
	// activated == -1 means banned
	return p.Activated > 0
}

// IsBanned checks if the player is banned
func (p *Player) IsBanned() bool {
	return p.Activated == -1
}

// IsAdmin reports whether the admin flag is set
func (p *Player) IsAdmin() bool {
	return p.Permissions&PermAdmin != 0
}

// CanOperate reports whether the player may act on a building owned by owner.
// Buildings without an owner are open to everyone.
func (p *Player) CanOperate(owner string) bool {
	if p.IsAdmin() {
		return true
	}
	return owner == "" || owner == p.ID
}
