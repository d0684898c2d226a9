package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gravitas-games/millworks/internal/config"
	"github.com/gravitas-games/millworks/internal/network"
	"github.com/gravitas-games/millworks/internal/simulation"
	"github.com/gravitas-games/millworks/pkg/inventory"
	"github.com/gravitas-games/millworks/pkg/models"
	"github.com/gravitas-games/millworks/pkg/production"
)

// Session states
const (
	StateWaiting = "waiting"
	StateRunning = "running"
	StateStopped = "stopped"
)

// ErrSessionFull is returned when MaxPlayers are already connected.
var ErrSessionFull = errors.New("session is full")

// messageSender is the outbound side of a client connection.
type messageSender interface {
	SendMessage(msg *network.ServerMessage)
}

// Session represents a game session running one world
type Session struct {
	ID        string
	CreatedAt time.Time

	// Player management
	players     map[string]*models.Player // playerID -> Player
	connections map[string]messageSender  // playerID -> Connection
	mu          sync.RWMutex

	world  *simulation.World
	engine *simulation.Engine
	status SessionStatus

	config *config.Config
	logger *slog.Logger
}

// SessionStatus represents the current state of the session
type SessionStatus struct {
	State       string `json:"state"` // "waiting", "running", "stopped"
	PlayerCount int    `json:"player_count"`
	MaxPlayers  int    `json:"max_players"`
}

// NewSession creates a new game session around world
func NewSession(id string, cfg *config.Config, world *simulation.World, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("session", id)

	engine, err := simulation.NewEngine(world, cfg.Simulation.TickRate, cfg.Simulation.TickInterval(),
		cfg.Simulation.BroadcastIntervalTicks, logger)
	if err != nil {
		return nil, err
	}

	session := &Session{
		ID:          id,
		CreatedAt:   time.Now(),
		players:     make(map[string]*models.Player),
		connections: make(map[string]messageSender),
		world:       world,
		engine:      engine,
		config:      cfg,
		logger:      logger,
		status: SessionStatus{
			State:      StateWaiting,
			MaxPlayers: cfg.Session.MaxPlayers,
		},
	}
	engine.OnBroadcast = session.broadcastProduction

	logger.Info("session created", "map_radius", cfg.Simulation.MapRadius, "tick_rate", cfg.Simulation.TickRate)
	return session, nil
}

// Run ticks the world until ctx is cancelled
func (s *Session) Run(ctx context.Context) {
	s.setState(StateRunning)
	if err := s.engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("simulation stopped", "error", err)
	}
	s.setState(StateStopped)
}

func (s *Session) setState(state string) {
	s.mu.Lock()
	s.status.State = state
	s.mu.Unlock()
}

// World returns the simulated world
func (s *Session) World() *simulation.World { return s.world }

// AddPlayer adds a player to the session
func (s *Session) AddPlayer(player *models.Player, conn messageSender) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.players[player.ID]; !exists && s.status.MaxPlayers > 0 && len(s.players) >= s.status.MaxPlayers {
		return ErrSessionFull
	}
	s.players[player.ID] = player
	s.connections[player.ID] = conn
	s.status.PlayerCount = len(s.players)

	s.logger.Info("player joined", "player", player.ID, "username", player.Username)
	return nil
}

// RemovePlayer removes a player from the session
func (s *Session) RemovePlayer(playerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, exists := s.players[playerID]
	if !exists {
		return false
	}
	s.logger.Info("player left", "player", playerID, "username", player.Username)
	delete(s.players, playerID)
	delete(s.connections, playerID)
	s.status.PlayerCount = len(s.players)
	return true
}

// GetPlayer retrieves a player by ID
func (s *Session) GetPlayer(playerID string) (*models.Player, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	player, exists := s.players[playerID]
	return player, exists
}

// GetPlayers returns all players in the session
func (s *Session) GetPlayers() []*models.Player {
	s.mu.RLock()
	defer s.mu.RUnlock()

	players := make([]*models.Player, 0, len(s.players))
	for _, player := range s.players {
		players = append(players, player)
	}
	return players
}

// BroadcastMessage sends a message to all connected players
func (s *Session) BroadcastMessage(msg *network.ServerMessage) {
	s.BroadcastExcept(nil, msg)
}

// BroadcastExcept sends a message to all players except the specified connection
func (s *Session) BroadcastExcept(exclude messageSender, msg *network.ServerMessage) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, conn := range s.connections {
		if conn != exclude {
			conn.SendMessage(msg)
		}
	}
}

func (s *Session) broadcastProduction(snap simulation.Snapshot) {
	s.BroadcastMessage(&network.ServerMessage{Type: network.MsgTypeProductionStatus, Payload: snap})
}

// GetStatus returns the current session status
func (s *Session) GetStatus() network.SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return network.SessionStatus{
		State:       s.status.State,
		PlayerCount: s.status.PlayerCount,
		MaxPlayers:  s.status.MaxPlayers,
		ServerTick:  int64(s.world.Ticks()),
		Uptime:      int64(time.Since(s.CreatedAt).Seconds()),
	}
}

// ProductionStatus returns a production_status message for one client
func (s *Session) ProductionStatus() *network.ServerMessage {
	return &network.ServerMessage{Type: network.MsgTypeProductionStatus, Payload: s.world.Snapshot()}
}

// Deliver handles a deliver command from player
func (s *Session) Deliver(player *models.Player, req network.DeliverPayload) *network.ServerMessage {
	id := production.BuildingID(req.Building)
	if msg := s.authorize(player, id); msg != nil {
		return msg
	}
	accepted, err := s.world.Deliver(id, inventory.ItemID(req.Item), req.Quantity)
	if err != nil {
		return network.NewError(network.ErrCodeRejected, err.Error())
	}
	s.logger.Debug("delivery", "player", player.ID, "building", id, "item", req.Item, "accepted", accepted)
	return &network.ServerMessage{
		Type:    network.MsgTypeDelivered,
		Payload: network.DeliveredPayload{Building: req.Building, Item: req.Item, Accepted: accepted},
	}
}

// Collect handles a collect command from player
func (s *Session) Collect(player *models.Player, req network.CollectPayload) *network.ServerMessage {
	id := production.BuildingID(req.Building)
	if msg := s.authorize(player, id); msg != nil {
		return msg
	}
	item, n, err := s.world.Collect(id, req.Max)
	if err != nil {
		return network.NewError(network.ErrCodeRejected, err.Error())
	}
	return &network.ServerMessage{
		Type:    network.MsgTypeCollected,
		Payload: network.CollectedPayload{Building: req.Building, Item: string(item), Quantity: n},
	}
}

// Route handles a route query
func (s *Session) Route(req network.RoutePayload) *network.ServerMessage {
	cells, err := s.world.Route(production.BuildingID(req.Building))
	switch {
	case errors.Is(err, simulation.ErrUnknownBuilding):
		return network.NewError(network.ErrCodeUnknownBuilding, err.Error())
	case err != nil:
		return network.NewError(network.ErrCodeRejected, err.Error())
	}
	return &network.ServerMessage{
		Type:    network.MsgTypeRouteResult,
		Payload: network.RouteResultPayload{Building: req.Building, Cells: cells},
	}
}

func (s *Session) authorize(player *models.Player, id production.BuildingID) *network.ServerMessage {
	owner, err := s.world.Owner(id)
	if err != nil {
		return network.NewError(network.ErrCodeUnknownBuilding, err.Error())
	}
	if !player.CanOperate(string(owner)) {
		return network.NewError(network.ErrCodeForbidden, "building belongs to another player")
	}
	return nil
}
