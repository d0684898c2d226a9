package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gravitas-games/millworks/internal/config"
	"github.com/gravitas-games/millworks/internal/metrics"
	"github.com/gravitas-games/millworks/internal/simulation"
)

// Server represents the game server
type Server struct {
	config       *config.Config
	session      *Session
	upgrader     websocket.Upgrader
	httpSrv      *http.Server
	jwtValidator *JWTValidator
	redis        *redis.Client
	registry     *prometheus.Registry
	logger       *slog.Logger

	// Connection tracking
	connections map[*Connection]bool
	connMu      sync.RWMutex

	// Shutdown
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new server instance
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("initializing server")

	ctx, cancel := context.WithCancel(context.Background())

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("connected to redis", "address", cfg.Redis.Address)

	validator := NewJWTValidator(cfg, nil, NewRedisBlacklist(redisClient, cfg.Redis.BlacklistPrefix), logger)
	if err := validator.RefreshPublicKey(ctx); err != nil {
		cancel()
		redisClient.Close()
		return nil, fmt.Errorf("failed to initialize JWT validator: %w", err)
	}
	validator.StartKeyRefresh(ctx)

	srv, err := newServer(ctx, cancel, cfg, validator, logger)
	if err != nil {
		cancel()
		redisClient.Close()
		return nil, err
	}
	srv.redis = redisClient
	logger.Info("server initialized", "session", srv.session.ID)
	return srv, nil
}

// newServer wires the world, metrics and session without external services.
func newServer(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, validator *JWTValidator, logger *slog.Logger) (*Server, error) {
	registry := prometheus.NewRegistry()
	var opts []simulation.Option
	if cfg.Metrics.Enabled {
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		collector := metrics.NewProductionMetricsCollector()
		if err := collector.Register(registry); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		opts = append(opts, simulation.WithMetrics(collector))
	}

	world, err := simulation.NewFromConfig(cfg, logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build world: %w", err)
	}
	session, err := NewSession(uuid.NewString(), cfg, world, logger)
	if err != nil {
		return nil, err
	}

	return &Server{
		config:       cfg,
		session:      session,
		jwtValidator: validator,
		registry:     registry,
		logger:       logger,
		connections:  make(map[*Connection]bool),
		ctx:          ctx,
		cancel:       cancel,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}, nil
}

// Session returns the game session
func (s *Server) Session() *Session { return s.session }

// Handler returns the HTTP routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	if s.config.Metrics.Enabled {
		mux.Handle(s.config.Metrics.Path, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	return mux
}

// Start runs the simulation and begins listening for connections
func (s *Server) Start(addr string) error {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.session.Run(s.ctx)
	}()

	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("listening",
		"websocket", fmt.Sprintf("ws://%s/ws", addr),
		"health", fmt.Sprintf("http://%s/health", addr),
		"metrics_enabled", s.config.Metrics.Enabled)

	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.logger.Info("shutting down server")

	// stops the simulation and the key refresh
	s.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}

	s.connMu.Lock()
	for conn := range s.connections {
		conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("redis close error", "error", err)
		}
	}

	s.logger.Info("server shutdown complete", "ticks", s.session.World().Ticks())
	return nil
}

// handleWebSocket handles WebSocket connection requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	tokenString := extractTokenFromHeader(r)
	if tokenString == "" {
		s.logger.Debug("missing JWT token", "remote", r.RemoteAddr)
		http.Error(w, "Missing authentication token", http.StatusUnauthorized)
		return
	}

	player, err := s.jwtValidator.ValidateToken(r.Context(), tokenString)
	if err != nil {
		s.logger.Info("rejected token", "remote", r.RemoteAddr, "error", err)
		http.Error(w, fmt.Sprintf("Invalid token: %v", err), http.StatusUnauthorized)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	conn := NewConnection(ws, s)
	conn.player = player
	conn.authenticated = true

	s.connMu.Lock()
	s.connections[conn] = true
	s.connMu.Unlock()

	s.logger.Info("websocket connection established", "player", player.ID, "username", player.Username, "remote", r.RemoteAddr)

	// blocks until the client goes away
	conn.Handle()

	s.connMu.Lock()
	delete(s.connections, conn)
	s.connMu.Unlock()

	s.logger.Info("websocket connection closed", "player", player.ID, "remote", r.RemoteAddr)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"session": s.session.GetStatus(),
	})
}
