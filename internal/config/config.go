package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gravitas-games/millworks/pkg/hexcore/hex"
)

const defaultModuleBonus = 0.25

// Config holds all server and simulation configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	JWT        JWTConfig        `yaml:"jwt"`
	Redis      RedisConfig      `yaml:"redis"`
	Session    SessionConfig    `yaml:"session"`
	Chat       ChatConfig       `yaml:"chat"`
	Production ProductionConfig `yaml:"production"`
	Logistics  LogisticsConfig  `yaml:"logistics"`
	Simulation SimulationConfig `yaml:"simulation"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Scenario   ScenarioConfig   `yaml:"scenario"`
}

// ServerConfig holds server-specific settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port" validate:"gte=0,lte=65535"`
}

// JWTConfig holds JWT authentication settings
type JWTConfig struct {
	Issuer              string `yaml:"issuer"`
	PublicKeyURL        string `yaml:"public_key_url"`
	PublicKeyRefreshHrs int    `yaml:"public_key_refresh_hours" validate:"gte=0"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Address         string `yaml:"address"`
	Password        string `yaml:"password"`
	DB              int    `yaml:"db" validate:"gte=0"`
	BlacklistPrefix string `yaml:"blacklist_prefix"`
}

// SessionConfig holds game session settings
type SessionConfig struct {
	MaxPlayers int `yaml:"max_players" validate:"gte=0"`
}

// ChatConfig holds chat system settings
type ChatConfig struct {
	MaxMessageLength int `yaml:"max_message_length" validate:"gte=0"`
	RateLimit        int `yaml:"rate_limit" validate:"gte=0"` // messages per minute
}

// ProductionConfig holds production cycle tuning
type ProductionConfig struct {
	PerModuleBonus *float64 `yaml:"per_module_bonus" validate:"omitempty,gte=0"` // nil = default 0.25
}

// ModuleBonus returns the configured per-module bonus. An explicit 0
// disables modules.
func (p ProductionConfig) ModuleBonus() float64 {
	if p.PerModuleBonus == nil {
		return defaultModuleBonus
	}
	return *p.PerModuleBonus
}

// LogisticsConfig holds warehouse assignment settings
type LogisticsConfig struct {
	SearchCap         int   `yaml:"search_cap" validate:"gte=0"`
	RebindOnChange    *bool `yaml:"rebind_on_change"`
	HaulIntervalTicks int   `yaml:"haul_interval_ticks" validate:"gte=-1"` // -1 disables haulage
	HaulBatch         int   `yaml:"haul_batch" validate:"gte=0"`           // max units per building per trip, 0 = unlimited
}

// Rebind reports whether map changes trigger warehouse re-resolution.
func (l LogisticsConfig) Rebind() bool {
	return l.RebindOnChange == nil || *l.RebindOnChange
}

// SimulationConfig holds tick loop settings
type SimulationConfig struct {
	TickRate               int     `yaml:"tick_rate" validate:"gte=0,lte=1000"` // Hz
	TimeScale              float64 `yaml:"time_scale" validate:"gte=0"`          // simulated seconds per real second
	BroadcastIntervalTicks int     `yaml:"broadcast_interval_ticks" validate:"gte=0"`
	MapRadius              int     `yaml:"map_radius" validate:"gte=0"`
}

// LoggingConfig holds log output settings
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// MetricsConfig holds Prometheus exposition settings
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"omitempty,startswith=/"`
}

// CatalogConfig lists the item, recipe and building definitions of a world
type CatalogConfig struct {
	Items     []ItemConfig   `yaml:"items" validate:"dive"`
	Recipes   []RecipeConfig `yaml:"recipes" validate:"dive"`
	Buildings []BuildingKind `yaml:"buildings" validate:"dive"`
}

// ItemConfig defines an item
type ItemConfig struct {
	ID     string `yaml:"id" validate:"required"`
	Name   string `yaml:"name"`
	Volume int    `yaml:"volume" validate:"gte=0"`
}

// ItemQuantity pairs an item with a quantity
type ItemQuantity struct {
	Item     string `yaml:"item" validate:"required_with=Quantity"`
	Quantity int    `yaml:"quantity" validate:"gte=0"`
}

// RecipeConfig defines a production recipe
type RecipeConfig struct {
	ID       string         `yaml:"id" validate:"required"`
	Name     string         `yaml:"name"`
	Category string         `yaml:"category"`
	Duration float64        `yaml:"duration" validate:"gt=0"` // seconds
	Inputs   []ItemQuantity `yaml:"inputs" validate:"dive"`
	Output   ItemQuantity   `yaml:"output"`
}

// BuildingKind defines a type of producing building
type BuildingKind struct {
	Kind           string        `yaml:"kind" validate:"required"`
	Recipe         string        `yaml:"recipe" validate:"required"`
	Footprint      hex.Footprint `yaml:"footprint"`
	InputCapacity  int           `yaml:"input_capacity" validate:"gte=0"`  // per item, 0 = uncapped
	OutputCapacity int           `yaml:"output_capacity" validate:"gte=0"` // 0 = unlimited
}

// ScenarioConfig describes the initial world state
type ScenarioConfig struct {
	Roads      []RoadConfig      `yaml:"roads" validate:"dive"`
	Warehouses []WarehouseConfig `yaml:"warehouses" validate:"dive"`
	Buildings  []BuildingConfig  `yaml:"buildings" validate:"dive"`
}

// RoadConfig is a straight road segment between two cells
type RoadConfig struct {
	From hex.Axial `yaml:"from"`
	To   hex.Axial `yaml:"to"`
}

// WarehouseConfig places a warehouse
type WarehouseConfig struct {
	ID       string         `yaml:"id" validate:"required"`
	Root     hex.Axial      `yaml:"root"`
	Radius   int            `yaml:"radius" validate:"gte=0"`
	Capacity int            `yaml:"capacity" validate:"gte=0"` // 0 = unlimited
	Stock    map[string]int `yaml:"stock" validate:"dive,gte=0"`
}

// BuildingConfig places a producing building
type BuildingConfig struct {
	ID         string         `yaml:"id"` // generated when empty
	Kind       string         `yaml:"kind" validate:"required"`
	Owner      string         `yaml:"owner"`
	Root       hex.Axial      `yaml:"root"`
	Modules    int            `yaml:"modules" validate:"gte=0"`
	Efficiency *float64       `yaml:"efficiency" validate:"omitempty,gte=0"`
	Stock      map[string]int `yaml:"stock" validate:"dive,gte=0"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates a YAML configuration.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.applyDefaults()
	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.JWT.PublicKeyRefreshHrs == 0 {
		cfg.JWT.PublicKeyRefreshHrs = 24
	}
	if cfg.Chat.MaxMessageLength == 0 {
		cfg.Chat.MaxMessageLength = 500
	}
	if cfg.Chat.RateLimit == 0 {
		cfg.Chat.RateLimit = 10
	}
	if cfg.Session.MaxPlayers == 0 {
		cfg.Session.MaxPlayers = 100
	}
	if cfg.Logistics.SearchCap == 0 {
		cfg.Logistics.SearchCap = 1000
	}
	if cfg.Logistics.HaulIntervalTicks == 0 {
		cfg.Logistics.HaulIntervalTicks = 10
	}
	if cfg.Simulation.TickRate == 0 {
		cfg.Simulation.TickRate = 20
	}
	if cfg.Simulation.TimeScale == 0 {
		cfg.Simulation.TimeScale = 1
	}
	if cfg.Simulation.BroadcastIntervalTicks == 0 {
		cfg.Simulation.BroadcastIntervalTicks = 20
	}
	if cfg.Simulation.MapRadius == 0 {
		cfg.Simulation.MapRadius = 16
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

// TickInterval returns the simulated seconds advanced per tick.
func (s SimulationConfig) TickInterval() float64 {
	if s.TickRate <= 0 {
		return 0
	}
	return s.TimeScale / float64(s.TickRate)
}
