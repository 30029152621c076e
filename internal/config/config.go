// Package config loads server configuration from a YAML file and REVERSUS_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/reversus/reversus-server-go/internal/game"
	"github.com/reversus/reversus-server-go/internal/game/ai"
	"github.com/reversus/reversus-server-go/internal/game/cards"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, for example
// REVERSUS_SERVER_WEBSOCKET_ADDRESS.
const EnvPrefix = "REVERSUS"

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Game     GameConfig     `mapstructure:"game"`
	Decision DecisionConfig `mapstructure:"decision"`
}

// ServerConfig groups the listeners.
type ServerConfig struct {
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	GRPC      GRPCConfig      `mapstructure:"grpc"`
}

// WebSocketConfig configures the table socket listener.
type WebSocketConfig struct {
	Address        string        `mapstructure:"address"`
	ReadBufferSize int           `mapstructure:"read_buffer_size"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	// AllowedOrigins restricts the Origin header; empty accepts any origin.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// GRPCConfig configures the health listener.
type GRPCConfig struct {
	Address              string        `mapstructure:"address"`
	MaxConcurrentStreams uint32        `mapstructure:"max_concurrent_streams"`
	KeepaliveTime        time.Duration `mapstructure:"keepalive_time"`
	KeepaliveTimeout     time.Duration `mapstructure:"keepalive_timeout"`
}

// LoggingConfig selects the zap encoder.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig configures the results store. An empty URL disables it.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
}

// Enabled reports whether a database is configured.
func (d DatabaseConfig) Enabled() bool {
	return strings.TrimSpace(d.URL) != ""
}

// GameConfig holds the rules every new table starts from.
type GameConfig struct {
	Seed         int64         `mapstructure:"seed"`
	Mode         string        `mapstructure:"mode"`
	Paths        int           `mapstructure:"paths"`
	Goal         int           `mapstructure:"goal"`
	ValueCap     int           `mapstructure:"value_cap"`
	EffectCap    int           `mapstructure:"effect_cap"`
	Blue         int           `mapstructure:"blue"`
	Red          int           `mapstructure:"red"`
	Lives        int           `mapstructure:"lives"`
	LapsToWin    int           `mapstructure:"laps_to_win"`
	AutoContinue bool          `mapstructure:"auto_continue"`
	ValueDeck    []cards.Entry `mapstructure:"value_deck"`
	EffectDeck   []cards.Entry `mapstructure:"effect_deck"`
	ReplayDir    string        `mapstructure:"replay_dir"`
}

// Settings converts the section into engine settings. Deck entries given
// by effect name are resolved here so a typo fails at startup.
func (g GameConfig) Settings() (game.Settings, error) {
	s := game.Settings{
		Seed:         g.Seed,
		Paths:        g.Paths,
		Goal:         g.Goal,
		ValueCap:     g.ValueCap,
		EffectCap:    g.EffectCap,
		Blue:         g.Blue,
		Red:          g.Red,
		Lives:        g.Lives,
		LapsToWin:    g.LapsToWin,
		AutoContinue: g.AutoContinue,
	}
	var err error
	if s.ValueDeck, err = resolveEntries(g.ValueDeck); err != nil {
		return s, fmt.Errorf("value deck: %w", err)
	}
	if s.EffectDeck, err = resolveEntries(g.EffectDeck); err != nil {
		return s, fmt.Errorf("effect deck: %w", err)
	}
	return s, nil
}

func resolveEntries(entries []cards.Entry) ([]cards.Entry, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	out := make([]cards.Entry, 0, len(entries))
	for _, e := range entries {
		resolved, err := e.Resolve()
		if err != nil {
			return nil, err
		}
		out = append(out, resolved)
	}
	return out, nil
}

// DecisionConfig configures bot decisions.
type DecisionConfig struct {
	// Endpoint of the suggestion service; empty keeps bots on the heuristic.
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
	// Personas extend or override the builtin persona weights by name.
	Personas []ai.Persona `mapstructure:"personas"`
}

// PersonaSet merges configured personas over the builtin ones.
func (d DecisionConfig) PersonaSet() ai.Personas {
	set := ai.BuiltinPersonas()
	for _, p := range d.Personas {
		name := strings.ToLower(strings.TrimSpace(p.Name))
		if name == "" {
			continue
		}
		p.Name = name
		set[name] = p
	}
	return set
}

// Load reads the configuration at path. A missing file is not an error:
// defaults and environment overrides still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values no server can start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.WebSocket.Address) == "" {
		return errors.New("server.websocket.address is required")
	}
	if _, err := game.ParseModeKind(c.Game.Mode); err != nil {
		return fmt.Errorf("game.mode: %w", err)
	}
	if _, err := c.Game.Settings(); err != nil {
		return fmt.Errorf("game: %w", err)
	}
	if c.Decision.Timeout < 0 {
		return errors.New("decision.timeout must not be negative")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	def := game.DefaultSettings()

	v.SetDefault("server.websocket.address", ":8080")
	v.SetDefault("server.websocket.read_buffer_size", 1024)
	v.SetDefault("server.websocket.write_timeout", 10*time.Second)
	v.SetDefault("server.websocket.allowed_origins", []string{})
	v.SetDefault("server.grpc.address", ":50051")
	v.SetDefault("server.grpc.max_concurrent_streams", 100)
	v.SetDefault("server.grpc.keepalive_time", 5*time.Minute)
	v.SetDefault("server.grpc.keepalive_timeout", 20*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", time.Hour)
	v.SetDefault("database.connect_timeout", 5*time.Second)

	v.SetDefault("game.seed", 0)
	v.SetDefault("game.mode", string(game.ModeSolo))
	v.SetDefault("game.paths", def.Paths)
	v.SetDefault("game.goal", def.Goal)
	v.SetDefault("game.value_cap", def.ValueCap)
	v.SetDefault("game.effect_cap", def.EffectCap)
	v.SetDefault("game.blue", def.Blue)
	v.SetDefault("game.red", def.Red)
	v.SetDefault("game.lives", def.Lives)
	v.SetDefault("game.laps_to_win", def.LapsToWin)
	v.SetDefault("game.auto_continue", def.AutoContinue)
	v.SetDefault("game.replay_dir", "")

	v.SetDefault("decision.endpoint", "")
	v.SetDefault("decision.timeout", ai.DefaultTimeout)
}
