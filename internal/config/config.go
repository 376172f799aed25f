package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Game        GameConfig        `mapstructure:"game"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Archive     ArchiveConfig     `mapstructure:"archive"`
	Development DevelopmentConfig `mapstructure:"development"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type GameConfig struct {
	WhiteName      string        `mapstructure:"white_name"`
	BlackName      string        `mapstructure:"black_name"`
	ShowValidMoves bool          `mapstructure:"show_valid_moves"`
	ClockInitial   time.Duration `mapstructure:"clock_initial"`   // 0 disables the clock
	ClockIncrement time.Duration `mapstructure:"clock_increment"`
}

type AuthConfig struct {
	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

type ArchiveConfig struct {
	Driver string `mapstructure:"driver"` // "memory" or "postgres"
	DSN    string `mapstructure:"dsn"`
}

type DevelopmentConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// Level parses LogLevel, falling back to info. Debug forces debug level.
func (c DevelopmentConfig) Level() zerolog.Level {
	if c.Debug {
		return zerolog.DebugLevel
	}
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// Load reads config.yaml from . or ./config, environment variables with
// the DESKCHESS_ prefix and defaults, in increasing order of precedence
// for the environment.
func Load() (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	return load(v)
}

// LoadFile is Load with an explicit config file.
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	return load(v)
}

func newViper() *viper.Viper {
	v := viper.New()

	// Enable environment variables
	v.SetEnvPrefix("DESKCHESS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("game.white_name", "Player 1")
	v.SetDefault("game.black_name", "Player 2")
	v.SetDefault("game.show_valid_moves", true)
	v.SetDefault("game.clock_initial", "0s")
	v.SetDefault("game.clock_increment", "0s")
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("archive.driver", "memory")
	v.SetDefault("archive.dsn", "")
	v.SetDefault("development.debug", false)
	v.SetDefault("development.log_level", "info")
	return v
}

func load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults and environment
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	switch cfg.Archive.Driver {
	case "memory":
	case "postgres":
		if cfg.Archive.DSN == "" {
			return nil, fmt.Errorf("archive.dsn is required for the postgres driver")
		}
	default:
		return nil, fmt.Errorf("unknown archive driver %q", cfg.Archive.Driver)
	}

	return &cfg, nil
}
