package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type HTTPConfig struct {
	Port           string        `yaml:"port" env:"PORT" env-default:"8080"`
	AllowedOrigins []string      `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" env-separator:"," env-default:"*"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT" env-default:"30s"`
}

type StoreConfig struct {
	Driver          string `yaml:"driver" env:"STORE_DRIVER" env-default:"memory"`
	DBPath          string `yaml:"db_path" env:"DB_PATH" env-default:"./data/taskdesk.db"`
	FixturesDir     string `yaml:"fixtures_dir" env:"FIXTURES_DIR"`
	SimulateLatency bool   `yaml:"simulate_latency" env:"SIMULATE_LATENCY" env-default:"true"`
}

type Config struct {
	LogLevel string      `yaml:"log_level" env:"LOG_LEVEL" env-default:"INFO"`
	TZName   string      `yaml:"tz" env:"TZ_NAME" env-default:"Local"`
	HTTP     HTTPConfig  `yaml:"http"`
	Store    StoreConfig `yaml:"store"`
}

// Load reads configuration from configPath, falling back to the environment
// when the path is empty or the file does not exist. Variables in a .env file
// in the working directory are loaded first and never override the process
// environment.
func Load(configPath string) (Config, error) {
	var cfg Config

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("cannot read .env: %w", err)
	}

	if configPath != "" {
		err := cleanenv.ReadConfig(configPath, &cfg)
		if err == nil {
			return cfg, cfg.validate()
		}
		var pe *os.PathError
		if !errors.As(err, &pe) {
			return cfg, fmt.Errorf("cannot read config %q: %w", configPath, err)
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("cannot read env: %w", err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Store.Driver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves TZName. "Local" and the empty string mean the host zone.
func (c Config) Location() (*time.Location, error) {
	if c.TZName == "" || c.TZName == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TZName)
	if err != nil {
		return nil, fmt.Errorf("unknown time zone %q: %w", c.TZName, err)
	}
	return loc, nil
}

// NewLogger returns a text logger on stderr at the named level.
// Unknown levels fall back to INFO.
func NewLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
