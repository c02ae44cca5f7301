// Package config loads process settings from YAML with environment overrides.
package config

import (
    "errors"
    "fmt"
    "os"
    "strings"
    "time"

    "github.com/jaminalder/codex-xo/internal/app"
    "github.com/jaminalder/codex-xo/internal/domain"
    "go.uber.org/zap/zapcore"
    "gopkg.in/yaml.v2"
)

const (
    DriverMemory = "memory"
    DriverSQLite = "sqlite"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
    Addr           string        `yaml:"addr"`
    Log            Log           `yaml:"log"`
    Store          Store         `yaml:"store"`
    HistorySlot    string        `yaml:"history_slot"`
    AIDelay        time.Duration `yaml:"ai_delay"`
    ReplayInterval time.Duration `yaml:"replay_interval"`
    Defaults       Defaults      `yaml:"defaults"`
}

type Log struct {
    Level       string `yaml:"level"`
    Development bool   `yaml:"development"`
}

type Store struct {
    Driver string `yaml:"driver"`
    DSN    string `yaml:"dsn"`
}

// Defaults are the settings a new session starts with.
type Defaults struct {
    Size       int    `yaml:"size"`
    Mode       string `yaml:"mode"`
    Difficulty string `yaml:"difficulty"`
}

func Default() Config {
    return Config{
        Addr:           ":8080",
        Log:            Log{Level: "info"},
        Store:          Store{Driver: DriverMemory, DSN: "xo.db"},
        HistorySlot:    "gameHistory",
        AIDelay:        app.DefaultAIDelay,
        ReplayInterval: app.DefaultReplayInterval,
        Defaults: Defaults{
            Size:       3,
            Mode:       string(domain.HumanVsHuman),
            Difficulty: string(domain.Medium),
        },
    }
}

// Load reads path (optional) over the defaults, applies XO_* environment
// overrides and validates the result.
func Load(path string) (Config, error) {
    cfg := Default()
    if path != "" {
        raw, err := os.ReadFile(path)
        if err != nil {
            return Config{}, fmt.Errorf("read config: %w", err)
        }
        if err := yaml.UnmarshalStrict(raw, &cfg); err != nil {
            return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
        }
    }
    cfg.Addr = getenv("XO_ADDR", cfg.Addr)
    cfg.Log.Level = getenv("XO_LOG_LEVEL", cfg.Log.Level)
    cfg.Store.Driver = getenv("XO_STORE_DRIVER", cfg.Store.Driver)
    cfg.Store.DSN = getenv("XO_STORE_DSN", cfg.Store.DSN)
    if err := cfg.Validate(); err != nil {
        return Config{}, err
    }
    return cfg, nil
}

func (c Config) Validate() error {
    if strings.TrimSpace(c.Addr) == "" {
        return fmt.Errorf("%w: empty addr", ErrInvalid)
    }
    if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
        return fmt.Errorf("%w: %v", ErrInvalid, err)
    }
    switch c.Store.Driver {
    case DriverMemory:
    case DriverSQLite:
        if c.Store.DSN == "" {
            return fmt.Errorf("%w: sqlite store needs a dsn", ErrInvalid)
        }
    default:
        return fmt.Errorf("%w: unknown store driver %q", ErrInvalid, c.Store.Driver)
    }
    if c.HistorySlot == "" {
        return fmt.Errorf("%w: empty history_slot", ErrInvalid)
    }
    if c.AIDelay <= 0 || c.ReplayInterval <= 0 {
        return fmt.Errorf("%w: ai_delay and replay_interval must be positive", ErrInvalid)
    }
    if _, err := c.Settings(); err != nil {
        return fmt.Errorf("%w: defaults: %v", ErrInvalid, err)
    }
    return nil
}

// Level is the parsed log level. Call after Validate.
func (c Config) Level() zapcore.Level {
    lvl, _ := zapcore.ParseLevel(c.Log.Level)
    return lvl
}

// Settings converts the configured defaults for new sessions.
func (c Config) Settings() (app.Settings, error) {
    if _, err := domain.NewBoard(c.Defaults.Size); err != nil {
        return app.Settings{}, err
    }
    mode, err := domain.ParseMode(c.Defaults.Mode)
    if err != nil {
        return app.Settings{}, err
    }
    diff, err := domain.ParseDifficulty(c.Defaults.Difficulty)
    if err != nil {
        return app.Settings{}, err
    }
    return app.Settings{Size: c.Defaults.Size, Mode: mode, Difficulty: diff}, nil
}

func getenv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}
