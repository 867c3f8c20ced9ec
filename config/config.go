// Package config loads the TOML configuration of the robot tools.
//
// Every key is optional. Keys present in the file override the defaults returned by Default.
//
//	[robot]
//	host = "10.0.0.5"
//	port = 10000
//	timeout = "60s"
//
//	[calibration]
//	backend = "file"          # or "redis"
//	path = "~/.robot.ini"
//	redis_addr = "localhost:6379"
//	redis_key = "ema:calibration:positions"
//
//	[geometry]
//	rotate_sense = 1          # 1 clockwise, -1 counter-clockwise
//
//	[log]
//	level = "info"
//	console = false
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/emacontrol/go-ema/calib"
	"github.com/emacontrol/go-ema/ema"
	"github.com/emacontrol/go-ema/geometry"
	"github.com/emacontrol/go-ema/logger"
)

// Calibration backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// DefaultPath is the configuration file read when none is given.
const DefaultPath = "~/.emactl.toml"

// DefaultPort is the TCP port of the robot controller.
const DefaultPort = 10000

// ErrUnknownBackend indicates a calibration backend other than file or redis.
var ErrUnknownBackend = errors.New("config: unknown calibration backend")

// Config is the resolved configuration.
type Config struct {
	Robot       Robot
	Calibration Calibration
	Geometry    Geometry
	Log         Log
}

// Robot locates the robot controller.
type Robot struct {
	Host    string
	Port    int
	Timeout time.Duration
}

// Calibration selects where calibration positions are kept.
type Calibration struct {
	Backend   string
	Path      string
	RedisAddr string
	RedisKey  string
}

// Geometry holds the diffractometer conventions.
type Geometry struct {
	RotateSense geometry.RotateSense
}

// Log configures the default logger.
type Log struct {
	Level   logger.Level
	Console bool
}

type fileConfig struct {
	Robot struct {
		Host    string `toml:"host"`
		Port    int    `toml:"port"`
		Timeout string `toml:"timeout"`
	} `toml:"robot"`
	Calibration struct {
		Backend   string `toml:"backend"`
		Path      string `toml:"path"`
		RedisAddr string `toml:"redis_addr"`
		RedisKey  string `toml:"redis_key"`
	} `toml:"calibration"`
	Geometry struct {
		RotateSense int `toml:"rotate_sense"`
	} `toml:"geometry"`
	Log struct {
		Level   string `toml:"level"`
		Console bool   `toml:"console"`
	} `toml:"log"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Robot: Robot{
			Host:    "localhost",
			Port:    DefaultPort,
			Timeout: ema.DefaultTimeout,
		},
		Calibration: Calibration{
			Backend:   BackendFile,
			Path:      "~/.robot.ini",
			RedisAddr: "localhost:6379",
			RedisKey:  calib.DefaultRedisKey,
		},
		Geometry: Geometry{RotateSense: geometry.Clockwise},
		Log:      Log{Level: logger.InfoLevel},
	}
}

// Load reads path over the defaults. A missing file at the default path is not an error.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	expanded, err := ExpandHome(path)
	if err != nil {
		return Config{}, err
	}

	data, err := os.ReadFile(expanded)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", expanded, err)
	}

	cfg, err := Parse(string(data))
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", expanded, err)
	}

	return cfg, nil
}

// Parse decodes TOML text over the defaults.
func Parse(text string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.Decode(text, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("decode: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("robot", "host") {
		cfg.Robot.Host = strings.TrimSpace(raw.Robot.Host)
	}
	if meta.IsDefined("robot", "port") {
		cfg.Robot.Port = raw.Robot.Port
	}
	if meta.IsDefined("robot", "timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Robot.Timeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse robot.timeout: %w", err)
		}
		cfg.Robot.Timeout = d
	}

	if meta.IsDefined("calibration", "backend") {
		cfg.Calibration.Backend = strings.ToLower(strings.TrimSpace(raw.Calibration.Backend))
	}
	if meta.IsDefined("calibration", "path") {
		cfg.Calibration.Path = strings.TrimSpace(raw.Calibration.Path)
	}
	if meta.IsDefined("calibration", "redis_addr") {
		cfg.Calibration.RedisAddr = strings.TrimSpace(raw.Calibration.RedisAddr)
	}
	if meta.IsDefined("calibration", "redis_key") {
		cfg.Calibration.RedisKey = strings.TrimSpace(raw.Calibration.RedisKey)
	}

	if meta.IsDefined("geometry", "rotate_sense") {
		cfg.Geometry.RotateSense = geometry.RotateSense(raw.Geometry.RotateSense)
	}

	if meta.IsDefined("log", "level") {
		level, err := logger.ParseLevel(raw.Log.Level)
		if err != nil {
			return Config{}, fmt.Errorf("parse log.level: %w", err)
		}
		cfg.Log.Level = level
	}
	if meta.IsDefined("log", "console") {
		cfg.Log.Console = raw.Log.Console
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the values that cannot be checked while decoding.
func (c Config) Validate() error {
	if err := c.Geometry.RotateSense.Validate(); err != nil {
		return fmt.Errorf("geometry.rotate_sense: %w", err)
	}

	switch c.Calibration.Backend {
	case BackendFile:
		if c.Calibration.Path == "" {
			return errors.New("calibration.path must not be empty")
		}
	case BackendRedis:
		if c.Calibration.RedisAddr == "" {
			return errors.New("calibration.redis_addr must not be empty")
		}
	default:
		return fmt.Errorf("%w %q", ErrUnknownBackend, c.Calibration.Backend)
	}

	return nil
}

// ConnectionConfig builds the controller connection parameters.
func (c Config) ConnectionConfig(opts ...ema.ConnOption) (*ema.ConnectionConfig, error) {
	opts = append([]ema.ConnOption{ema.WithTimeout(c.Robot.Timeout)}, opts...)
	return ema.NewConnectionConfig(c.Robot.Host, c.Robot.Port, opts...)
}

// OpenStore opens the configured calibration backend. The returned close function releases
// the backend and is never nil.
func (c Config) OpenStore(l logger.Logger) (calib.Store, func() error, error) {
	switch c.Calibration.Backend {
	case BackendRedis:
		s := calib.NewRedisStore(c.Calibration.RedisAddr, "", 0,
			calib.WithRedisKey(c.Calibration.RedisKey),
			calib.WithRedisLogger(l),
		)
		return s, s.Close, nil
	case BackendFile:
		path, err := ExpandHome(c.Calibration.Path)
		if err != nil {
			return nil, nil, err
		}
		return calib.NewFileStore(path, calib.WithFileLogger(l)), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("%w %q", ErrUnknownBackend, c.Calibration.Backend)
	}
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home directory: %w", err)
	}

	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
