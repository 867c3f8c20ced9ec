package ema

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/emacontrol/go-ema/logger"
	"github.com/emacontrol/go-ema/transport"
)

// Timeout limits for a single exchange. Robot motions such as pickSample reply only
// once the motion has finished, so the upper bound is generous.
const (
	DefaultTimeout = 60 * time.Second
	MinTimeout     = 100 * time.Millisecond
	MaxTimeout     = 10 * time.Minute
)

// ConnectionConfig holds the resolved connection parameters of a robot controller.
type ConnectionConfig struct {
	host    string
	port    int
	timeout time.Duration

	exchanger transport.Exchanger
	metrics   *ClientMetrics
	logger    logger.Logger
}

// NewConnectionConfig creates a configuration for the controller at host:port.
//
// opts are functional options applied in order; see With* functions.
func NewConnectionConfig(host string, port int, opts ...ConnOption) (*ConnectionConfig, error) {
	cfg := &ConnectionConfig{
		timeout: DefaultTimeout,
		logger:  logger.GetLogger(),
	}

	if err := cfg.setHost(host); err != nil {
		return nil, err
	}
	if err := cfg.setPort(port); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.exchanger == nil {
		cfg.exchanger = &transport.Dialer{Logger: cfg.logger}
	}
	if cfg.metrics == nil {
		cfg.metrics = &ClientMetrics{}
	}

	return cfg, nil
}

func (cfg *ConnectionConfig) setHost(host string) error {
	if ip := net.ParseIP(host); ip != nil {
		cfg.host = host
		return nil
	}

	host = strings.TrimPrefix(host, ".")
	host = strings.TrimSuffix(host, ".")
	if _, err := net.LookupHost(host); err == nil {
		cfg.host = host
		return nil
	}

	return fmt.Errorf("ema: invalid host %q", host)
}

func (cfg *ConnectionConfig) setPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("ema: port %d out of range [1, 65535]", port)
	}
	cfg.port = port

	return nil
}

// Host returns the configured host address.
func (cfg *ConnectionConfig) Host() string { return cfg.host }

// Port returns the configured TCP port.
func (cfg *ConnectionConfig) Port() int { return cfg.port }

// Addr returns "host:port".
func (cfg *ConnectionConfig) Addr() string {
	return net.JoinHostPort(cfg.host, strconv.Itoa(cfg.port))
}

// Timeout returns the per-exchange timeout.
func (cfg *ConnectionConfig) Timeout() time.Duration { return cfg.timeout }

// Metrics returns the counters updated by clients built from this config.
func (cfg *ConnectionConfig) Metrics() *ClientMetrics { return cfg.metrics }

// GetLogger returns the configured logger.
func (cfg *ConnectionConfig) GetLogger() logger.Logger { return cfg.logger }

// ConnOption is a functional option for configuring a ConnectionConfig.
type ConnOption interface {
	apply(*ConnectionConfig) error
}

type connOptFunc func(*ConnectionConfig) error

func (f connOptFunc) apply(cfg *ConnectionConfig) error { return f(cfg) }

// WithTimeout sets the time allowed for one exchange, from dial to reply delimiter.
func WithTimeout(d time.Duration) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if d < MinTimeout || d > MaxTimeout {
			return fmt.Errorf("ema: timeout %v out of range [%v, %v]", d, MinTimeout, MaxTimeout)
		}
		cfg.timeout = d

		return nil
	})
}

// WithLogger sets the logger for the client and its default transport.
func WithLogger(l logger.Logger) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if l == nil {
			return errors.New("ema: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}

// WithExchanger replaces the TCP transport, typically with a scripted fake in tests.
func WithExchanger(x transport.Exchanger) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if x == nil {
			return errors.New("ema: exchanger must not be nil")
		}
		cfg.exchanger = x

		return nil
	})
}

// WithMetrics shares a ClientMetrics instance between configurations.
func WithMetrics(m *ClientMetrics) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if m == nil {
			return errors.New("ema: metrics must not be nil")
		}
		cfg.metrics = m

		return nil
	})
}
