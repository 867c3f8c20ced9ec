// Package robot sequences the sample mounting and spinner calibration workflows of the
// robot controller.
//
// Every workflow is a strict linear sequence of commands, each awaiting its own completion
// token. The first failing step aborts the workflow and its error is returned; steps after
// it are never sent and nothing is undone, so the robot stays wherever the failed step left it.
package robot

import (
	"context"
	"errors"
	"fmt"

	"github.com/emacontrol/go-ema/calib"
	"github.com/emacontrol/go-ema/ema"
	"github.com/emacontrol/go-ema/geometry"
	"github.com/emacontrol/go-ema/logger"
)

var (
	// ErrNotConnected indicates a command issued before Connect succeeded.
	ErrNotConnected = errors.New("robot: not connected, call Connect first")

	// ErrStoreNil indicates a Robot created without a calibration store.
	ErrStoreNil = errors.New("robot: calibration store is nil")
)

// Robot drives one sample-mounting robot.
//
// A Robot is not safe for concurrent use; the controller accepts one command at a time.
type Robot struct {
	store  calib.Store
	sense  geometry.RotateSense
	logger logger.Logger

	client *ema.Client
	sample int
}

// Option configures a Robot.
type Option func(*Robot) error

// WithRotateSense sets the omega rotation sense used by the calibration workflows.
func WithRotateSense(s geometry.RotateSense) Option {
	return func(r *Robot) error {
		if err := s.Validate(); err != nil {
			return err
		}
		r.sense = s

		return nil
	}
}

// WithLogger sets the logger of the robot.
func WithLogger(l logger.Logger) Option {
	return func(r *Robot) error {
		if l == nil {
			return errors.New("robot: logger must not be nil")
		}
		r.logger = l

		return nil
	}
}

// New creates a disconnected Robot reading and writing calibration through store.
func New(store calib.Store, opts ...Option) (*Robot, error) {
	if store == nil {
		return nil, ErrStoreNil
	}

	r := &Robot{
		store:  store,
		sense:  geometry.Clockwise,
		logger: logger.GetLogger(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Connect points the robot at the controller described by cfg and checks that it answers.
// On failure the robot stays disconnected.
func (r *Robot) Connect(ctx context.Context, cfg *ema.ConnectionConfig) error {
	client, err := ema.NewClient(cfg)
	if err != nil {
		return err
	}

	if _, err := client.Send(ctx, cmdGetPowerState, ema.NoExpectation()); err != nil {
		return fmt.Errorf("robot: connect to %s: %w", cfg.Addr(), err)
	}

	r.client = client
	r.logger.Info("robot connected", "addr", cfg.Addr())

	return nil
}

// Disconnect forgets the controller. Subsequent commands fail with ErrNotConnected.
func (r *Robot) Disconnect() {
	r.client = nil
}

// IsConnected reports whether Connect has succeeded.
func (r *Robot) IsConnected() bool {
	return r.client != nil
}

// Sample returns the index of the mounted sample, 0 when none is mounted.
func (r *Robot) Sample() int {
	return r.sample
}

// RotateSense returns the configured omega rotation sense.
func (r *Robot) RotateSense() geometry.RotateSense {
	return r.sense
}

// Store returns the calibration store.
func (r *Robot) Store() calib.Store {
	return r.store
}

func (r *Robot) conn() (*ema.Client, error) {
	if r.client == nil {
		return nil, ErrNotConnected
	}

	return r.client, nil
}
