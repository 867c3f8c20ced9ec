package robot

import (
	"context"
	"fmt"
)

var (
	mountSteps   = []step{stepNext, stepPick, stepGate, stepSpinner, stepRelease, stepOffside}
	unmountSteps = []step{stepSpinner, stepPick, stepGate, stepCurrent, stepRelease}
)

// Mount moves sample index from the magazine onto the spinner.
func (r *Robot) Mount(ctx context.Context, index int) error {
	if _, err := r.conn(); err != nil {
		return err
	}
	if _, _, err := SampleToXY(index); err != nil {
		return err
	}

	log := r.logger.With("workflow", "mount", "sample", index)
	log.Info("mount started")

	if err := r.SetSampleCoords(ctx, index); err != nil {
		return fmt.Errorf("robot: mount sample %d: set coordinates: %w", index, err)
	}
	if err := r.SetHomed(ctx); err != nil {
		return fmt.Errorf("robot: mount sample %d: confirm homing: %w", index, err)
	}
	if err := r.run(ctx, mountSteps); err != nil {
		return fmt.Errorf("robot: mount sample %d: %w", index, err)
	}

	r.sample = index
	log.Info("mount finished")

	return nil
}

// Unmount moves the sample on the spinner back to its magazine slot.
func (r *Robot) Unmount(ctx context.Context) error {
	if _, err := r.conn(); err != nil {
		return err
	}

	log := r.logger.With("workflow", "unmount", "sample", r.sample)
	log.Info("unmount started")

	if err := r.run(ctx, unmountSteps); err != nil {
		return fmt.Errorf("robot: unmount: %w", err)
	}

	r.sample = 0
	log.Info("unmount finished")

	return nil
}

// run sends steps in order and stops at the first failure.
func (r *Robot) run(ctx context.Context, steps []step) error {
	for i, s := range steps {
		if err := r.do(ctx, s); err != nil {
			return fmt.Errorf("step %d/%d %q: %w", i+1, len(steps), s.cmd, err)
		}
	}

	return nil
}
