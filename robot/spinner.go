package robot

import (
	"context"
	"fmt"

	"github.com/emacontrol/go-ema/calib"
	"github.com/emacontrol/go-ema/geometry"
)

// Calibration is the outcome of CalibrateSpinner.
type Calibration struct {
	// Diffr is the diffractometer position in the cartesian frame.
	Diffr geometry.Position
	// Spinner is the spinner position reported by the robot.
	Spinner geometry.Position
	// Origin is the diffractometer origin in the robot frame, set only when requested.
	Origin *geometry.Position
}

// CalibrateSpinner records the current diffractometer and spinner positions as the matched
// calibration pair and clears the spinner offset on the robot. With setOrigin it also stores
// the diffractometer origin in the robot frame.
func (r *Robot) CalibrateSpinner(ctx context.Context, axes geometry.Axes, setOrigin bool) (*Calibration, error) {
	if _, err := r.conn(); err != nil {
		return nil, err
	}

	spin, err := r.SpinHomePosition(ctx)
	if err != nil {
		return nil, fmt.Errorf("robot: calibrate spinner: read spinner position: %w", err)
	}

	diffr, err := geometry.DiffrPosToXYZ(axes, r.sense)
	if err != nil {
		return nil, err
	}

	if err := r.store.SetPosition(ctx, calib.DiffrCalibXYZ, diffr); err != nil {
		return nil, fmt.Errorf("robot: calibrate spinner: %w", err)
	}
	if err := r.store.SetPosition(ctx, calib.SpinCalibXYZ, spin); err != nil {
		return nil, fmt.Errorf("robot: calibrate spinner: %w", err)
	}

	if err := r.SetSpinPositionOffset(ctx, geometry.Position{}); err != nil {
		return nil, fmt.Errorf("robot: calibrate spinner: reset offset: %w", err)
	}

	res := &Calibration{Diffr: diffr, Spinner: spin}

	if setOrigin {
		origin := geometry.VectorCalc(spin, diffr)
		if err := r.store.SetPosition(ctx, calib.DiffrRobotOrigin, origin); err != nil {
			return nil, fmt.Errorf("robot: calibrate spinner: %w", err)
		}
		res.Origin = &origin
	}

	r.logger.Info("spinner calibrated",
		"diffr", diffr.String(),
		"spinner", spin.String(),
		"set_origin", setOrigin,
	)

	return res, nil
}

// UpdateSpinner sends the offset between the current diffractometer position and the one
// recorded at calibration, so the robot's spinner target follows the beam. Nothing is stored.
func (r *Robot) UpdateSpinner(ctx context.Context, axes geometry.Axes) (geometry.Position, error) {
	if _, err := r.conn(); err != nil {
		return geometry.Position{}, err
	}

	current, err := geometry.DiffrPosToXYZ(axes, r.sense)
	if err != nil {
		return geometry.Position{}, err
	}

	calibrated, err := r.store.Position(ctx, calib.DiffrCalibXYZ)
	if err != nil {
		return geometry.Position{}, fmt.Errorf("robot: update spinner: %w", err)
	}

	offset := geometry.VectorCalc(current, calibrated)
	if err := r.SetSpinPositionOffset(ctx, offset); err != nil {
		return geometry.Position{}, fmt.Errorf("robot: update spinner: %w", err)
	}

	r.logger.Info("spinner offset updated", "offset", offset.String())

	return offset, nil
}

// SetDiffrHome stores the current diffractometer position as the beam-aligned home.
func (r *Robot) SetDiffrHome(ctx context.Context, axes geometry.Axes) (geometry.Position, error) {
	home, err := geometry.DiffrPosToXYZ(axes, r.sense)
	if err != nil {
		return geometry.Position{}, err
	}

	if err := r.store.SetPosition(ctx, calib.DiffrHome, home); err != nil {
		return geometry.Position{}, fmt.Errorf("robot: set diffractometer home: %w", err)
	}

	return home, nil
}

// DiffrHome returns the stored beam-aligned diffractometer home.
func (r *Robot) DiffrHome(ctx context.Context) (geometry.Position, error) {
	return r.store.Position(ctx, calib.DiffrHome)
}
