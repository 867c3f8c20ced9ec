package robot

import (
	"context"
	"testing"

	"github.com/emacontrol/go-ema/calib"
	"github.com/emacontrol/go-ema/geometry"
	"github.com/emacontrol/go-ema/simulator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAxes = geometry.Axes{SamX: 4, SamY: 1, SamZ: 2, Omega: 120, DiffH: 3, DiffV: 5}

func TestRobot_CalibrateSpinner(t *testing.T) {
	ctx := context.Background()
	sim := newSimulator(t, simulator.WithSpinHome(geometry.Pos(982, 393, -653)))
	store := newFileStore(t)
	r := connectedRobot(t, sim, store)

	axes := testAxes
	axes.Omega = 90

	res, err := r.CalibrateSpinner(ctx, axes, false)
	require.NoError(t, err)
	assert.Equal(t, geometry.Pos(7, 7, -1), res.Diffr)
	assert.Equal(t, geometry.Pos(982, 393, -653), res.Spinner)
	assert.Nil(t, res.Origin)

	assert.Equal(t, []string{
		"getSpinHomePosition;",
		"setSpinPositionOffset:#X0.000#Y0.000#Z0.000;",
	}, sim.Received())

	diffr, err := store.Position(ctx, calib.DiffrCalibXYZ)
	require.NoError(t, err)
	assert.Equal(t, res.Diffr, diffr)

	spin, err := store.Position(ctx, calib.SpinCalibXYZ)
	require.NoError(t, err)
	assert.Equal(t, res.Spinner, spin)

	_, err = store.Position(ctx, calib.DiffrRobotOrigin)
	require.ErrorIs(t, err, calib.ErrMissingKey)
}

func TestRobot_CalibrateSpinnerSetOrigin(t *testing.T) {
	ctx := context.Background()
	sim := newSimulator(t, simulator.WithSpinHome(geometry.Pos(982, 393, -653)))
	store := newFileStore(t)
	r := connectedRobot(t, sim, store, WithRotateSense(geometry.CounterClockwise))

	axes := testAxes
	axes.Omega = 90

	res, err := r.CalibrateSpinner(ctx, axes, true)
	require.NoError(t, err)
	assert.Equal(t, geometry.Pos(7, 3, 1), res.Diffr)
	require.NotNil(t, res.Origin)
	assert.Equal(t, geometry.Pos(975, 390, -654), *res.Origin)

	origin, err := store.Position(ctx, calib.DiffrRobotOrigin)
	require.NoError(t, err)
	assert.Equal(t, *res.Origin, origin)
}

func TestRobot_CalibrateSpinnerStoresNothingOnReadFailure(t *testing.T) {
	ctx := context.Background()
	sim := newSimulator(t)
	sim.Override("getSpinHomePosition", "getSpinHomePosition:fail_'NotHomed';")
	store := newFileStore(t)
	r := connectedRobot(t, sim, store)

	_, err := r.CalibrateSpinner(ctx, testAxes, true)
	require.Error(t, err)

	positions, err := store.Positions(ctx)
	require.NoError(t, err)
	assert.Empty(t, positions)
}

func TestRobot_UpdateSpinner(t *testing.T) {
	ctx := context.Background()
	sim := newSimulator(t)
	store := newFileStore(t)
	require.NoError(t, store.SetPosition(ctx, calib.DiffrCalibXYZ, geometry.Pos(1.234, 5.678, 9.012)))
	r := connectedRobot(t, sim, store)

	offset, err := r.UpdateSpinner(ctx, testAxes)
	require.NoError(t, err)
	assert.Equal(t, geometry.Pos(5.766, 0.554, -10.878), offset)

	assert.Equal(t, []string{"setSpinPositionOffset:#X5.766#Y0.554#Z-10.878;"}, sim.Received())
	assert.True(t, sim.SpinOffset().ApproxEqual(offset, 1e-9))

	// the calibration itself is left untouched
	diffr, err := store.Position(ctx, calib.DiffrCalibXYZ)
	require.NoError(t, err)
	assert.Equal(t, geometry.Pos(1.234, 5.678, 9.012), diffr)
}

func TestRobot_UpdateSpinnerAtCalibratedPosition(t *testing.T) {
	ctx := context.Background()
	sim := newSimulator(t)
	store := newFileStore(t)
	r := connectedRobot(t, sim, store)

	_, err := r.CalibrateSpinner(ctx, testAxes, false)
	require.NoError(t, err)
	sim.ResetReceived()

	offset, err := r.UpdateSpinner(ctx, testAxes)
	require.NoError(t, err)
	assert.Equal(t, geometry.Position{}, offset)
	assert.Equal(t, []string{"setSpinPositionOffset:#X0.000#Y0.000#Z0.000;"}, sim.Received())
}

func TestRobot_UpdateSpinnerWithoutCalibration(t *testing.T) {
	sim := newSimulator(t)
	r := connectedRobot(t, sim, newFileStore(t))

	_, err := r.UpdateSpinner(context.Background(), testAxes)
	require.ErrorIs(t, err, calib.ErrMissingKey)
	assert.Empty(t, sim.Received())
}

func TestRobot_DiffrHome(t *testing.T) {
	ctx := context.Background()
	r, err := New(newFileStore(t))
	require.NoError(t, err)

	_, err = r.DiffrHome(ctx)
	require.ErrorIs(t, err, calib.ErrMissingKey)

	home, err := r.SetDiffrHome(ctx, testAxes)
	require.NoError(t, err)
	assert.Equal(t, geometry.Pos(7, 6.232, -1.866), home)

	got, err := r.DiffrHome(ctx)
	require.NoError(t, err)
	assert.Equal(t, home, got)
}
