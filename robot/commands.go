package robot

import (
	"context"
	"fmt"

	"github.com/emacontrol/go-ema/ema"
	"github.com/emacontrol/go-ema/geometry"
	"github.com/emacontrol/go-ema/message"
)

const (
	cmdGetPowerState       = "getPowerState;"
	cmdGetCoords           = "getCoords;"
	cmdGetSpinHomePosition = "getSpinHomePosition;"

	cmdSetCoords             = "setCoords"
	cmdSetSpinPositionOffset = "setSpinPositionOffset"

	offsetDigits = geometry.Digits
)

// step is one command and the reply that completes it.
type step struct {
	cmd  string
	done string
}

var (
	stepPowerOn  = step{"powerOn;", "powerOn:done;"}
	stepPowerOff = step{"powerOff;", "powerOff:done;"}
	stepReset    = step{"reset;", "reset:done;"}
	stepRestart  = step{"restartMotor;", "restartMotor:done;"}
	stepStart    = step{"start;", "start:done;"}
	stepStop     = step{"stopMotor;", "stopMotor:done;"}
	stepSetHomed = step{"setHomed;", "setHomed:done;"}

	stepNext    = step{"next;", "moveNext:done;"}
	stepPick    = step{"pick;", "pickSample:done;"}
	stepGate    = step{"gate;", "moveGate:done;"}
	stepSpinner = step{"spinner;", "moveSpinner:done;"}
	stepRelease = step{"release;", "releaseSample:done;"}
	stepOffside = step{"offside;", "moveOffside:done;"}
	stepCurrent = step{"current;", "moveCurrent:done;"}
)

func (r *Robot) do(ctx context.Context, s step) error {
	client, err := r.conn()
	if err != nil {
		return err
	}

	_, err = client.Send(ctx, s.cmd, ema.ExpectSuccess(s.done))

	return err
}

// PowerOn switches the robot power on.
func (r *Robot) PowerOn(ctx context.Context) error { return r.do(ctx, stepPowerOn) }

// PowerOff switches the robot power off.
func (r *Robot) PowerOff(ctx context.Context) error { return r.do(ctx, stepPowerOff) }

// Reset clears a controller error state.
func (r *Robot) Reset(ctx context.Context) error { return r.do(ctx, stepReset) }

// Restart restarts the motor controller.
func (r *Robot) Restart(ctx context.Context) error { return r.do(ctx, stepRestart) }

// Start starts the robot program.
func (r *Robot) Start(ctx context.Context) error { return r.do(ctx, stepStart) }

// Stop stops the motors.
func (r *Robot) Stop(ctx context.Context) error { return r.do(ctx, stepStop) }

// SetHomed confirms to the controller that the robot is at its home position.
func (r *Robot) SetHomed(ctx context.Context) error { return r.do(ctx, stepSetHomed) }

// PowerState reports whether the robot power is on.
func (r *Robot) PowerState(ctx context.Context) (bool, error) {
	client, err := r.conn()
	if err != nil {
		return false, err
	}

	reply, err := client.Send(ctx, cmdGetPowerState, ema.NoExpectation())
	if err != nil {
		return false, err
	}

	state, err := reply.Text(0)
	if err != nil {
		return false, err
	}

	switch state {
	case "On":
		return true, nil
	case "Off":
		return false, nil
	default:
		return false, fmt.Errorf("robot: unknown power state %q", state)
	}
}

// SetSampleCoords selects the magazine slot of the given sample for the next pick.
func (r *Robot) SetSampleCoords(ctx context.Context, index int) error {
	row, col, err := SampleToXY(index)
	if err != nil {
		return err
	}

	client, err := r.conn()
	if err != nil {
		return err
	}

	cmd := message.NewCommand(cmdSetCoords,
		message.P("X", message.IntValue(row)),
		message.P("Y", message.IntValue(col)),
	)
	_, err = client.SendCommand(ctx, cmd, ema.ExpectSuccess(cmdSetCoords+":done;"))

	return err
}

// Coords returns the magazine slot currently selected on the controller.
func (r *Robot) Coords(ctx context.Context) (row, col int, err error) {
	client, err := r.conn()
	if err != nil {
		return 0, 0, err
	}

	reply, err := client.Send(ctx, cmdGetCoords, ema.NoExpectation())
	if err != nil {
		return 0, 0, err
	}

	x, err := reply.Int("X")
	if err != nil {
		return 0, 0, err
	}
	y, err := reply.Int("Y")
	if err != nil {
		return 0, 0, err
	}

	return int(x), int(y), nil
}

// SpinHomePosition returns the spinner position reported by the robot.
func (r *Robot) SpinHomePosition(ctx context.Context) (geometry.Position, error) {
	client, err := r.conn()
	if err != nil {
		return geometry.Position{}, err
	}

	reply, err := client.Send(ctx, cmdGetSpinHomePosition, ema.NoExpectation())
	if err != nil {
		return geometry.Position{}, err
	}

	var v [3]float64
	for i, tag := range []string{"X", "Y", "Z"} {
		if v[i], err = reply.Float(tag); err != nil {
			return geometry.Position{}, err
		}
	}

	return geometry.Pos(v[0], v[1], v[2]), nil
}

// SetSpinPositionOffset shifts the robot's spinner target by offset, in millimetres.
func (r *Robot) SetSpinPositionOffset(ctx context.Context, offset geometry.Position) error {
	client, err := r.conn()
	if err != nil {
		return err
	}

	cmd := message.NewCommand(cmdSetSpinPositionOffset,
		message.P("X", message.FloatValue(offset.X)),
		message.P("Y", message.FloatValue(offset.Y)),
		message.P("Z", message.FloatValue(offset.Z)),
	)
	cmd.FloatDigits = offsetDigits

	_, err = client.SendCommand(ctx, cmd, ema.ExpectSuccess(cmdSetSpinPositionOffset+":done;"))

	return err
}
