// Package geometry converts diffractometer axis readings into the cartesian frame shared with
// the robot and derives the spinner offsets used to keep the two aligned.
//
// At omega = 0 the frame has z along the beam, x outboard (parallel to diffh) and y upward
// (parallel to diffv). Omega rotates about x, clockwise when facing the diffractometer unless
// CounterClockwise is selected.
package geometry

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/golang/geo/r3"
)

// Digits is the rounding applied to computed positions: one micron.
const Digits = 3

// ErrInvalidRotateSense indicates a rotation sense other than Clockwise or CounterClockwise.
var ErrInvalidRotateSense = errors.New("geometry: rotate sense must be 1 (clockwise) or -1 (counter-clockwise)")

// RotateSense is the sense of rotation of the omega axis.
type RotateSense int

const (
	Clockwise        RotateSense = 1
	CounterClockwise RotateSense = -1
)

// Validate returns ErrInvalidRotateSense for values other than 1 and -1.
func (s RotateSense) Validate() error {
	if s != Clockwise && s != CounterClockwise {
		return fmt.Errorf("%w: got %d", ErrInvalidRotateSense, int(s))
	}
	return nil
}

func (s RotateSense) String() string {
	switch s {
	case Clockwise:
		return "clockwise"
	case CounterClockwise:
		return "counter-clockwise"
	default:
		return strconv.Itoa(int(s))
	}
}

// Position is a cartesian position in millimetres.
type Position struct {
	X, Y, Z float64
}

// Pos is a shorthand for Position{x, y, z}.
func Pos(x, y, z float64) Position {
	return Position{X: x, Y: y, Z: z}
}

// FromVector converts an r3 vector.
func FromVector(v r3.Vector) Position {
	return Position{X: v.X, Y: v.Y, Z: v.Z}
}

// Vector returns the position as an r3 vector.
func (p Position) Vector() r3.Vector {
	return r3.Vector{X: p.X, Y: p.Y, Z: p.Z}
}

// Round rounds every component to the given number of decimals.
func (p Position) Round(digits int) Position {
	return Position{X: round(p.X, digits), Y: round(p.Y, digits), Z: round(p.Z, digits)}
}

// Sub returns p - q.
func (p Position) Sub(q Position) Position {
	return FromVector(p.Vector().Sub(q.Vector()))
}

// Add returns p + q.
func (p Position) Add(q Position) Position {
	return FromVector(p.Vector().Add(q.Vector()))
}

// ApproxEqual reports whether every component differs by at most tol.
func (p Position) ApproxEqual(q Position, tol float64) bool {
	d := p.Sub(q)
	return math.Abs(d.X) <= tol && math.Abs(d.Y) <= tol && math.Abs(d.Z) <= tol
}

// String formats the position as "x,y,z" using the shortest representation of each component.
func (p Position) String() string {
	return formatFloat(p.X) + "," + formatFloat(p.Y) + "," + formatFloat(p.Z)
}

// Axes are the diffractometer motor positions: sample goniometer translations in mm,
// omega in degrees and the diffractometer horizontal/vertical alignment in mm.
type Axes struct {
	SamX, SamY, SamZ float64
	Omega            float64
	DiffH, DiffV     float64
}

// DiffrPosToXYZ converts diffractometer axis positions to the cartesian frame, rounded to
// the nearest micron.
func DiffrPosToXYZ(a Axes, sense RotateSense) (Position, error) {
	if err := sense.Validate(); err != nil {
		return Position{}, err
	}

	angle := float64(sense) * -a.Omega * math.Pi / 180
	sin, cos := math.Sincos(angle)

	p := Position{
		X: a.SamX + a.DiffH,
		Y: a.SamY*cos - a.SamZ*sin + a.DiffV,
		Z: a.SamY*sin + a.SamZ*cos,
	}

	return p.Round(Digits), nil
}

// VectorCalc returns the translation that moves the calibrated diffractometer position onto
// the current one, rounded to the nearest micron.
func VectorCalc(current, calibrated Position) Position {
	return current.Sub(calibrated).Round(Digits)
}

// round rounds half away from zero and normalises negative zero.
func round(v float64, digits int) float64 {
	scale := math.Pow(10, float64(digits))
	r := math.Round(v*scale) / scale
	if r == 0 {
		return 0
	}

	return r
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
