// Package calib persists the named cartesian positions recorded by spinner calibration.
//
// Positions live in a "positions" section as comma-joined "x,y,z" values. Every read and
// write goes to durable storage synchronously; nothing is cached in memory, so a calibration
// survives a crash as soon as SetPosition returns.
package calib

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/emacontrol/go-ema/geometry"
)

// Section is the name of the section holding calibration positions.
const Section = "positions"

// Names of the positions written by the calibration workflows.
const (
	// DiffrHome is the diffractometer position at the last calibration.
	DiffrHome = "diffr_home"
	// DiffrCalibXYZ is the diffractometer axis reading, in the cartesian frame, at calibration time.
	DiffrCalibXYZ = "diffr_calib_xyz"
	// SpinCalibXYZ is the robot spinner position at calibration time.
	SpinCalibXYZ = "spin_calib_xyz"
	// DiffrRobotOrigin is the diffractometer origin expressed in the robot frame.
	DiffrRobotOrigin = "diffr_robot_origin"
)

var (
	// ErrMissingKey indicates that a calibration position has never been stored.
	ErrMissingKey = errors.New("calib: missing calibration key")

	// ErrMalformedPosition indicates a stored value that is not three comma separated numbers.
	ErrMalformedPosition = errors.New("calib: malformed position")
)

// Store reads and writes named calibration positions.
type Store interface {
	// Position returns the named position or an error wrapping ErrMissingKey.
	Position(ctx context.Context, name string) (geometry.Position, error)
	// SetPosition writes the named position, preserving all other keys.
	SetPosition(ctx context.Context, name string, p geometry.Position) error
	// Positions returns every stored position.
	Positions(ctx context.Context) (map[string]geometry.Position, error)
}

// ParsePosition parses an "x,y,z" value.
func ParsePosition(s string) (geometry.Position, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return geometry.Position{}, fmt.Errorf("%w: %q has %d components", ErrMalformedPosition, s, len(parts))
	}

	var v [3]float64
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return geometry.Position{}, fmt.Errorf("%w: %q: %w", ErrMalformedPosition, s, err)
		}
		v[i] = f
	}

	return geometry.Pos(v[0], v[1], v[2]), nil
}

// FormatPosition formats p as "x,y,z" using the shortest representation of each component.
func FormatPosition(p geometry.Position) string {
	return p.String()
}

func missing(name string) error {
	return fmt.Errorf("%w %q in section %q", ErrMissingKey, name, Section)
}
