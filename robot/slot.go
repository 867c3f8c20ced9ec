package robot

import (
	"errors"
	"fmt"
)

// GridWidth is the number of columns of the sample magazine.
const GridWidth = 10

// ErrInvalidSampleIndex indicates a sample index below 1.
var ErrInvalidSampleIndex = errors.New("robot: sample index must be greater than 0")

// SampleToXY maps a 1-based sample index onto the zero-based (row, column) of the magazine grid.
func SampleToXY(index int) (row, col int, err error) {
	if index < 1 {
		return 0, 0, fmt.Errorf("%w: got %d", ErrInvalidSampleIndex, index)
	}

	return (index - 1) / GridWidth, (index - 1) % GridWidth, nil
}

// XYToSample is the inverse of SampleToXY.
func XYToSample(row, col int) (int, error) {
	if row < 0 || col < 0 || col >= GridWidth {
		return 0, fmt.Errorf("robot: grid position (%d, %d) outside a %d column magazine", row, col, GridWidth)
	}

	return row*GridWidth + col + 1, nil
}
