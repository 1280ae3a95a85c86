//go:build !linux

package raspberry

import (
	"errors"

	"uartdec/pkg/port"
)

// DefaultChip is the gpio character device of the raspberry pi header.
const DefaultChip = "gpiochip0"

var (
	ErrInvalidParam = errors.New("invalid parameters")
	ErrUnsupported  = errors.New("gpio lines are only supported on linux")
)

// Chip represents a single GPIO chip that controls a set of lines.
type Chip struct{}

// Line represents a single requested line.
type Line struct {
	Initial bool
	C       chan port.Event
}

// Open always fails on systems without gpio character devices.
func Open(name string) (*Chip, error) {
	return nil, ErrUnsupported
}

// NewLine always fails on systems without gpio character devices.
func (c *Chip) NewLine(gpio int, terminator string, buffer int) (*Line, error) {
	return nil, ErrUnsupported
}

// Close releases the Chip.
func (c *Chip) Close() error {
	return nil
}

// Close closes C.
func (l *Line) Close() error {
	close(l.C)
	return nil
}
