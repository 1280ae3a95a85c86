//go:build linux

// Package raspberry is the watcher for gpio lines
package raspberry

import (
	"fmt"

	"github.com/warthog618/gpiod"
	"github.com/womat/debug"
	"uartdec/pkg/port"
)

// DefaultChip is the gpio character device of the raspberry pi header.
const DefaultChip = "gpiochip0"

var ErrInvalidParam = fmt.Errorf("invalid parameters")

// Chip represents a single GPIO chip that controls a set of lines.
type Chip struct {
	gpiodChip *gpiod.Chip
}

// Line represents a single requested line.
type Line struct {
	gpiodLine *gpiod.Line
	// Initial is the line level when the line was requested.
	Initial bool
	// C receives the edges of the line, timestamps are the kernel event times.
	C chan port.Event
}

// Open opens a GPIO character device.
func Open(name string) (*Chip, error) {
	c, err := gpiod.NewChip(name)
	if err != nil {
		return nil, err
	}
	return &Chip{gpiodChip: c}, nil
}

// NewLine requests control of a single line on a chip.
//   If granted, control is maintained until the Line is closed.
//   Both edges are sent to channel C, buffer is the capacity of C.
//   There can only be one watcher on the line at a time.
func (c *Chip) NewLine(gpio int, terminator string, buffer int) (*Line, error) {
	var err error

	line := &Line{
		C: make(chan port.Event, buffer),
	}

	// handler runs in the event goroutine of gpiod and forwards the edges in kernel order
	handler := func(evt gpiod.LineEvent) {
		switch evt.Type {
		case gpiod.LineEventRisingEdge:
			line.C <- port.Event{Timestamp: evt.Timestamp.Seconds(), Level: true}
		case gpiod.LineEventFallingEdge:
			line.C <- port.Event{Timestamp: evt.Timestamp.Seconds(), Level: false}
		default:
			debug.ErrorLog.Printf("invalid line event type: %v", evt.Type)
		}
	}

	switch terminator {
	case "pullup":
		line.gpiodLine, err = c.gpiodChip.RequestLine(gpio, gpiod.WithEventHandler(handler),
			gpiod.WithBothEdges, gpiod.AsInput, gpiod.WithPullUp)
	case "pulldown":
		line.gpiodLine, err = c.gpiodChip.RequestLine(gpio, gpiod.WithEventHandler(handler),
			gpiod.WithBothEdges, gpiod.AsInput, gpiod.WithPullDown)
	case "none", "":
		line.gpiodLine, err = c.gpiodChip.RequestLine(gpio, gpiod.WithEventHandler(handler),
			gpiod.WithBothEdges, gpiod.AsInput)
	default:
		return nil, fmt.Errorf("%w: terminator %q", ErrInvalidParam, terminator)
	}
	if err != nil {
		return nil, err
	}

	v, err := line.gpiodLine.Value()
	if err != nil {
		_ = line.gpiodLine.Close()
		return nil, err
	}
	line.Initial = v == 1

	return line, nil
}

// Close releases the Chip.
//
// It does not release any lines which may be requested - they must be closed
// independently.
func (c *Chip) Close() error {
	return c.gpiodChip.Close()
}

// Close releases all resources held by the requested line and closes C.
//
// Note that this includes waiting for any running event handler to return.
// As a consequence the Close must not be called from the context of the event
// handler - the Close should be called from a different goroutine.
func (l *Line) Close() error {
	if err := l.gpiodLine.Close(); err != nil {
		return err
	}
	close(l.C)
	return nil
}
